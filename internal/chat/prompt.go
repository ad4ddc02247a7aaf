package chat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxContextBytes caps how much of the context file is inlined into
// the system prompt.
const maxContextBytes = 48000

const promptIntro = "You are GitHub Copilot, a helpful AI programming assistant integrated into a terminal editor."

const promptStyle = "Be concise and helpful. Format explanatory code with fenced markdown code blocks."

const promptEditContract = "When asked to edit or fix code in the current file, output ONLY the changed lines using this exact format:\n" +
	"```edit\n" +
	"<<<\n" +
	"start_line: <1-based line number>\n" +
	"end_line: <1-based line number, inclusive>\n" +
	"---\n" +
	"<replacement lines here>\n" +
	">>>\n" +
	"```\n" +
	"Use one <<<...>>> block per contiguous changed region. Do NOT output the whole file. " +
	"start_line/end_line refer to the CURRENT line numbers in the file. " +
	"end_line must include every existing line you are replacing or removing - if your " +
	"replacement ends with a closing bracket/delimiter that already exists just after end_line, " +
	"extend end_line to include it, otherwise it will be duplicated in the file. " +
	"To insert lines before line N: set start_line=N, end_line=N-1 (end < start means pure insert). " +
	"To delete lines: set start_line/end_line to the range and leave replacement empty. " +
	"If the user is NOT asking to edit the file, just reply normally with text or code blocks."

// BuildSystemMessage assembles the system prompt. When the context
// file exists its contents are inlined with 1-based line numbers so
// the model can produce edit hunks against current positions; a file
// that cannot be read drops the whole context section.
func BuildSystemMessage(contextFile string, cursorLine *int, selection string) string {
	parts := []string{promptIntro, promptStyle, promptEditContract}

	if contextFile != "" {
		if content, ok := readContextFile(contextFile); ok {
			lang := strings.TrimPrefix(filepath.Ext(contextFile), ".")
			if lang == "" {
				lang = "text"
			}
			parts = append(parts, fmt.Sprintf("\nThe user is editing: `%s`", contextFile))
			if cursorLine != nil {
				parts = append(parts, fmt.Sprintf("Their cursor is on line %d.", *cursorLine+1))
			}
			if selection != "" {
				parts = append(parts, fmt.Sprintf("\nSelected text:\n```%s\n%s\n```", lang, selection))
			}
			parts = append(parts, fmt.Sprintf("\nFull file contents (with line numbers):\n```\n%s\n```", numberLines(content)))
		}
	}

	return strings.Join(parts, "\n")
}

// readContextFile reads at most maxContextBytes from a regular file.
func readContextFile(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	buf := make([]byte, maxContextBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false
	}
	return string(buf[:n]), true
}

// numberLines renders content as "1: first line" style numbered text.
func numberLines(content string) string {
	var b strings.Builder
	for i, line := range splitLines(content) {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d: %s", i+1, line)
	}
	return b.String()
}
