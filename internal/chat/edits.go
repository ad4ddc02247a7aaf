package chat

import (
	"regexp"
	"strconv"
	"strings"
)

// Edit is one contiguous replacement region. Line numbers are 1-based
// and inclusive; EndLine < StartLine means a pure insert before
// StartLine, and an empty Replacement deletes the range.
type Edit struct {
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Replacement string `json:"replacement"`
}

var (
	// An edit block runs to its closing fence, or to the end of a reply
	// that was cut off mid-stream.
	editBlockRe = regexp.MustCompile("(?s)```edit\\s*\\n(.*?)(?:```|$)")
	editHunkRe  = regexp.MustCompile(`(?s)<<<\s*\n(.*?)>>>`)

	// Models sometimes echo the prompt's line numbering back.
	lineNumRe = regexp.MustCompile(`^\d+:\s?`)
)

// ExtractEdits pulls structured edit hunks out of a model reply.
// Hunks with missing or malformed line fields are skipped; the result
// is always non-nil.
func ExtractEdits(text string) []Edit {
	edits := []Edit{}
	for _, block := range editBlockRe.FindAllStringSubmatch(text, -1) {
		for _, hunk := range editHunkRe.FindAllStringSubmatch(block[1], -1) {
			if edit, ok := parseHunk(hunk[1]); ok {
				edits = append(edits, edit)
			}
		}
	}
	return edits
}

func parseHunk(hunk string) (Edit, bool) {
	lines := splitLines(hunk)

	start, ok := lineField(lines, "start_line:")
	if !ok {
		return Edit{}, false
	}
	end, ok := lineField(lines, "end_line:")
	if !ok {
		return Edit{}, false
	}

	// Everything after the first "---" separator is the replacement.
	// A hunk without one is a deletion.
	replacement := ""
	for i, line := range lines {
		if strings.TrimSpace(line) != "---" {
			continue
		}
		stripped := make([]string, 0, len(lines)-i-1)
		for _, rl := range lines[i+1:] {
			stripped = append(stripped, lineNumRe.ReplaceAllString(rl, ""))
		}
		replacement = strings.Join(stripped, "\n")
		break
	}

	return Edit{StartLine: start, EndLine: end, Replacement: replacement}, true
}

// lineField parses the value of the first line carrying the given
// field prefix.
func lineField(lines []string, prefix string) (int, bool) {
	for _, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		parts := strings.Split(line, ":")
		if len(parts) < 2 {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// splitLines splits on newlines without a trailing empty line, so
// "a\nb\n" yields the same two lines as "a\nb".
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
