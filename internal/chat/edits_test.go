package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEdits_SingleHunk(t *testing.T) {
	reply := "Here is the fix:\n```edit\n<<<\nstart_line: 3\nend_line: 5\n---\nfor i := range items {\n\tprocess(items[i])\n}\n>>>\n```\nDone."

	edits := ExtractEdits(reply)

	require.Len(t, edits, 1)
	assert.Equal(t, Edit{
		StartLine:   3,
		EndLine:     5,
		Replacement: "for i := range items {\n\tprocess(items[i])\n}",
	}, edits[0])
}

func TestExtractEdits_MultipleHunksAndBlocks(t *testing.T) {
	reply := "```edit\n" +
		"<<<\nstart_line: 1\nend_line: 1\n---\npackage main\n>>>\n" +
		"<<<\nstart_line: 10\nend_line: 12\n---\nreturn nil\n>>>\n" +
		"```\n" +
		"And one more region:\n" +
		"```edit\n<<<\nstart_line: 20\nend_line: 20\n---\nx := 1\n>>>\n```\n"

	edits := ExtractEdits(reply)

	require.Len(t, edits, 3)
	assert.Equal(t, 1, edits[0].StartLine)
	assert.Equal(t, 10, edits[1].StartLine)
	assert.Equal(t, 20, edits[2].StartLine)
}

func TestExtractEdits_UnterminatedBlock(t *testing.T) {
	// A reply cut off mid-stream loses its closing fence.
	reply := "```edit\n<<<\nstart_line: 2\nend_line: 2\n---\nfixed\n>>>"

	edits := ExtractEdits(reply)

	require.Len(t, edits, 1)
	assert.Equal(t, "fixed", edits[0].Replacement)
}

func TestExtractEdits_MissingSeparatorDeletes(t *testing.T) {
	reply := "```edit\n<<<\nstart_line: 4\nend_line: 6\n>>>\n```"

	edits := ExtractEdits(reply)

	require.Len(t, edits, 1)
	assert.Equal(t, Edit{StartLine: 4, EndLine: 6, Replacement: ""}, edits[0])
}

func TestExtractEdits_InsertHunk(t *testing.T) {
	reply := "```edit\n<<<\nstart_line: 7\nend_line: 6\n---\nimport \"fmt\"\n>>>\n```"

	edits := ExtractEdits(reply)

	require.Len(t, edits, 1)
	assert.Less(t, edits[0].EndLine, edits[0].StartLine, "end before start marks an insert")
	assert.Equal(t, "import \"fmt\"", edits[0].Replacement)
}

func TestExtractEdits_StripsEchoedLineNumbers(t *testing.T) {
	reply := "```edit\n<<<\nstart_line: 1\nend_line: 2\n---\n1: func main() {\n2: \tfmt.Println(\"hi\")\n>>>\n```"

	edits := ExtractEdits(reply)

	require.Len(t, edits, 1)
	assert.Equal(t, "func main() {\n\tfmt.Println(\"hi\")", edits[0].Replacement)
}

func TestExtractEdits_SkipsMalformedHunks(t *testing.T) {
	reply := "```edit\n" +
		"<<<\nend_line: 5\n---\nmissing start\n>>>\n" +
		"<<<\nstart_line: abc\nend_line: 5\n---\nbad int\n>>>\n" +
		"<<<\nstart_line: 8\nend_line: 8\n---\ngood\n>>>\n" +
		"```"

	edits := ExtractEdits(reply)

	require.Len(t, edits, 1)
	assert.Equal(t, 8, edits[0].StartLine)
	assert.Equal(t, "good", edits[0].Replacement)
}

func TestExtractEdits_IgnoresOrdinaryCodeBlocks(t *testing.T) {
	reply := "Use this instead:\n```go\nfunc f() {}\n```\nNo edits here."

	edits := ExtractEdits(reply)

	assert.NotNil(t, edits)
	assert.Empty(t, edits)
}
