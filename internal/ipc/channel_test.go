package ipc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChannel(t *testing.T) *Channel {
	t.Helper()
	return New(t.TempDir(), CompletionNames, nil)
}

func appendCmd(t *testing.T, c *Channel, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(c.CommandPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	for _, l := range lines {
		_, err := f.WriteString(l + "\n")
		require.NoError(t, err)
	}
}

func TestChannel_PollTailsAppends(t *testing.T) {
	c := testChannel(t)

	appendCmd(t, c, `{"type":"openDocument","uri":"file:///a.go"}`, `{"type":"closeDocument","uri":"file:///a.go"}`)

	cmds, err := c.Poll()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, CmdOpenDocument, cmds[0].Type)
	assert.Equal(t, CmdCloseDocument, cmds[1].Type)

	// Nothing new: empty poll.
	cmds, err = c.Poll()
	require.NoError(t, err)
	assert.Empty(t, cmds)

	// Only growth past the offset is delivered.
	appendCmd(t, c, `{"type":"signIn","id":3}`)
	cmds, err = c.Poll()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, CmdSignIn, cmds[0].Type)
	assert.Equal(t, json.RawMessage("3"), cmds[0].ID)
}

func TestChannel_PollMissingFile(t *testing.T) {
	c := testChannel(t)

	cmds, err := c.Poll()
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestChannel_PollTruncationRewinds(t *testing.T) {
	c := testChannel(t)

	appendCmd(t, c, `{"type":"openDocument","uri":"file:///a.go"}`)
	cmds, err := c.Poll()
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	// Host truncates and starts a fresh log. The shorter size rewinds the
	// offset; the old consumed line is gone and must not come back.
	require.NoError(t, os.WriteFile(c.CommandPath(), []byte(`{"type":"signOut","id":9}`+"\n"), 0o644))

	cmds, err = c.Poll()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, CmdSignOut, cmds[0].Type)

	cmds, err = c.Poll()
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestChannel_PollSkipsMalformedLines(t *testing.T) {
	c := testChannel(t)

	appendCmd(t, c,
		`{"type":"openDocument","uri":"file:///a.go"}`,
		`{not json at all`,
		``,
		`{"type":"closeDocument","uri":"file:///a.go"}`,
	)

	cmds, err := c.Poll()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, CmdOpenDocument, cmds[0].Type)
	assert.Equal(t, CmdCloseDocument, cmds[1].Type)
}

func TestChannel_EmitWritesOneStampedLine(t *testing.T) {
	c := testChannel(t)

	err := c.Emit(CompletionResultEvent{
		ID:    json.RawMessage("7"),
		Items: []CompletionItem{{InsertText: "func main() {}"}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(c.Dir(), CompletionNames.Resp))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"))

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "completionResult", got["type"])
	assert.Equal(t, float64(7), got["id"])
	assert.Len(t, got["items"], 1)
}

func TestChannel_EmitConcurrentLinesStayWhole(t *testing.T) {
	c := testChannel(t)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := c.Emit(StatusChangedEvent{Message: strings.Repeat("x", 200), Kind: "Normal"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(c.Dir(), CompletionNames.Resp))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, writers*perWriter)
	for _, line := range lines {
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &got), "interleaved line: %q", line)
		assert.Equal(t, "statusChanged", got["type"])
	}
}

func TestChannel_Reset(t *testing.T) {
	c := testChannel(t)

	appendCmd(t, c, `{"type":"openDocument","uri":"file:///a.go"}`)
	_, err := c.Poll()
	require.NoError(t, err)
	require.NoError(t, c.Emit(ReadyEvent{}))

	require.NoError(t, c.Reset())

	for _, name := range []string{CompletionNames.Cmd, CompletionNames.Resp} {
		data, err := os.ReadFile(filepath.Join(c.Dir(), name))
		require.NoError(t, err)
		assert.Empty(t, data)
	}

	// The rewound offset picks up fresh content from the top.
	appendCmd(t, c, `{"type":"signIn","id":1}`)
	cmds, err := c.Poll()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, CmdSignIn, cmds[0].Type)
}

func TestChannel_WriteReady(t *testing.T) {
	c := testChannel(t)

	require.NoError(t, c.WriteReady())

	data, err := os.ReadFile(filepath.Join(c.Dir(), CompletionNames.Ready))
	require.NoError(t, err)
	assert.Equal(t, "ready\n", string(data))
}

func TestCommand_Decode(t *testing.T) {
	c := testChannel(t)

	appendCmd(t, c,
		`{"type":"openDocument","uri":"file:///a.go","languageId":"go","version":0,"text":"package a"}`,
		`{"type":"openDocument","uri":"file:///b.go"}`,
	)
	cmds, err := c.Poll()
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	var withVersion OpenDocument
	require.NoError(t, cmds[0].Decode(&withVersion))
	require.NotNil(t, withVersion.Version)
	assert.Equal(t, 0, *withVersion.Version, "explicit zero must survive decoding")
	assert.Equal(t, "go", withVersion.LanguageID)

	var bare OpenDocument
	require.NoError(t, cmds[1].Decode(&bare))
	assert.Nil(t, bare.Version, "absent version must stay distinguishable")
	assert.Empty(t, bare.LanguageID)
}

func TestEventWireShapes(t *testing.T) {
	tests := []struct {
		name    string
		ev      Event
		want    []string
		exclude []string
	}{
		{
			name:    "signInResult without device flow",
			ev:      SignInResultEvent{ID: json.RawMessage("1"), UserCode: "", VerificationURI: ""},
			want:    []string{`"userCode":""`, `"verificationUri":""`},
			exclude: []string{`"command"`},
		},
		{
			name: "signInResult with null command keeps the key",
			ev:   SignInResultEvent{ID: json.RawMessage("2"), Command: json.RawMessage("null")},
			want: []string{`"command":null`},
		},
		{
			name: "commandResult keeps null result",
			ev:   CommandResultEvent{ID: json.RawMessage("3")},
			want: []string{`"result":null`},
		},
		{
			name: "completionResult keeps empty items",
			ev:   CompletionResultEvent{ID: json.RawMessage("4"), Items: []CompletionItem{}},
			want: []string{`"items":[]`},
		},
		{
			name: "completion item carries explicit nulls",
			ev: CompletionResultEvent{ID: json.RawMessage("5"), Items: []CompletionItem{
				{InsertText: "x"},
			}},
			want: []string{`"range":null`, `"command":null`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ev)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, string(data), w)
			}
			for _, e := range tt.exclude {
				assert.NotContains(t, string(data), e)
			}
		})
	}
}

func TestInstanceDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/custom", "42"), InstanceDir("/custom", 42))

	t.Setenv("XDG_CACHE_HOME", "/xdg-cache")
	got := InstanceDir("", 7)
	assert.Equal(t, filepath.Join("/xdg-cache", "copilot-bridge", "ipc", "7"), got)
}

func TestCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ipc", "99")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmd"), []byte("x"), 0o644))

	require.NoError(t, Cleanup(dir))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
