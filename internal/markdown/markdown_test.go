package markdown

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteHeadingAndSegments(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	defer w.Close()

	require.NoError(t, w.Write(Segment{MinuteKey: "09:00", Text: "hello", ChunkSeq: 0}))
	require.NoError(t, w.Write(Segment{MinuteKey: "09:00", Text: "world", Speaker: "Alice", ChunkSeq: 1}))

	path := dir + "/" + w.date + ".md"
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	require.Contains(t, content, "## 09:00\n\n")
	require.Equal(t, 1, countOccurrences(content, "## 09:00"))
	require.Contains(t, content, "hello\n\n")
	require.Contains(t, content, "**Alice:** world\n\n")
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
