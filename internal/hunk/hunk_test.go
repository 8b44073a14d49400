package hunk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Hunk
		wantOK bool
	}{
		{
			name:   "full",
			line:   "@@ -10,3 +12,5 @@",
			want:   Hunk{OldStart: 10, OldCount: 3, NewStart: 12, NewCount: 5, Header: "@@ -10,3 +12,5 @@"},
			wantOK: true,
		},
		{
			name:   "omitted_counts",
			line:   "@@ -10 +12 @@",
			want:   Hunk{OldStart: 10, OldCount: 1, NewStart: 12, NewCount: 1, Header: "@@ -10 +12 @@"},
			wantOK: true,
		},
		{
			name:   "section",
			line:   "@@ -1,2 +1,3 @@ func main() {",
			want:   Hunk{OldStart: 1, OldCount: 2, NewStart: 1, NewCount: 3, Header: "@@ -1,2 +1,3 @@ func main() {", Section: "func main() {"},
			wantOK: true,
		},
		{
			name:   "pure_deletion",
			line:   "@@ -5,2 +4,0 @@",
			want:   Hunk{OldStart: 5, OldCount: 2, NewStart: 4, NewCount: 0, Header: "@@ -5,2 +4,0 @@"},
			wantOK: true,
		},
		{name: "combined_diff", line: "@@@ -1,2 -1,2 +1,3 @@@"},
		{name: "not_a_header", line: "+@@ -1 +1 @@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHeader(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

const sampleDiff = `diff --git a/calc.go b/calc.go
index 1111111..2222222 100644
--- a/calc.go
+++ b/calc.go
@@ -2,3 +2,4 @@ package calc
 func Add(a, b int) int {
-	return a - b
+	// fixed
+	return a + b
 }
\ No newline at end of file
@@ -20,2 +21,2 @@ func Sub(a, b int) int {
-	x := 1
+	x := 2
 	return x
`

func TestParse(t *testing.T) {
	hunks := Parse(sampleDiff)
	require.Len(t, hunks, 2)

	h := hunks[0]
	assert.Equal(t, 2, h.OldStart)
	assert.Equal(t, 4, h.NewCount)
	assert.Equal(t, "package calc", h.Section)
	require.Len(t, h.Lines, 5)

	assert.Equal(t, Line{Kind: Context, Text: "func Add(a, b int) int {", OldLine: 2, NewLine: 2}, h.Lines[0])
	assert.Equal(t, Line{Kind: Removed, Text: "\treturn a - b", OldLine: 3, NewLine: 2}, h.Lines[1])
	assert.Equal(t, Line{Kind: Added, Text: "\t// fixed", NewLine: 3}, h.Lines[2])
	assert.Equal(t, Line{Kind: Added, Text: "\treturn a + b", NewLine: 4}, h.Lines[3])
	assert.Equal(t, Line{Kind: Context, Text: "}", OldLine: 4, NewLine: 5}, h.Lines[4])

	added, removed := h.Counts()
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)

	assert.Equal(t, 21, hunks[1].NewStart)
	assert.Len(t, hunks[1].Lines, 3)
}

func TestParse_SkipsUnknownMarkers(t *testing.T) {
	diff := "@@ -1,2 +1,2 @@\n a\n?garbage\n-b\n+c\n"
	hunks := Parse(diff)
	require.Len(t, hunks, 1)
	require.Len(t, hunks[0].Lines, 3)
	assert.Equal(t, Removed, hunks[0].Lines[1].Kind)
}

func TestParse_RemovedLineThatLooksLikeHeader(t *testing.T) {
	// "--- x" inside a hunk body is a removed line whose text starts "-- x".
	diff := "@@ -1,2 +1,1 @@\n--- x\n keep\n"
	hunks := Parse(diff)
	require.Len(t, hunks, 1)
	require.Len(t, hunks[0].Lines, 2)
	assert.Equal(t, Line{Kind: Removed, Text: "-- x", OldLine: 1}, hunks[0].Lines[0])
}

func TestParse_PreservesBytes(t *testing.T) {
	diff := "@@ -1 +1 @@\n-old\r\n+new\t \r\n"
	hunks := Parse(diff)
	require.Len(t, hunks, 1)
	assert.Equal(t, "old\r", hunks[0].Lines[0].Text)
	assert.Equal(t, "new\t \r", hunks[0].Lines[1].Text)
}

func TestParse_FileOrder(t *testing.T) {
	diff := "@@ -50 +60 @@\n-a\n+b\n@@ -1 +1 @@\n-c\n+d\n"
	hunks := Parse(diff)
	require.Len(t, hunks, 2)
	assert.Equal(t, 1, hunks[0].NewStart)
	assert.Equal(t, 60, hunks[1].NewStart)
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("diff --git a/x b/x\nBinary files differ\n"))
}

func TestHunk_String(t *testing.T) {
	diff := "@@ -1,2 +1,2 @@ ctx\n keep\n-old\n+new"
	hunks := Parse(diff)
	require.Len(t, hunks, 1)
	assert.Equal(t, diff, hunks[0].String())
}

func TestKind_JSON(t *testing.T) {
	b, err := json.Marshal(Line{Kind: Removed, Text: "x", OldLine: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"removed","text":"x","old_line":3}`, string(b))

	var l Line
	require.NoError(t, json.Unmarshal(b, &l))
	assert.Equal(t, Removed, l.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"weird"}`), &l))
}
