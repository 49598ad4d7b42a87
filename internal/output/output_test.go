package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanfind/internal/search"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{" JSON ", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriter_NoColorForBuffers(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Success("Imported 3 records")
	w.Warning("catalog is empty")
	w.Error("import failed")
	w.Statusf("", "indexed %d", 3)

	assert.Equal(t, "✓ Imported 3 records\n! catalog is empty\n✗ import failed\n   indexed 3\n", buf.String())
	assert.False(t, IsTTY(buf))
}

func TestWriter_ForcedColor(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)
	w.SetColor(true)

	w.Success("ok")
	assert.Equal(t, "\033[32m✓\033[0m ok\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).JSON(map[string]int{"total": 2}))
	assert.Equal(t, "{\n  \"total\": 2\n}\n", buf.String())
}

func TestWriter_Results(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Results([]*search.Result{
		{ID: 1, Name: "vacation_photo.jpg", Type: "image", Size: 2048, Score: 130, MatchType: search.MatchExact},
		{ID: 2, Name: "clip.mp4", Type: "video", Size: 10, Score: 60, MatchType: search.MatchFuzzy},
	}, false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Regexp(t, `^1\s+1\s+vacation_photo\.jpg\s+image\s+2\.0KB\s+130\s+exact$`, lines[1])
	assert.Regexp(t, `^2\s+2\s+clip\.mp4\s+video\s+10B\s+60\s+fuzzy$`, lines[2])
}

func TestWriter_ResultsExplain(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Results([]*search.Result{{
		ID: 1, Name: "a.jpg", Type: "image", Score: 130, MatchType: search.MatchExact,
		Breakdown: &search.ScoreBreakdown{Base: 100, Name: 30, Total: 130},
		Explain: &search.ExplainData{
			Query:      "a @type:image",
			Terms:      "a",
			FilterText: "a type:image",
			Expansions: []string{"a"},
			UseFuzzy:   true,
			Candidates: map[search.MatchType]int{search.MatchExact: 1, search.MatchFuzzy: 2},
			Survivors:  1,
		},
	}}, true)

	out := buf.String()
	assert.Contains(t, out, `query:      "a @type:image"`)
	assert.Contains(t, out, "candidates: exact=1 fuzzy=2 (after filters: 1)")
	assert.Contains(t, out, "base=100 name=30 interaction=0 recency=0 prior=0")
}

func TestWriter_NoResults(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Results(nil, true)
	assert.Equal(t, "· No results\n", buf.String())
}

func TestWriter_Suggestions(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Suggestions([]search.Suggestion{{ID: 4, Name: "vacation.jpg", Type: "image"}})
	assert.Equal(t, "vacation.jpg (image, id 4)\n", buf.String())
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "0B", HumanSize(0))
	assert.Equal(t, "1023B", HumanSize(1023))
	assert.Equal(t, "1.5KB", HumanSize(1536))
	assert.Equal(t, "5.0MB", HumanSize(5*1024*1024))
	assert.Equal(t, "2.0GB", HumanSize(2<<30))
}

func TestWriter_Progress(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)
	w.Progress(0, 0, "skip")
	assert.Empty(t, buf.String())

	w.Progress(2, 2, "done")
	assert.Equal(t, "\r["+strings.Repeat("█", 30)+"] 100% done\n", buf.String())
}
