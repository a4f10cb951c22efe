package chapters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertCovers checks that chapters are sorted, contiguous, non-empty and
// span the whole text.
func assertCovers(t *testing.T, text string, chapters []Chapter) {
	t.Helper()

	require.NotEmpty(t, chapters)
	assert.Equal(t, 0, chapters[0].Start)
	assert.Equal(t, len(text), chapters[len(chapters)-1].End)
	for i, ch := range chapters {
		assert.Less(t, ch.Start, ch.End, "chapter %d is empty", i)
		assert.Equal(t, text[ch.Start:ch.End], ch.Content, "chapter %d content", i)
		if i > 0 {
			assert.Equal(t, chapters[i-1].End, ch.Start, "chapter %d does not follow its predecessor", i)
		}
	}
}

func titles(chapters []Chapter) []string {
	out := make([]string, len(chapters))
	for i, ch := range chapters {
		out[i] = ch.Title
	}
	return out
}

func TestRefine(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("abcdefghij", 30)

	tests := []struct {
		name       string
		text       string
		in         []Chapter
		wantTitles []string
		wantBounds [][2]int
	}{
		{
			name:       "no chapters",
			text:       text,
			wantTitles: []string{TitleBookContent},
			wantBounds: [][2]int{{0, 300}},
		},
		{
			name:       "overlap clips the earlier chapter",
			text:       text,
			in:         []Chapter{{Title: "B", Start: 100, End: 300}, {Title: "A", Start: 0, End: 200}},
			wantTitles: []string{"A", "B"},
			wantBounds: [][2]int{{0, 100}, {100, 300}},
		},
		{
			name:       "small interior gap is absorbed",
			text:       text,
			in:         []Chapter{{Title: "A", Start: 0, End: 100}, {Title: "B", Start: 150, End: 300}},
			wantTitles: []string{"A", "B"},
			wantBounds: [][2]int{{0, 150}, {150, 300}},
		},
		{
			name:       "large interior gap becomes a section",
			text:       text,
			in:         []Chapter{{Title: "A", Start: 0, End: 50}, {Title: "B", Start: 200, End: 300}},
			wantTitles: []string{"A", TitleUntitled, "B"},
			wantBounds: [][2]int{{0, 50}, {50, 200}, {200, 300}},
		},
		{
			name:       "leading and trailing text become sections",
			text:       text,
			in:         []Chapter{{Title: "A", Start: 20, End: 280}},
			wantTitles: []string{TitleUntitled, "A", TitleClosing},
			wantBounds: [][2]int{{0, 20}, {20, 280}, {280, 300}},
		},
		{
			name:       "blank edges are absorbed",
			text:       "  \n" + text + "\n\n",
			in:         []Chapter{{Title: "A", Start: 3, End: 303}},
			wantTitles: []string{"A"},
			wantBounds: [][2]int{{0, 305}},
		},
		{
			name:       "chapters clipped to nothing are dropped",
			text:       text,
			in:         []Chapter{{Title: "A", Start: 0, End: 100}, {Title: "B", Start: 0, End: 300}},
			wantTitles: []string{"B"},
			wantBounds: [][2]int{{0, 300}},
		},
		{
			name:       "end past the text is clamped",
			text:       text,
			in:         []Chapter{{Title: "A", Start: 0, End: 1000}},
			wantTitles: []string{"A"},
			wantBounds: [][2]int{{0, 300}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := refine(tc.text, tc.in)

			assertCovers(t, tc.text, got)
			assert.Equal(t, tc.wantTitles, titles(got))
			bounds := make([][2]int, len(got))
			for i, ch := range got {
				bounds[i] = [2]int{ch.Start, ch.End}
			}
			assert.Equal(t, tc.wantBounds, bounds)
		})
	}
}

func TestRefineEmptyText(t *testing.T) {
	t.Parallel()

	assert.Empty(t, refine("", []Chapter{{Title: "A", Start: 0, End: 10}}))
}
