package chapters

import (
	"testing"

	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		wantTier generation.ParseTier
		want     []Candidate
	}{
		{
			name:     "plain json array",
			response: `[{"title":"Ch1","start_marker":"It was","end_marker":"the end"}]`,
			wantTier: generation.TierJSON,
			want:     []Candidate{{Title: "Ch1", StartMarker: "It was", EndMarker: "the end"}},
		},
		{
			name:     "json inside prose and fences",
			response: "Here are the chapters:\n```json\n[{\"title\": \"One\", \"start_marker\": \"Call me\"}]\n```\nHope this helps.",
			wantTier: generation.TierJSON,
			want:     []Candidate{{Title: "One", StartMarker: "Call me"}},
		},
		{
			name:     "start_text alias and null end",
			response: `[{"title":"One","start_text":"First words","end_marker":null}]`,
			wantTier: generation.TierJSON,
			want:     []Candidate{{Title: "One", StartMarker: "First words"}},
		},
		{
			name:     "invalid elements skipped",
			response: `[{"title":"","start_marker":"x"},{"start_marker":"y"},{"title":"Kept","start_marker":"z"},"noise"]`,
			wantTier: generation.TierJSON,
			want:     []Candidate{{Title: "Kept", StartMarker: "z"}},
		},
		{
			name:     "chapter lines",
			response: "Chapter: One\nStart: \"Alpha begins\"\nEnd: 'Alpha ends'\n\nChapter: Two\nStart: Beta begins\nEnd: Beta ends",
			wantTier: generation.TierLines,
			want: []Candidate{
				{Title: "One", StartMarker: "Alpha begins", EndMarker: "Alpha ends"},
				{Title: "Two", StartMarker: "Beta begins", EndMarker: "Beta ends"},
			},
		},
		{
			name:     "json with no valid elements falls to lines",
			response: "[{\"title\":\"\"}]\nChapter: Only Start: Begin here End: Stop here",
			wantTier: generation.TierLines,
			want:     []Candidate{{Title: "Only", StartMarker: "Begin here", EndMarker: "Stop here"}},
		},
		{
			name:     "unparsable",
			response: "I could not find any chapters in this text.",
			wantTier: generation.TierFallback,
		},
		{
			name:     "empty",
			response: "",
			wantTier: generation.TierFallback,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Parse(tc.response)
			assert.Equal(t, tc.wantTier, got.Tier)
			assert.Equal(t, tc.want, got.Candidates)
			assert.Equal(t, tc.wantTier == generation.TierFallback, got.UsedFallback)
		})
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	text := "The first line\nwraps here. The first line again."

	pos, ok := find(text, "first line wraps", 0)
	assert.True(t, ok)
	assert.Equal(t, 4, pos, "whitespace runs should match across line breaks")

	pos, ok = find(text, "The first line", 1)
	assert.True(t, ok)
	assert.Equal(t, 27, pos)

	_, ok = find(text, "missing words", 0)
	assert.False(t, ok)

	_, ok = find(text, "", 0)
	assert.False(t, ok)

	_, ok = find(text, "The", len(text))
	assert.False(t, ok)
}

func TestLocate(t *testing.T) {
	t.Parallel()

	text := "Intro. It was a dark night... the end. Outro."

	ch, ok := locate(text, 0, Candidate{Title: "Ch1", StartMarker: "It was", EndMarker: "the end"})
	assert.True(t, ok)
	assert.Equal(t, 7, ch.Start)
	assert.Equal(t, 30, ch.End)

	ch, ok = locate(text, 0, Candidate{Title: "Ch1", StartMarker: "It was", EndMarker: "never written"})
	assert.True(t, ok)
	assert.Equal(t, len(text), ch.End, "unknown end marker should run to the end")

	_, ok = locate(text, 10, Candidate{Title: "Ch1", StartMarker: "It was"})
	assert.False(t, ok, "start marker before the offset should not be found")
}
