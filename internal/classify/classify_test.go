package classify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"activity-notes/internal/models"
)

// wordsGen generates n lowercase words that never spell "urgent".
func wordsGen(min, max int) *rapid.Generator[[]string] {
	return rapid.SliceOfN(rapid.StringMatching(`[a-t]{1,8}`), min, max)
}

func TestClassifyLowBand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := wordsGen(0, 50).Draw(t, "words")
		got := Classify("T", "Work", strings.Join(words, " "))
		if got.Priority != models.PriorityLow {
			t.Fatalf("%d words: got %s", len(words), got.Priority)
		}
	})
}

func TestClassifyMediumBand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := wordsGen(51, 100).Draw(t, "words")
		got := Classify("T", "Work", strings.Join(words, "\n"))
		if got.Priority != models.PriorityMedium {
			t.Fatalf("%d words: got %s", len(words), got.Priority)
		}
	})
}

func TestClassifyHighBand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := wordsGen(101, 180).Draw(t, "words")
		got := Classify("T", "Work", strings.Join(words, "\t"))
		if got.Priority != models.PriorityHigh {
			t.Fatalf("%d words: got %s", len(words), got.Priority)
		}
	})
}

func TestClassifyUrgentAnyCase(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := wordsGen(0, 100).Draw(t, "words")
		marker := rapid.SampledFrom([]string{"urgent", "URGENT", "Urgent", "uRgEnT", "nonurgently"}).Draw(t, "marker")
		at := rapid.IntRange(0, len(words)).Draw(t, "at")
		words = append(words[:at], append([]string{marker}, words[at:]...)...)
		got := Classify("T", "Work", strings.Join(words, " "))
		if got.Priority != models.PriorityHigh {
			t.Fatalf("%q: got %s", strings.Join(words, " "), got.Priority)
		}
	})
}

func TestClassifyExamples(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        models.Priority
	}{
		{"short urgent", "urgent: fix now", models.PriorityHigh},
		{"empty", "", models.PriorityLow},
		{"exactly fifty", strings.Repeat("word ", 50), models.PriorityLow},
		{"fifty one", strings.Repeat("word ", 51), models.PriorityMedium},
		{"exactly hundred", strings.Repeat("word ", 100), models.PriorityMedium},
		{"hundred one", strings.Repeat("word ", 101), models.PriorityHigh},
		{"surrounding whitespace", "  one   two \n three  ", models.PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify("T", "Work", tt.description).Priority)
		})
	}
}

func TestClassifySummaryAndContent(t *testing.T) {
	got := Classify("Planning", "Work", "  one   two \n three  ")
	assert.Equal(t,
		`This is a generated summary placeholder for "Planning". The original description contained 3 words.`,
		got.Summary)
	assert.Equal(t,
		`This is a generated content placeholder. In a production application, this would contain a processed and structured version of the user's input: "  one   two `+"\n"+` three  ".`,
		got.Content)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hé...", Truncate("héllo", 2))

	long := strings.Repeat("x", 250)
	got := Classify("T", "Work", long)
	assert.Contains(t, got.Content, strings.Repeat("x", 200)+`..."`)
	assert.NotContains(t, got.Content, strings.Repeat("x", 201))
}

func TestHeuristicGenerate(t *testing.T) {
	got, err := Heuristic{}.Generate(context.Background(), Input{Title: "T", Category: "Work", Description: "urgent"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, got.Priority)
}

func TestHeuristicGenerateWaitsForDelay(t *testing.T) {
	start := time.Now()
	_, err := Heuristic{Delay: 20 * time.Millisecond}.Generate(context.Background(), Input{Description: "x"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestHeuristicGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Heuristic{Delay: time.Hour}.Generate(ctx, Input{Description: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
