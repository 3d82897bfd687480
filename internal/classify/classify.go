// Package classify produces the placeholder priority, summary and content
// stored alongside every activity note.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"activity-notes/internal/models"
)

const (
	highWordCount   = 100
	mediumWordCount = 50
	contentPreview  = 200
	urgentMarker    = "urgent"
)

type Input struct {
	Title       string
	Category    string
	Description string
}

type Result struct {
	Priority models.Priority
	Summary  string
	Content  string
}

// Generator turns note input into its derived fields. Heuristic is the only
// implementation today; a call to an external generation service would slot in here.
type Generator interface {
	Generate(ctx context.Context, in Input) (Result, error)
}

// Heuristic waits Delay before classifying, standing in for the latency of a
// real generation call.
type Heuristic struct {
	Delay time.Duration
}

func (h Heuristic) Generate(ctx context.Context, in Input) (Result, error) {
	if h.Delay > 0 {
		timer := time.NewTimer(h.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Classify(in.Title, in.Category, in.Description), nil
}

// Classify is pure and accepts any input, including empty strings.
func Classify(title, category, description string) Result {
	wordCount := WordCount(description)

	return Result{
		Priority: priorityFor(wordCount, description),
		Summary: fmt.Sprintf(
			"This is a generated summary placeholder for \"%s\". The original description contained %d words.",
			title, wordCount),
		Content: fmt.Sprintf(
			"This is a generated content placeholder. In a production application, this would contain a processed and structured version of the user's input: \"%s\".",
			Truncate(description, contentPreview)),
	}
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Truncate keeps the first n runes of s and appends "..." when anything was cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func priorityFor(wordCount int, description string) models.Priority {
	switch {
	case wordCount > highWordCount || strings.Contains(strings.ToLower(description), urgentMarker):
		return models.PriorityHigh
	case wordCount > mediumWordCount:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
