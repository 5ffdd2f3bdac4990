// internal/orchestrator/aggregator.go
package orchestrator

import (
	"context"
	"math"
	"strings"

	"finlife-navigator/internal/models"
)

const noResultsText = "No results available"

// Summarizer merges several texts into one. Texts arrive in dispatch order.
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) string
}

// NamedResult is a handler result tagged with the category it answered.
type NamedResult struct {
	Name   string
	Result models.HandlerResult
}

// Aggregation is the folded form of a dispatch.
type Aggregation struct {
	Text       string
	Confidence float64
	Metadata   map[string]interface{}
}

type Aggregator struct {
	summarizer Summarizer
}

// NewAggregator accepts a nil summarizer; texts are then joined with
// newlines.
func NewAggregator(s Summarizer) *Aggregator {
	return &Aggregator{summarizer: s}
}

// Aggregate folds results. A single result passes through unchanged; several
// are summarized, take the minimum confidence and keep their metadata under
// their own name.
func (a *Aggregator) Aggregate(ctx context.Context, results []NamedResult) Aggregation {
	switch len(results) {
	case 0:
		return Aggregation{Text: noResultsText, Confidence: 0.0}
	case 1:
		r := results[0].Result
		return Aggregation{
			Text:       r.Text,
			Confidence: models.ClampConfidence(r.Confidence),
			Metadata:   r.Metadata,
		}
	}

	texts := make([]string, 0, len(results))
	confidence := math.Inf(1)
	metadata := make(map[string]interface{}, len(results))
	for _, nr := range results {
		if strings.TrimSpace(nr.Result.Text) != "" {
			texts = append(texts, nr.Result.Text)
		}
		confidence = math.Min(confidence, models.ClampConfidence(nr.Result.Confidence))
		metadata[nr.Name] = nr.Result.Metadata
	}

	return Aggregation{
		Text:       a.summarize(ctx, texts),
		Confidence: models.ClampConfidence(confidence),
		Metadata:   metadata,
	}
}

func (a *Aggregator) summarize(ctx context.Context, texts []string) string {
	if a.summarizer == nil {
		return strings.Join(texts, "\n")
	}
	return a.summarizer.Summarize(ctx, texts)
}
