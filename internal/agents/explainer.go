// internal/agents/explainer.go
package agents

import (
	"context"
	"strings"

	"finlife-navigator/internal/genai"
)

const (
	explainerMaxTokens  = 60
	summarizerMaxTokens = 150

	// ExplanationConfidence is reported by the explainer itself; the
	// orchestrator keeps the aggregated confidence instead.
	ExplanationConfidence = 0.80

	noExplanation = "Unable to generate an explanation."
)

// Explainer rewrites a result in plain language.
type Explainer struct {
	generator genai.Generator
}

func NewExplainer(gen genai.Generator) *Explainer {
	return &Explainer{generator: gen}
}

func (e *Explainer) Explain(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return noExplanation
	}
	return e.generator.Generate(ctx, "Explain the following in very simple language in one sentence:\n"+text, explainerMaxTokens)
}

// Summarizer merges several handler texts into one answer.
type Summarizer struct {
	generator genai.Generator
}

func NewSummarizer(gen genai.Generator) *Summarizer {
	return &Summarizer{generator: gen}
}

// Summarize keeps the given order. A single text is returned as is.
func (s *Summarizer) Summarize(ctx context.Context, texts []string) string {
	switch len(texts) {
	case 0:
		return ""
	case 1:
		return texts[0]
	}

	parts := []string{"Combine the following pieces of financial advice into one short, consistent answer. Keep every concrete figure."}
	for _, t := range texts {
		parts = append(parts, "- "+t)
	}
	return s.generator.Generate(ctx, strings.Join(parts, "\n"), summarizerMaxTokens)
}
