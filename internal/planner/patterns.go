// internal/planner/patterns.go
package planner

import (
	"fmt"
	"regexp"

	"finlife-navigator/internal/models"
)

// CategoryPatterns is the uncompiled form of one row of the intent table.
type CategoryPatterns struct {
	Intent   models.Intent `mapstructure:"intent" json:"intent"`
	Patterns []string      `mapstructure:"patterns" json:"patterns"`
}

type compiledCategory struct {
	intent   models.Intent
	patterns []*regexp.Regexp
}

// PatternTable is the ordered intent table. Row order decides classification
// precedence. A table is read-only once built and safe for concurrent use.
type PatternTable struct {
	categories []compiledCategory
}

// DefaultCategories returns the built-in intent table in precedence order.
func DefaultCategories() []CategoryPatterns {
	return []CategoryPatterns{
		{
			Intent: models.IntentLifeEvent,
			Patterns: []string{
				`vacation|wedding|baby|house|car|moving|retirement`,
				`life event|major purchase|milestone`,
			},
		},
		{
			Intent: models.IntentBudgetOptimization,
			Patterns: []string{
				`bonus|raise|windfall|extra money|optimize|budget`,
				`allocate|distribute|spend|save`,
			},
		},
		{
			Intent: models.IntentInvestmentAnalysis,
			Patterns: []string{
				`portfolio|stocks|bonds|investment|market|returns`,
				`performance|analysis|recommendation`,
			},
		},
		{
			Intent: models.IntentSimulation,
			Patterns: []string{
				`what if|scenario|simulate|predict|forecast`,
				`job loss|career change|emergency`,
			},
		},
	}
}

// NewPatternTable compiles categories into a table. Any malformed entry is an
// error; callers treat it as fatal at startup.
func NewPatternTable(categories []CategoryPatterns) (*PatternTable, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("pattern table is empty")
	}

	seen := make(map[models.Intent]bool, len(categories))
	compiled := make([]compiledCategory, 0, len(categories))

	for i, cat := range categories {
		if !cat.Intent.IsValid() {
			return nil, fmt.Errorf("row %d: unknown intent %q", i, cat.Intent)
		}
		if cat.Intent == models.IntentGeneral {
			return nil, fmt.Errorf("row %d: %s is the fallback intent and takes no patterns", i, cat.Intent)
		}
		if seen[cat.Intent] {
			return nil, fmt.Errorf("row %d: duplicate intent %s", i, cat.Intent)
		}
		if len(cat.Patterns) == 0 {
			return nil, fmt.Errorf("row %d: intent %s has no patterns", i, cat.Intent)
		}
		seen[cat.Intent] = true

		row := compiledCategory{intent: cat.Intent}
		for _, p := range cat.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("row %d: intent %s: compile %q: %w", i, cat.Intent, p, err)
			}
			row.patterns = append(row.patterns, re)
		}
		compiled = append(compiled, row)
	}

	return &PatternTable{categories: compiled}, nil
}

// DefaultPatternTable builds the built-in table. The built-in patterns are
// constants, so a failure here is a programming error.
func DefaultPatternTable() *PatternTable {
	table, err := NewPatternTable(DefaultCategories())
	if err != nil {
		panic(fmt.Sprintf("planner: default pattern table: %v", err))
	}
	return table
}

// Intents returns the table's intents in precedence order.
func (t *PatternTable) Intents() []models.Intent {
	out := make([]models.Intent, len(t.categories))
	for i, c := range t.categories {
		out[i] = c.intent
	}
	return out
}

// Matches returns, in table order, every intent with at least one pattern
// matching text.
func (t *PatternTable) Matches(text string) []models.Intent {
	var out []models.Intent
	for _, c := range t.categories {
		if c.matches(text) {
			out = append(out, c.intent)
		}
	}
	return out
}

func (t *PatternTable) first(text string) (models.Intent, bool) {
	for _, c := range t.categories {
		if c.matches(text) {
			return c.intent, true
		}
	}
	return "", false
}

func (c compiledCategory) matches(text string) bool {
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
