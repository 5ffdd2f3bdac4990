// internal/planner/classifier.go
package planner

import (
	"strings"

	"finlife-navigator/internal/models"
)

// Classifier picks one intent per query by first match over the table.
type Classifier struct {
	table *PatternTable
}

func NewClassifier(table *PatternTable) *Classifier {
	return &Classifier{table: table}
}

// Classify returns the first intent in table order whose patterns match the
// lowered text, or general when nothing matches.
func (c *Classifier) Classify(text string) models.Intent {
	if intent, ok := c.table.first(strings.ToLower(text)); ok {
		return intent
	}
	return models.IntentGeneral
}
