// internal/models/result.go
package models

import "math"

// HandlerRequest is what a handler receives for one dispatch.
type HandlerRequest struct {
	Query            string            `json:"query"`
	Intent           Intent            `json:"intent"`
	Context          Context           `json:"context"`
	SimulationParams *SimulationParams `json:"simulationParams,omitempty"`
	Prior            []HandlerResult   `json:"prior,omitempty"`
}

// HandlerResult is produced by a handler and never modified afterwards.
type HandlerResult struct {
	Text       string                 `json:"text"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// OrchestrationResult is the merged response for one query.
type OrchestrationResult struct {
	RequestID  string                 `json:"requestId"`
	Intent     Intent                 `json:"intent"`
	FinalText  string                 `json:"finalText"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Explained  bool                   `json:"explained"`
	Handlers   []string               `json:"handlers,omitempty"`
	Trace      []string               `json:"trace,omitempty"`
}

// ClampConfidence bounds c to [0,1]. NaN counts as no confidence.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
