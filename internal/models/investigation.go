package models

import "encoding/json"

// Investigation phases pushed by clinops-core while an agent run progresses.
// Info marks advisory frames (for example "already processing") that never
// terminate a stream; Complete is the only terminal phase.
const (
	PhaseRouting    = "routing"
	PhasePerceive   = "perceive"
	PhaseReason     = "reason"
	PhasePlan       = "plan"
	PhaseAct        = "act"
	PhaseReflect    = "reflect"
	PhaseSynthesize = "synthesize"
	PhaseComplete   = "complete"
	PhaseInfo       = "info"
)

// PhaseUpdate is a single non-terminal progress frame from an investigation
// stream.
type PhaseUpdate struct {
	Phase   string          `json:"phase"`
	AgentID string          `json:"agent_id,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Synthesis is the answer portion of a completed investigation.
type Synthesis struct {
	Answer          string   `json:"answer"`
	Confidence      float64  `json:"confidence"`
	KeyFindings     []string `json:"key_findings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// InvestigationResult is the payload delivered exactly once when a stream
// reaches its completion frame. Raw preserves the full frame so callers can
// inspect fields the typed view does not model.
type InvestigationResult struct {
	QueryID      string                     `json:"query_id,omitempty"`
	Synthesis    Synthesis                  `json:"synthesis"`
	AgentOutputs map[string]json.RawMessage `json:"agent_outputs,omitempty"`
	Raw          json.RawMessage            `json:"-"`
}

// ConfidencePct normalizes a confidence value to a 0-100 percentage.
// Backends report either a 0-1 fraction or an already-scaled percentage;
// values above 1 are assumed scaled.
func ConfidencePct(v float64) float64 {
	if v <= 1 {
		return v * 100
	}
	return v
}

// ConfidencePct renders synthesis confidence as a 0-100 percentage.
func (s Synthesis) ConfidencePct() float64 {
	return ConfidencePct(s.Confidence)
}
