package migrate

import (
	"encoding/json"
)

// Step kinds recorded in traces and log events.
const (
	StepKindDecode  = "decode"
	StepKindConvert = "convert"
	StepKindRewrite = "rewrite"
)

// Trace captures provenance for a single resolution: which schema the
// document was decoded as and every upgrade step applied on the way to the
// target version.
type Trace struct {
	RunID       string       `json:"run_id"`
	FromVersion int64        `json:"from_version"`
	ToVersion   int64        `json:"to_version"`
	Steps       []StepRecord `json:"steps"`
}

// StepRecord details one applied resolution step.
type StepRecord struct {
	Kind        string `json:"kind"`
	FromVersion int64  `json:"from_version,omitempty"`
	ToVersion   int64  `json:"to_version"`
	// Ops counts the document mutations applied by a rewrite step.
	Ops int `json:"ops,omitempty"`
}

// ToJSON serialises the trace for logging or transport.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// newTrace returns nil when tracing is disabled; the nil receiver keeps call
// sites unconditional.
func newTrace(runID string, from, to int64, enabled bool) *Trace {
	if !enabled {
		return nil
	}
	return &Trace{RunID: runID, FromVersion: from, ToVersion: to}
}

func (t *Trace) record(step StepRecord) {
	if t == nil {
		return
	}
	t.Steps = append(t.Steps, step)
}
