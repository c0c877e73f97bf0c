// Package executionlog implements the append-only execution record log
// (spec.md §4.8) and the ExecutionRecord type shared by the consumer
// shim and chain executor, grounded on consumer/shim.py's
// ExecutionRecord and consumer/replay.py's log reader.
package executionlog

import "time"

// Record is one auditable execution, immutable once appended.
type Record struct {
	ExecutionID       string         `json:"execution_id"`
	ParentExecutionID *string        `json:"parent_execution_id,omitempty"`
	SkillName         string         `json:"skill_name"`
	SourceHash        string         `json:"source_hash"`
	EffectClass       string         `json:"effect_class"`
	InputJSON         map[string]any `json:"input_json"`
	OutputJSON        map[string]any `json:"output_json,omitempty"`
	Success           bool           `json:"success"`
	Error             string         `json:"error,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
}

// Duration returns how long the execution took.
func (r Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
