package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/basinforge/skillforge/pkg/consumer"
	"github.com/basinforge/skillforge/pkg/executionlog"
	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/skill"
)

// Executor runs a Spec against a consumer shim, pure over
// (spec, clock, registry): identical skills and inputs produce
// structurally identical records modulo ids and timestamps.
type Executor struct {
	shim   *consumer.Shim
	clock  func() time.Time
	lookup func(ctx context.Context, name string) (skill.Schema, bool)
}

// NewExecutor builds an Executor. lookupSchema resolves a skill's
// declared input schema by name for the per-step gate; it should return
// (schema, false) when the schema is unknown, in which case the gate is
// skipped for that step (mirrors the reference's "proceed without
// schema validation" fallback when schemas cannot be pre-loaded).
func NewExecutor(shim *consumer.Shim, lookupSchema func(ctx context.Context, name string) (skill.Schema, bool)) *Executor {
	return &Executor{shim: shim, clock: time.Now, lookup: lookupSchema}
}

// WithClock overrides the clock for deterministic testing.
func (e *Executor) WithClock(clock func() time.Time) *Executor {
	e.clock = clock
	return e
}

// Run executes every step in order, returning one record per step
// attempted.
func (e *Executor) Run(ctx context.Context, spec Spec) []executionlog.Record {
	var records []executionlog.Record

	for i, step := range spec.Steps {
		parentID := e.resolveParent(step, i, records)

		resolved, err := e.resolveInput(ctx, step, i, records)
		if err != nil {
			record := failureRecord(step.SkillName, resolved, err.Error(), parentID, e.clock())
			records = append(records, record)
			if spec.Options.StopOnFailure {
				break
			}
			continue
		}

		record := e.shim.ConsumeSkill(ctx, step.SkillName, resolved)
		record.ParentExecutionID = parentID
		records = append(records, record)

		if !record.Success && spec.Options.StopOnFailure {
			break
		}
	}
	return records
}

func (e *Executor) resolveParent(step Step, index int, records []executionlog.Record) *string {
	if step.ParentIndex != nil {
		if *step.ParentIndex >= 0 && *step.ParentIndex < len(records) {
			id := records[*step.ParentIndex].ExecutionID
			return &id
		}
		return nil
	}
	if index > 0 {
		id := records[index-1].ExecutionID
		return &id
	}
	return nil
}

func (e *Executor) resolveInput(ctx context.Context, step Step, index int, records []executionlog.Record) (map[string]any, error) {
	var resolved map[string]any

	switch {
	case step.Input != nil:
		resolved = step.Input

	case step.InputTemplate != nil:
		resolved = deepCopyMap(step.InputTemplate)
		for _, mapping := range step.FromPrev {
			srcIdx := index - 1
			if mapping.FromStepIndex != nil {
				srcIdx = *mapping.FromStepIndex
			}
			if srcIdx < 0 || srcIdx >= len(records) {
				return resolved, &ferr.MappingError{Path: mapping.FromPath, FromStep: srcIdx, Reason: fmt.Sprintf("mapping references step %d but only %d steps have executed", srcIdx, len(records))}
			}
			src := records[srcIdx]
			if !src.Success || src.OutputJSON == nil {
				return resolved, &ferr.MappingError{Path: mapping.FromPath, FromStep: srcIdx, Reason: fmt.Sprintf("step %d (%s) failed", srcIdx, src.SkillName)}
			}
			value, err := extractPath(src.OutputJSON, mapping.FromPath, srcIdx)
			if err != nil {
				return resolved, err
			}
			resolved[mapping.ToField] = value
		}

	default:
		resolved = map[string]any{}
	}

	if schema, ok := e.lookup(ctx, step.SkillName); ok {
		if err := gateSchema(step.SkillName, index, schema, resolved); err != nil {
			return resolved, err
		}
	}

	return resolved, nil
}

// gateSchema checks that every required field is present and that any
// present scalar-typed field matches its declared kind, without
// invoking the skill.
func gateSchema(skillName string, stepIndex int, schema skill.Schema, resolved map[string]any) error {
	for _, field := range schema.Required {
		if _, ok := resolved[field]; !ok {
			return &ferr.SchemaGateError{StepIndex: stepIndex, Reason: fmt.Sprintf("schema validation failed for '%s': missing required field '%s'", skillName, field)}
		}
	}
	for field, kind := range schema.Scalars {
		value, present := resolved[field]
		if !present {
			continue
		}
		if !matchesScalar(kind, value) {
			return &ferr.SchemaGateError{StepIndex: stepIndex, Reason: fmt.Sprintf("schema validation failed for '%s': field '%s' expected %s, got %T", skillName, field, kind, value)}
		}
	}
	return nil
}

func matchesScalar(kind string, value any) bool {
	switch kind {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch value.(type) {
		case int, int32, int64, float64:
			return true
		default:
			return false
		}
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return true
	}
}

func failureRecord(skillName string, input map[string]any, errMsg string, parentID *string, now time.Time) executionlog.Record {
	return executionlog.Record{
		ExecutionID:       uuid.NewString(),
		ParentExecutionID: parentID,
		SkillName:         skillName,
		InputJSON:         input,
		Success:           false,
		Error:             errMsg,
		StartedAt:         now,
		FinishedAt:        now,
	}
}
