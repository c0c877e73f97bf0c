// Package consumer implements the consumer shim (spec.md §4.6): the
// sole public execution path for trusted skills. It loads one named
// skill with trust verification, validates input, executes it, and
// returns an auditable executionlog.Record. It never panics or returns
// an error from ConsumeSkill itself — every failure becomes a failed
// record, grounded on consumer/shim.py's consume_skill.
package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/basinforge/skillforge/pkg/executionlog"
	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/registry"
)

// Shim executes trusted skills by name through the trust-verified
// loader.
type Shim struct {
	store  *registry.Store
	loader *registry.Loader
	clock  func() time.Time
}

// NewShim builds a Shim over a registry store and loader.
func NewShim(store *registry.Store, loader *registry.Loader) *Shim {
	return &Shim{store: store, loader: loader, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (s *Shim) WithClock(clock func() time.Time) *Shim {
	s.clock = clock
	return s
}

// ConsumeSkill executes skillName against rawInput and returns an
// auditable record. Never returns a Go error: any failure is captured
// as a failed Record.
func (s *Shim) ConsumeSkill(ctx context.Context, skillName string, rawInput map[string]any) (record executionlog.Record) {
	startedAt := s.clock()

	// Step 1: look up metadata from registry before loading, so a
	// failed load still produces a record carrying what was known.
	sourceHash, effectClass := "", ""
	defer func() {
		if r := recover(); r != nil {
			record = failedRecord(skillName, sourceHash, effectClass, rawInput, startedAt, s.clock(),
				&ferr.ExecutionError{SkillName: skillName, Cause: fmt.Errorf("panic: %v", r)})
		}
	}()
	if entry, err := s.store.Get(ctx, skillName); err == nil {
		sourceHash = entry.Hash
		effectClass = entry.EffectClass
	}

	// Step 2: trust-verified load.
	sk, entry, err := s.loader.LoadSkill(ctx, skillName)
	if err != nil {
		return failedRecord(skillName, sourceHash, effectClass, rawInput, startedAt, s.clock(), err)
	}
	if sourceHash == "" {
		sourceHash = entry.Hash
	}
	if effectClass == "" {
		effectClass = string(sk.EffectClass())
	}

	// Step 3: validate.
	validated, err := sk.Validate(rawInput)
	if err != nil {
		return failedRecord(skillName, sourceHash, effectClass, rawInput, startedAt, s.clock(), err)
	}

	// Step 4: execute.
	output, err := sk.Execute(ctx, validated)
	if err != nil {
		return failedRecord(skillName, sourceHash, effectClass, rawInput, startedAt, s.clock(), err)
	}

	// Step 5: success record.
	return executionlog.Record{
		ExecutionID: uuid.NewString(),
		SkillName:   skillName,
		SourceHash:  sourceHash,
		EffectClass: effectClass,
		InputJSON:   rawInput,
		OutputJSON:  output,
		Success:     true,
		StartedAt:   startedAt,
		FinishedAt:  s.clock(),
	}
}

func failedRecord(skillName, sourceHash, effectClass string, rawInput map[string]any, startedAt, finishedAt time.Time, err error) executionlog.Record {
	return executionlog.Record{
		ExecutionID: uuid.NewString(),
		SkillName:   skillName,
		SourceHash:  sourceHash,
		EffectClass: effectClass,
		InputJSON:   rawInput,
		Success:     false,
		Error:       fmt.Sprintf("%T: %s", err, err.Error()),
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}
}
