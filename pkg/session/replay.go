package session

import (
	"context"

	"github.com/basinforge/skillforge/pkg/consumer"
	"github.com/basinforge/skillforge/pkg/executionlog"
	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/registry"
)

// Replayer re-runs a past execution with its exact original input,
// re-verifying trust and detecting source drift before doing so.
type Replayer struct {
	log   *executionlog.Log
	store *registry.Store
	shim  *consumer.Shim
}

// NewReplayer builds a Replayer over the execution log, registry, and
// consumer shim it needs.
func NewReplayer(log *executionlog.Log, store *registry.Store, shim *consumer.Shim) *Replayer {
	return &Replayer{log: log, store: store, shim: shim}
}

// Replay finds the original record, refuses on a missing skill or
// source drift, then re-executes with identical input. Returns the
// original record and the new one, the new one's ParentExecutionID set
// to the original's id.
func (r *Replayer) Replay(ctx context.Context, executionID string) (original executionlog.Record, replayed executionlog.Record, err error) {
	all, err := r.log.Read(executionlog.Filter{})
	if err != nil {
		return executionlog.Record{}, executionlog.Record{}, err
	}

	found := false
	for _, rec := range all {
		if rec.ExecutionID == executionID {
			original = rec
			found = true
			break
		}
	}
	if !found {
		return executionlog.Record{}, executionlog.Record{}, &ferr.NotFound{Kind: "execution", ID: executionID}
	}

	entry, err := r.store.Get(ctx, original.SkillName)
	if err != nil {
		return original, executionlog.Record{}, err
	}

	if entry.Hash != "" && original.SourceHash != "" && entry.Hash != original.SourceHash {
		return original, executionlog.Record{}, &ferr.SourceDrift{
			SkillName:   original.SkillName,
			RecordHash:  original.SourceHash,
			CurrentHash: entry.Hash,
		}
	}

	replayed = r.shim.ConsumeSkill(ctx, original.SkillName, original.InputJSON)
	originalID := original.ExecutionID
	replayed.ParentExecutionID = &originalID
	return original, replayed, nil
}
