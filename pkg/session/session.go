// Package session implements session graph reconstruction and replay
// (spec.md §4.9), grounded on consumer/session.py and consumer/replay.py.
// It depends only on executionlog, registry, consumer and ferr, never on
// the ledger or policy packages, mirroring the reference's explicit "does NOT import
// from forge, ledger, or policies" boundary.
package session

import (
	"sort"

	"github.com/basinforge/skillforge/pkg/executionlog"
	"github.com/basinforge/skillforge/pkg/ferr"
)

// BuildSession loads every record from log, walks backward from
// executionID to the furthest reachable ancestor, then collects every
// forward-reachable descendant, sorted by start time.
func BuildSession(log *executionlog.Log, executionID string) ([]executionlog.Record, error) {
	all, err := log.Read(executionlog.Filter{})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &ferr.NotFound{Kind: "execution-log", ID: "(empty)"}
	}

	byID := make(map[string]executionlog.Record, len(all))
	for _, rec := range all {
		byID[rec.ExecutionID] = rec
	}
	if _, ok := byID[executionID]; !ok {
		return nil, &ferr.NotFound{Kind: "execution", ID: executionID}
	}

	rootID := executionID
	for {
		rec := byID[rootID]
		if rec.ParentExecutionID == nil {
			break
		}
		parent, ok := byID[*rec.ParentExecutionID]
		if !ok {
			break // parent not in log: current is the effective root
		}
		rootID = parent.ExecutionID
	}

	children := make(map[string][]string)
	for _, rec := range all {
		if rec.ParentExecutionID != nil {
			children[*rec.ParentExecutionID] = append(children[*rec.ParentExecutionID], rec.ExecutionID)
		}
	}

	sessionIDs := make(map[string]bool)
	queue := []string{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if sessionIDs[current] {
			continue
		}
		sessionIDs[current] = true
		queue = append(queue, children[current]...)
	}

	var session []executionlog.Record
	for _, rec := range all {
		if sessionIDs[rec.ExecutionID] {
			session = append(session, rec)
		}
	}
	sort.Slice(session, func(i, j int) bool {
		return session[i].StartedAt.Before(session[j].StartedAt)
	})
	return session, nil
}

// LatestExecutionID returns the execution_id of the most recently
// appended record.
func LatestExecutionID(log *executionlog.Log) (string, error) {
	all, err := log.Read(executionlog.Filter{})
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "", &ferr.NotFound{Kind: "execution-log", ID: "(empty)"}
	}
	return all[len(all)-1].ExecutionID, nil
}
