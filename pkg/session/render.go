package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/basinforge/skillforge/pkg/executionlog"
)

// RenderSessionTree formats records as a two-space-indented tree. Roots
// are records whose parent is not itself present in records.
func RenderSessionTree(records []executionlog.Record) string {
	if len(records) == 0 {
		return "Session: (empty)"
	}

	present := make(map[string]bool, len(records))
	for _, rec := range records {
		present[rec.ExecutionID] = true
	}

	children := make(map[string][]executionlog.Record)
	for _, rec := range records {
		if rec.ParentExecutionID != nil {
			children[*rec.ParentExecutionID] = append(children[*rec.ParentExecutionID], rec)
		}
	}
	for parent := range children {
		kids := children[parent]
		sort.Slice(kids, func(i, j int) bool { return kids[i].StartedAt.Before(kids[j].StartedAt) })
		children[parent] = kids
	}

	var roots []executionlog.Record
	for _, rec := range records {
		if rec.ParentExecutionID == nil || !present[*rec.ParentExecutionID] {
			roots = append(roots, rec)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].StartedAt.Before(roots[j].StartedAt) })

	lines := []string{"Session:"}
	var renderNode func(rec executionlog.Record, depth int)
	renderNode = func(rec executionlog.Record, depth int) {
		indent := strings.Repeat("  ", depth+1)
		marker := "✅"
		if !rec.Success {
			marker = "❌"
		}
		shortID := rec.ExecutionID
		if len(shortID) > 12 {
			shortID = shortID[:12]
		}
		line := fmt.Sprintf("%s%s %s  (id=%s…)  [%s]", indent, rec.SkillName, marker, shortID, formatDuration(rec.StartedAt, rec.FinishedAt))
		if !rec.Success && rec.Error != "" {
			errMsg := rec.Error
			if len(errMsg) > 80 {
				errMsg = errMsg[:77] + "..."
			}
			line += "  " + errMsg
		}
		lines = append(lines, line)
		for _, child := range children[rec.ExecutionID] {
			renderNode(child, depth+1)
		}
	}
	for _, root := range roots {
		renderNode(root, 0)
	}
	return strings.Join(lines, "\n")
}

func formatDuration(started, finished time.Time) string {
	delta := finished.Sub(started)
	if delta < time.Second {
		return fmt.Sprintf("%dms", delta.Milliseconds())
	}
	if delta < time.Minute {
		return fmt.Sprintf("%.1fs", delta.Seconds())
	}
	minutes := int(delta.Minutes())
	seconds := delta.Seconds() - float64(minutes*60)
	return fmt.Sprintf("%dm%.0fs", minutes, seconds)
}
