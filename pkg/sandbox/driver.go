package sandbox

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/policyscan"
)

// Driver runs one sandbox build attempt end to end (spec.md §4.10).
type Driver struct {
	store    ledger.Store
	writer   *artifact.Writer
	builder  Builder
	timeout  time.Duration
	workDir  string // parent directory under which ephemeral workspaces are created
}

// NewDriver builds a Driver. workDir is the parent of ephemeral
// sandbox workspaces (e.g. os.TempDir()); timeout bounds the builder
// invocation.
func NewDriver(store ledger.Store, writer *artifact.Writer, builder Builder, workDir string, timeout time.Duration) *Driver {
	return &Driver{store: store, writer: writer, builder: builder, workDir: workDir, timeout: timeout}
}

// buildLog is the structured content of the build-log artifact
// (spec.md §6, "Build log").
type buildLog struct {
	PacketHash    string   `json:"packet_hash"`
	SandboxPath   string   `json:"sandbox_path"`
	Command       string   `json:"command"`
	DurationMS    int64    `json:"duration_ms"`
	ExitCode      int      `json:"exit_code"`
	GateVerdict   string   `json:"gate_verdict"`
	Changed       []string `json:"changed,omitempty"`
	Allowed       []string `json:"allowed,omitempty"`
	Violating     []string `json:"violating,omitempty"`
	Missing       []string `json:"missing,omitempty"`
	StdoutExcerpt string   `json:"stdout_excerpt"`
	StderrExcerpt string   `json:"stderr_excerpt"`
}

const transcriptExcerptLimit = 4096

func truncate(s string) string {
	if len(s) <= transcriptExcerptLimit {
		return s
	}
	return s[:transcriptExcerptLimit] + "...(truncated)"
}

// RunBuild executes the sandbox build driver for proposalID against
// projectRoot, returning the updated Build row. It never returns a
// build-domain failure as a Go error once the build row has been
// created; after that point failures are recorded on the row itself.
// It does return an error for preconditions (missing proposal, wrong
// status) and for ledger/filesystem faults.
func (d *Driver) RunBuild(ctx context.Context, proposalID, projectRoot string) (*ledger.Build, error) {
	proposal, err := d.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != ledger.ProposalProposed {
		return nil, &ferr.Precondition{Operation: "build", Reason: "proposal status is " + string(proposal.Status) + ", expected PROPOSED"}
	}

	build := &ledger.Build{
		ProposalID: proposalID,
		BranchName: "skill/" + proposal.Name,
		StartedAt:  time.Now(),
		Status:     ledger.BuildStarted,
	}
	if err := d.store.InsertBuild(ctx, build); err != nil {
		return nil, err
	}

	packet := Packet{
		SkillName:        proposal.Name,
		Description:      proposal.Description,
		EffectClass:      proposal.EffectClass,
		IOSchema:         proposal.IOSchema,
		SkillFile:        SkillFilePath(proposal.Name),
		TestFile:         TestFilePath(proposal.Name),
		ForbiddenImports: policyscan.DefaultForbiddenImports,
	}
	if _, err := d.writer.WriteBytes(ctx, ledger.ArtifactBuildPacket, build.ID, []byte(packet.Render())); err != nil {
		return nil, err
	}

	summary, finishedAt := d.drive(ctx, build.ID, packet, projectRoot)
	status := ledger.BuildFailed
	if summary.succeeded {
		status = ledger.BuildSucceeded
	}
	if err := d.store.UpdateBuildResult(ctx, build.ID, status, summary.summary, finishedAt); err != nil {
		return nil, err
	}
	if summary.succeeded {
		if err := d.store.UpdateProposalStatus(ctx, proposalID, ledger.ProposalBuilt); err != nil {
			return nil, err
		}
	}

	build.Status = status
	build.Summary = summary.summary
	build.FinishedAt = &finishedAt
	return build, nil
}

type driveSummary struct {
	succeeded bool
	summary   string
}

// drive performs steps 1-7: mirror, baseline commit, invoke builder,
// gate, copy back, and log. It never returns a Go error; every failure
// mode becomes a FAILED driveSummary, matching the shim's "no panics
// past this boundary" discipline.
func (d *Driver) drive(ctx context.Context, buildID string, packet Packet, projectRoot string) (driveSummary, time.Time) {
	log := buildLog{PacketHash: packet.Hash(), Command: d.builderCommandLabel()}

	workspace, err := MirrorWorkspace(projectRoot, d.workDir)
	if err != nil {
		return d.failAndLog(buildID, log, "mirror workspace: "+err.Error(), "", 0)
	}
	defer os.RemoveAll(workspace)
	log.SandboxPath = workspace

	if err := initBaseline(ctx, workspace); err != nil {
		return d.failAndLog(buildID, log, "baseline commit: "+err.Error(), workspace, 0)
	}

	result, err := d.builder.Invoke(ctx, workspace, packet, d.timeout)
	log.DurationMS = result.Duration.Milliseconds()
	log.ExitCode = result.ExitCode
	log.StdoutExcerpt = truncate(result.Stdout)
	log.StderrExcerpt = truncate(result.Stderr)
	if err != nil {
		return d.failAndLog(buildID, log, "builder invocation: "+err.Error(), workspace, result.ExitCode)
	}

	changed, err := changedPaths(ctx, workspace)
	if err != nil {
		return d.failAndLog(buildID, log, "diff inspection: "+err.Error(), workspace, result.ExitCode)
	}

	verdict := applyGate(changed, packet)
	log.Changed = verdict.Changed
	log.Allowed = verdict.Allowed
	log.Violating = verdict.Violating
	log.Missing = verdict.Missing
	if !verdict.Passed {
		log.GateVerdict = "FAIL"
		d.writeLog(buildID, log)
		return driveSummary{succeeded: false, summary: "Diff gate failed: " + (&ferr.GateViolation{
			Changed: verdict.Changed, Allowed: verdict.Allowed, Violating: verdict.Violating, Missing: verdict.Missing,
		}).Error()}, time.Now()
	}
	log.GateVerdict = "PASS"

	if err := copyBack(workspace, projectRoot, verdict.Allowed); err != nil {
		return d.failAndLog(buildID, log, "copy back: "+err.Error(), workspace, result.ExitCode)
	}

	d.writeLog(buildID, log)
	return driveSummary{succeeded: true, summary: "build completed"}, time.Now()
}

func (d *Driver) failAndLog(buildID string, log buildLog, summary, sandboxPath string, exitCode int) (driveSummary, time.Time) {
	if log.GateVerdict == "" {
		log.GateVerdict = "FAIL"
	}
	log.SandboxPath = sandboxPath
	log.ExitCode = exitCode
	d.writeLog(buildID, log)
	return driveSummary{succeeded: false, summary: summary}, time.Now()
}

func (d *Driver) writeLog(buildID string, log buildLog) {
	raw, err := json.Marshal(log)
	if err != nil {
		return
	}
	_, _ = d.writer.WriteJSON(context.Background(), ledger.ArtifactBuildLog, buildID, raw)
}

func (d *Driver) builderCommandLabel() string {
	if nb, ok := d.builder.(*NativeBuilder); ok {
		return nb.BinaryName
	}
	if wb, ok := d.builder.(*WasmBuilder); ok {
		return "wasm:" + wb.ModulePath
	}
	return "builder"
}
