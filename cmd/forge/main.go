package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/config"
	"github.com/basinforge/skillforge/pkg/consumer"
	"github.com/basinforge/skillforge/pkg/httpapi"
	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/llmgateway"
	"github.com/basinforge/skillforge/pkg/policyscan"
	"github.com/basinforge/skillforge/pkg/promote"
	"github.com/basinforge/skillforge/pkg/propose"
	"github.com/basinforge/skillforge/pkg/registry"
	"github.com/basinforge/skillforge/pkg/sandbox"
	"github.com/basinforge/skillforge/pkg/skill"
	"github.com/basinforge/skillforge/pkg/telemetry"
	"github.com/basinforge/skillforge/pkg/verify"
	"github.com/basinforge/skillforge/skills/searchnotes"
	"github.com/basinforge/skillforge/skills/summarizenote"
	"github.com/basinforge/skillforge/skills/writenote"
	"go.opentelemetry.io/otel/attribute"
)

func loadTelemetry(cfg *config.Config) *telemetry.Provider {
	tCfg := telemetry.DefaultConfig()
	tCfg.Enabled = cfg.OTelEnabled
	provider, err := telemetry.New(context.Background(), tCfg)
	if err != nil {
		slog.Warn("telemetry disabled due to init error", "error", err)
		provider, _ = telemetry.New(context.Background(), telemetry.Config{Enabled: false})
	}
	return provider
}

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 2
	}

	switch args[1] {
	case "propose":
		return runPropose(args[2:], stdout, stderr)
	case "build":
		return runBuild(args[2:], stdout, stderr)
	case "verify":
		return runVerify(args[2:], stdout, stderr)
	case "promote":
		return runPromote(args[2:], stdout, stderr)
	case "consume":
		return runConsume(args[2:], stdout, stderr)
	case "serve":
		return runServe(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "forge — governed skill pipeline CLI")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  forge <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  propose   Create a skill proposal (--name --description --effect --io-schema)")
	fmt.Fprintln(w, "  build     Run the sandbox build driver (--proposal --project-root)")
	fmt.Fprintln(w, "  verify    Run the verify orchestrator (--proposal --skill-file --project-root)")
	fmt.Fprintln(w, "  promote   Promote a verified proposal (--proposal --project-root --approved-by)")
	fmt.Fprintln(w, "  consume   Invoke a trusted skill by name (--skill --input)")
	fmt.Fprintln(w, "  serve     Run the HTTP control surface (--addr --jwt-secret)")
}

func openStores(cfg *config.Config) (ledger.Store, *artifact.Writer, error) {
	store, err := ledger.NewSQLite(context.Background(), cfg.LedgerDBPath)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := artifact.NewFileStore(cfg.ArtifactDir)
	if err != nil {
		return nil, nil, err
	}
	return store, artifact.NewWriter(blobs, store), nil
}

func runPropose(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("propose", flag.ContinueOnError)
	name := fs.String("name", "", "skill name")
	description := fs.String("description", "", "skill description")
	effectClass := fs.String("effect", "", "effect class (READ_ONLY, FILE_WRITE, NETWORK, SECRET_READ, MONEY, MESSAGING)")
	ioSchema := fs.String("io-schema", "{}", "JSON I/O schema")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	store, writer, err := openStores(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer store.Close()

	proposer := propose.NewProposer(store, writer)
	proposal, _, err := proposer.Run(context.Background(), propose.Request{
		Name:         *name,
		Description:  *description,
		IOSchemaJSON: *ioSchema,
		EffectClass:  skill.EffectClass(*effectClass),
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "proposed %s (id=%s)\n", proposal.Name, proposal.ID)
	return 0
}

func runBuild(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	proposalID := fs.String("proposal", "", "proposal id")
	projectRoot := fs.String("project-root", ".", "project root to mirror into the sandbox")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	store, writer, err := openStores(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer store.Close()

	var builder sandbox.Builder
	if cfg.UseWasmBuilder {
		builder = sandbox.NewWasmBuilder(cfg.WasmModulePath)
	} else {
		builder = sandbox.NewNativeBuilder("forge-builder")
	}

	driver := sandbox.NewDriver(store, writer, builder, os.TempDir(), cfg.BuildTimeout)

	telemetryProvider := loadTelemetry(cfg)
	defer telemetryProvider.Shutdown(context.Background())
	ctx, done := telemetryProvider.TrackOperation(context.Background(), "forge.build", attribute.String("proposal_id", *proposalID))

	build, err := driver.RunBuild(ctx, *proposalID, *projectRoot)
	done(err)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "build %s finished with status %s\n", build.ID, build.Status)
	return 0
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	proposalID := fs.String("proposal", "", "proposal id")
	skillFile := fs.String("skill-file", "", "path to the built skill source")
	projectRoot := fs.String("project-root", ".", "project root")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	store, writer, err := openStores(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer store.Close()

	scanner, err := policyscan.NewScanner(policyscan.Policy{
		ForbiddenImports:  policyscan.DefaultForbiddenImports,
		ForbidDynamicExec: true,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	verifier := verify.NewVerifier(store, writer, scanner, verify.RealRunner{}, nil, 60*time.Second)

	telemetryProvider := loadTelemetry(cfg)
	defer telemetryProvider.Shutdown(context.Background())
	ctx, done := telemetryProvider.TrackOperation(context.Background(), "forge.verify", attribute.String("proposal_id", *proposalID))

	verification, err := verifier.Run(ctx, verify.Request{
		ProposalID: *proposalID, SkillFile: *skillFile, ProjectRoot: *projectRoot,
	})
	done(err)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "verification %s: %s\n", verification.ID, verification.Status)
	return 0
}

func runPromote(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	proposalID := fs.String("proposal", "", "proposal id")
	projectRoot := fs.String("project-root", ".", "project root")
	approvedBy := fs.String("approved-by", "", "reviewer identity")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	store, _, err := openStores(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer store.Close()

	reg := registry.NewStore(cfg.RegistryPath)
	promoter := promote.NewPromoter(store, reg)

	telemetryProvider := loadTelemetry(cfg)
	defer telemetryProvider.Shutdown(context.Background())
	ctx, done := telemetryProvider.TrackOperation(context.Background(), "forge.promote", attribute.String("proposal_id", *proposalID))

	promotion, err := promoter.Run(ctx, promote.Request{
		ProposalID: *proposalID, ProjectRoot: *projectRoot, ApprovedBy: *approvedBy,
	})
	done(err)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "promoted: %s -> %s\n", promotion.FromStatus, promotion.ToStatus)
	return 0
}

func runConsume(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("consume", flag.ContinueOnError)
	skillName := fs.String("skill", "", "trusted skill name")
	input := fs.String("input", "{}", "JSON input payload")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	reg := registry.NewStore(cfg.RegistryPath)
	gateway := llmgateway.NewHTTPGateway(cfg.LLMGatewayURL, cfg.LLMGatewayAPIKey, cfg.LLMGatewayModel)

	constructors := registry.Constructors{
		"skills.WriteNoteSkill":     writenote.New(cfg.VaultDir),
		"skills.SearchNotesSkill":   searchnotes.New(cfg.VaultDir, gateway),
		"skills.SummarizeNoteSkill": summarizenote.New(cfg.VaultDir, gateway),
	}
	loader := registry.NewLoader(reg, constructors)
	shim := consumer.NewShim(reg, loader)

	var payload map[string]any
	if err := json.Unmarshal([]byte(*input), &payload); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	record := shim.ConsumeSkill(context.Background(), *skillName, payload)
	slog.Info("consume", "skill", *skillName, "success", record.Success)
	raw, _ := json.MarshalIndent(record, "", "  ")
	fmt.Fprintln(stdout, string(raw))
	if !record.Success {
		return 1
	}
	return 0
}

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	jwtSecret := fs.String("jwt-secret", "", "HMAC secret for validating promote bearer tokens")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *jwtSecret == "" {
		fmt.Fprintln(stderr, "serve: --jwt-secret is required to gate the promote endpoint")
		return 2
	}

	cfg := config.Load()
	store, _, err := openStores(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer store.Close()

	reg := registry.NewStore(cfg.RegistryPath)
	promoter := promote.NewPromoter(store, reg)
	validator := &httpapi.JWTValidator{Secret: []byte(*jwtSecret)}
	srv := httpapi.NewServer(store, promoter, validator)

	fmt.Fprintf(stdout, "serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, srv); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
