package consumer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basinforge/skillforge/pkg/registry"
	"github.com/basinforge/skillforge/pkg/skill"
)

type okSkill struct{}

func (okSkill) Name() string                   { return "echo" }
func (okSkill) Description() string            { return "echoes input" }
func (okSkill) EffectClass() skill.EffectClass { return skill.EffectReadOnly }
func (okSkill) InputSchema() skill.Schema      { return skill.Schema{Required: []string{"message"}} }
func (okSkill) OutputSchema() skill.Schema     { return skill.Schema{} }
func (okSkill) Validate(raw map[string]any) (map[string]any, error) {
	if _, ok := raw["message"]; !ok {
		return nil, &missingFieldError{}
	}
	return raw, nil
}
func (okSkill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return map[string]any{"echoed": input["message"]}, nil
}

type missingFieldError struct{}

func (e *missingFieldError) Error() string { return "missing required field: message" }

func hashOfTest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func setupShim(t *testing.T, ctor skill.Constructor) *Shim {
	t.Helper()
	dir := t.TempDir()
	source := "package skills\n// echo\n"
	path := filepath.Join(dir, "echo.go")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	store := registry.NewStore(filepath.Join(dir, "registry.yaml"))
	require.NoError(t, store.Put(context.Background(), registry.Entry{
		Name: "echo", ModulePath: "skills.Echo", SourcePath: path, Hash: hashOfTest(source), EffectClass: "READ_ONLY",
	}))
	loader := registry.NewLoader(store, registry.Constructors{"skills.Echo": ctor})
	return NewShim(store, loader)
}

func TestConsumeSkillSuccess(t *testing.T) {
	shim := setupShim(t, func() skill.Skill { return okSkill{} })
	record := shim.ConsumeSkill(context.Background(), "echo", map[string]any{"message": "hi"})
	require.True(t, record.Success)
	require.Equal(t, "hi", record.OutputJSON["echoed"])
	require.NotEmpty(t, record.SourceHash)
}

func TestConsumeSkillCapturesValidationFailure(t *testing.T) {
	shim := setupShim(t, func() skill.Skill { return okSkill{} })
	record := shim.ConsumeSkill(context.Background(), "echo", map[string]any{})
	require.False(t, record.Success)
	require.Contains(t, record.Error, "missing required field")
}

func TestConsumeSkillNeverPanicsOnUnknownSkill(t *testing.T) {
	shim := setupShim(t, func() skill.Skill { return okSkill{} })
	record := shim.ConsumeSkill(context.Background(), "does-not-exist", map[string]any{})
	require.False(t, record.Success)
	require.NotEmpty(t, record.Error)
}

func TestConsumeSkillUsesInjectedClock(t *testing.T) {
	shim := setupShim(t, func() skill.Skill { return okSkill{} })
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	shim = shim.WithClock(func() time.Time { return fixed })
	record := shim.ConsumeSkill(context.Background(), "echo", map[string]any{"message": "hi"})
	require.Equal(t, fixed, record.StartedAt)
	require.Equal(t, fixed, record.FinishedAt)
}
