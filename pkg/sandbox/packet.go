package sandbox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Packet is the build packet handed to the external builder: what it
// may build, and the exact paths it is allowed to touch.
type Packet struct {
	SkillName         string
	Description       string
	EffectClass       string
	IOSchema          string
	SkillFile         string
	TestFile          string
	ForbiddenImports  []string
}

// AllowedFiles returns the diff allow-list gate's allowed set.
func (p Packet) AllowedFiles() []string {
	return []string{p.SkillFile, p.TestFile}
}

// Render produces the build packet markdown content handed to the
// builder (spec.md §6, "Build-packet artifact").
func (p Packet) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Build Packet: %s\n\n", p.SkillName)
	fmt.Fprintf(&b, "## Task\nGenerate a governed skill implementation for %q.\n\n", p.SkillName)
	fmt.Fprintf(&b, "## Skill Specification\n- **Name**: %s\n- **Description**: %s\n- **Effect Class**: %s\n\n",
		p.SkillName, p.Description, p.EffectClass)
	fmt.Fprintf(&b, "## I/O Schema\n```json\n%s\n```\n\n", p.IOSchema)
	fmt.Fprintf(&b, "## Allowed Files\nOnly the following paths may be created or modified:\n")
	for _, f := range p.AllowedFiles() {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	fmt.Fprintf(&b, "\n## Forbidden Imports\n")
	for _, imp := range p.ForbiddenImports {
		fmt.Fprintf(&b, "- `%s`\n", imp)
	}
	return b.String()
}

// Hash returns the sha256:<hex> digest of the packet's rendered content.
func (p Packet) Hash() string {
	sum := sha256.Sum256([]byte(p.Render()))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// SkillFilePath and TestFilePath follow the convention src/<skills
// root>/<name> and tests/test_<name>, adapted to Go package layout:
// skills/<name>.go and skills/<name>_test.go.
func SkillFilePath(name string) string { return fmt.Sprintf("skills/%s.go", name) }
func TestFilePath(name string) string  { return fmt.Sprintf("skills/%s_test.go", name) }
