package sandbox

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// GateVerdict is the diff allow-list gate's outcome.
type GateVerdict struct {
	Passed    bool
	Changed   []string
	Allowed   []string
	Violating []string
	Missing   []string
}

// applyGate checks changed against packet's allowed file set
// (spec.md §4.10 step 6): any changed path outside the allowed set is
// a violation, any allowed path absent from changed is missing, and an
// empty change-set is itself a violation.
func applyGate(changed []string, packet Packet) GateVerdict {
	allowed := packet.AllowedFiles()
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	changedSet := make(map[string]bool, len(changed))
	for _, c := range changed {
		changedSet[c] = true
	}

	var violating []string
	for _, c := range changed {
		if !allowedSet[c] {
			violating = append(violating, c)
		}
	}
	var missing []string
	for _, a := range allowed {
		if !changedSet[a] {
			missing = append(missing, a)
		}
	}
	sort.Strings(violating)
	sort.Strings(missing)

	passed := len(changed) > 0 && len(violating) == 0 && len(missing) == 0
	return GateVerdict{
		Passed:    passed,
		Changed:   changed,
		Allowed:   allowed,
		Violating: violating,
		Missing:   missing,
	}
}

// copyBack copies each allowed, gate-passing path from workspace into
// projectRoot, refusing symlinks and any path that traverses outside
// the project root.
func copyBack(workspace, projectRoot string, paths []string) error {
	for _, rel := range paths {
		if err := safeRelPath(rel); err != nil {
			return err
		}

		src := filepath.Join(workspace, rel)
		info, err := os.Lstat(src)
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return &ferr.GateViolation{Violating: []string{rel}}
		}

		dest := filepath.Join(projectRoot, rel)
		content, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, content, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

func safeRelPath(rel string) error {
	if filepath.IsAbs(rel) {
		return &ferr.GateViolation{Violating: []string{rel}}
	}
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return &ferr.GateViolation{Violating: []string{rel}}
	}
	return nil
}
