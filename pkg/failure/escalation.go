package failure

import (
	"context"
	"regexp"
	"strings"

	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/skill"
)

// EscalationTrigger names a reason a retry must be gated behind human
// approval rather than applied automatically.
type EscalationTrigger string

const (
	TriggerRepeatedFailure    EscalationTrigger = "REPEATED_FAILURE"
	TriggerPermissionWidening EscalationTrigger = "PERMISSION_WIDENING"
	TriggerSecurityClass      EscalationTrigger = "SECURITY_CLASS"
	TriggerLargeDiff          EscalationTrigger = "LARGE_DIFF"
	TriggerAmbiguous          EscalationTrigger = "AMBIGUOUS"
)

var effectClassLine = regexp.MustCompile(`(?i)\*\*Effect Class\*\*:\s*(\S+)`)

// extractEffectClass pulls the declared effect class out of a rendered
// BUILD_PACKET (sandbox.Packet.Render's "- **Effect Class**: X" line).
func extractEffectClass(packet string) (skill.EffectClass, bool) {
	m := effectClassLine.FindStringSubmatch(packet)
	if m == nil {
		return "", false
	}
	class := skill.EffectClass(strings.TrimSpace(m[1]))
	if !class.Valid() {
		return "", false
	}
	return class, true
}

// checkEscalationTriggers evaluates every trigger independently; more
// than one may fire for a single retry.
func (r *Researcher) checkEscalationTriggers(ctx context.Context, analysis Analysis, originalPacket, proposedPacket string) ([]EscalationTrigger, error) {
	var triggers []EscalationTrigger

	build, err := r.store.GetBuild(ctx, analysis.BuildID)
	if err != nil {
		return nil, err
	}
	builds, err := r.store.ListBuilds(ctx, ledger.BuildFilter{ProposalID: build.ProposalID})
	if err != nil {
		return nil, err
	}
	failedCount := 0
	for _, b := range builds {
		if b.Status == ledger.BuildFailed {
			failedCount++
		}
	}
	if failedCount >= 3 {
		triggers = append(triggers, TriggerRepeatedFailure)
	}

	if analysis.Kind == KindVerifyPolicy || analysis.Kind == KindVerifyInvariant {
		triggers = append(triggers, TriggerSecurityClass)
	}

	if origClass, ok := extractEffectClass(originalPacket); ok {
		if propClass, ok := extractEffectClass(proposedPacket); ok && skill.Widened(origClass, propClass) {
			triggers = append(triggers, TriggerPermissionWidening)
		}
	}

	if diffRatio(originalPacket, proposedPacket) > 0.5 {
		triggers = append(triggers, TriggerLargeDiff)
	}

	if analysis.Kind == KindUnknown {
		triggers = append(triggers, TriggerAmbiguous)
	}

	return triggers, nil
}

// diffRatio approximates a line-level diff ratio: (lines that differ at
// the same index + the absolute difference in line count) / original
// line count. An empty original still splits into one empty line, so it
// is measured against a denominator of 1.
func diffRatio(original, proposed string) float64 {
	origLines := strings.Split(original, "\n")
	propLines := strings.Split(proposed, "\n")
	if len(origLines) == 0 {
		return 0
	}

	changed := 0
	for i := 0; i < len(origLines) && i < len(propLines); i++ {
		if origLines[i] != propLines[i] {
			changed++
		}
	}
	added := len(propLines) - len(origLines)
	if added < 0 {
		added = -added
	}

	denom := len(origLines)
	if denom == 0 {
		denom = 1
	}
	return float64(changed+added) / float64(denom)
}
