package failure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/llmgateway"
)

const logExcerptForPrompt = 1500

// Advisor proposes a corrected BUILD_PACKET for a failed proposal via
// the LLM gateway, gated behind escalation triggers and a per-proposal
// rate limiter so a flapping proposal cannot exhaust the gateway.
type Advisor struct {
	researcher *Researcher
	gateway    llmgateway.Gateway

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewAdvisor builds an Advisor. limit/burst configure the per-proposal
// token bucket (e.g. rate.Every(time.Minute), 3).
func NewAdvisor(researcher *Researcher, gateway llmgateway.Gateway, limit rate.Limit, burst int) *Advisor {
	return &Advisor{
		researcher: researcher,
		gateway:    gateway,
		limiters:   make(map[string]*rate.Limiter),
		limit:      limit,
		burst:      burst,
	}
}

func (a *Advisor) limiterFor(proposalID string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[proposalID]
	if !ok {
		l = rate.NewLimiter(a.limit, a.burst)
		a.limiters[proposalID] = l
	}
	return l
}

// AdviseRetry calls the LLM gateway for a corrected BUILD_PACKET and
// evaluates escalation triggers against the proposed content. A
// non-empty trigger list means the caller must hold the retry for
// human approval rather than applying it automatically.
func (a *Advisor) AdviseRetry(ctx context.Context, proposalID string, analysis Analysis, originalPacket string) (string, []EscalationTrigger, error) {
	if !a.limiterFor(proposalID).Allow() {
		return "", nil, &ferr.Precondition{Operation: "advise_retry", Reason: "retry-advisor rate limit exceeded for proposal " + proposalID}
	}

	prompt := buildPrompt(analysis, originalPacket)
	text, err := a.gateway.Generate(ctx, []llmgateway.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", nil, err
	}
	proposed := text
	if strings.TrimSpace(proposed) == "" {
		proposed = originalPacket
	}

	triggers, err := a.researcher.checkEscalationTriggers(ctx, analysis, originalPacket, proposed)
	if err != nil {
		return "", nil, err
	}
	return proposed, triggers, nil
}

func buildPrompt(analysis Analysis, originalPacket string) string {
	var facts strings.Builder
	for _, f := range analysis.Facts {
		fmt.Fprintf(&facts, "- %s\n", f)
	}

	excerpt := analysis.LogExcerpt
	if len(excerpt) > logExcerptForPrompt {
		excerpt = excerpt[:logExcerptForPrompt]
	}

	return fmt.Sprintf(`You are a build system assistant. A skill build attempt failed.

## Failure Classification
- **Kind:** %s
- **Attempt:** %d

## Facts
%s
## Log Excerpt
`+"```"+`
%s
`+"```"+`

## Original BUILD_PACKET
`+"```markdown"+`
%s
`+"```"+`

## Task
Propose a corrected BUILD_PACKET that addresses the failure. Output ONLY the corrected
BUILD_PACKET content (markdown), nothing else. Keep the same structure but fix the
instructions to avoid the failure. Do NOT widen permissions, add secrets, or change
the side effect class.`, analysis.Kind, analysis.AttemptNumber, facts.String(), excerpt, originalPacket)
}
