// Package chain implements the deterministic chain executor (spec.md
// §4.7): a fixed sequence of skill invocations with explicit dotted-path
// field mapping between steps, no LLM planning or auto-mapping,
// grounded on consumer/chain.py.
package chain

// FieldMapping copies one value from a prior step's output into the
// current step's resolved input.
type FieldMapping struct {
	ToField       string
	FromPath      string
	FromStepIndex *int
}

// Step is one entry in a chain. Provide either Input (used verbatim) or
// InputTemplate + FromPrev mappings, never both.
type Step struct {
	SkillName     string
	Input         map[string]any
	InputTemplate map[string]any
	FromPrev      []FieldMapping
	ParentIndex   *int
}

// Options controls chain-wide execution behavior.
type Options struct {
	StopOnFailure bool
}

// Spec is a full deterministic chain.
type Spec struct {
	Steps   []Step
	Options Options
}
