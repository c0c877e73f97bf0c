// Package skill defines the capability contract that every governed
// skill implements, and the effect-class taxonomy that governs
// confirmation and gating across the forge.
package skill

import "context"

// EffectClass is the declared side-effect envelope of a skill.
type EffectClass string

const (
	EffectReadOnly  EffectClass = "READ_ONLY"
	EffectFileWrite EffectClass = "FILE_WRITE"
	EffectNetwork   EffectClass = "NETWORK"
	EffectSecret    EffectClass = "SECRET_READ"
	EffectMoney     EffectClass = "MONEY"
	EffectMessaging EffectClass = "MESSAGING"
)

// Valid reports whether c is one of the declared effect classes.
func (c EffectClass) Valid() bool {
	switch c {
	case EffectReadOnly, EffectFileWrite, EffectNetwork, EffectSecret, EffectMoney, EffectMessaging:
		return true
	}
	return false
}

// Confirmation describes how much friction an effect class requires
// before execution. This is the single authoritative mapping the forge
// consults — no other package may redeclare it (see SPEC_FULL.md §9,
// Open Question on NETWORK class membership).
type Confirmation string

const (
	AllowedByDefault     Confirmation = "ALLOWED_BY_DEFAULT"
	RequiresConfirmation Confirmation = "REQUIRES_CONFIRMATION"
	Blocked              Confirmation = "BLOCKED"
)

// EffectPolicy is the canonical effect-class -> confirmation-requirement table.
var EffectPolicy = map[EffectClass]Confirmation{
	EffectReadOnly:  AllowedByDefault,
	EffectFileWrite: RequiresConfirmation,
	EffectNetwork:   RequiresConfirmation,
	EffectSecret:    RequiresConfirmation,
	EffectMoney:     Blocked,
	EffectMessaging: RequiresConfirmation,
}

// Widened reports whether `to` requires strictly more confirmation than `from`.
// Used by the failure/retry advisor's PERMISSION_WIDENING escalation trigger.
func Widened(from, to EffectClass) bool {
	rank := map[Confirmation]int{AllowedByDefault: 0, RequiresConfirmation: 1, Blocked: 2}
	return rank[EffectPolicy[to]] > rank[EffectPolicy[from]]
}

// Schema is a skill's declared input or output shape, expressed as a
// JSON Schema document. Raw is carried as text and is not compiled by
// any package; input validation goes through Skill.Validate, and the
// chain executor's gate checks Required and Scalars.
type Schema struct {
	// Raw is the JSON Schema document text (draft 2020-12).
	Raw string
	// Required lists top-level required field names, duplicated here
	// (in addition to being present in Raw) so the chain executor's
	// schema gate (spec.md §4.7 step 3) can check required-field
	// presence without round-tripping through a schema compiler on
	// every step.
	Required []string
	// Scalars maps field name -> declared scalar kind ("string",
	// "integer", "number", "boolean") for fields whose declared type
	// is a scalar kind, per the same schema-gate requirement.
	Scalars map[string]string
}

// Skill is the capability contract every governed unit of executable
// behavior must satisfy. The registry maps names to constructors that
// produce these.
type Skill interface {
	Name() string
	Description() string
	EffectClass() EffectClass
	InputSchema() Schema
	OutputSchema() Schema
	// Validate normalizes and validates raw input against InputSchema,
	// returning the validated map or a ValidationError.
	Validate(raw map[string]any) (map[string]any, error)
	// Execute runs the skill against validated input.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Constructor builds a fresh Skill instance. The registry stores one
// constructor per declared module reference and instantiates on every
// load (trust is re-verified at every load, never cached).
type Constructor func() Skill
