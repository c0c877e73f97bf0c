package policyscan

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// FileFacts is the structural summary of a scanned file handed to custom
// CEL rules as the "file" variable, so rule authors can express checks
// the fixed rule types don't cover (e.g. import count ceilings, naming
// conventions) without a Go code change per rule.
type FileFacts struct {
	Path          string
	Imports       []string
	LineCount     int
	FunctionCount int
}

func (f FileFacts) toCELInput() map[string]any {
	return map[string]any{
		"path":           f.Path,
		"imports":        f.Imports,
		"line_count":     f.LineCount,
		"function_count": f.FunctionCount,
	}
}

// CELEvaluator compiles and caches custom policy rules, grounded on
// governance.CELPolicyEvaluator's compile-then-cache-program pattern.
type CELEvaluator struct {
	env      *cel.Env
	programs map[string]cel.Program
}

// NewCELEvaluator builds an evaluator whose expressions see a single
// "file" variable of FileFacts shape.
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv(cel.Variable("file", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("build cel environment: %w", err)
	}
	return &CELEvaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Evaluate runs every custom rule against facts and returns a Violation
// for each rule whose expression evaluates to true (a fired rule is a
// failure, per the bundle's "condition for failure" convention).
func (e *CELEvaluator) Evaluate(rules []CustomRule, facts FileFacts) ([]Violation, error) {
	var violations []Violation
	input := map[string]any{"file": facts.toCELInput()}

	for _, rule := range rules {
		prg, err := e.program(rule.Expression)
		if err != nil {
			return nil, &ferr.PolicyViolation{Violations: 1}
		}
		out, _, err := prg.Eval(input)
		if err != nil {
			// A rule that fails to evaluate against these facts (e.g. a
			// missing field) is treated as not firing, not as a crash.
			continue
		}
		fired, ok := out.Value().(bool)
		if ok && fired {
			msg := rule.Message
			if msg == "" {
				msg = "custom rule '" + rule.Name + "' fired"
			}
			violations = append(violations, Violation{
				File:   facts.Path,
				Line:   0,
				Rule:   "custom:" + rule.Name,
				Detail: msg,
			})
		}
	}
	return violations, nil
}

func (e *CELEvaluator) program(expr string) (cel.Program, error) {
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
	if err != nil {
		return nil, err
	}
	e.programs[expr] = prg
	return prg, nil
}
