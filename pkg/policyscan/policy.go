// Package policyscan implements the static policy scan gate (spec.md
// §4.3): an AST walk over proposed Go source looking for forbidden
// imports, network imports, dynamic-exec primitives, and print or log
// calls that output an environment-variable read (the secret_leak
// rule), plus an extensible layer of CEL-expressed custom rules evaluated
// against per-file facts, grounded on tools/tcbcheck/main.go and the
// teacher's CEL policy evaluator.
package policyscan

import "gopkg.in/yaml.v3"

// Policy is the declarative ruleset a scan runs against, loaded from a
// YAML bundle mirroring kavi/policies/policy.yaml.
type Policy struct {
	ForbiddenImports  []string     `yaml:"forbidden_imports"`
	AllowedNetwork    bool         `yaml:"allowed_network"`
	AllowedWritePaths []string     `yaml:"allowed_write_paths"`
	ForbidDynamicExec bool         `yaml:"forbid_dynamic_exec"`
	SecretPatterns    []string     `yaml:"secret_patterns"`
	CustomRules       []CustomRule `yaml:"custom_rules"`
}

// CustomRule is a CEL-expressed predicate evaluated against FileFacts.
// A rule fires (producing a violation) when its expression evaluates to
// true, so rule authors write the condition for failure, not for pass.
type CustomRule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Message    string `yaml:"message"`
}

// ParsePolicy decodes a YAML policy bundle.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// DefaultForbiddenImports mirrors the reference policy's default
// sandbox-escape surface.
var DefaultForbiddenImports = []string{
	"os/exec",
	"net",
	"net/http",
	"plugin",
	"unsafe",
	"syscall",
}
