package invariant

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
)

// requiredSkillMethods mirrors the Skill interface's method set
// (pkg/skill.Skill); a skill's source must declare all of them on some
// receiver type for structural conformance to pass.
var requiredSkillMethods = []string{
	"Name", "Description", "EffectClass", "InputSchema", "OutputSchema", "Validate", "Execute",
}

func checkStructural(skillFile, expectedEffectClass string) ([]Violation, error) {
	if _, err := os.Stat(skillFile); err != nil {
		return []Violation{{Check: "structural", Message: "skill file not found: " + skillFile}}, nil
	}

	source, err := os.ReadFile(skillFile)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, parseErr := parser.ParseFile(fset, skillFile, source, parser.AllErrors)
	if parseErr != nil {
		return []Violation{{Check: "structural", Message: "syntax error: " + parseErr.Error()}}, nil
	}

	receivers := methodsByReceiver(file)
	candidate, methods := pickSkillReceiver(receivers)
	if candidate == "" {
		return []Violation{{Check: "structural", Message: "no type implementing the skill interface found"}}, nil
	}

	var missing []string
	for _, required := range requiredSkillMethods {
		if !methods[required] {
			missing = append(missing, required)
		}
	}
	var violations []Violation
	if len(missing) > 0 {
		violations = append(violations, Violation{
			Check:   "structural",
			Message: "type " + candidate + " is missing required methods: " + joinComma(missing),
		})
	}

	if expectedEffectClass != "" {
		if actual, line, found := findEffectClassLiteral(fset, file, candidate); found && actual != expectedEffectClass {
			violations = append(violations, Violation{
				Check:   "structural",
				Message: "EffectClass returns '" + actual + "', expected '" + expectedEffectClass + "'",
				Line:    line,
			})
		}
	}

	return violations, nil
}

// methodsByReceiver maps a receiver type name to the set of method
// names declared on it.
func methodsByReceiver(file *ast.File) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		recvName := receiverTypeName(fn.Recv.List[0].Type)
		if recvName == "" {
			continue
		}
		if out[recvName] == nil {
			out[recvName] = make(map[string]bool)
		}
		out[recvName][fn.Name.Name] = true
	}
	return out
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

// pickSkillReceiver returns the receiver type with the largest overlap
// against requiredSkillMethods, treated as the file's skill
// implementation.
func pickSkillReceiver(receivers map[string]map[string]bool) (string, map[string]bool) {
	var best string
	bestCount := 0
	for recv, methods := range receivers {
		count := 0
		for _, required := range requiredSkillMethods {
			if methods[required] {
				count++
			}
		}
		if count > bestCount {
			best = recv
			bestCount = count
		}
	}
	if bestCount == 0 {
		return "", nil
	}
	return best, receivers[best]
}

// effectClassIdentifiers maps the skill package's EffectClass constant
// identifiers to their declared string values (pkg/skill.EffectClass),
// since an AST sweep sees only the identifier `skill.EffectFileWrite`,
// never the string literal it's declared to equal.
var effectClassIdentifiers = map[string]string{
	"EffectReadOnly":  "READ_ONLY",
	"EffectFileWrite": "FILE_WRITE",
	"EffectNetwork":   "NETWORK",
	"EffectSecret":    "SECRET_READ",
	"EffectMoney":     "MONEY",
	"EffectMessaging": "MESSAGING",
}

// findEffectClassLiteral looks for `func (recv Type) EffectClass() ... {
// return skill.Effect... }` and resolves the declared effect class
// string it returns, so the structural check can compare it against
// the proposal's declared effect class.
func findEffectClassLiteral(fset *token.FileSet, file *ast.File, receiver string) (value string, line int, found bool) {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != "EffectClass" || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		if receiverTypeName(fn.Recv.List[0].Type) != receiver {
			continue
		}
		for _, stmt := range fn.Body.List {
			ret, ok := stmt.(*ast.ReturnStmt)
			if !ok || len(ret.Results) != 1 {
				continue
			}
			if sel, ok := ret.Results[0].(*ast.SelectorExpr); ok {
				if resolved, known := effectClassIdentifiers[sel.Sel.Name]; known {
					return resolved, fset.Position(sel.Pos()).Line, true
				}
				return sel.Sel.Name, fset.Position(sel.Pos()).Line, true
			}
		}
	}
	return "", 0, false
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
