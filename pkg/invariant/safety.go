package invariant

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
)

// checkExtendedSafety looks for dynamic-code-loading primitives that
// are calls rather than import statements, so they fall outside the
// policy scan's forbidden-import rule: plugin.Open (dynamic .so
// loading) and reflect.NewAt (a typed pointer at an arbitrary address),
// which a sandboxed skill has no legitimate reason to use.
func checkExtendedSafety(skillFile string) ([]Violation, error) {
	source, err := os.ReadFile(skillFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	fset := token.NewFileSet()
	file, parseErr := parser.ParseFile(fset, skillFile, source, parser.AllErrors)
	if parseErr != nil {
		return nil, nil // already reported by the structural check
	}

	var violations []Violation
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		switch {
		case pkg.Name == "plugin" && sel.Sel.Name == "Open":
			violations = append(violations, Violation{
				Check:   "safety",
				Message: "plugin.Open() call detected",
				Line:    fset.Position(call.Pos()).Line,
			})
		case pkg.Name == "reflect" && sel.Sel.Name == "NewAt":
			violations = append(violations, Violation{
				Check:   "safety",
				Message: "reflect.NewAt() call detected",
				Line:    fset.Position(call.Pos()).Line,
			})
		}
		return true
	})
	return violations, nil
}
