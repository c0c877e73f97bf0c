package policyscan

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// printFamily are the print/log calls the secret_leak rule watches for
// an environment-read argument (spec.md §4.3).
var printFamily = map[string]bool{
	"fmt.Print": true, "fmt.Println": true, "fmt.Printf": true,
	"fmt.Fprint": true, "fmt.Fprintln": true, "fmt.Fprintf": true,
	"log.Print": true, "log.Println": true, "log.Printf": true,
	"log.Fatal": true, "log.Fatalln": true, "log.Fatalf": true,
	"log.Panic": true, "log.Panicln": true, "log.Panicf": true,
}

// interpolators are calls whose result is built from their own
// arguments, so an env-read buried in one of them still reaches a
// print-family call that wraps it (e.g. fmt.Println(fmt.Sprintf(...))).
var interpolators = map[string]bool{
	"fmt.Sprint": true, "fmt.Sprintln": true, "fmt.Sprintf": true,
}

// ScanFile statically scans one Go source file against policy.
func ScanFile(path string, policy Policy) ([]Violation, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &ferr.StoreError{Op: "read source for scan", Cause: err}
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, source, parser.AllErrors)
	if err != nil {
		return []Violation{{File: path, Line: 0, Rule: "syntax_error", Detail: err.Error()}}, nil
	}

	v := &visitor{fset: fset, filename: path, policy: policy}
	ast.Walk(v, file)
	return v.violations, nil
}

// ScanDirectory walks a directory tree, scanning every .go file (tests
// included, since a built skill's own test files are part of its diff
// surface) against policy.
func ScanDirectory(root string, policy Policy) (Result, error) {
	result := Result{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "vendor" || info.Name() == "testdata" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		result.FilesScanned++
		violations, err := ScanFile(path, policy)
		if err != nil {
			return err
		}
		result.Violations = append(result.Violations, violations...)
		return nil
	})
	if err != nil {
		return Result{}, &ferr.StoreError{Op: "walk scan directory", Cause: err}
	}
	sort.Slice(result.Violations, func(i, j int) bool {
		if result.Violations[i].File != result.Violations[j].File {
			return result.Violations[i].File < result.Violations[j].File
		}
		return result.Violations[i].Line < result.Violations[j].Line
	})
	return result, nil
}

type visitor struct {
	fset     *token.FileSet
	filename string
	policy   Policy
	violations []Violation
}

func (v *visitor) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case *ast.ImportSpec:
		v.checkImport(n)
	case *ast.CallExpr:
		v.checkCall(n)
	}
	return v
}

func (v *visitor) checkImport(n *ast.ImportSpec) {
	path := strings.Trim(n.Path.Value, `"`)
	for _, forbidden := range v.policy.ForbiddenImports {
		if path == forbidden || strings.HasPrefix(path, forbidden+"/") {
			v.violations = append(v.violations, Violation{
				File:   v.filename,
				Line:   v.fset.Position(n.Pos()).Line,
				Rule:   "forbidden_import",
				Detail: "import of '" + path + "' is forbidden",
			})
		}
	}
	if !v.policy.AllowedNetwork && (path == "net" || path == "net/http" || strings.HasPrefix(path, "net/")) {
		v.violations = append(v.violations, Violation{
			File:   v.filename,
			Line:   v.fset.Position(n.Pos()).Line,
			Rule:   "forbidden_import",
			Detail: "network import '" + path + "' requires allowed_network policy",
		})
	}
}

func (v *visitor) checkCall(n *ast.CallExpr) {
	name := callName(n)

	if v.policy.ForbidDynamicExec {
		switch name {
		case "exec.Command", "exec.CommandContext", "plugin.Open", "dlopen":
			v.violations = append(v.violations, Violation{
				File:   v.filename,
				Line:   v.fset.Position(n.Pos()).Line,
				Rule:   "forbid_dynamic_exec",
				Detail: "call to " + name + "() is forbidden",
			})
		}
	}

	if printFamily[name] {
		for _, arg := range n.Args {
			if readsSecretEnv(arg) {
				v.violations = append(v.violations, Violation{
					File:   v.filename,
					Line:   v.fset.Position(n.Pos()).Line,
					Rule:   "secret_leak",
					Detail: "call to " + name + "() prints an environment variable read via os.Getenv/os.Environ",
				})
				break
			}
		}
	}
}

// readsSecretEnv reports whether expr is, directly or through a
// fmt.Sprint-family interpolation, a read of an environment variable
// via os.Getenv/os.LookupEnv or an os.Environ() index (spec.md §4.3).
func readsSecretEnv(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.CallExpr:
		name := callName(e)
		if name == "os.Getenv" || name == "os.LookupEnv" {
			return true
		}
		if interpolators[name] {
			for _, arg := range e.Args {
				if readsSecretEnv(arg) {
					return true
				}
			}
		}
	case *ast.IndexExpr:
		if call, ok := e.X.(*ast.CallExpr); ok && callName(call) == "os.Environ" {
			return true
		}
	}
	return false
}

// callName renders a call's callee as "pkg.Func" or bare "Func",
// matching how forbidden call targets are expressed in policy.
func callName(n *ast.CallExpr) string {
	switch fn := n.Fun.(type) {
	case *ast.SelectorExpr:
		if pkg, ok := fn.X.(*ast.Ident); ok {
			return pkg.Name + "." + fn.Sel.Name
		}
		return fn.Sel.Name
	case *ast.Ident:
		return fn.Name
	default:
		return ""
	}
}
