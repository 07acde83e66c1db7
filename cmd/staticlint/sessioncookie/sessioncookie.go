// Package sessioncookie reports cookie writes outside the session package.
// The session cookie is the portal's only credential, so every Set-Cookie
// must go through internal/auth where its attributes are decided.
package sessioncookie

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "sessioncookie",
	Doc:  "reports http.SetCookie calls outside internal/auth",
	Run:  run,
}

func allowedPackage(path string) bool {
	return path == "internal/auth" || strings.HasSuffix(path, "/internal/auth")
}

func run(pass *analysis.Pass) (interface{}, error) {
	if allowedPackage(pass.Pkg.Path()) {
		return nil, nil
	}

	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
			if !ok || fn.Pkg() == nil {
				return true
			}

			if fn.Pkg().Path() == "net/http" && fn.Name() == "SetCookie" {
				pass.Reportf(call.Pos(), "cookies must be written by internal/auth")
			}

			return true
		})
	}

	return nil, nil
}
