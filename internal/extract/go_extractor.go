package extract

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"unicode"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// goExtractor special-cases Go through go/ast rather than tree-sitter,
// mirroring the teacher's internal/indexer/parser.go split: Go has first-
// class stdlib parsing, so there is no reason to route it through a
// tree-sitter grammar.
type goExtractor struct{}

func (g *goExtractor) Extract(ctx context.Context, path string, source []byte) (Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, source, parser.ParseComments)
	if err != nil {
		return Result{}, nil // unparseable: orchestrator falls back to the whole-file chunk
	}

	var result Result
	pkgName := file.Name.Name

	for _, imp := range file.Imports {
		line := fset.Position(imp.Pos()).Line
		specifier, _ := strconv.Unquote(imp.Path.Value)
		localName := ""
		if imp.Name != nil {
			localName = imp.Name.Name
		} else {
			parts := strings.Split(specifier, "/")
			localName = parts[len(parts)-1]
		}
		result.Imports = append(result.Imports, Import{
			FilePath:        path,
			Line:            line,
			ImportType:      sqi.ImportGo,
			ModuleSpecifier: specifier,
			ResolvedPath:    specifier,
			Bindings: []ImportBinding{
				{ImportedName: specifier, LocalName: localName},
			},
		})
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			result.Symbols = append(result.Symbols, goFuncSymbol(fset, pkgName, d, path))
			collectUsages(fset, d.Body, qualifiedFuncName(pkgName, d), path, &result.Usages)
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					result.Symbols = append(result.Symbols, goTypeSymbol(fset, pkgName, d, ts, path))
				}
			}
		}
	}

	return result, nil
}

func qualifiedFuncName(pkg string, d *ast.FuncDecl) string {
	if d.Recv != nil && len(d.Recv.List) > 0 {
		recv := recvTypeName(d.Recv.List[0].Type)
		return pkg + "." + recv + "." + d.Name.Name
	}
	return pkg + "." + d.Name.Name
}

func recvTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return recvTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

func goFuncSymbol(fset *token.FileSet, pkg string, d *ast.FuncDecl, path string) Symbol {
	kind := sqi.KindFunction
	parent := ""
	if d.Recv != nil && len(d.Recv.List) > 0 {
		kind = sqi.KindMethod
		parent = pkg + "." + recvTypeName(d.Recv.List[0].Type)
	}

	var params []Parameter
	pos := 0
	if d.Type.Params != nil {
		for _, field := range d.Type.Params.List {
			names := field.Names
			if len(names) == 0 {
				names = []*ast.Ident{{Name: "_"}}
			}
			for _, n := range names {
				params = append(params, Parameter{
					Position:       pos,
					Name:           n.Name,
					TypeAnnotation: exprString(field.Type),
				})
				pos++
			}
		}
	}

	returnType := ""
	if d.Type.Results != nil && len(d.Type.Results.List) > 0 {
		types := make([]string, 0, len(d.Type.Results.List))
		for _, r := range d.Type.Results.List {
			types = append(types, exprString(r.Type))
		}
		returnType = strings.Join(types, ", ")
	}

	var doc *Docstring
	if d.Doc != nil {
		text := d.Doc.Text()
		doc = &Docstring{DocType: sqi.DocGodoc, RawText: text, Description: firstSentence(text)}
	}

	start, end := fset.Position(d.Pos()).Line, fset.Position(d.End()).Line

	return Symbol{
		Name:                d.Name.Name,
		QualifiedName:       qualifiedFuncName(pkg, d),
		Kind:                kind,
		FilePath:            path,
		StartLine:           start,
		EndLine:             end,
		IsExported:          isExported(d.Name.Name),
		ReturnType:          returnType,
		ParentQualifiedName: parent,
		Parameters:          params,
		Docstring:           doc,
	}
}

func goTypeSymbol(fset *token.FileSet, pkg string, decl *ast.GenDecl, ts *ast.TypeSpec, path string) Symbol {
	kind := sqi.KindTypeAlias
	switch ts.Type.(type) {
	case *ast.InterfaceType:
		kind = sqi.KindInterface
	case *ast.StructType:
		kind = sqi.KindClass
	}

	var doc *Docstring
	docSource := decl.Doc
	if ts.Doc != nil {
		docSource = ts.Doc
	}
	if docSource != nil {
		text := docSource.Text()
		doc = &Docstring{DocType: sqi.DocGodoc, RawText: text, Description: firstSentence(text)}
	}

	start, end := fset.Position(decl.Pos()).Line, fset.Position(decl.End()).Line

	return Symbol{
		Name:           ts.Name.Name,
		QualifiedName:  pkg + "." + ts.Name.Name,
		Kind:           kind,
		FilePath:       path,
		StartLine:      start,
		EndLine:        end,
		IsExported:     isExported(ts.Name.Name),
		Docstring:      doc,
	}
}

// collectUsages walks a function body for call expressions, recording each
// as a Usage whose enclosing symbol is the function/method it was found in.
// Identifiers that are not the callee of a call are not recorded.
func collectUsages(fset *token.FileSet, body *ast.BlockStmt, enclosing, path string, out *[]Usage) {
	if body == nil {
		return
	}
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name := calleeName(call.Fun)
		if name == "" {
			return true
		}
		pos := fset.Position(call.Pos())
		*out = append(*out, Usage{
			SymbolName:          name,
			FilePath:            path,
			Line:                pos.Line,
			Column:              pos.Column,
			UsageType:           sqi.UsageCall,
			EnclosingSymbolName: enclosing,
		})
		return true
	})
}

func calleeName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return e.Sel.Name
	default:
		return ""
	}
}

func exprString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprString(e.X)
	case *ast.SelectorExpr:
		return exprString(e.X) + "." + e.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(e.Elt)
	case *ast.MapType:
		return "map[" + exprString(e.Key) + "]" + exprString(e.Value)
	case *ast.Ellipsis:
		return "..." + exprString(e.Elt)
	case *ast.InterfaceType:
		return "interface{}"
	default:
		return ""
	}
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "\n"); i != -1 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
