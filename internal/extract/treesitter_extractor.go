package extract

import (
	"context"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/sqi"
	"github.com/sourcerack/sourcerack/internal/tsutil"
)

// treeSitterExtractor generalizes the teacher's per-language parser files
// (parsers/python.go, parsers/typescript.go, ...) into one walk driven by
// tsutil's per-language node-type table, since the shape of "definition
// with a name field, optional doc comment, parameter list, and a body full
// of calls" is the same across these grammars.
type treeSitterExtractor struct {
	languageID string
	registry   *langreg.Registry
}

func (e *treeSitterExtractor) Extract(ctx context.Context, path string, source []byte) (Result, error) {
	cfg, ok := tsutil.Configs[e.languageID]
	if !ok {
		return Result{}, nil
	}

	grammar, err := e.registry.EnsureGrammar(ctx, e.languageID)
	if err != nil || grammar == nil {
		return Result{}, nil
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	tree := p.Parse(source, nil)
	if tree == nil {
		return Result{}, nil
	}
	defer tree.Close()

	ruleByKind := make(map[string]tsutil.DefinitionRule, len(cfg.Definitions))
	for _, r := range cfg.Definitions {
		ruleByKind[r.NodeKind] = r
	}
	importKinds := toSet(cfg.ImportKinds)
	callKinds := toSet(cfg.CallKinds)

	var result Result
	var enclosingStack []string

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}

		if rule, ok := ruleByKind[n.Kind()]; ok {
			sym := e.buildSymbol(n, rule, source, path, cfg, enclosingStack)
			result.Symbols = append(result.Symbols, sym)
			enclosingStack = append(enclosingStack, sym.QualifiedName)
			defer func() { enclosingStack = enclosingStack[:len(enclosingStack)-1] }()
		}

		if importKinds[n.Kind()] {
			if imp, ok := e.buildImport(n, source, path); ok {
				result.Imports = append(result.Imports, imp)
			}
		}

		if callKinds[n.Kind()] {
			if name := calleeNameTS(n, source); name != "" {
				start, _ := tsutil.Lines(n)
				enclosing := ""
				if len(enclosingStack) > 0 {
					enclosing = enclosingStack[len(enclosingStack)-1]
				}
				result.Usages = append(result.Usages, Usage{
					SymbolName:          name,
					FilePath:            path,
					Line:                start,
					Column:              int(n.StartPosition().Column) + 1,
					UsageType:           sqi.UsageCall,
					EnclosingSymbolName: enclosing,
				})
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(uint(i)))
		}
	}
	visit(tree.RootNode())

	return result, nil
}

func (e *treeSitterExtractor) buildSymbol(n *sitter.Node, rule tsutil.DefinitionRule, source []byte, path string, cfg tsutil.LanguageConfig, stack []string) Symbol {
	name := tsutil.NameOf(n, rule.NameField, source)
	start, end := tsutil.Lines(n)

	qualified := name
	if len(stack) > 0 {
		qualified = stack[len(stack)-1] + "." + name
	}

	var doc *Docstring
	if cfg.CommentKind != "" {
		if text := tsutil.PrecedingComment(n, cfg.CommentKind, source); text != "" {
			doc = &Docstring{DocType: docTypeFor(e.languageID), RawText: text, Description: firstSentence(stripCommentMarkers(text))}
		}
	}

	isAsync := false
	if cfg.AsyncKeyword != "" {
		isAsync = hasChildOfText(n, cfg.AsyncKeyword, source)
	}

	var params []Parameter
	if cfg.ParameterList != "" {
		if list := findDescendant(n, cfg.ParameterList); list != nil {
			pos := 0
			for i := 0; i < int(list.ChildCount()); i++ {
				child := list.Child(uint(i))
				if child.Kind() != cfg.ParameterKind {
					continue
				}
				params = append(params, Parameter{
					Position: pos,
					Name:     tsutil.NodeText(child, source),
				})
				pos++
			}
		}
	}

	return Symbol{
		Name:                name,
		QualifiedName:       qualified,
		Kind:                sqi.SymbolKind(rule.SymbolKind),
		FilePath:            path,
		StartLine:           start,
		EndLine:             end,
		IsAsync:             isAsync,
		IsExported:          isExportedByConvention(e.languageID, name),
		ParentQualifiedName: parentOf(stack),
		Parameters:          params,
		Docstring:           doc,
	}
}

// buildImport extracts the module path and bound names out of an
// import-like node, dispatching on grammar shape per language rather than
// recording the whole statement's text (which is what the node itself
// spans). Mirrors go_extractor.go's ImportedName/LocalName population so
// the linker's import-binding preference (internal/linker.resolveDefinition)
// works the same way regardless of source language. ok is false when n
// isn't actually a module import (a plain ruby call, a declaration-form
// TS export statement with no `from` clause).
func (e *treeSitterExtractor) buildImport(n *sitter.Node, source []byte, path string) (Import, bool) {
	start, _ := tsutil.Lines(n)

	var specifier string
	var bindings []ImportBinding
	switch e.languageID {
	case "python":
		specifier, bindings = parsePythonImport(n, source)
	case "typescript", "tsx", "javascript":
		spec, b, ok := parseJSImport(n, source)
		if !ok {
			return Import{}, false
		}
		specifier, bindings = spec, b
	case "rust":
		specifier, bindings = parseRustImport(n, source)
	case "java":
		specifier, bindings = parseJavaImport(n, source)
	case "php":
		specifier, bindings = parsePHPImport(n, source)
	case "ruby":
		spec, b, ok := parseRubyRequire(n, source)
		if !ok {
			return Import{}, false
		}
		specifier, bindings = spec, b
	case "c":
		specifier, bindings = parseCInclude(n, source)
	default:
		specifier = strings.TrimSpace(tsutil.NodeText(n, source))
	}

	if specifier == "" {
		return Import{}, false
	}
	return Import{
		FilePath:        path,
		Line:            start,
		ImportType:      importTypeFor(e.languageID),
		ModuleSpecifier: specifier,
		ResolvedPath:    "",
		Bindings:        bindings,
	}, true
}

// parsePythonImport handles both `import a.b, c as d` and
// `from a.b import c, d as e`/`from a.b import *`.
func parsePythonImport(n *sitter.Node, source []byte) (string, []ImportBinding) {
	if n.Kind() == "import_from_statement" {
		moduleNode := n.ChildByFieldName("module_name")
		specifier := tsutil.NodeText(moduleNode, source)
		var bindings []ImportBinding
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(uint(i))
			switch c.Kind() {
			case "dotted_name":
				if moduleNode != nil && c.StartByte() == moduleNode.StartByte() {
					continue
				}
				name := tsutil.NodeText(c, source)
				bindings = append(bindings, ImportBinding{ImportedName: name, LocalName: name})
			case "aliased_import":
				nameField := c.ChildByFieldName("name")
				if nameField == nil {
					continue
				}
				imported := tsutil.NodeText(nameField, source)
				local := imported
				if aliasField := c.ChildByFieldName("alias"); aliasField != nil {
					local = tsutil.NodeText(aliasField, source)
				}
				bindings = append(bindings, ImportBinding{ImportedName: imported, LocalName: local})
			}
		}
		return specifier, bindings
	}

	// Bare `import a.b.c, d as e`: one binding per comma-separated name,
	// the first one's dotted path doubling as the import's specifier.
	var specifier string
	var bindings []ImportBinding
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(uint(i))
		switch c.Kind() {
		case "dotted_name":
			name := tsutil.NodeText(c, source)
			if specifier == "" {
				specifier = name
			}
			bindings = append(bindings, ImportBinding{ImportedName: name, LocalName: lastSegment(name, ".")})
		case "aliased_import":
			nameField := c.ChildByFieldName("name")
			if nameField == nil {
				continue
			}
			imported := tsutil.NodeText(nameField, source)
			if specifier == "" {
				specifier = imported
			}
			local := imported
			if aliasField := c.ChildByFieldName("alias"); aliasField != nil {
				local = tsutil.NodeText(aliasField, source)
			}
			bindings = append(bindings, ImportBinding{ImportedName: imported, LocalName: local})
		}
	}
	return specifier, bindings
}

// parseJSImport handles `import_statement` and the re-export form of
// `export_statement` (`export { x } from '...'`, `export * from '...'`).
// A declaration-form export_statement has no `source` field and is
// rejected with ok=false — it isn't a module import.
func parseJSImport(n *sitter.Node, source []byte) (string, []ImportBinding, bool) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return "", nil, false
	}
	specifier := unquoteLiteral(tsutil.NodeText(sourceNode, source))

	var bindings []ImportBinding
	tsutil.Walk(n, func(c *sitter.Node) bool {
		switch c.Kind() {
		case "import_specifier", "export_specifier":
			nameField := c.ChildByFieldName("name")
			if nameField == nil {
				return true
			}
			imported := tsutil.NodeText(nameField, source)
			local := imported
			if aliasField := c.ChildByFieldName("alias"); aliasField != nil {
				local = tsutil.NodeText(aliasField, source)
			}
			bindings = append(bindings, ImportBinding{ImportedName: imported, LocalName: local})
			return false
		case "namespace_import":
			if ident := findDescendant(c, "identifier"); ident != nil {
				bindings = append(bindings, ImportBinding{ImportedName: "*", LocalName: tsutil.NodeText(ident, source)})
			}
			return false
		case "import_clause":
			for i := 0; i < int(c.ChildCount()); i++ {
				child := c.Child(uint(i))
				if child.Kind() == "identifier" {
					bindings = append(bindings, ImportBinding{ImportedName: "default", LocalName: tsutil.NodeText(child, source)})
				}
			}
			return true
		}
		return true
	})
	return specifier, bindings, true
}

// parseRustImport unwraps a use_declaration's `argument` use-tree.
func parseRustImport(n *sitter.Node, source []byte) (string, []ImportBinding) {
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return strings.TrimSpace(tsutil.NodeText(n, source)), nil
	}
	return rustUseTreeSpecifier(arg, source), rustUseTreeBindings(arg, source, "")
}

func rustUseTreeSpecifier(node *sitter.Node, source []byte) string {
	switch node.Kind() {
	case "use_as_clause":
		if path := node.ChildByFieldName("path"); path != nil {
			return tsutil.NodeText(path, source)
		}
	case "scoped_use_list":
		if path := node.ChildByFieldName("path"); path != nil {
			return tsutil.NodeText(path, source)
		}
	case "use_wildcard":
		text := strings.TrimSpace(tsutil.NodeText(node, source))
		return strings.TrimSuffix(strings.TrimSuffix(text, "*"), "::")
	}
	return tsutil.NodeText(node, source)
}

// rustUseTreeBindings walks a use-tree, accumulating the path prefix
// introduced by enclosing scoped_use_list nodes (the `std::collections` in
// `use std::collections::{HashMap, HashSet as HS}`).
func rustUseTreeBindings(node *sitter.Node, source []byte, prefix string) []ImportBinding {
	join := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "::" + name
	}
	switch node.Kind() {
	case "identifier":
		name := tsutil.NodeText(node, source)
		return []ImportBinding{{ImportedName: join(name), LocalName: name}}
	case "self":
		return []ImportBinding{{ImportedName: prefix, LocalName: lastSegment(prefix, "::")}}
	case "scoped_identifier":
		full := tsutil.NodeText(node, source)
		local := full
		if nameField := node.ChildByFieldName("name"); nameField != nil {
			local = tsutil.NodeText(nameField, source)
		}
		return []ImportBinding{{ImportedName: full, LocalName: local}}
	case "use_as_clause":
		path := node.ChildByFieldName("path")
		alias := node.ChildByFieldName("alias")
		if path == nil || alias == nil {
			return nil
		}
		imported := tsutil.NodeText(path, source)
		if prefix != "" && path.Kind() == "identifier" {
			imported = join(imported)
		}
		return []ImportBinding{{ImportedName: imported, LocalName: tsutil.NodeText(alias, source)}}
	case "use_wildcard":
		return nil
	case "use_list":
		var out []ImportBinding
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(uint(i))
			switch child.Kind() {
			case ",", "{", "}":
				continue
			}
			out = append(out, rustUseTreeBindings(child, source, prefix)...)
		}
		return out
	case "scoped_use_list":
		p := prefix
		if path := node.ChildByFieldName("path"); path != nil {
			p = join(tsutil.NodeText(path, source))
		}
		if list := node.ChildByFieldName("list"); list != nil {
			return rustUseTreeBindings(list, source, p)
		}
		return nil
	default:
		return nil
	}
}

// parseJavaImport handles `import_declaration`, which tree-sitter-java
// gives no named fields to — `import`, optional `static`, a
// (scoped_)identifier, and an optional trailing `.` `*`.
func parseJavaImport(n *sitter.Node, source []byte) (string, []ImportBinding) {
	text := strings.TrimSuffix(strings.TrimSpace(tsutil.NodeText(n, source)), ";")
	text = strings.TrimSpace(strings.TrimPrefix(text, "import"))
	text = strings.TrimSpace(strings.TrimPrefix(text, "static"))
	if text == "" {
		return "", nil
	}
	if strings.HasSuffix(text, ".*") {
		return strings.TrimSuffix(text, ".*"), nil
	}
	return text, []ImportBinding{{ImportedName: text, LocalName: lastSegment(text, ".")}}
}

// parsePHPImport handles `namespace_use_declaration`, which may bundle
// several comma-separated `namespace_use_clause` names into one statement.
func parsePHPImport(n *sitter.Node, source []byte) (string, []ImportBinding) {
	var specifier string
	var bindings []ImportBinding
	tsutil.Walk(n, func(c *sitter.Node) bool {
		if c.Kind() != "namespace_use_clause" {
			return true
		}
		nameField := c.ChildByFieldName("name")
		if nameField == nil {
			return true
		}
		name := tsutil.NodeText(nameField, source)
		if specifier == "" {
			specifier = name
		}
		local := lastSegment(name, "\\")
		if aliasField := c.ChildByFieldName("alias"); aliasField != nil {
			local = tsutil.NodeText(aliasField, source)
		}
		bindings = append(bindings, ImportBinding{ImportedName: name, LocalName: local})
		return false
	})
	return specifier, bindings
}

// parseRubyRequire recognizes `require`/`require_relative` calls among the
// "call" nodes tsutil's ruby config treats as import candidates (ruby has
// no dedicated import grammar node); every other call is rejected via ok.
func parseRubyRequire(n *sitter.Node, source []byte) (string, []ImportBinding, bool) {
	method := n.ChildByFieldName("method")
	if method == nil {
		method = findDescendant(n, "identifier")
	}
	if method == nil {
		return "", nil, false
	}
	switch tsutil.NodeText(method, source) {
	case "require", "require_relative":
	default:
		return "", nil, false
	}
	if strNode := findDescendant(n, "string"); strNode != nil {
		return unquoteLiteral(tsutil.NodeText(strNode, source)), nil, true
	}
	return "", nil, false
}

// parseCInclude handles `preproc_include`, whose path is either a
// <system_header> or a quoted "string_literal".
func parseCInclude(n *sitter.Node, source []byte) (string, []ImportBinding) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(uint(i))
		switch c.Kind() {
		case "system_lib_string":
			return strings.Trim(tsutil.NodeText(c, source), "<>"), nil
		case "string_literal":
			return unquoteLiteral(tsutil.NodeText(c, source)), nil
		}
	}
	return "", nil
}

// unquoteLiteral strips a single layer of matching quote characters off a
// string-literal node's raw text.
func unquoteLiteral(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '\'' || first == '"' || first == '`') && first == last {
		return s[1 : len(s)-1]
	}
	return s
}

// lastSegment returns the text after the final occurrence of sep, or the
// whole string if sep doesn't appear.
func lastSegment(s, sep string) string {
	idx := strings.LastIndex(s, sep)
	if idx == -1 {
		return s
	}
	return s[idx+len(sep):]
}

func parentOf(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

func findDescendant(n *sitter.Node, kind string) *sitter.Node {
	var found *sitter.Node
	tsutil.Walk(n, func(c *sitter.Node) bool {
		if found != nil {
			return false
		}
		if c != n && c.Kind() == kind {
			found = c
			return false
		}
		return true
	})
	return found
}

func hasChildOfText(n *sitter.Node, text string, source []byte) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		if tsutil.NodeText(child, source) == text {
			return true
		}
	}
	return false
}

func calleeNameTS(n *sitter.Node, source []byte) string {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		fn = n.ChildByFieldName("method")
	}
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier", "constant":
		return tsutil.NodeText(fn, source)
	default:
		// member/selector expressions: take the last segment after '.' or '->'
		text := tsutil.NodeText(fn, source)
		for _, sep := range []string{"->", "::", "."} {
			if idx := strings.LastIndex(text, sep); idx != -1 {
				return text[idx+len(sep):]
			}
		}
		return text
	}
}

func docTypeFor(languageID string) sqi.DocType {
	switch languageID {
	case "python":
		return sqi.DocPyDoc
	case "typescript", "tsx", "javascript":
		return sqi.DocJSDoc
	case "ruby":
		return sqi.DocRDoc
	case "rust":
		return sqi.DocRustdoc
	case "java":
		return sqi.DocJavadoc
	default:
		return sqi.DocOther
	}
}

func importTypeFor(languageID string) sqi.ImportType {
	switch languageID {
	case "python":
		return sqi.ImportPython
	case "typescript", "tsx":
		return sqi.ImportES
	case "javascript":
		return sqi.ImportCommonJS
	case "rust":
		return sqi.ImportRust
	case "java":
		return sqi.ImportJava
	case "ruby":
		return sqi.ImportRequireRel
	default:
		return sqi.ImportES
	}
}

func isExportedByConvention(languageID, name string) bool {
	if name == "" {
		return false
	}
	switch languageID {
	case "python", "ruby":
		return name[0] != '_'
	default:
		return true
	}
}

func stripCommentMarkers(text string) string {
	text = strings.TrimSpace(text)
	for _, marker := range []string{"/**", "/*", "*/", "//", "#"} {
		text = strings.TrimPrefix(text, marker)
	}
	return strings.TrimSpace(text)
}
