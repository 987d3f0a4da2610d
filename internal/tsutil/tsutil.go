// Package tsutil holds the tree-sitter walking helpers and per-language
// node-type tables shared by internal/chunker and internal/extract, so the
// two packages agree on what counts as a definition, an import, or a call
// for a given language without each re-deriving it. Grounded on the
// teacher's internal/indexer/parsers/treesitter.go shared helpers, widened
// from "one language's switch statement" into a table keyed by language id.
package tsutil

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// DefinitionRule describes one tree-sitter node kind that denotes a
// definition worth turning into a chunk/symbol, and how to classify it.
type DefinitionRule struct {
	NodeKind   string
	SymbolKind string // sqi.SymbolKind value, kept as a string to avoid an import cycle
	NameField  string // field name to read the identifier from, usually "name"
}

// LanguageConfig is one language's tree-sitter node-type table.
type LanguageConfig struct {
	Definitions    []DefinitionRule
	ImportKinds    []string // node kinds that denote an import/require statement
	CallKinds      []string // node kinds that denote a call expression
	CommentKind    string   // node kind for a standalone comment, used for docstring attachment
	AsyncKeyword   string   // literal keyword tree-sitter surfaces as a child token, e.g. "async"
	ParameterKind  string   // node kind for one parameter within a parameter list
	ParameterList  string   // node kind for the parameter list itself
}

// Configs is the per-language table. Languages not present fall back to
// FallbackConfig (still produces a whole-file chunk, per spec §4.3).
var Configs = map[string]LanguageConfig{
	"python": {
		Definitions: []DefinitionRule{
			{NodeKind: "function_definition", SymbolKind: "function", NameField: "name"},
			{NodeKind: "class_definition", SymbolKind: "class", NameField: "name"},
		},
		ImportKinds:   []string{"import_statement", "import_from_statement"},
		CallKinds:     []string{"call"},
		CommentKind:   "comment",
		AsyncKeyword:  "async",
		ParameterKind: "identifier",
		ParameterList: "parameters",
	},
	"typescript": {
		Definitions: []DefinitionRule{
			{NodeKind: "function_declaration", SymbolKind: "function", NameField: "name"},
			{NodeKind: "class_declaration", SymbolKind: "class", NameField: "name"},
			{NodeKind: "interface_declaration", SymbolKind: "interface", NameField: "name"},
			{NodeKind: "method_definition", SymbolKind: "method", NameField: "name"},
			{NodeKind: "type_alias_declaration", SymbolKind: "type_alias", NameField: "name"},
		},
		ImportKinds:   []string{"import_statement", "export_statement"},
		CallKinds:     []string{"call_expression"},
		CommentKind:   "comment",
		AsyncKeyword:  "async",
		ParameterKind: "required_parameter",
		ParameterList: "formal_parameters",
	},
	"tsx":        {}, // populated below, identical to typescript
	"javascript": {}, // populated below, identical to typescript
	"rust": {
		Definitions: []DefinitionRule{
			{NodeKind: "function_item", SymbolKind: "function", NameField: "name"},
			{NodeKind: "struct_item", SymbolKind: "class", NameField: "name"},
			{NodeKind: "enum_item", SymbolKind: "enum", NameField: "name"},
			{NodeKind: "trait_item", SymbolKind: "trait", NameField: "name"},
			{NodeKind: "impl_item", SymbolKind: "class", NameField: "type"},
		},
		ImportKinds:   []string{"use_declaration"},
		CallKinds:     []string{"call_expression"},
		CommentKind:   "line_comment",
		ParameterKind: "parameter",
		ParameterList: "parameters",
	},
	"java": {
		Definitions: []DefinitionRule{
			{NodeKind: "method_declaration", SymbolKind: "method", NameField: "name"},
			{NodeKind: "class_declaration", SymbolKind: "class", NameField: "name"},
			{NodeKind: "interface_declaration", SymbolKind: "interface", NameField: "name"},
			{NodeKind: "enum_declaration", SymbolKind: "enum", NameField: "name"},
		},
		ImportKinds:   []string{"import_declaration"},
		CallKinds:     []string{"method_invocation"},
		CommentKind:   "line_comment",
		ParameterKind: "formal_parameter",
		ParameterList: "formal_parameters",
	},
	"php": {
		Definitions: []DefinitionRule{
			{NodeKind: "function_definition", SymbolKind: "function", NameField: "name"},
			{NodeKind: "method_declaration", SymbolKind: "method", NameField: "name"},
			{NodeKind: "class_declaration", SymbolKind: "class", NameField: "name"},
			{NodeKind: "interface_declaration", SymbolKind: "interface", NameField: "name"},
		},
		ImportKinds:   []string{"namespace_use_declaration"},
		CallKinds:     []string{"function_call_expression", "member_call_expression"},
		CommentKind:   "comment",
		ParameterKind: "simple_parameter",
		ParameterList: "formal_parameters",
	},
	"ruby": {
		Definitions: []DefinitionRule{
			{NodeKind: "method", SymbolKind: "method", NameField: "name"},
			{NodeKind: "class", SymbolKind: "class", NameField: "name"},
			{NodeKind: "module", SymbolKind: "namespace", NameField: "name"},
		},
		ImportKinds:   []string{"call"}, // `require`/`require_relative` surface as plain calls
		CallKinds:     []string{"call"},
		CommentKind:   "comment",
		ParameterKind: "identifier",
		ParameterList: "method_parameters",
	},
	"c": {
		Definitions: []DefinitionRule{
			{NodeKind: "function_definition", SymbolKind: "function", NameField: "declarator"},
		},
		ImportKinds:   []string{"preproc_include"},
		CallKinds:     []string{"call_expression"},
		CommentKind:   "comment",
		ParameterKind: "parameter_declaration",
		ParameterList: "parameter_list",
	},
}

func init() {
	Configs["tsx"] = Configs["typescript"]
	Configs["javascript"] = Configs["typescript"]
}

// NodeText returns the source slice a node spans.
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// Lines returns a node's 1-based, inclusive [start, end] line range,
// tree-sitter's Row being 0-based (teacher convention throughout
// internal/indexer/parsers).
func Lines(node *sitter.Node) (start, end int) {
	return int(node.StartPosition().Row) + 1, int(node.EndPosition().Row) + 1
}

// Walk recursively visits every node in a tree, depth-first, stopping a
// branch when visitor returns false.
func Walk(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(uint(i)), visitor)
	}
}

// NameOf resolves a definition node's name via its configured field, or
// scans for the nearest "identifier"/"type_identifier" child as a fallback
// for grammars (like Rust's impl_item) whose name isn't a plain field.
func NameOf(node *sitter.Node, field string, source []byte) string {
	if n := node.ChildByFieldName(field); n != nil {
		return NodeText(n, source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		switch child.Kind() {
		case "identifier", "type_identifier", "constant", "name":
			return NodeText(child, source)
		}
	}
	return ""
}

// PrecedingComment returns the text of a comment node immediately before
// node (only whitespace/newlines between them), the shared docstring
// attachment rule for comment-based doc styles (Go uses its own
// go/ast.CommentMap instead, handled in internal/extract's Go extractor).
func PrecedingComment(node *sitter.Node, commentKind string, source []byte) string {
	prev := node.PrevSibling()
	if prev == nil || prev.Kind() != commentKind {
		return ""
	}
	return NodeText(prev, source)
}
