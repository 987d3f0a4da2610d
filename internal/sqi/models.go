// Package sqi implements the Structured Query Index: the relational store
// of symbols, parameters, docstrings, usages, imports, and API endpoints,
// scoped by (repo_id, commit_id) (spec §3, §4.7, C7).
package sqi

// SymbolKind is the closed enumeration of spec §3's Symbol.kind.
type SymbolKind string

const (
	KindFunction    SymbolKind = "function"
	KindClass       SymbolKind = "class"
	KindMethod      SymbolKind = "method"
	KindInterface   SymbolKind = "interface"
	KindTrait       SymbolKind = "trait"
	KindEnum        SymbolKind = "enum"
	KindTypeAlias   SymbolKind = "type_alias"
	KindProperty    SymbolKind = "property"
	KindField       SymbolKind = "field"
	KindConstant    SymbolKind = "constant"
	KindVariable    SymbolKind = "variable"
	KindNamespace   SymbolKind = "namespace"
	KindModule      SymbolKind = "module"
	KindConstructor SymbolKind = "constructor"
	KindGetter      SymbolKind = "getter"
	KindSetter      SymbolKind = "setter"
)

// UsageType is the closed enumeration of spec §3's Usage.usage_type.
type UsageType string

const (
	UsageCall        UsageType = "call"
	UsageRead        UsageType = "read"
	UsageWrite       UsageType = "write"
	UsageExtend      UsageType = "extend"
	UsageImplement   UsageType = "implement"
	UsageTypeRef     UsageType = "type_ref"
	UsageImport      UsageType = "import"
	UsageDecorator   UsageType = "decorator"
	UsageInstantiate UsageType = "instantiate"
	UsageOther       UsageType = "other"
)

// ImportType is the closed enumeration of spec §3's Import.import_type.
type ImportType string

const (
	ImportES           ImportType = "es_import"
	ImportESExport     ImportType = "es_export"
	ImportCommonJS     ImportType = "commonjs"
	ImportPython       ImportType = "python"
	ImportRequire      ImportType = "require"
	ImportRequireRel   ImportType = "require_relative"
	ImportGo           ImportType = "go"
	ImportRust         ImportType = "rust"
	ImportJava         ImportType = "java"
)

// DocType is the closed enumeration of spec §3's SymbolDocstring.doc_type.
type DocType string

const (
	DocJSDoc   DocType = "jsdoc"
	DocPyDoc   DocType = "pydoc"
	DocRDoc    DocType = "rdoc"
	DocRustdoc DocType = "rustdoc"
	DocGodoc   DocType = "godoc"
	DocJavadoc DocType = "javadoc"
	DocOther   DocType = "other"
)

// Framework is the closed enumeration of spec §3's Endpoint.framework.
type Framework string

const (
	FrameworkExpress Framework = "express"
	FrameworkFastify Framework = "fastify"
	FrameworkKoa     Framework = "koa"
	FrameworkFastAPI Framework = "fastapi"
	FrameworkFlask   Framework = "flask"
	FrameworkDjango  Framework = "django"
	FrameworkRails   Framework = "rails"
	FrameworkSinatra Framework = "sinatra"
	FrameworkNestJS  Framework = "nestjs"
	FrameworkMCP     Framework = "mcp"
	FrameworkUnknown Framework = "unknown"
)

// HandlerType is the closed enumeration of spec §3's Endpoint.handler_type.
type HandlerType string

const (
	HandlerInline          HandlerType = "inline"
	HandlerReference       HandlerType = "reference"
	HandlerControllerAction HandlerType = "controller_action"
	HandlerClassMethod     HandlerType = "class_method"
)

// ParamLocation is the closed enumeration of spec §3's EndpointParam.location.
type ParamLocation string

const (
	LocationPath   ParamLocation = "path"
	LocationQuery  ParamLocation = "query"
	LocationHeader ParamLocation = "header"
	LocationCookie ParamLocation = "cookie"
	LocationBody   ParamLocation = "body"
)

// Symbol is spec §3's Symbol entity.
type Symbol struct {
	ID             int64
	RepoID         string
	CommitID       int64
	Name           string
	QualifiedName  string
	Kind           SymbolKind
	FilePath       string
	StartLine      int
	EndLine        int
	Visibility     string // empty when not applicable to the language
	IsAsync        bool
	IsStatic       bool
	IsExported     bool
	ReturnType     string
	ParentSymbolID *int64
	ContentHash    string
}

// SymbolParameter is spec §3's SymbolParameter entity.
type SymbolParameter struct {
	SymbolID         int64
	Position         int
	Name             string
	TypeAnnotation   string
	IsOptional       bool
}

// SymbolDocstring is spec §3's SymbolDocstring entity.
type SymbolDocstring struct {
	SymbolID    int64
	DocType     DocType
	RawText     string
	Description string
}

// Usage is spec §3's Usage entity.
type Usage struct {
	ID                  int64
	CommitID            int64
	SymbolName          string
	FilePath            string
	Line                int
	Column              int
	UsageType           UsageType
	EnclosingSymbolName string // qualified-name hint, resolved by the linker (C10)
	EnclosingSymbolID   *int64
	DefinitionSymbolID  *int64
}

// Import is spec §3's Import entity.
type Import struct {
	ID               int64
	CommitID         int64
	FilePath         string
	Line             int
	ImportType       ImportType
	ModuleSpecifier  string
	ResolvedPath     string
	Bindings         []ImportBinding
}

// ImportBinding is spec §3's ImportBinding entity.
type ImportBinding struct {
	ImportID     int64
	ImportedName string
	LocalName    string
	IsTypeOnly   bool
}

// Endpoint is spec §3's Endpoint entity.
type Endpoint struct {
	ID               int64
	CommitID         int64
	HTTPMethod       string
	Path             string
	FilePath         string
	StartLine        int
	EndLine          int
	Framework        Framework
	HandlerSymbolID  *int64
	HandlerType      HandlerType
	HandlerName      string
	Middleware       []string
	Dependencies     []string
	Summary          string
	Tags             []string
	ResponseModel    string
	BodySchema       string
	MCPToolName      string
	MCPInputSchema   string
	Params           []EndpointParam
}

// EndpointParam is spec §3's EndpointParam entity.
type EndpointParam struct {
	EndpointID   int64
	Name         string
	Location     ParamLocation
	Type         string
	Required     bool
	DefaultValue string
}
