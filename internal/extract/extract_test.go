package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

func TestExtract_Go(t *testing.T) {
	src := `package demo

// Greeter greets people.
type Greeter struct {
	Name string
}

// Hello returns a greeting.
func (g Greeter) Hello() string {
	return format(g.Name)
}

func format(name string) string {
	return "hi " + name
}
`
	r := NewRegistry(langreg.New())
	result, err := r.Extract(context.Background(), "go", "demo.go", []byte(src))
	require.NoError(t, err)

	var hello, greeter *Symbol
	for i := range result.Symbols {
		switch result.Symbols[i].Name {
		case "Hello":
			hello = &result.Symbols[i]
		case "Greeter":
			greeter = &result.Symbols[i]
		}
	}
	require.NotNil(t, hello)
	require.NotNil(t, greeter)
	assert.Equal(t, sqi.KindMethod, hello.Kind)
	assert.Equal(t, "demo.Greeter", hello.ParentQualifiedName)
	assert.True(t, hello.IsExported)
	require.NotNil(t, hello.Docstring)
	assert.Contains(t, hello.Docstring.RawText, "Hello returns")

	var sawFormatCall bool
	for _, u := range result.Usages {
		if u.SymbolName == "format" {
			sawFormatCall = true
			assert.Equal(t, "demo.Greeter.Hello", u.EnclosingSymbolName)
		}
	}
	assert.True(t, sawFormatCall)
}

func TestExtract_Python(t *testing.T) {
	src := `import os


def greet(name):
    return helper(name)


def helper(name):
    return "hi " + name
`
	r := NewRegistry(langreg.New())
	result, err := r.Extract(context.Background(), "python", "demo.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Imports, 1)
	assert.Equal(t, sqi.ImportPython, result.Imports[0].ImportType)
	assert.Equal(t, "os", result.Imports[0].ModuleSpecifier)
	require.Len(t, result.Imports[0].Bindings, 1)
	assert.Equal(t, "os", result.Imports[0].Bindings[0].ImportedName)
	assert.Equal(t, "os", result.Imports[0].Bindings[0].LocalName)

	var sawHelperCall bool
	for _, u := range result.Usages {
		if u.SymbolName == "helper" {
			sawHelperCall = true
		}
	}
	assert.True(t, sawHelperCall)
}

func TestExtract_PythonFromImportBindings(t *testing.T) {
	src := `from mypkg.util import helper as h, other
`
	r := NewRegistry(langreg.New())
	result, err := r.Extract(context.Background(), "python", "demo.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Imports, 1)
	assert.Equal(t, "mypkg.util", result.Imports[0].ModuleSpecifier)

	bindings := result.Imports[0].Bindings
	require.Len(t, bindings, 2)
	assert.Equal(t, "helper", bindings[0].ImportedName)
	assert.Equal(t, "h", bindings[0].LocalName)
	assert.Equal(t, "other", bindings[1].ImportedName)
	assert.Equal(t, "other", bindings[1].LocalName)
}

func TestExtract_TypeScriptImportSpecifierAndBindings(t *testing.T) {
	src := `import { helper as h } from './utils';

function run() {
    return h();
}
`
	r := NewRegistry(langreg.New())
	result, err := r.Extract(context.Background(), "typescript", "demo.ts", []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Imports, 1)
	assert.Equal(t, "./utils", result.Imports[0].ModuleSpecifier)

	require.Len(t, result.Imports[0].Bindings, 1)
	assert.Equal(t, "helper", result.Imports[0].Bindings[0].ImportedName)
	assert.Equal(t, "h", result.Imports[0].Bindings[0].LocalName)
}

func TestExtract_JavaScriptBareExportDeclarationIsNotAnImport(t *testing.T) {
	src := `export function run() {
    return 1;
}
`
	r := NewRegistry(langreg.New())
	result, err := r.Extract(context.Background(), "javascript", "demo.js", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, result.Imports)
}

func TestExtract_UnknownLanguageReturnsEmptyResult(t *testing.T) {
	r := NewRegistry(langreg.New())
	result, err := r.Extract(context.Background(), "cobol", "demo.cbl", []byte("whatever"))
	require.NoError(t, err)
	assert.Empty(t, result.Symbols)
}
