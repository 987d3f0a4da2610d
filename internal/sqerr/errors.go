// Package sqerr defines the error taxonomy shared across SourceRack's core
// components and the exit-code mapping the CLI/MCP front ends use (spec §7).
package sqerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the policy buckets of spec.md §7.
type Kind string

const (
	KindNotAGitRepository Kind = "not_a_git_repository"
	KindUnknownRef         Kind = "unknown_ref"
	KindGrammarUnavailable Kind = "grammar_unavailable"
	KindParseFailed        Kind = "parse_failed"
	KindExtractionFailed   Kind = "extraction_failed"
	KindEmbeddingFailed    Kind = "embedding_failed"
	KindStorageError       Kind = "storage_error"
	KindRepoNotIndexed     Kind = "repo_not_indexed"
	KindSymbolNotFound     Kind = "symbol_not_found"
	KindInvalidArgument    Kind = "invalid_argument"
	KindBlobReadFailed     Kind = "blob_read_failed"
)

// ExitCode mirrors spec §6's CLI/MCP exit code table.
type ExitCode int

const (
	ExitSuccess ExitCode = iota
	ExitNotIndexed
	ExitNotFound
	ExitInvalidArgs
	ExitGeneralError
)

// Error wraps an underlying cause with a Kind for policy dispatch.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a *Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is supports errors.Is against a bare Kind sentinel created via New(kind, "", nil).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// KindOf extracts the Kind of err, if any was attached.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ExitCodeFor maps an error to the CLI/MCP exit code policy of spec §6/§7.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	kind, ok := KindOf(err)
	if !ok {
		return ExitGeneralError
	}
	switch kind {
	case KindNotAGitRepository, KindUnknownRef, KindSymbolNotFound:
		return ExitNotFound
	case KindRepoNotIndexed:
		return ExitNotIndexed
	case KindInvalidArgument:
		return ExitInvalidArgs
	default:
		return ExitGeneralError
	}
}
