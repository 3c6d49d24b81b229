package twincat

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedDocument: the XML (or a value inside it) could not be parsed.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrCardinality: a lookup expected exactly one match.
	ErrCardinality = errors.New("cardinality mismatch")
	// ErrMissingReference: a named lookup had no entry for its key.
	ErrMissingReference = errors.New("missing reference")
	// ErrUnresolvedPath: a referenced sub-document does not exist.
	ErrUnresolvedPath = errors.New("unresolved path")
	// ErrReferenceCycle: a document references itself, directly or not.
	ErrReferenceCycle = errors.New("reference cycle")
)

// ResolveError carries the failure kind plus enough context to find the
// offending node: its qualified path and source file.
type ResolveError struct {
	Kind   error
	Op     string
	Path   string
	File   string
	Detail string
	Err    error
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " (%s)", e.File)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ResolveError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func nodeError(kind error, op string, n *Node, format string, args ...any) *ResolveError {
	e := &ResolveError{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Path = n.QualifiedPath()
		e.File = n.SourceFile
	}
	return e
}

func wrapNodeError(kind error, op string, n *Node, err error, format string, args ...any) *ResolveError {
	e := nodeError(kind, op, n, format, args...)
	e.Err = err
	return e
}
