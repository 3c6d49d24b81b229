package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/pcdshub/tcparse/internal/twincat"
)

// Env is what a filter expression sees for one node.
type Env struct {
	Tag    string            `expr:"tag"`
	Kind   string            `expr:"kind"`
	Name   string            `expr:"name"`
	Text   string            `expr:"text"`
	File   string            `expr:"file"`
	Path   string            `expr:"path"`
	Line   int               `expr:"line"`
	Parent string            `expr:"parent"`
	Attrs  map[string]string `expr:"attrs"`

	node *twincat.Node
}

// Is reports whether the node's kind is or derives from kind.
func (e Env) Is(kind string) bool {
	return e.node.Is(kind)
}

func (e Env) Attr(key string) string {
	v, _ := e.node.Attr(key)
	return v
}

func NewEnv(n *twincat.Node) Env {
	env := Env{
		Tag:   n.Tag,
		Kind:  n.Kind.Name,
		Name:  n.Name,
		Text:  n.Text,
		File:  n.SourceFile,
		Path:  n.QualifiedPath(),
		Line:  n.Line,
		Attrs: n.Attrs.Map(),
		node:  n,
	}
	if n.Parent != nil {
		env.Parent = n.Parent.Kind.Name
	}
	return env
}

// Filter is a compiled boolean expression over Env.
type Filter struct {
	source string
	prg    *vm.Program
}

// Compile parses source. An empty source matches every node.
func Compile(source string) (*Filter, error) {
	f := &Filter{source: source}
	if source == "" {
		return f, nil
	}
	prg, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", source, err)
	}
	f.prg = prg
	return f, nil
}

func (f *Filter) String() string {
	return f.source
}

func (f *Filter) Match(n *twincat.Node) (bool, error) {
	if f.prg == nil {
		return true, nil
	}
	out, err := expr.Run(f.prg, NewEnv(n))
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.source, n.QualifiedPath(), err)
	}
	return out.(bool), nil
}

// Select returns the nodes of the given kind below root that match f.
func Select(root *twincat.Node, kind string, f *Filter) ([]*twincat.Node, error) {
	var out []*twincat.Node
	for n := range root.Find(kind) {
		ok, err := f.Match(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}
