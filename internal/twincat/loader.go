package twincat

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/pcdshub/tcparse/internal/logger"
	"github.com/pcdshub/tcparse/internal/ordered"
)

// Loader builds node trees from TwinCAT files. A Loader is safe for
// concurrent use; each Load runs in its own session.
type Loader struct {
	registry *Registry
}

// NewLoader returns a loader using r, or the default registry when r is nil.
func NewLoader(r *Registry) *Loader {
	if r == nil {
		r = DefaultRegistry()
	}
	return &Loader{registry: r}
}

func (l *Loader) Registry() *Registry {
	return l.registry
}

// Load parses path and everything it references.
func (l *Loader) Load(path string) (*Node, error) {
	s := &Session{registry: l.registry, open: make(map[string]bool)}
	root, err := s.LoadDocument(path, nil)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded", "file", root.SourceFile, "documents", s.documents)
	return root, nil
}

// LoadProject loads a .tsproj and returns its Project element.
func (l *Loader) LoadProject(path string) (*Project, error) {
	root, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	node := root
	if !node.Is("Project") {
		node = root.FirstChild("Project")
	}
	if node == nil {
		return nil, nodeError(ErrCardinality, "load project", root, "no Project element")
	}
	p, ok := AsProject(node)
	if !ok {
		return nil, nodeError(ErrMalformedDocument, "load project", node, "Project element was not specialized")
	}
	return p, nil
}

// Load parses path with the default registry.
func Load(path string) (*Node, error) {
	return NewLoader(nil).Load(path)
}

// LoadProject loads a .tsproj with the default registry.
func LoadProject(path string) (*Project, error) {
	return NewLoader(nil).LoadProject(path)
}

// Session tracks one top-level load. Initializers use it to pull in the
// documents their node references.
type Session struct {
	registry  *Registry
	open      map[string]bool
	documents int
}

func (s *Session) Registry() *Registry {
	return s.registry
}

// LoadDocument parses the file at path as a sub-document of parent (nil for
// a top-level document). Missing files fail with ErrUnresolvedPath; a file
// that is already being loaded higher up fails with ErrReferenceCycle.
func (s *Session) LoadDocument(path string, parent *Node) (*Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	resolved, ok := lookupPath(abs)
	if !ok {
		return nil, documentError(ErrUnresolvedPath, parent, abs, nil, "file does not exist")
	}
	if s.open[resolved] {
		return nil, documentError(ErrReferenceCycle, parent, resolved, nil, "document is already being loaded")
	}
	s.open[resolved] = true
	defer delete(s.open, resolved)

	f, err := os.Open(resolved)
	if err != nil {
		return nil, documentError(ErrUnresolvedPath, parent, resolved, err, "open")
	}
	defer f.Close()

	raw, err := parseDocument(f)
	if err != nil {
		return nil, documentError(ErrMalformedDocument, parent, resolved, err, "parse")
	}
	s.documents++
	logger.Debug("loading document", "file", resolved, "root", raw.name.Local)
	return s.build(raw, parent, resolved)
}

func documentError(kind error, parent *Node, file string, err error, detail string) *ResolveError {
	e := &ResolveError{Kind: kind, Op: "load", File: file, Detail: detail, Err: err}
	if parent != nil {
		e.Path = parent.QualifiedPath()
	}
	return e
}

func (s *Session) build(el *element, parent *Node, file string) (*Node, error) {
	disc, base, err := discriminate(el)
	if err != nil {
		return nil, &ResolveError{Kind: ErrCardinality, Op: "discriminate", File: file, Detail: err.Error()}
	}
	n := &Node{
		Tag:        el.name.Local,
		Namespace:  el.name.Space,
		Kind:       s.registry.Kind(disc, base),
		Attrs:      ordered.New[string, string](),
		Text:       strings.TrimSpace(el.text.String()),
		Comments:   el.comments,
		SourceFile: file,
		Line:       el.line,
		Parent:     parent,
	}
	for _, a := range el.attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		n.Attrs.Set(a.Name.Local, a.Value)
	}
	if parent != nil {
		if name, ok := n.Attrs.Pop("Name"); ok {
			n.Name = name
		}
	}
	for _, c := range el.children {
		child, err := s.build(c, n, file)
		if err != nil {
			return nil, err
		}
		n.addChild(child)
		if child.Tag == "Name" && child.Text != "" && parent != nil {
			n.Name = child.Text
		}
	}
	if init := n.Kind.initializer(); init != nil {
		if err := init(s, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// discriminate picks the kind name for an element: TcSmItem_<ClassName>,
// Symbol_<BaseType> or the bare tag.
func discriminate(el *element) (string, BaseKind, error) {
	switch el.name.Local {
	case KindTcSmItem:
		if class := el.attr("ClassName"); class != "" {
			return KindTcSmItem + "_" + class, BaseTcSmItem, nil
		}
		return KindTcSmItem, BaseTcSmItem, nil
	case KindSymbol:
		var types []*element
		for _, c := range el.children {
			if c.name.Local == "BaseType" {
				types = append(types, c)
			}
		}
		if len(types) != 1 {
			return "", 0, fmt.Errorf("<Symbol> on line %d has %d BaseType children, want 1", el.line, len(types))
		}
		return KindSymbol + "_" + strings.TrimSpace(types[0].text.String()), BaseSymbol, nil
	}
	return el.name.Local, BaseItem, nil
}

// element is the raw parse result, before kinds and initializers apply.
type element struct {
	name     xml.Name
	attrs    []xml.Attr
	text     strings.Builder
	textDone bool
	children []*element
	comments []string
	line     int
}

func (e *element) attr(local string) string {
	for _, a := range e.attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func parseDocument(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var root *element
	var stack []*element
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			el := &element{name: t.Name, attrs: t.Attr, line: line}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
				parent.textDone = true
			} else if root != nil {
				return nil, fmt.Errorf("line %d: multiple root elements", line)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				if top := stack[len(stack)-1]; !top.textDone {
					top.text.Write(t)
				}
			}
		case xml.Comment:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.comments = append(top.comments, strings.TrimSpace(string(t)))
				top.textDone = true
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %s", stack[len(stack)-1].name.Local)
	}
	return root, nil
}
