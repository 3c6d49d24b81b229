package twincat

import (
	"iter"
	"path/filepath"
	"strings"

	"github.com/pcdshub/tcparse/internal/ordered"
)

// Attributes keeps XML attributes in document order.
type Attributes = ordered.Map[string, string]

// Node is one element of a loaded document tree. Documents loaded on behalf
// of a node (project files, axis files, PLC sources) hang off that node as
// attached roots and are walked by Find after the node's own children.
type Node struct {
	Tag        string
	Namespace  string
	Kind       *Kind
	Attrs      *Attributes
	Children   []*Node
	Name       string
	Text       string
	Comments   []string
	SourceFile string
	Line       int
	Parent     *Node

	byTag    map[string][]*Node
	attached []*Node
	ext      any
}

func (n *Node) addChild(c *Node) {
	n.Children = append(n.Children, c)
	if n.byTag == nil {
		n.byTag = make(map[string][]*Node)
	}
	n.byTag[c.Tag] = append(n.byTag[c.Tag], c)
}

func (n *Node) attach(root *Node) {
	n.attached = append(n.attached, root)
}

// Attached returns the roots of documents loaded on behalf of n.
func (n *Node) Attached() []*Node {
	return n.attached
}

// ChildrenOf returns the direct children with the given tag, in order.
func (n *Node) ChildrenOf(tag string) []*Node {
	return n.byTag[tag]
}

// FirstChild returns the first direct child with the given tag, or nil.
func (n *Node) FirstChild(tag string) *Node {
	if c := n.byTag[tag]; len(c) > 0 {
		return c[0]
	}
	return nil
}

// ChildText is the text of the first child with the given tag.
func (n *Node) ChildText(tag string) string {
	if c := n.FirstChild(tag); c != nil {
		return c.Text
	}
	return ""
}

func (n *Node) Attr(key string) (string, bool) {
	if n.Attrs == nil {
		return "", false
	}
	return n.Attrs.Get(key)
}

// Is reports whether n's kind is, or derives from, the named kind.
func (n *Node) Is(kind string) bool {
	return n.Kind.Is(kind)
}

// Descendants yields every node below n in depth-first pre-order: each
// child before its own subtree, then the attached documents the same way.
func (n *Node) Descendants() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	for _, c := range n.Children {
		if !yield(c) || !c.walk(yield) {
			return false
		}
	}
	for _, root := range n.attached {
		if !yield(root) || !root.walk(yield) {
			return false
		}
	}
	return true
}

// Find yields the descendants of n whose kind is or derives from kind.
func (n *Node) Find(kind string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for d := range n.Descendants() {
			if d.Is(kind) && !yield(d) {
				return
			}
		}
	}
}

// FindAll collects Find into a slice.
func (n *Node) FindAll(kind string) []*Node {
	var out []*Node
	for d := range n.Find(kind) {
		out = append(out, d)
	}
	return out
}

// Ancestor returns the nearest strict ancestor of the given kind, or nil.
func (n *Node) Ancestor(kind string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Is(kind) {
			return p
		}
	}
	return nil
}

func (n *Node) Root() *Node {
	r := n
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// QualifiedPath joins the kind names from the root down to n with "/".
func (n *Node) QualifiedPath() string {
	var parts []string
	for p := n; p != nil; p = p.Parent {
		parts = append(parts, p.Kind.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Dir is the directory of the file n was loaded from.
func (n *Node) Dir() string {
	return filepath.Dir(n.SourceFile)
}

// RelativePath resolves a backslash-separated reference against the
// directory of n's source file.
func (n *Node) RelativePath(ref string) string {
	return resolveRef(n.Dir(), ref)
}

func (n *Node) String() string {
	if n.Name != "" {
		return n.Kind.Name + "(" + n.Name + ")"
	}
	return n.Kind.Name
}
