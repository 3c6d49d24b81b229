package twincat

import (
	"path/filepath"

	"github.com/pcdshub/tcparse/internal/logger"
	"github.com/pcdshub/tcparse/internal/ordered"
	"github.com/pcdshub/tcparse/internal/stparse"
)

const kindNestedPlcProject = "TcSmItem_CNestedPlcProjDef"

// NestedPlcProject is a PLC project embedded in a TwinCAT project. It pulls
// in the .plcproj, the .tmc and every compiled source file.
type NestedPlcProject struct {
	*Node
	// Project is the loaded .plcproj root, nil when the file is absent.
	Project *Node
	// TMC is the loaded .tmc root, nil when the file is absent.
	TMC *Node
	// Sources maps each compiled file, relative to the .plcproj
	// directory, to its loaded document.
	Sources *ordered.Map[string, *Node]
	// POUByName indexes the program POUs of the sources by program name.
	POUByName map[string]*POU
}

func initNestedPlcProject(s *Session, n *Node) error {
	np := &NestedPlcProject{
		Node:      n,
		Sources:   ordered.New[string, *Node](),
		POUByName: make(map[string]*POU),
	}
	inner := n.FirstChild("Project")
	if inner == nil {
		return nodeError(ErrCardinality, "nested plc project", n, "no Project element")
	}

	var err error
	if np.Project, err = loadOptional(s, n, inner, "PrjFilePath"); err != nil {
		return err
	}
	if np.TMC, err = loadOptional(s, n, inner, "TmcFilePath"); err != nil {
		return err
	}

	var compiles []*Node
	for c := range n.Find("Compile") {
		compiles = append(compiles, c)
	}
	for _, c := range compiles {
		include, ok := c.Attr("Include")
		if !ok {
			continue
		}
		path := c.RelativePath(include)
		doc, err := s.LoadDocument(path, n)
		if err != nil {
			return err
		}
		n.attach(doc)
		rel, err := filepath.Rel(c.Dir(), path)
		if err != nil {
			rel = path
		}
		np.Sources.Set(filepath.ToSlash(rel), doc)
	}

	for _, doc := range np.Sources.All() {
		pou, ok := AsPOU(doc.FirstChild("POU"))
		if !ok {
			continue
		}
		if name := pou.ProgramName(); name != "" {
			np.POUByName[name] = pou
		}
	}
	n.ext = np
	return nil
}

// loadOptional loads the file named by attr on ref when it exists.
func loadOptional(s *Session, n, ref *Node, attr string) (*Node, error) {
	value, ok := ref.Attr(attr)
	if !ok || value == "" {
		return nil, nil
	}
	path := n.RelativePath(value)
	if !fileExists(path) {
		logger.Info("referenced file not found", "attr", attr, "path", path, "at", n.QualifiedPath())
		return nil, nil
	}
	doc, err := s.LoadDocument(path, n)
	if err != nil {
		return nil, err
	}
	n.attach(doc)
	return doc, nil
}

func AsNestedPlcProject(n *Node) (*NestedPlcProject, bool) {
	if n == nil {
		return nil, false
	}
	np, ok := n.ext.(*NestedPlcProject)
	return np, ok
}

// ProjectName is the name of the inner Project element.
func (np *NestedPlcProject) ProjectName() string {
	if inner := np.FirstChild("Project"); inner != nil {
		return inner.Name
	}
	return np.Name
}

// Modules lists the modules declared in the .tmc.
func (np *NestedPlcProject) Modules() []*Module {
	if np.TMC == nil {
		return nil
	}
	var out []*Module
	for n := range np.TMC.Find("Module") {
		if m, ok := AsModule(n); ok {
			out = append(out, m)
		}
	}
	return out
}

// POU is a program organization unit from a .TcPOU source file.
type POU struct {
	*Node
}

func initPOU(s *Session, n *Node) error {
	n.ext = &POU{Node: n}
	return nil
}

func AsPOU(n *Node) (*POU, bool) {
	if n == nil {
		return nil, false
	}
	p, ok := n.ext.(*POU)
	return p, ok
}

func (p *POU) Declaration() string {
	return p.ChildText("Declaration")
}

// Implementation is the structured text body, empty for other languages.
func (p *POU) Implementation() string {
	if impl := p.FirstChild("Implementation"); impl != nil {
		return impl.ChildText("ST")
	}
	return ""
}

// ProgramName is the name declared by a PROGRAM POU, or "".
func (p *POU) ProgramName() string {
	return stparse.ProgramName(p.Declaration())
}

func (p *POU) Variables() (*stparse.Variables, error) {
	vars, err := stparse.VariablesFromDeclaration(p.Declaration())
	if err != nil {
		return nil, wrapNodeError(ErrMalformedDocument, "variables", p.Node, err, "declaration of %s", p.Name)
	}
	return vars, nil
}

// CallBlocks returns the merged call-site arguments per declared variable.
func (p *POU) CallBlocks() (map[string]stparse.CallBlock, error) {
	blocks, err := stparse.CallBlocks(p.Declaration(), p.Implementation())
	if err != nil {
		return nil, wrapNodeError(ErrMalformedDocument, "call blocks", p.Node, err, "declaration of %s", p.Name)
	}
	return blocks, nil
}
