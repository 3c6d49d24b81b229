package twincat

import (
	"strings"

	"github.com/pcdshub/tcparse/internal/ordered"
)

// projectSections maps the section tags of a .tsproj to the directory
// their referenced files live in.
var projectSections = []struct {
	tag string
	dir string
}{
	{"Motion", "_Config/NC"},
	{"Plc", "_Config/PLC"},
	{"Io", "_Config/IO"},
}

// Project is a top-level TwinCAT project (also the .plcproj root and the
// Project element inside a PLC definition).
type Project struct {
	*Node
	// RootDir is the directory of the file holding the Project element.
	RootDir string
	// Files holds the loaded section documents: section tag, then the
	// File attribute as written.
	Files map[string]*ordered.Map[string, *Node]
}

func initProject(s *Session, n *Node) error {
	p := &Project{
		Node:    n,
		RootDir: n.Dir(),
		Files:   make(map[string]*ordered.Map[string, *Node]),
	}
	for _, sec := range projectSections {
		for _, section := range n.ChildrenOf(sec.tag) {
			for _, item := range section.Children {
				file, ok := item.Attr("File")
				if !ok {
					continue
				}
				doc, err := s.LoadDocument(resolveRef(p.RootDir, sec.dir+`\`+file), n)
				if err != nil {
					return err
				}
				n.attach(doc)
				files, ok := p.Files[sec.tag]
				if !ok {
					files = ordered.New[string, *Node]()
					p.Files[sec.tag] = files
				}
				files.Set(file, doc)
			}
		}
	}
	n.ext = p
	return nil
}

func AsProject(n *Node) (*Project, bool) {
	p, ok := n.ext.(*Project)
	return p, ok
}

// AmsID is the target AMS net id.
func (p *Project) AmsID() string {
	id, _ := p.Attr("TargetNetId")
	return id
}

// TargetIP derives the IP address from the AMS net id by dropping the
// trailing ".1.1".
func (p *Project) TargetIP() string {
	id := p.AmsID()
	if strings.HasSuffix(id, ".1.1") {
		return id[:len(id)-len(".1.1")]
	}
	return id
}

// PLCs returns every nested PLC project reachable from the project.
func (p *Project) PLCs() []*NestedPlcProject {
	var out []*NestedPlcProject
	for n := range p.Find(kindNestedPlcProject) {
		if plc, ok := AsNestedPlcProject(n); ok {
			out = append(out, plc)
		}
	}
	return out
}

// NCs returns every NC element that defines axes.
func (p *Project) NCs() []*NC {
	var out []*NC
	for n := range p.Find("NC") {
		if nc, ok := AsNC(n); ok && !nc.Stub {
			out = append(out, nc)
		}
	}
	return out
}
