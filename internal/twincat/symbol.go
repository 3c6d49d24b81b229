package twincat

import (
	"strings"

	"github.com/pcdshub/tcparse/internal/stparse"
)

// Symbol is a PLC symbol from a .tmc, specialized by its base type.
type Symbol struct {
	*Node
}

func initSymbol(s *Session, n *Node) error {
	n.ext = &Symbol{Node: n}
	return nil
}

// AsSymbol accepts plain and drive symbols.
func AsSymbol(n *Node) (*Symbol, bool) {
	switch v := n.ext.(type) {
	case *Symbol:
		return v, true
	case *DriveSymbol:
		return v.Symbol, true
	}
	return nil, false
}

// NestedProject is the PLC project containing the symbol.
func (s *Symbol) NestedProject() (*NestedPlcProject, error) {
	np, ok := AsNestedPlcProject(s.Ancestor(kindNestedPlcProject))
	if !ok {
		return nil, nodeError(ErrMissingReference, "nested project", s.Node, "symbol %s is not inside a PLC project", s.Name)
	}
	return np, nil
}

// Module is the TMC module declaring the symbol.
func (s *Symbol) Module() (*Module, error) {
	n := s.Ancestor("Module")
	if n == nil {
		return nil, nodeError(ErrMissingReference, "module", s.Node, "symbol %s has no Module ancestor", s.Name)
	}
	m, _ := AsModule(n)
	return m, nil
}

// SymbolInfo is the flattened description of a symbol.
type SymbolInfo struct {
	Name    string `json:"name" yaml:"name"`
	BitSize string `json:"bit_size" yaml:"bit_size"`
	Type    string `json:"type" yaml:"type"`
	BitOffs string `json:"bit_offs" yaml:"bit_offs"`
	Module  string `json:"module,omitempty" yaml:"module,omitempty"`
}

// Info requires exactly one BitSize, BaseType and BitOffs child.
func (s *Symbol) Info() (SymbolInfo, error) {
	info := SymbolInfo{Name: s.Name}
	for _, f := range []struct {
		tag string
		dst *string
	}{
		{"BitSize", &info.BitSize},
		{"BaseType", &info.Type},
		{"BitOffs", &info.BitOffs},
	} {
		c := s.ChildrenOf(f.tag)
		if len(c) != 1 {
			return SymbolInfo{}, nodeError(ErrCardinality, "symbol info", s.Node, "%d %s children, want 1", len(c), f.tag)
		}
		*f.dst = c[0].Text
	}
	if m := s.Ancestor("Module"); m != nil {
		info.Module = m.Name
	}
	return info, nil
}

// DriveSymbol is an instance of a motion function block.
type DriveSymbol struct {
	*Symbol
}

func initDriveSymbol(s *Session, n *Node) error {
	n.ext = &DriveSymbol{Symbol: &Symbol{Node: n}}
	return nil
}

func AsDriveSymbol(n *Node) (*DriveSymbol, bool) {
	d, ok := n.ext.(*DriveSymbol)
	return d, ok
}

// splitName splits "Program.Motor".
func (d *DriveSymbol) splitName() (string, string, error) {
	prog, motor, ok := strings.Cut(d.Name, ".")
	if !ok {
		return "", "", nodeError(ErrCardinality, "drive name", d.Node, "symbol name %q is not program.motor", d.Name)
	}
	return prog, motor, nil
}

func (d *DriveSymbol) ProgramName() (string, error) {
	prog, _, err := d.splitName()
	return prog, err
}

func (d *DriveSymbol) MotorName() (string, error) {
	_, motor, err := d.splitName()
	return motor, err
}

// POU is the program declaring the drive.
func (d *DriveSymbol) POU() (*POU, error) {
	prog, err := d.ProgramName()
	if err != nil {
		return nil, err
	}
	np, err := d.NestedProject()
	if err != nil {
		return nil, err
	}
	pou, ok := np.POUByName[prog]
	if !ok {
		return nil, nodeError(ErrMissingReference, "pou", d.Node, "no program %q", prog)
	}
	return pou, nil
}

// CallBlock is the merged call-site arguments of the drive in its program.
func (d *DriveSymbol) CallBlock() (stparse.CallBlock, error) {
	pou, err := d.POU()
	if err != nil {
		return nil, err
	}
	motor, err := d.MotorName()
	if err != nil {
		return nil, err
	}
	blocks, err := pou.CallBlocks()
	if err != nil {
		return nil, err
	}
	block, ok := blocks[motor]
	if !ok {
		return nil, nodeError(ErrMissingReference, "call block", d.Node, "%s is never called in %s", motor, pou.ProgramName())
	}
	return block, nil
}

// LinkedTo returns the Axis argument of the call block, and the same value
// qualified with the program name.
func (d *DriveSymbol) LinkedTo() (linked, full string, err error) {
	block, err := d.CallBlock()
	if err != nil {
		return "", "", err
	}
	linked, ok := block["Axis"]
	if !ok {
		return "", "", nodeError(ErrMissingReference, "linked to", d.Node, "call block has no Axis argument")
	}
	prog, _ := d.ProgramName()
	return linked, prog + "." + linked, nil
}

// NcToPlcLink finds the single mapping link feeding the drive's axis
// reference from the NC.
func (d *DriveSymbol) NcToPlcLink() (*Link, error) {
	_, full, err := d.LinkedTo()
	if err != nil {
		return nil, err
	}
	np, err := d.NestedProject()
	if err != nil {
		return nil, err
	}
	needle := "^" + strings.ToLower(full)
	var matches []*Link
	for n := range np.Find("Link") {
		link, ok := AsLink(n)
		if !ok {
			continue
		}
		varA := link.VarA()
		if strings.Contains(strings.ToLower(varA), needle) && strings.Contains(varA, "NcToPlc") {
			matches = append(matches, link)
		}
	}
	if len(matches) != 1 {
		return nil, nodeError(ErrCardinality, "nc to plc link", d.Node, "%d links for %s, want 1", len(matches), full)
	}
	return matches[0], nil
}

// NcAxis follows the NC-to-PLC link to the axis body it names.
func (d *DriveSymbol) NcAxis() (*Axis, error) {
	link, err := d.NcToPlcLink()
	if err != nil {
		return nil, err
	}
	if link.Parent == nil {
		return nil, nodeError(ErrMissingReference, "nc axis", link.Node, "link has no owner")
	}
	parts := strings.Split(link.Parent.Name, "^")
	if len(parts) > 0 && parts[0] == "TINC" {
		parts = parts[1:]
	}
	if len(parts) != 3 {
		return nil, nodeError(ErrCardinality, "nc axis", link.Parent, "owner %q is not task^section^axis", link.Parent.Name)
	}
	task, axis := parts[0], parts[2]

	var ncs []*NC
	for n := range d.Root().Find("NC") {
		nc, ok := AsNC(n)
		if !ok || len(nc.ChildrenOf("Axis")) == 0 {
			continue
		}
		if nc.TaskName() == task {
			ncs = append(ncs, nc)
		}
	}
	if len(ncs) != 1 {
		return nil, nodeError(ErrCardinality, "nc axis", d.Node, "%d NCs with task %q, want 1", len(ncs), task)
	}
	return ncs[0].AxisBody(axis)
}
