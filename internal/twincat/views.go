package twincat

import (
	"cmp"
	"slices"
)

// Param is one flattened key/value pair of a summary.
type Param struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func appendAttrs(out []Param, prefix string, attrs *Attributes) []Param {
	for k, v := range attrs.All() {
		out = append(out, Param{Key: prefix + k, Value: v})
	}
	return out
}

// paramBlock flattens a parameter element: its own attributes, then the
// attributes of each child as "tag:key".
func paramBlock(out []Param, para *Node) []Param {
	out = appendAttrs(out, "", para.Attrs)
	for _, c := range para.Children {
		out = appendAttrs(out, c.Tag+":", c.Attrs)
	}
	return out
}

// Summarize flattens the axis attributes, its AxisPara blocks and its
// encoders (prefixed "Enc:"). Keys may repeat.
func (a *Axis) Summarize() []Param {
	out := appendAttrs(nil, "", a.Attrs)
	for para := range a.Find("AxisPara") {
		out = paramBlock(out, para)
	}
	for _, enc := range a.Encoders() {
		for _, p := range enc.Summarize() {
			out = append(out, Param{Key: "Enc:" + p.Key, Value: p.Value})
		}
	}
	return out
}

// Summarize flattens EncType and the EncPara blocks.
func (e *Encoder) Summarize() []Param {
	var out []Param
	if t, ok := e.Attr("EncType"); ok {
		out = append(out, Param{Key: "EncType", Value: t})
	}
	for para := range e.Find("EncPara") {
		out = paramBlock(out, para)
	}
	return out
}

// Motor pairs a drive symbol with the NC axis it is linked to.
type Motor struct {
	Symbol *DriveSymbol
	Axis   *Axis
}

// Motors resolves every drive symbol below n to its NC axis. The first
// unresolvable drive aborts the walk.
func Motors(n *Node) ([]Motor, error) {
	var out []Motor
	for d := range n.Find(KindSymbol) {
		drive, ok := AsDriveSymbol(d)
		if !ok {
			continue
		}
		axis, err := drive.NcAxis()
		if err != nil {
			return nil, err
		}
		out = append(out, Motor{Symbol: drive, Axis: axis})
	}
	return out, nil
}

// ProjectSummary is a condensed view of a loaded project.
type ProjectSummary struct {
	File     string       `json:"file" yaml:"file"`
	AmsID    string       `json:"ams_id" yaml:"ams_id"`
	TargetIP string       `json:"target_ip" yaml:"target_ip"`
	PLCs     []PLCSummary `json:"plcs" yaml:"plcs"`
	Axes     []AxisInfo   `json:"axes" yaml:"axes"`
}

type PLCSummary struct {
	Name     string       `json:"name" yaml:"name"`
	AdsPort  int          `json:"ads_port,omitempty" yaml:"ads_port,omitempty"`
	Sources  []string     `json:"sources" yaml:"sources"`
	Programs []string     `json:"programs" yaml:"programs"`
	Symbols  []SymbolInfo `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

type AxisInfo struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Units string `json:"units" yaml:"units"`
}

// Summarize builds a ProjectSummary. Symbols are included when
// withSymbols is set.
func (p *Project) Summarize(withSymbols bool) (*ProjectSummary, error) {
	s := &ProjectSummary{File: p.SourceFile, AmsID: p.AmsID(), TargetIP: p.TargetIP()}
	for _, plc := range p.PLCs() {
		ps := PLCSummary{Name: plc.ProjectName(), Sources: plc.Sources.Keys()}
		for _, m := range plc.Modules() {
			if port, err := m.ADSPort(); err == nil {
				ps.AdsPort = port
				break
			}
		}
		for name := range plc.POUByName {
			ps.Programs = append(ps.Programs, name)
		}
		slices.Sort(ps.Programs)
		if withSymbols {
			for n := range plc.Find(KindSymbol) {
				sym, ok := AsSymbol(n)
				if !ok {
					continue
				}
				info, err := sym.Info()
				if err != nil {
					return nil, err
				}
				ps.Symbols = append(ps.Symbols, info)
			}
		}
		s.PLCs = append(s.PLCs, ps)
	}
	for _, nc := range p.NCs() {
		for _, doc := range nc.AxisByName {
			ax, err := axisBody(doc)
			if err != nil {
				return nil, err
			}
			id, _ := ax.AxisNumber()
			s.Axes = append(s.Axes, AxisInfo{ID: id, Name: ax.Name, Units: ax.Units()})
		}
	}
	slices.SortFunc(s.Axes, func(a, b AxisInfo) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Name, b.Name))
	})
	return s, nil
}
