package twincat

import (
	"path/filepath"
	"strconv"
	"strings"
)

// NcTask is an NC SAF task definition with the axes beneath it.
type NcTask struct {
	*Node
	Axes []*Node
}

func initNcTask(s *Session, n *Node) error {
	n.ext = &NcTask{Node: n, Axes: n.FindAll("Axis")}
	return nil
}

func AsNcTask(n *Node) (*NcTask, bool) {
	t, ok := n.ext.(*NcTask)
	return t, ok
}

// NC is the motion controller configuration. An NC carrying a File
// attribute is a stub for the real one in that file.
type NC struct {
	*Node
	Stub bool
	// AxisByID and AxisByName point at the root of each axis document,
	// keyed by the Id attribute and by the file name without extension.
	AxisByID   map[int]*Node
	AxisByName map[string]*Node
}

func initNC(s *Session, n *Node) error {
	nc := &NC{Node: n, AxisByID: make(map[int]*Node), AxisByName: make(map[string]*Node)}
	if _, ok := n.Attr("File"); ok {
		nc.Stub = true
		n.ext = nc
		return nil
	}
	for _, child := range n.ChildrenOf("Axis") {
		ax, ok := AsAxis(child)
		if !ok || ax.Document == nil {
			continue
		}
		raw, _ := child.Attr("Id")
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return wrapNodeError(ErrMalformedDocument, "nc", child, err, "axis Id %q", raw)
		}
		nc.AxisByID[id] = ax.Document
		nc.AxisByName[strings.TrimSuffix(ax.File, filepath.Ext(ax.File))] = ax.Document
	}
	n.ext = nc
	return nil
}

func AsNC(n *Node) (*NC, bool) {
	nc, ok := n.ext.(*NC)
	return nc, ok
}

// TaskName is the name of the first SAF task, "" when there is none.
func (nc *NC) TaskName() string {
	if t := nc.FirstChild("SafTask"); t != nil {
		return t.Name
	}
	return ""
}

// AxisBody returns the axis named by its file stem.
func (nc *NC) AxisBody(name string) (*Axis, error) {
	doc, ok := nc.AxisByName[name]
	if !ok {
		return nil, nodeError(ErrMissingReference, "axis", nc.Node, "no axis named %q", name)
	}
	return axisBody(doc)
}

// axisBody returns the Axis element of an axis document.
func axisBody(doc *Node) (*Axis, error) {
	body := doc
	if !body.Is("Axis") {
		body = doc.FirstChild("Axis")
	}
	if body == nil {
		return nil, nodeError(ErrMissingReference, "axis", doc, "axis document has no Axis element")
	}
	ax, ok := AsAxis(body)
	if !ok {
		return nil, nodeError(ErrMalformedDocument, "axis", body, "Axis element was not specialized")
	}
	return ax, nil
}

// Axis is either a stub naming an axis file, or the axis body itself.
type Axis struct {
	*Node
	// File is the File attribute of a stub, "" for a body.
	File string
	// Document is the loaded axis file of a stub.
	Document *Node
}

func initAxis(s *Session, n *Node) error {
	ax := &Axis{Node: n}
	if file, ok := n.Attr("File"); ok {
		doc, err := s.LoadDocument(resolveRef(n.RelativePath("Axes"), file), n)
		if err != nil {
			return err
		}
		n.attach(doc)
		ax.File = file
		ax.Document = doc
	}
	n.ext = ax
	return nil
}

func AsAxis(n *Node) (*Axis, bool) {
	if n == nil {
		return nil, false
	}
	ax, ok := n.ext.(*Axis)
	return ax, ok
}

// Body returns the axis body: the Axis of the loaded file for a stub, the
// axis itself otherwise.
func (a *Axis) Body() (*Axis, error) {
	if a.Document == nil {
		return a, nil
	}
	return axisBody(a.Document)
}

// ShortName is the last "^"-separated segment of the axis name.
func (a *Axis) ShortName() string {
	return a.Name[strings.LastIndex(a.Name, "^")+1:]
}

// AxisNumber is the Id attribute.
func (a *Axis) AxisNumber() (int, error) {
	raw, ok := a.Attr("Id")
	if !ok {
		return 0, nodeError(ErrMissingReference, "axis number", a.Node, "no Id attribute")
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, wrapNodeError(ErrMalformedDocument, "axis number", a.Node, err, "Id %q", raw)
	}
	return id, nil
}

// Units is the UnitName of the axis' general parameters, "Unknown" when
// unset.
func (a *Axis) Units() string {
	for para := range a.Find("AxisPara") {
		if general := para.FirstChild("General"); general != nil {
			if unit, ok := general.Attr("UnitName"); ok && unit != "" {
				return unit
			}
		}
	}
	return "Unknown"
}

// Encoder is an axis encoder.
type Encoder struct {
	*Node
}

func initEncoder(s *Session, n *Node) error {
	n.ext = &Encoder{Node: n}
	return nil
}

func AsEncoder(n *Node) (*Encoder, bool) {
	e, ok := n.ext.(*Encoder)
	return e, ok
}

func (a *Axis) Encoders() []*Encoder {
	var out []*Encoder
	for n := range a.Find("Encoder") {
		if e, ok := AsEncoder(n); ok {
			out = append(out, e)
		}
	}
	return out
}
