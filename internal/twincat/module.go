package twincat

import (
	"strconv"
	"strings"
	"sync"
)

// Module is a TMC module; its application name carries the ADS port.
type Module struct {
	*Node

	once sync.Once
	port int
	err  error
}

func initModule(s *Session, n *Node) error {
	n.ext = &Module{Node: n}
	return nil
}

func AsModule(n *Node) (*Module, bool) {
	m, ok := n.ext.(*Module)
	return m, ok
}

// ADSPort parses the port out of the ApplicationName property, whose value
// looks like "Port_851". The result is computed once.
func (m *Module) ADSPort() (int, error) {
	m.once.Do(func() {
		m.port, m.err = m.adsPort()
	})
	return m.port, m.err
}

func (m *Module) adsPort() (int, error) {
	var props []*Node
	for p := range m.Find("Property") {
		if p.Name == "ApplicationName" {
			props = append(props, p)
		}
	}
	if len(props) != 1 {
		return 0, nodeError(ErrCardinality, "ads port", m.Node, "%d ApplicationName properties, want 1", len(props))
	}
	value := props[0].FirstChild("Value")
	if value == nil {
		return 0, nodeError(ErrCardinality, "ads port", props[0], "ApplicationName has no Value")
	}
	parts := strings.Split(value.Text, "Port_")
	if len(parts) < 2 {
		return 0, nodeError(ErrMalformedDocument, "ads port", value, "%q has no Port_ marker", value.Text)
	}
	port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, wrapNodeError(ErrMalformedDocument, "ads port", value, err, "%q", value.Text)
	}
	return port, nil
}
