package twincat

// Route is one remote connection, flattened to key/value pairs.
type Route map[string]string

// Routes indexes the Route entries of a RemoteConnections element. Each
// entry appears in every index whose key it defines.
type Routes struct {
	*Node
	Entries   []Route
	ByName    map[string]Route
	ByAddress map[string]Route
	ByNetID   map[string]Route
}

func initRoutes(s *Session, n *Node) error {
	r := &Routes{
		Node:      n,
		ByName:    make(map[string]Route),
		ByAddress: make(map[string]Route),
		ByNetID:   make(map[string]Route),
	}
	for _, route := range n.ChildrenOf("Route") {
		rec := make(Route)
		if route.Name != "" {
			rec["Name"] = route.Name
		}
		for k, v := range route.Attrs.All() {
			rec[k] = v
		}
		for _, c := range route.Children {
			rec[c.Tag] = c.Text
		}
		r.Entries = append(r.Entries, rec)
		if v := rec["Name"]; v != "" {
			r.ByName[v] = rec
		}
		if v := rec["Address"]; v != "" {
			r.ByAddress[v] = rec
		}
		if v := rec["NetId"]; v != "" {
			r.ByNetID[v] = rec
		}
	}
	n.ext = r
	return nil
}

func AsRoutes(n *Node) (*Routes, bool) {
	r, ok := n.ext.(*Routes)
	return r, ok
}

// LoadRoutes reads a StaticRoutes.xml style file.
func (l *Loader) LoadRoutes(path string) (*Routes, error) {
	root, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	if r, ok := AsRoutes(root); ok {
		return r, nil
	}
	var found []*Routes
	for n := range root.Find("RemoteConnections") {
		if r, ok := AsRoutes(n); ok {
			found = append(found, r)
		}
	}
	if len(found) != 1 {
		return nil, nodeError(ErrCardinality, "routes", root, "%d RemoteConnections elements, want 1", len(found))
	}
	return found[0], nil
}
