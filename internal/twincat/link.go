package twincat

// Link maps a variable of one owner to a variable of another.
type Link struct {
	*Node
}

func initLink(s *Session, n *Node) error {
	n.ext = &Link{Node: n}
	return nil
}

func AsLink(n *Node) (*Link, bool) {
	l, ok := n.ext.(*Link)
	return l, ok
}

func (l *Link) VarA() string {
	v, _ := l.Attr("VarA")
	return v
}

func (l *Link) VarB() string {
	v, _ := l.Attr("VarB")
	return v
}

// OwnerA is the name of the enclosing OwnerA element. Links nest under
// OwnerB inside OwnerA, so the nearest ancestor of each tag is used.
func (l *Link) OwnerA() string {
	if n := l.Ancestor("OwnerA"); n != nil {
		return n.Name
	}
	return ""
}

func (l *Link) OwnerB() string {
	if n := l.Ancestor("OwnerB"); n != nil {
		return n.Name
	}
	return ""
}
