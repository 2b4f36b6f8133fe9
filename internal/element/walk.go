package element

// Visitor is called around every node of a walk.
type Visitor interface {
	PreChildrenVisit(e Element)
	PostChildrenVisit(e Element)
}

// VisitFuncs adapts a pair of functions to Visitor. Nil funcs are skipped.
type VisitFuncs struct {
	Pre  func(Element)
	Post func(Element)
}

func (v VisitFuncs) PreChildrenVisit(e Element) {
	if v.Pre != nil {
		v.Pre(e)
	}
}

func (v VisitFuncs) PostChildrenVisit(e Element) {
	if v.Post != nil {
		v.Post(e)
	}
}

// Walk visits every node once in document order.
func (t *Tree) Walk(v Visitor) {
	for _, id := range t.roots {
		t.walk(id, v)
	}
}

func (t *Tree) walk(id NodeID, v Visitor) {
	n := t.nodes[id]
	v.PreChildrenVisit(n)
	for _, c := range n.Children() {
		t.walk(c, v)
	}
	v.PostChildrenVisit(n)
}

// Collect returns every node of type T in document order.
func Collect[T Element](t *Tree) []T {
	var out []T
	t.Walk(VisitFuncs{Pre: func(e Element) {
		if n, ok := e.(T); ok {
			out = append(out, n)
		}
	}})
	return out
}
