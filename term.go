package bvsls

import (
	"fmt"
	"strings"
)

//TermID is a stable handle into the graph arena
type TermID int

const TermIDUndef TermID = -1

type Op int

const (
	OpBoolConst Op = iota
	OpBoolVar
	OpNot
	OpAnd
	OpOr
	OpEq
	OpBVConst
	OpBVVar
	OpBVNot
	OpBVAnd
	OpBVOr
	OpBVXor
	OpBVAdd
)

var opNames = map[Op]string{
	OpBoolConst: "const",
	OpBoolVar:   "var",
	OpNot:       "not",
	OpAnd:       "and",
	OpOr:        "or",
	OpEq:        "=",
	OpBVConst:   "const",
	OpBVVar:     "var",
	OpBVNot:     "bvnot",
	OpBVAnd:     "bvand",
	OpBVOr:      "bvor",
	OpBVXor:     "bvxor",
	OpBVAdd:     "bvadd",
}

func (o Op) String() string {
	return opNames[o]
}

//Term is one node of the shared-subterm DAG.
//Width is zero exactly for Boolean nodes.
type Term struct {
	ID       TermID
	Op       Op
	Width    int
	Name     string
	Const    Value
	Children []TermID
}

//IsBool returns a boolean indicating whether the node is Boolean-kinded
func (t *Term) IsBool() bool {
	return t.Width == 0
}

//Graph owns every term node. All other components hold TermIDs only.
//Structurally identical terms are shared, so a node may have many parents.
type Graph struct {
	terms      []*Term
	cache      map[string]TermID
	assertions []TermID
	asserted   []bool
	parents    [][]TermID
	ready      bool
}

//NewGraph returns a pointer of Graph
func NewGraph() *Graph {
	return &Graph{cache: make(map[string]TermID)}
}

func (g *Graph) NumTerms() int {
	return len(g.terms)
}

func (g *Graph) Term(id TermID) *Term {
	if id < 0 || int(id) >= len(g.terms) {
		panic(fmt.Errorf("The term is not allocated: %d", id))
	}
	return g.terms[id]
}

func (g *Graph) intern(t *Term) TermID {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d:%s", t.Op, t.Width, t.Name)
	if t.Op == OpBoolConst || t.Op == OpBVConst {
		fmt.Fprintf(&sb, ":%s", t.Const.String())
	}
	for _, c := range t.Children {
		fmt.Fprintf(&sb, ":%d", c)
	}
	key := sb.String()
	if id, ok := g.cache[key]; ok {
		return id
	}
	t.ID = TermID(len(g.terms))
	g.terms = append(g.terms, t)
	g.asserted = append(g.asserted, false)
	g.cache[key] = t.ID
	g.ready = false
	return t.ID
}

func (g *Graph) requireBool(id TermID) {
	if !g.Term(id).IsBool() {
		panic(fmt.Errorf("The term is not Boolean: %d", id))
	}
}

func (g *Graph) requireBV(id TermID) int {
	w := g.Term(id).Width
	if w == 0 {
		panic(fmt.Errorf("The term is not a bit-vector: %d", id))
	}
	return w
}

func (g *Graph) requireSameKind(a, b TermID) {
	ta, tb := g.Term(a), g.Term(b)
	if ta.Width != tb.Width {
		panic(fmt.Errorf("The terms have mismatched kinds: %d (width %d) vs %d (width %d)", a, ta.Width, b, tb.Width))
	}
}

func (g *Graph) BoolConst(b bool) TermID {
	return g.intern(&Term{Op: OpBoolConst, Const: NewBoolValue(b)})
}

func (g *Graph) BoolVar(name string) TermID {
	return g.intern(&Term{Op: OpBoolVar, Name: name})
}

func (g *Graph) BVVar(name string, width int) TermID {
	if width <= 0 {
		panic(fmt.Errorf("The width of a bit-vector must be positive: %d", width))
	}
	return g.intern(&Term{Op: OpBVVar, Width: width, Name: name})
}

func (g *Graph) BVConst(x uint64, width int) TermID {
	v := NewBVValue(width)
	v.SetUint64(x)
	v.FixAll()
	return g.intern(&Term{Op: OpBVConst, Width: width, Const: v})
}

func (g *Graph) Not(a TermID) TermID {
	g.requireBool(a)
	return g.intern(&Term{Op: OpNot, Children: []TermID{a}})
}

func (g *Graph) And(a, b TermID) TermID {
	g.requireBool(a)
	g.requireBool(b)
	return g.intern(&Term{Op: OpAnd, Children: []TermID{a, b}})
}

func (g *Graph) Or(a, b TermID) TermID {
	g.requireBool(a)
	g.requireBool(b)
	return g.intern(&Term{Op: OpOr, Children: []TermID{a, b}})
}

//Eq accepts two Boolean or two equal-width bit-vector children
func (g *Graph) Eq(a, b TermID) TermID {
	g.requireSameKind(a, b)
	return g.intern(&Term{Op: OpEq, Children: []TermID{a, b}})
}

func (g *Graph) BVNot(a TermID) TermID {
	w := g.requireBV(a)
	return g.intern(&Term{Op: OpBVNot, Width: w, Children: []TermID{a}})
}

func (g *Graph) BVAnd(a, b TermID) TermID {
	w := g.requireBV(a)
	g.requireBV(b)
	g.requireSameKind(a, b)
	return g.intern(&Term{Op: OpBVAnd, Width: w, Children: []TermID{a, b}})
}

func (g *Graph) BVOr(a, b TermID) TermID {
	w := g.requireBV(a)
	g.requireBV(b)
	g.requireSameKind(a, b)
	return g.intern(&Term{Op: OpBVOr, Width: w, Children: []TermID{a, b}})
}

func (g *Graph) BVXor(a, b TermID) TermID {
	w := g.requireBV(a)
	g.requireBV(b)
	g.requireSameKind(a, b)
	return g.intern(&Term{Op: OpBVXor, Width: w, Children: []TermID{a, b}})
}

func (g *Graph) BVAdd(a, b TermID) TermID {
	w := g.requireBV(a)
	g.requireBV(b)
	g.requireSameKind(a, b)
	return g.intern(&Term{Op: OpBVAdd, Width: w, Children: []TermID{a, b}})
}

//Assert marks a Boolean term as a top-level assertion
func (g *Graph) Assert(id TermID) {
	g.requireBool(id)
	if g.asserted[id] {
		return
	}
	g.asserted[id] = true
	g.assertions = append(g.assertions, id)
}

func (g *Graph) Assertions() []TermID {
	return g.assertions
}

func (g *Graph) IsAssertion(id TermID) bool {
	return g.asserted[id]
}

//Init computes the parent adjacency. Idempotent; construction after Init
//invalidates it and a later Init recomputes from scratch.
func (g *Graph) Init() {
	if g.ready {
		return
	}
	g.parents = make([][]TermID, len(g.terms))
	for _, t := range g.terms {
		seen := make(map[TermID]bool)
		for _, c := range t.Children {
			if seen[c] {
				continue
			}
			seen[c] = true
			g.parents[c] = append(g.parents[c], t.ID)
		}
	}
	g.ready = true
}

//Parents returns the ids of every term having id among its children
func (g *Graph) Parents(id TermID) []TermID {
	if !g.ready {
		panic(fmt.Errorf("The graph is not initialized"))
	}
	g.Term(id)
	return g.parents[id]
}

//TopologicalOrder returns every node reachable from the roots, children
//before parents. A shared subterm appears exactly once.
func (g *Graph) TopologicalOrder(roots []TermID) []TermID {
	visited := make([]bool, len(g.terms))
	var order []TermID
	var visit func(id TermID)
	visit = func(id TermID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, c := range g.Term(id).Children {
			visit(c)
		}
		order = append(order, id)
	}
	for _, r := range roots {
		visit(r)
	}
	return order
}
