package bvsls

import (
	"fmt"
)

//Evaluator owns the current value of every node and recomputes candidate
//values bottom-up for consistency checks. Repair primitives mutate current
//values only; the graph structure is never touched.
type Evaluator struct {
	graph     *Graph
	vals      []Value
	known     []bool
	fixedBool []bool
}

//NewEvaluator returns a pointer of Evaluator
func NewEvaluator(g *Graph) *Evaluator {
	n := g.NumTerms()
	return &Evaluator{
		graph:     g,
		vals:      make([]Value, n),
		known:     make([]bool, n),
		fixedBool: make([]bool, n),
	}
}

//InitEval installs a starting value for every node reachable from the
//assertions: free constants from the callback, literal constants from their
//declared value, interior nodes by bottom-up recomputation. Fixedness is
//then seeded from the constants and propagated upward where every child is
//fully fixed.
func (ev *Evaluator) InitEval(assertions []TermID, initial func(TermID, int) bool) {
	order := ev.graph.TopologicalOrder(assertions)
	for _, id := range order {
		t := ev.graph.Term(id)
		switch t.Op {
		case OpBoolConst:
			ev.vals[id] = NewBoolValue(t.Const.Bool)
			ev.fixedBool[id] = true
		case OpBVConst:
			ev.vals[id] = t.Const.Clone()
		case OpBoolVar:
			// the callback may consult the old value and fixed flag,
			// both of which survive a reseed
			b := initial(id, 0)
			if !ev.known[id] {
				ev.fixedBool[id] = false
			}
			ev.vals[id] = NewBoolValue(b)
		case OpBVVar:
			v := NewBVValue(t.Width)
			if ev.known[id] {
				copy(v.Fixed, ev.vals[id].Fixed)
			}
			for i := 0; i < t.Width; i++ {
				v.SetBit(i, initial(id, i))
			}
			ev.vals[id] = v
		default:
			ev.vals[id] = ev.compute(t)
			ev.fixedBool[id] = false
		}
		ev.known[id] = true
	}
	for _, id := range order {
		t := ev.graph.Term(id)
		if len(t.Children) == 0 {
			continue
		}
		allFixed := true
		for _, c := range t.Children {
			if !ev.IsFixed(c) {
				allFixed = false
				break
			}
		}
		if !allFixed {
			continue
		}
		if t.IsBool() {
			ev.fixedBool[id] = true
		} else {
			ev.vals[id].FixAll()
		}
	}
}

//Current returns the node's current value
func (ev *Evaluator) Current(id TermID) Value {
	if !ev.known[id] {
		panic(fmt.Errorf("The term has no value installed: %d", id))
	}
	return ev.vals[id]
}

//CanRecompute reports whether a bottom-up recomputation is defined,
//i.e. every child has an installed value
func (ev *Evaluator) CanRecompute(id TermID) bool {
	if !ev.known[id] {
		return false
	}
	for _, c := range ev.graph.Term(id).Children {
		if !ev.known[c] {
			return false
		}
	}
	return true
}

//Recomputed returns the value implied by the children's current values.
//Constants recompute to their declared value, so a constant forced away from
//it stays incorrect; free variables recompute to their own current value.
func (ev *Evaluator) Recomputed(id TermID) Value {
	if !ev.CanRecompute(id) {
		panic(fmt.Errorf("The term cannot be recomputed: %d", id))
	}
	t := ev.graph.Term(id)
	switch t.Op {
	case OpBoolConst:
		return NewBoolValue(t.Const.Bool)
	case OpBVConst:
		return t.Const.Clone()
	case OpBoolVar, OpBVVar:
		return ev.vals[id]
	}
	return ev.compute(t)
}

func (ev *Evaluator) compute(t *Term) Value {
	switch t.Op {
	case OpNot:
		return NewBoolValue(!ev.vals[t.Children[0]].Bool)
	case OpAnd:
		return NewBoolValue(ev.vals[t.Children[0]].Bool && ev.vals[t.Children[1]].Bool)
	case OpOr:
		return NewBoolValue(ev.vals[t.Children[0]].Bool || ev.vals[t.Children[1]].Bool)
	case OpEq:
		a := ev.vals[t.Children[0]]
		b := ev.vals[t.Children[1]]
		return NewBoolValue(a.Equal(b))
	case OpBVNot:
		a := ev.vals[t.Children[0]]
		return ev.freshBV(t.Width, wordsNot(a.Bits, t.Width))
	case OpBVAnd:
		a, b := ev.vals[t.Children[0]], ev.vals[t.Children[1]]
		return ev.freshBV(t.Width, wordsAnd(a.Bits, b.Bits))
	case OpBVOr:
		a, b := ev.vals[t.Children[0]], ev.vals[t.Children[1]]
		return ev.freshBV(t.Width, wordsOr(a.Bits, b.Bits))
	case OpBVXor:
		a, b := ev.vals[t.Children[0]], ev.vals[t.Children[1]]
		return ev.freshBV(t.Width, wordsXor(a.Bits, b.Bits))
	case OpBVAdd:
		a, b := ev.vals[t.Children[0]], ev.vals[t.Children[1]]
		return ev.freshBV(t.Width, wordsAdd(a.Bits, b.Bits, t.Width))
	}
	panic(fmt.Errorf("The operator has no evaluation rule: %v", t.Op))
}

func (ev *Evaluator) freshBV(width int, bits []uint64) Value {
	v := NewBVValue(width)
	copy(v.Bits, bits)
	wordsMask(v.Bits, width)
	return v
}

//RepairUp commits the recomputed value as the node's current value.
//Always succeeds; the fixed mask is left as is.
func (ev *Evaluator) RepairUp(id TermID) {
	r := ev.Recomputed(id)
	if r.Kind == ValueBool {
		ev.vals[id].Bool = r.Bool
	} else {
		copy(ev.vals[id].Bits, r.Bits)
	}
}

//IsFixed reports whether the node's value is pinned against perturbation
func (ev *Evaluator) IsFixed(id TermID) bool {
	t := ev.graph.Term(id)
	if t.IsBool() {
		return ev.fixedBool[id]
	}
	return ev.vals[id].AllFixed()
}

//SetBool forces a Boolean node's current value, fixed or not.
//Used to pin assertions to true.
func (ev *Evaluator) SetBool(id TermID, b bool) {
	if !ev.graph.Term(id).IsBool() {
		panic(fmt.Errorf("The term is not Boolean: %d", id))
	}
	ev.vals[id].Bool = b
}

//trySetBool installs want as the child's value. Fails when the child is
//pinned to the opposite value or when nothing would change.
func (ev *Evaluator) trySetBool(id TermID, want bool) bool {
	if ev.vals[id].Bool == want {
		return false
	}
	if ev.fixedBool[id] {
		return false
	}
	ev.vals[id].Bool = want
	return true
}

//trySetBV installs want as the child's bits. Fails when a fixed bit would
//have to flip or when nothing would change.
func (ev *Evaluator) trySetBV(id TermID, want []uint64) bool {
	v := &ev.vals[id]
	changed := false
	for k := range want {
		diff := want[k] ^ v.Bits[k]
		if diff&v.Fixed[k] != 0 {
			return false
		}
		if diff != 0 {
			changed = true
		}
	}
	if !changed {
		return false
	}
	copy(v.Bits, want)
	wordsMask(v.Bits, v.Width)
	return true
}

//TryRepair attempts, via the parent operator's invertibility condition, to
//give child i a value under which the parent can reach its current (target)
//value, holding the sibling at its current value. On failure all state is
//left unchanged.
func (ev *Evaluator) TryRepair(parent TermID, i int) bool {
	t := ev.graph.Term(parent)
	if i < 0 || i >= len(t.Children) {
		panic(fmt.Errorf("The child index is out of range: %d of term %d", i, parent))
	}
	target := ev.vals[parent]
	child := t.Children[i]
	switch t.Op {
	case OpNot:
		return ev.trySetBool(child, !target.Bool)
	case OpAnd, OpOr:
		// and needs every child true for a true target; or dually.
		// A false target for and (true for or) is reached by this child alone.
		return ev.trySetBool(child, target.Bool)
	case OpEq:
		other := ev.vals[t.Children[1-i]]
		if other.Kind == ValueBool {
			want := other.Bool
			if !target.Bool {
				want = !want
			}
			return ev.trySetBool(child, want)
		}
		if target.Bool {
			return ev.trySetBV(child, other.Bits)
		}
		return ev.tryFlipFreeBit(child, other)
	case OpBVNot:
		return ev.trySetBV(child, wordsNot(target.Bits, t.Width))
	case OpBVAdd:
		other := ev.vals[t.Children[1-i]]
		return ev.trySetBV(child, wordsSub(target.Bits, other.Bits, t.Width))
	case OpBVXor:
		other := ev.vals[t.Children[1-i]]
		return ev.trySetBV(child, wordsXor(target.Bits, other.Bits))
	case OpBVAnd:
		other := ev.vals[t.Children[1-i]]
		cur := ev.vals[child]
		// every target bit must be reachable through the sibling mask
		for k := range target.Bits {
			if target.Bits[k]&^other.Bits[k] != 0 {
				return false
			}
		}
		want := wordsOr(target.Bits, wordsAnd(cur.Bits, wordsNot(other.Bits, t.Width)))
		return ev.trySetBV(child, want)
	case OpBVOr:
		other := ev.vals[t.Children[1-i]]
		cur := ev.vals[child]
		for k := range other.Bits {
			if other.Bits[k]&^target.Bits[k] != 0 {
				return false
			}
		}
		want := wordsOr(wordsAnd(target.Bits, wordsNot(other.Bits, t.Width)), wordsAnd(cur.Bits, other.Bits))
		return ev.trySetBV(child, want)
	}
	panic(fmt.Errorf("The operator has no invertibility condition: %v", t.Op))
}

//tryFlipFreeBit makes the child differ from other by flipping the lowest
//unfixed bit; used for disequality targets
func (ev *Evaluator) tryFlipFreeBit(id TermID, other Value) bool {
	v := &ev.vals[id]
	if !wordsEqual(v.Bits, other.Bits) {
		return false
	}
	for i := 0; i < v.Width; i++ {
		if !v.FixedBit(i) {
			v.SetBit(i, !v.Bit(i))
			return true
		}
	}
	return false
}
