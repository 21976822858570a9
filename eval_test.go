package bvsls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allFalse(TermID, int) bool { return false }

func newEval(g *Graph, roots []TermID, initial func(TermID, int) bool) *Evaluator {
	ev := NewEvaluator(g)
	ev.InitEval(roots, initial)
	return ev
}

func TestEvalRecompute(t *testing.T) {
	g := NewGraph()
	x := g.BVVar("x", 8)
	c := g.BVConst(0x0f, 8)
	and := g.BVAnd(x, c)
	or := g.BVOr(x, c)
	xor := g.BVXor(x, c)
	add := g.BVAdd(x, c)
	not := g.BVNot(x)
	eq := g.Eq(x, c)
	roots := []TermID{g.Eq(and, or), g.Eq(xor, add), g.Eq(not, x), eq}

	ev := newEval(g, roots, func(id TermID, i int) bool {
		return i < 4 // x = 0x0f
	})
	require.Equal(t, uint64(0x0f), ev.Current(x).Uint64())
	assert.Equal(t, uint64(0x0f), ev.Current(and).Uint64())
	assert.Equal(t, uint64(0x0f), ev.Current(or).Uint64())
	assert.Equal(t, uint64(0x00), ev.Current(xor).Uint64())
	assert.Equal(t, uint64(0x1e), ev.Current(add).Uint64())
	assert.Equal(t, uint64(0xf0), ev.Current(not).Uint64())
	assert.True(t, ev.Current(eq).Bool)

	// recomputation of a free variable is its own current value
	rec := ev.Recomputed(x)
	assert.True(t, rec.Equal(ev.Current(x)))
	assert.True(t, ev.CanRecompute(and))
}

func TestEvalRecomputeBool(t *testing.T) {
	g := NewGraph()
	a := g.BoolVar("a")
	b := g.BoolVar("b")
	and := g.And(a, b)
	or := g.Or(a, b)
	not := g.Not(a)
	iff := g.Eq(a, b)
	roots := []TermID{and, or, not, iff}

	ev := newEval(g, roots, func(id TermID, i int) bool {
		return id == a // a=true, b=false
	})
	assert.False(t, ev.Current(and).Bool)
	assert.True(t, ev.Current(or).Bool)
	assert.False(t, ev.Current(not).Bool)
	assert.False(t, ev.Current(iff).Bool)
}

func TestEvalRecomputeConstant(t *testing.T) {
	// a constant recomputes to its declared value even after its current
	// value was forced away from it
	g := NewGraph()
	f := g.BoolConst(false)
	c := g.BVConst(5, 8)
	x := g.BVVar("x", 8)
	roots := []TermID{f, g.Eq(x, c)}
	ev := newEval(g, roots, allFalse)

	ev.SetBool(f, true)
	require.True(t, ev.Current(f).Bool)
	assert.False(t, ev.Recomputed(f).Bool)
	assert.Equal(t, uint64(5), ev.Recomputed(c).Uint64())
}

func TestEvalFixedness(t *testing.T) {
	g := NewGraph()
	c1 := g.BVConst(3, 8)
	c2 := g.BVConst(4, 8)
	x := g.BVVar("x", 8)
	sumConst := g.BVAdd(c1, c2) // both children fixed
	sumVar := g.BVAdd(c1, x)
	tc := g.BoolConst(true)
	notConst := g.Not(tc)
	roots := []TermID{g.Eq(sumConst, sumVar), notConst}

	ev := newEval(g, roots, allFalse)
	assert.True(t, ev.IsFixed(c1))
	assert.True(t, ev.IsFixed(sumConst))
	assert.False(t, ev.IsFixed(x))
	assert.False(t, ev.IsFixed(sumVar))
	assert.True(t, ev.IsFixed(tc))
	assert.True(t, ev.IsFixed(notConst))
}

func TestTryRepairNot(t *testing.T) {
	g := NewGraph()
	a := g.BoolVar("a")
	not := g.Not(a)
	ev := newEval(g, []TermID{not}, allFalse)

	ev.SetBool(not, true) // target true, a is false: already achieved, no change
	assert.False(t, ev.TryRepair(not, 0))

	ev.SetBool(a, true) // now not is wrong
	require.True(t, ev.TryRepair(not, 0))
	assert.False(t, ev.Current(a).Bool)
}

func TestTryRepairAndOr(t *testing.T) {
	g := NewGraph()
	a := g.BoolVar("a")
	b := g.BoolVar("b")
	and := g.And(a, b)
	ev := newEval(g, []TermID{and}, allFalse)

	ev.SetBool(and, true)
	// a is false: repairing child 0 flips it to true
	require.True(t, ev.TryRepair(and, 0))
	assert.True(t, ev.Current(a).Bool)
	// a is already true: repairing child 0 again changes nothing
	assert.False(t, ev.TryRepair(and, 0))
	// the sibling is still false and repairable
	require.True(t, ev.TryRepair(and, 1))
	assert.True(t, ev.Current(b).Bool)
}

func TestTryRepairEqBV(t *testing.T) {
	g := NewGraph()
	y := g.BVVar("y", 8)
	c := g.BVConst(5, 8)
	eq := g.Eq(y, c)
	ev := newEval(g, []TermID{eq}, allFalse)

	ev.SetBool(eq, true)
	// the constant child is fully fixed: unrepairable
	assert.False(t, ev.TryRepair(eq, 1))
	assert.Equal(t, uint64(5), ev.Current(c).Uint64())
	// the variable child takes the sibling's value
	require.True(t, ev.TryRepair(eq, 0))
	assert.Equal(t, uint64(5), ev.Current(y).Uint64())
}

func TestTryRepairDisequality(t *testing.T) {
	g := NewGraph()
	y := g.BVVar("y", 8)
	c := g.BVConst(5, 8)
	eq := g.Eq(y, c)
	ev := newEval(g, []TermID{eq}, allFalse)

	// make them equal, then demand the equality be false
	require.True(t, ev.trySetBV(y, ev.Current(c).Bits))
	ev.SetBool(eq, false)
	require.True(t, ev.TryRepair(eq, 0))
	assert.NotEqual(t, uint64(5), ev.Current(y).Uint64())
}

func TestTryRepairBVAdd(t *testing.T) {
	g := NewGraph()
	x := g.BVVar("x", 8)
	c := g.BVConst(250, 8)
	sum := g.BVAdd(x, c)
	ev := newEval(g, []TermID{g.Eq(sum, x)}, allFalse)

	want := NewBVValue(8)
	want.SetUint64(4)
	copy(ev.vals[sum].Bits, want.Bits) // target: x + 250 == 4 (mod 256)
	require.True(t, ev.TryRepair(sum, 0))
	assert.Equal(t, uint64(10), ev.Current(x).Uint64())
	rec := ev.Recomputed(sum)
	assert.Equal(t, uint64(4), rec.Uint64())
}

func TestTryRepairBVAndBlocked(t *testing.T) {
	g := NewGraph()
	x := g.BVVar("x", 8)
	zero := g.BVConst(0, 8)
	and := g.BVAnd(x, zero)
	ev := newEval(g, []TermID{g.Eq(and, x)}, allFalse)

	ev.vals[and].SetUint64(5)
	// no value of x can push bits through a zero mask
	assert.False(t, ev.TryRepair(and, 0))
	assert.Equal(t, uint64(0), ev.Current(x).Uint64())
}

func TestTryRepairBVAndKeepsFreeBits(t *testing.T) {
	g := NewGraph()
	x := g.BVVar("x", 8)
	mask := g.BVConst(0x0f, 8)
	and := g.BVAnd(x, mask)
	ev := newEval(g, []TermID{g.Eq(and, x)}, func(id TermID, i int) bool {
		return i >= 4 // x = 0xf0
	})

	ev.vals[and].SetUint64(0x05)
	require.True(t, ev.TryRepair(and, 0))
	// low nibble forced to 5, high nibble untouched
	assert.Equal(t, uint64(0xf5), ev.Current(x).Uint64())
}

func TestTryRepairBVOr(t *testing.T) {
	g := NewGraph()
	x := g.BVVar("x", 8)
	c := g.BVConst(0xf0, 8)
	or := g.BVOr(x, c)
	ev := newEval(g, []TermID{g.Eq(or, x)}, allFalse)

	ev.vals[or].SetUint64(0xf5)
	require.True(t, ev.TryRepair(or, 0))
	assert.Equal(t, uint64(0x05), ev.Current(x).Uint64()&0x0f)

	// a sibling bit outside the target is unrepairable
	ev.vals[or].SetUint64(0x05)
	assert.False(t, ev.TryRepair(or, 0))
}

func TestTryRepairFixedBitBlocks(t *testing.T) {
	g := NewGraph()
	x := g.BVVar("x", 8)
	c := g.BVConst(5, 8)
	sum := g.BVAdd(x, c)
	ev := newEval(g, []TermID{g.Eq(sum, c)}, allFalse)

	ev.vals[x].SetFixedBit(0, true) // pin the lowest bit of x at 0
	ev.vals[sum].SetUint64(6)       // would need x = 1
	assert.False(t, ev.TryRepair(sum, 0))
	assert.Equal(t, uint64(0), ev.Current(x).Uint64())
}

func TestRepairUp(t *testing.T) {
	g := NewGraph()
	x := g.BVVar("x", 8)
	c := g.BVConst(5, 8)
	sum := g.BVAdd(x, c)
	ev := newEval(g, []TermID{g.Eq(sum, c)}, allFalse)

	ev.vals[x].SetUint64(7)
	require.False(t, ev.Current(sum).Equal(ev.Recomputed(sum)))
	ev.RepairUp(sum)
	assert.Equal(t, uint64(12), ev.Current(sum).Uint64())
	assert.True(t, ev.Current(sum).Equal(ev.Recomputed(sum)))
}
