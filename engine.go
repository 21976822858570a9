package bvsls

import (
	"fmt"
	"io"
	"math/rand"
)

//Result is the outcome of a run. There is no unsatisfiable outcome: a
//failed search proves nothing.
type Result int

const (
	ResultUnknown Result = iota
	ResultSuccess
)

func (r Result) String() string {
	if r == ResultSuccess {
		return "success"
	}
	return "unknown"
}

type Config struct {
	MaxMovesPerPass int
	MaxRestarts     int
	RandomSeed      int64
}

func DefaultConfig() Config {
	return Config{
		MaxMovesPerPass: 10000,
		MaxRestarts:     100,
		RandomSeed:      0,
	}
}

//keepValueThreshold: on a restart an unfixed value survives the reseed with
//probability (100 - keepValueThreshold)%
const keepValueThreshold = 98

//Engine is the stochastic local-search repair engine. It repeatedly picks a
//node whose current value disagrees with the value implied by its children
//and repairs the mismatch, downward by changing a child through the
//operator's invertibility condition, upward by recomputing the node itself.
//
//All randomness flows through the per-instance rng, so a run is a pure
//function of the graph, the configuration and the initial valuation.
type Engine struct {
	Statistics  *Statistics
	TraceWriter io.Writer

	graph      *Graph
	eval       *Evaluator
	repairDown *RepairWorklist
	repairUp   *RepairWorklist
	rng        *rand.Rand
	config     Config
	cancel     func() bool

	initialized    bool
	valuationReady bool
	succeeded      bool
}

//NewEngine returns a pointer of Engine. cancel is the cooperative
//cancellation poll, checked at every move and pass boundary; nil means
//never cancelled.
func NewEngine(g *Graph, config Config, cancel func() bool) *Engine {
	if cancel == nil {
		cancel = func() bool { return false }
	}
	e := &Engine{
		Statistics: NewStatistics(),
		graph:      g,
		repairDown: NewRepairWorklist(),
		repairUp:   NewRepairWorklist(),
		cancel:     cancel,
	}
	e.UpdateConfig(config)
	return e
}

//UpdateConfig installs a new configuration and reseeds the random stream.
//Takes effect on the next invocation.
func (e *Engine) UpdateConfig(c Config) {
	if c.MaxMovesPerPass <= 0 {
		panic(fmt.Errorf("The move budget must be positive: %d", c.MaxMovesPerPass))
	}
	if c.MaxRestarts < 0 {
		panic(fmt.Errorf("The restart budget must be non-negative: %d", c.MaxRestarts))
	}
	e.config = c
	e.rng = rand.New(rand.NewSource(c.RandomSeed))
}

//Init prepares the graph-derived structures. Idempotent; must precede
//InitValuation.
func (e *Engine) Init() {
	e.graph.Init()
	if e.initialized {
		return
	}
	e.eval = NewEvaluator(e.graph)
	e.initialized = true
}

//InitValuation installs a starting value for every node via the callback
//and derives the initial worklists
func (e *Engine) InitValuation(initial func(TermID, int) bool) {
	if !e.initialized {
		panic(fmt.Errorf("InitValuation called before Init"))
	}
	e.eval.InitEval(e.graph.Assertions(), initial)
	e.initRepair()
	e.valuationReady = true
	e.succeeded = false
}

//initRepair rebuilds both worklists from scratch: assertions are forced to
//true (entering the down list when that changed them) and every node whose
//current value disagrees with its recomputation enters the down list.
func (e *Engine) initRepair() {
	e.repairDown.Reset()
	e.repairUp.Reset()
	for _, a := range e.graph.Assertions() {
		if !e.eval.Current(a).Bool {
			e.eval.SetBool(a, true)
			e.repairDown.Insert(a)
		}
	}
	for _, id := range e.graph.TopologicalOrder(e.graph.Assertions()) {
		if !e.evalIsCorrect(id) {
			e.repairDown.Insert(id)
		}
	}
}

//reinitValuation reseeds every node value to escape a local optimum: fixed
//values survive, unfixed ones survive with a small probability and are
//redrawn uniformly otherwise
func (e *Engine) reinitValuation() {
	keep := func() bool {
		return e.rng.Intn(100) >= keepValueThreshold
	}
	initial := func(id TermID, i int) bool {
		t := e.graph.Term(id)
		if t.IsBool() {
			if e.eval.IsFixed(id) || keep() {
				return e.eval.Current(id).Bool
			}
		} else {
			v := e.eval.Current(id)
			if v.FixedBit(i) || keep() {
				return v.Bit(i)
			}
		}
		return e.rng.Intn(2) == 0
	}
	e.eval.InitEval(e.graph.Assertions(), initial)
	e.initRepair()
}

//Run executes search passes until one succeeds, the restart budget is
//exhausted, or the cancellation poll fires. At most MaxRestarts+1 passes of
//at most MaxMovesPerPass moves each.
func (e *Engine) Run() Result {
	if !e.valuationReady {
		panic(fmt.Errorf("Run called before Init/InitValuation"))
	}
	e.Statistics.Reset()
	e.succeeded = false
	for restarts := 0; ; restarts++ {
		sat, cancelled := e.search()
		if sat {
			e.succeeded = true
			return ResultSuccess
		}
		if cancelled || restarts >= e.config.MaxRestarts {
			return ResultUnknown
		}
		e.Statistics.RestartCount++
		e.trace()
		e.reinitValuation()
	}
}

//search runs one pass of at most MaxMovesPerPass moves. Returns sat=true
//when both worklists drained, cancelled=true when the poll fired.
func (e *Engine) search() (sat bool, cancelled bool) {
	for n := 0; n < e.config.MaxMovesPerPass; n++ {
		if e.cancel() {
			return false, true
		}
		e.Statistics.MoveCount++
		id, down, ok := e.nextToRepair()
		if !ok {
			return true, false
		}
		if e.evalIsCorrect(id) {
			if down {
				e.repairDown.Remove(id)
			} else {
				e.repairUp.Remove(id)
			}
			continue
		}
		if down {
			e.tryRepairDown(id)
		} else {
			e.tryRepairUp(id)
		}
	}
	return false, false
}

//nextToRepair picks a uniformly random candidate, preferring the down list
func (e *Engine) nextToRepair() (id TermID, down bool, ok bool) {
	if id, ok := e.repairDown.PickRandom(e.rng); ok {
		return id, true, true
	}
	if id, ok := e.repairUp.PickRandom(e.rng); ok {
		return id, false, true
	}
	return TermIDUndef, false, false
}

func (e *Engine) evalIsCorrect(id TermID) bool {
	if !e.eval.CanRecompute(id) {
		return false
	}
	cur := e.eval.Current(id)
	rec := e.eval.Recomputed(id)
	return cur.Equal(rec)
}

//tryRepairDown iterates the children in a randomly rotated order and stops
//at the first repairable one. When no child admits a repairing value the
//node escalates to the up list: its own value will be recomputed to match
//whatever the children can produce.
func (e *Engine) tryRepairDown(id TermID) {
	t := e.graph.Term(id)
	n := len(t.Children)
	if n > 0 {
		s := e.rng.Intn(n)
		for i := 0; i < n; i++ {
			if e.tryRepairDownChild(t, (i+s)%n) {
				return
			}
		}
	}
	e.Statistics.EscalationCount++
	e.repairDown.Remove(id)
	e.markRepairUp(id)
}

//tryRepairDownChild repairs one child; the changed child must re-justify
//itself against its own children and every parent of the child holds a
//stale recomputation
func (e *Engine) tryRepairDownChild(t *Term, i int) bool {
	child := t.Children[i]
	if !e.eval.TryRepair(t.ID, i) {
		return false
	}
	e.Statistics.DownRepairCount++
	e.markRepairDown(child)
	for _, p := range e.graph.Parents(child) {
		e.markRepairUp(p)
	}
	return true
}

//tryRepairUp recomputes the node from its children and propagates upward.
//Assertions never accept what their children produce: they go back to the
//down list with their mandated true value intact. Never fails.
func (e *Engine) tryRepairUp(id TermID) {
	e.repairUp.Remove(id)
	if e.graph.IsAssertion(id) {
		e.repairDown.Insert(id)
		return
	}
	e.Statistics.UpRepairCount++
	e.eval.RepairUp(id)
	for _, p := range e.graph.Parents(id) {
		e.markRepairUp(p)
	}
}

//markRepairDown moves a node to the down list, keeping the lists disjoint
func (e *Engine) markRepairDown(id TermID) {
	e.repairUp.Remove(id)
	e.repairDown.Insert(id)
}

//markRepairUp inserts into the up list unless the node already awaits a
//down repair; a node is a member of at most one list
func (e *Engine) markRepairUp(id TermID) {
	if e.repairDown.Contains(id) {
		return
	}
	e.repairUp.Insert(id)
}

//Model returns, for every free constant, its value. Valid only after a
//successful Run.
func (e *Engine) Model() map[TermID]Value {
	if !e.succeeded {
		panic(fmt.Errorf("Model called without a successful run"))
	}
	m := make(map[TermID]Value)
	for _, id := range e.graph.TopologicalOrder(e.graph.Assertions()) {
		t := e.graph.Term(id)
		if t.Op == OpBoolVar || t.Op == OpBVVar {
			m[id] = e.eval.Current(id).Clone()
		}
	}
	return m
}

func (e *Engine) trace() {
	if e.TraceWriter == nil {
		return
	}
	fmt.Fprintf(e.TraceWriter, "(bvsls :restarts %d :repair-down %d :repair-up %d)\n",
		e.Statistics.RestartCount, e.repairDown.Size(), e.repairUp.Size())
}

//WriteState dumps every reachable node with its fixed flag, worklist
//membership and current value. Debugging only; the format is not stable.
func (e *Engine) WriteState(w io.Writer) {
	if !e.valuationReady {
		panic(fmt.Errorf("WriteState called before Init/InitValuation"))
	}
	for _, id := range e.graph.TopologicalOrder(e.graph.Assertions()) {
		t := e.graph.Term(id)
		fmt.Fprintf(w, "%d: %s", id, t.Op)
		if t.Name != "" {
			fmt.Fprintf(w, " %s", t.Name)
		}
		if e.eval.IsFixed(id) {
			fmt.Fprint(w, " f")
		}
		if e.repairDown.Contains(id) {
			fmt.Fprint(w, " d")
		}
		if e.repairUp.Contains(id) {
			fmt.Fprint(w, " u")
		}
		v := e.eval.Current(id)
		fmt.Fprintf(w, " %s\n", v.String())
	}
}
