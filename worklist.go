package bvsls

import (
	"math/rand"
)

//RepairWorklist is an indexed set of term ids with O(1) insert, remove,
//membership and uniform random pick. data holds the current members densely
//and indices maps an id to its slot, -1 when absent. Removal moves the last
//member into the hole, so slot numbers are only stable between mutations.
type RepairWorklist struct {
	data    []TermID
	indices []int
}

//NewRepairWorklist returns a pointer of RepairWorklist
func NewRepairWorklist() *RepairWorklist {
	return &RepairWorklist{}
}

func (w *RepairWorklist) Size() int {
	return len(w.data)
}

func (w *RepairWorklist) Empty() bool {
	return len(w.data) == 0
}

func (w *RepairWorklist) Contains(x TermID) bool {
	return int(x) < len(w.indices) && w.indices[x] >= 0
}

//Insert adds x to the set; inserting a member is a no-op
func (w *RepairWorklist) Insert(x TermID) {
	for int(x) >= len(w.indices) {
		w.indices = append(w.indices, -1)
	}
	if w.indices[x] >= 0 {
		return
	}
	w.data = append(w.data, x)
	w.indices[x] = len(w.data) - 1
}

//Remove deletes x from the set; removing a non-member is a no-op
func (w *RepairWorklist) Remove(x TermID) {
	if !w.Contains(x) {
		return
	}
	i := w.indices[x]
	last := w.data[len(w.data)-1]
	w.data[i] = last
	w.indices[last] = i
	w.data = w.data[:len(w.data)-1]
	w.indices[x] = -1
}

//PickRandom draws one random number and returns a uniformly random member,
//or false when the set is empty
func (w *RepairWorklist) PickRandom(rng *rand.Rand) (TermID, bool) {
	if len(w.data) == 0 {
		return TermIDUndef, false
	}
	return w.data[rng.Intn(len(w.data))], true
}

//Reset empties the set keeping its capacity
func (w *RepairWorklist) Reset() {
	for _, x := range w.data {
		w.indices[x] = -1
	}
	w.data = w.data[:0]
}
