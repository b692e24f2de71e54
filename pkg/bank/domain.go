// Package bank implements a tick-driven simulation engine for a bank of
// elevator cars: cost-based dispatch of hall calls to cars, per-car
// target-queue maintenance, and the per-tick state machine governing car
// movement and door cycles.
package bank

import (
	"fmt"
	"sort"
)

// --- Domain Entities & Value Objects ---
// No mutex, no channel, no time. The Bank engine owns synchronization.

// Direction indicates a car's vertical travel intent.
type Direction string

const (
	DirUp   Direction = "Up"
	DirDown Direction = "Down"
	DirIdle Direction = "Idle"
)

// TargetQueue is the ordered, duplicate-free set of floors a car must
// still visit. The front element is always the next floor serviced; the
// only reordering ever applied is the direction-consistent sort. Calls
// are not spliced in by nearest-floor, a deliberate simplification.
type TargetQueue []int

// Insert adds floor unless it is already queued, then restores the
// order the car's travel direction demands: ascending when going up,
// descending when going down. For an idle car no order is imposed and
// the caller recomputes the direction immediately after.
func (q *TargetQueue) Insert(floor int, dir Direction) {
	if q.Contains(floor) {
		return
	}
	*q = append(*q, floor)
	switch dir {
	case DirUp:
		sort.Ints(*q)
	case DirDown:
		sort.Sort(sort.Reverse(sort.IntSlice(*q)))
	}
}

// Contains reports whether floor is queued.
func (q TargetQueue) Contains(floor int) bool {
	for _, f := range q {
		if f == floor {
			return true
		}
	}
	return false
}

// Front returns the next floor to service. Only valid when Len() > 0.
func (q TargetQueue) Front() int { return q[0] }

// PopFront removes and returns the front floor.
func (q *TargetQueue) PopFront() int {
	f := (*q)[0]
	*q = (*q)[1:]
	return f
}

// Len returns the number of queued floors.
func (q TargetQueue) Len() int { return len(q) }

// FloorCalls holds the pending hall-call flags for a single floor.
type FloorCalls struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// CallBoard tracks pending hall calls per floor. Flags stay raised
// until a car stops at the floor; one stop serves everyone waiting
// there, so both flags always clear together.
type CallBoard []FloorCalls

// NewCallBoard creates an empty board for the given floor count.
func NewCallBoard(floors int) CallBoard { return make(CallBoard, floors) }

// Raise sets the pending flag for floor in the given direction.
// Out-of-range floors are silently ignored.
func (b CallBoard) Raise(floor int, dir Direction) {
	if floor < 0 || floor >= len(b) {
		return
	}
	switch dir {
	case DirUp:
		b[floor].Up = true
	case DirDown:
		b[floor].Down = true
	}
}

// Clear resets both flags for floor.
func (b CallBoard) Clear(floor int) {
	if floor < 0 || floor >= len(b) {
		return
	}
	b[floor] = FloorCalls{}
}

// IsPending reports whether a hall call is waiting at floor in either
// direction.
func (b CallBoard) IsPending(floor int) bool {
	if floor < 0 || floor >= len(b) {
		return false
	}
	return b[floor].Up || b[floor].Down
}

// Car is the mutable state of a single elevator car.
//
// Invariants maintained by the engine: DoorsOpen and Moving are never
// both true; Targets is duplicate-free and sorted ascending while
// heading up, descending while heading down; an empty queue means
// DirIdle and not Moving.
type Car struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Floor     int          `json:"floor"`
	Dir       Direction    `json:"direction"`
	Targets   TargetQueue  `json:"targets"`
	DoorsOpen bool         `json:"doorsOpen"`
	Moving    bool         `json:"moving"`
	Buttons   map[int]bool `json:"buttons"`
}

func newCar(id int) *Car {
	return &Car{
		ID:      id,
		Name:    fmt.Sprintf("car-%d", id),
		Dir:     DirIdle,
		Targets: TargetQueue{},
		Buttons: make(map[int]bool),
	}
}

// nextDirection derives the direction the queue front demands: Idle on
// an empty queue, otherwise toward the front target. The equal case is
// a defensive fallback; the dedupe invariant keeps the current floor
// out of the queue.
func (c *Car) nextDirection() Direction {
	if c.Targets.Len() == 0 {
		return DirIdle
	}
	switch front := c.Targets.Front(); {
	case front > c.Floor:
		return DirUp
	case front < c.Floor:
		return DirDown
	default:
		return DirIdle
	}
}

// dispatchCost scores how well placed a car is to serve a hall call.
//
// An idle car costs its distance to the call floor. A car already
// heading the requested way that has not passed the floor picks the
// call up en route, also plain distance. Any other car is assumed to
// finish its current trip first: distance to its last queued target
// plus the leg from there back to the call floor. The three-way branch
// and its exact conditions are part of the engine's observable
// contract.
func dispatchCost(c *Car, floor int, dir Direction) int {
	switch {
	case c.Dir == DirIdle:
		return abs(c.Floor - floor)
	case c.Dir == dir && ahead(c, floor):
		return abs(c.Floor - floor)
	default:
		// A car mid door cycle can reach here with an empty queue;
		// its last target degenerates to the floor it stands on.
		last := c.Floor
		if n := c.Targets.Len(); n > 0 {
			last = c.Targets[n-1]
		}
		return abs(c.Floor-last) + abs(last-floor)
	}
}

// ahead reports whether the call floor is still in front of the car
// along its current travel direction.
func ahead(c *Car, floor int) bool {
	if c.Dir == DirUp {
		return c.Floor <= floor
	}
	return c.Floor >= floor
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
