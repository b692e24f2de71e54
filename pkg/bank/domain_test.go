package bank

import (
	"reflect"
	"testing"
)

func TestTargetQueue_Insert(t *testing.T) {
	// Duplicate insert is a no-op
	q := TargetQueue{5}
	q.Insert(5, DirUp)
	if q.Len() != 1 {
		t.Errorf("Expected duplicate insert to be a no-op, got %v", q)
	}

	// Heading up: ascending order
	q = TargetQueue{5, 8}
	q.Insert(6, DirUp)
	if !reflect.DeepEqual(q, TargetQueue{5, 6, 8}) {
		t.Errorf("Expected [5 6 8], got %v", q)
	}

	// Heading down: descending order
	q = TargetQueue{6, 2}
	q.Insert(4, DirDown)
	if !reflect.DeepEqual(q, TargetQueue{6, 4, 2}) {
		t.Errorf("Expected [6 4 2], got %v", q)
	}

	// Idle: no sort applied, plain append
	q = TargetQueue{}
	q.Insert(7, DirIdle)
	q.Insert(3, DirIdle)
	if !reflect.DeepEqual(q, TargetQueue{7, 3}) {
		t.Errorf("Expected [7 3], got %v", q)
	}
}

func TestTargetQueue_PopFront(t *testing.T) {
	q := TargetQueue{2, 4, 6}
	if f := q.PopFront(); f != 2 {
		t.Errorf("Expected front 2, got %d", f)
	}
	if !reflect.DeepEqual(q, TargetQueue{4, 6}) {
		t.Errorf("Expected [4 6] after pop, got %v", q)
	}
}

func TestCallBoard(t *testing.T) {
	b := NewCallBoard(8)

	b.Raise(3, DirUp)
	if !b[3].Up || b[3].Down {
		t.Errorf("Expected only the up flag at floor 3, got %+v", b[3])
	}
	if !b.IsPending(3) {
		t.Error("Expected floor 3 pending")
	}

	b.Raise(3, DirDown)
	b.Clear(3)
	if b.IsPending(3) {
		t.Error("Expected both flags cleared together")
	}

	// Out-of-range input is silently ignored
	b.Raise(-1, DirUp)
	b.Raise(8, DirDown)
	b.Clear(99)
	if b.IsPending(-1) || b.IsPending(8) {
		t.Error("Expected out-of-range floors to never be pending")
	}
}

func TestDispatchCost(t *testing.T) {
	// Idle car: plain distance
	c := newCar(0)
	c.Floor = 2
	if cost := dispatchCost(c, 7, DirUp); cost != 5 {
		t.Errorf("Idle cost: expected 5, got %d", cost)
	}

	// Same direction and still ahead of the call: plain distance
	c = newCar(0)
	c.Floor = 3
	c.Dir = DirUp
	c.Targets = TargetQueue{5, 8}
	if cost := dispatchCost(c, 6, DirUp); cost != 3 {
		t.Errorf("En-route cost: expected 3, got %d", cost)
	}

	// Wrong direction: finish the trip to the last target, then come back
	c = newCar(0)
	c.Floor = 5
	c.Dir = DirDown
	c.Targets = TargetQueue{2}
	if cost := dispatchCost(c, 7, DirDown); cost != 8 {
		t.Errorf("Wrap-around cost: expected |2-5|+|7-2| = 8, got %d", cost)
	}

	// Same direction but already past the call floor falls into the
	// wrap-around branch too
	c = newCar(0)
	c.Floor = 6
	c.Dir = DirUp
	c.Targets = TargetQueue{9}
	if cost := dispatchCost(c, 4, DirUp); cost != 8 {
		t.Errorf("Passed-floor cost: expected |9-6|+|4-9| = 8, got %d", cost)
	}
}

func TestCar_NextDirection(t *testing.T) {
	c := newCar(0)
	c.Floor = 4

	if d := c.nextDirection(); d != DirIdle {
		t.Errorf("Empty queue: expected Idle, got %s", d)
	}

	c.Targets = TargetQueue{7}
	if d := c.nextDirection(); d != DirUp {
		t.Errorf("Target above: expected Up, got %s", d)
	}

	c.Targets = TargetQueue{1}
	if d := c.nextDirection(); d != DirDown {
		t.Errorf("Target below: expected Down, got %s", d)
	}

	// Defensive fallback; unreachable under the dedupe invariant
	c.Targets = TargetQueue{4}
	if d := c.nextDirection(); d != DirIdle {
		t.Errorf("Target at current floor: expected Idle, got %s", d)
	}
}
