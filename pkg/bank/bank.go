package bank

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"
)

// EventType represents the category of an engine event.
type EventType string

const (
	EventFloorChange     EventType = "FloorChange"
	EventDirectionChange EventType = "DirectionChange"
	EventDoorChange      EventType = "DoorChange"
	EventArrived         EventType = "Arrived"
	EventDispatched      EventType = "Dispatched"
	EventReset           EventType = "Reset"
)

// Event carries state change information to the presentation layer.
type Event struct {
	Type      EventType
	Payload   interface{}
	Timestamp time.Time
}

// ArrivedPayload carries detail for arrival events. Summoned reports
// whether a hall call was still pending at the floor when the car
// stopped; the presentation layer uses it to show an in-car panel.
type ArrivedPayload struct {
	Car      int  `json:"car"`
	Floor    int  `json:"floor"`
	Summoned bool `json:"summoned"`
}

// DoorChangePayload carries detail for door events. Open=false also
// tells the presentation layer to retract any in-car panel.
type DoorChangePayload struct {
	Car   int  `json:"car"`
	Floor int  `json:"floor"`
	Open  bool `json:"open"`
}

// FloorChangePayload carries detail for position events.
type FloorChangePayload struct {
	Car   int `json:"car"`
	Floor int `json:"floor"`
}

// DirectionChangePayload carries detail for direction events.
type DirectionChangePayload struct {
	Car int       `json:"car"`
	Dir Direction `json:"direction"`
}

// DispatchedPayload reports which car won a hall call and at what cost.
type DispatchedPayload struct {
	Car   int       `json:"car"`
	Floor int       `json:"floor"`
	Dir   Direction `json:"direction"`
	Cost  int       `json:"cost"`
}

// doorClose is the deferred end of a door cycle. gen pins the event to
// the engine generation that scheduled it, so closes scheduled before a
// Reset cannot fire against reinitialized cars.
type doorClose struct {
	car int
	gen uint64
}

// State is a deep-copied, read-only view of the engine handed to
// observers.
type State struct {
	Cars   []Car     `json:"cars"`
	Floors CallBoard `json:"floors"`
}

// Bank is the simulation engine for a group of elevator cars. All
// state changes are guarded by the mutex and propagated on the event
// channel.
type Bank struct {
	mu  sync.RWMutex
	cfg Config

	cars  []*Car
	board CallBoard

	// Door-close scheduling. Reset bumps gen and best-effort stops the
	// timers; the gen check on consumption is what guarantees a close
	// already in flight is harmless.
	gen        uint64
	doorCh     chan doorClose
	doorTimers []*time.Timer

	// Observability.
	logger            *slog.Logger
	eventCh           chan Event
	droppedEventCount uint64
}

// New initializes a Bank with strict config validation (fail fast).
func New(cfg Config) (*Bank, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &Bank{
		cfg:        cfg,
		cars:       make([]*Car, cfg.Cars),
		board:      NewCallBoard(cfg.Floors),
		doorCh:     make(chan doorClose, cfg.Cars*4),
		doorTimers: make([]*time.Timer, cfg.Cars),
		eventCh:    make(chan Event, 1000),
		logger:     slog.Default().With("bank", cfg.ID),
	}
	for i := range b.cars {
		b.cars[i] = newCar(i)
	}

	b.logger.Info("Bank initialized",
		"floors", cfg.Floors,
		"cars", cfg.Cars,
		"tick", cfg.TickInterval,
		"door", cfg.DoorOpenDuration,
	)
	return b, nil
}

// Config returns the immutable simulation parameters.
func (b *Bank) Config() Config { return b.cfg }

// Events returns the read-only channel for state change notifications.
func (b *Bank) Events() <-chan Event { return b.eventCh }

// DroppedEventCount returns the diagnostic metric for channel health.
func (b *Bank) DroppedEventCount() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.droppedEventCount
}

// Snapshot returns a deep copy of the current engine state. Observers
// may hold or mutate it freely without touching live state.
func (b *Bank) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := State{Cars: make([]Car, len(b.cars))}
	for i, c := range b.cars {
		if err := deepcopy.Copy(&st.Cars[i], c); err != nil {
			panic(err)
		}
	}
	if err := deepcopy.Copy(&st.Floors, &b.board); err != nil {
		panic(err)
	}
	return st
}

// publishEvent sends an event without blocking engine logic. When the
// channel is saturated the event is dropped and counted.
func (b *Bank) publishEvent(eventType EventType, payload interface{}) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case b.eventCh <- event:
	default:
		b.droppedEventCount++
		// Log rarely to avoid flooding.
		if b.droppedEventCount%100 == 1 {
			b.logger.Error("Event channel saturated", "dropped", b.droppedEventCount, "type", eventType)
		}
	}
}

func (b *Bank) setFloor(c *Car, f int) {
	if c.Floor != f {
		c.Floor = f
		b.publishEvent(EventFloorChange, FloorChangePayload{Car: c.ID, Floor: f})
	}
}

func (b *Bank) setDirection(c *Car, d Direction) {
	if c.Dir != d {
		c.Dir = d
		b.publishEvent(EventDirectionChange, DirectionChangePayload{Car: c.ID, Dir: d})
	}
}

// updateDirection re-derives the car's direction from its queue front.
func (b *Bank) updateDirection(c *Car) {
	b.setDirection(c, c.nextDirection())
}

// enqueue inserts floor into the car's queue. An idle car gets its
// direction recomputed immediately; no sort applies until it has one.
func (b *Bank) enqueue(c *Car, floor int) {
	c.Targets.Insert(floor, c.Dir)
	if c.Dir == DirIdle {
		b.updateDirection(c)
	}
}

// Call registers a hall call at floor in the given direction and
// dispatches it to the best-placed car. Invalid input degrades to a
// logged no-op; re-raising a pending call is idempotent but still
// dispatched.
func (b *Bank) Call(floor int, dir Direction) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if floor < 0 || floor >= b.cfg.Floors {
		b.logger.Warn("Hall call out of range", "floor", floor)
		return
	}
	if dir != DirUp && dir != DirDown {
		b.logger.Warn("Hall call with invalid direction", "direction", dir)
		return
	}

	b.board.Raise(floor, dir)
	b.schedule(floor, dir)
}

// schedule assigns the call to the car with the strictly smallest
// dispatch cost. Ties go to the lowest car index; the tie-break is a
// contract, not an accident, so alternate implementations stay
// test-compatible.
func (b *Bank) schedule(floor int, dir Direction) {
	best := b.cars[0]
	bestCost := dispatchCost(best, floor, dir)
	for _, c := range b.cars[1:] {
		if cost := dispatchCost(c, floor, dir); cost < bestCost {
			best, bestCost = c, cost
		}
	}

	b.enqueue(best, floor)
	b.logger.Debug("Hall call dispatched",
		"floor", floor,
		"direction", dir,
		"car", best.ID,
		"cost", bestCost,
	)
	b.publishEvent(EventDispatched, DispatchedPayload{Car: best.ID, Floor: floor, Dir: dir, Cost: bestCost})
}

// PressCarButton registers an in-car floor request. The request always
// goes to the pressed car's own queue, bypassing cost dispatch. A
// floor the car already targets is a no-op.
func (b *Bank) PressCarButton(carID, floor int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if carID < 0 || carID >= len(b.cars) {
		b.logger.Warn("Button press for unknown car", "car", carID)
		return
	}
	if floor < 0 || floor >= b.cfg.Floors {
		b.logger.Warn("Button press out of range", "car", carID, "floor", floor)
		return
	}

	c := b.cars[carID]
	if c.Targets.Contains(floor) {
		b.logger.Debug("Floor already targeted", "car", carID, "floor", floor)
		return
	}

	c.Buttons[floor] = true
	b.enqueue(c, floor)
	b.logger.Debug("Car button registered", "car", carID, "floor", floor)
}

// Tick advances every car by one state-machine step. Run calls it on
// the clock period; tests call it directly.
func (b *Bank) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tick()
}

func (b *Bank) tick() {
	for _, c := range b.cars {
		b.stepCar(c)
	}
}

// stepCar runs one transition of the per-car state machine.
func (b *Bank) stepCar(c *Car) {
	// An open door blocks the car until its close timer fires. The
	// dispatcher may still append targets meanwhile.
	if c.DoorsOpen {
		return
	}

	if c.Targets.Len() == 0 {
		if c.Moving {
			c.Moving = false
			b.updateDirection(c)
		}
		return
	}

	if c.Targets.Front() == c.Floor {
		b.arrive(c)
		return
	}

	c.Moving = true
	if c.Targets.Front() > c.Floor {
		b.setDirection(c, DirUp)
		b.setFloor(c, c.Floor+1)
	} else {
		b.setDirection(c, DirDown)
		b.setFloor(c, c.Floor-1)
	}

	// Arrival completes on the tick that reaches the floor, so a car
	// N floors out opens its doors on the Nth tick.
	if c.Targets.Front() == c.Floor {
		b.arrive(c)
	}
}

// arrive services the front target at the current floor: doors open,
// the floor's hall flags and the car's own button clear together
// within this tick, and a one-shot door close is scheduled.
func (b *Bank) arrive(c *Car) {
	summoned := b.board.IsPending(c.Floor)

	c.Targets.PopFront()
	c.Moving = false
	c.DoorsOpen = true
	b.board.Clear(c.Floor)
	delete(c.Buttons, c.Floor)

	b.logger.Info("Car arrived", "car", c.ID, "floor", c.Floor, "summoned", summoned)
	b.publishEvent(EventArrived, ArrivedPayload{Car: c.ID, Floor: c.Floor, Summoned: summoned})
	b.publishEvent(EventDoorChange, DoorChangePayload{Car: c.ID, Floor: c.Floor, Open: true})

	b.scheduleDoorClose(c)
}

func (b *Bank) scheduleDoorClose(c *Car) {
	ev := doorClose{car: c.ID, gen: b.gen}
	b.doorTimers[c.ID] = time.AfterFunc(b.cfg.DoorOpenDuration, func() {
		b.doorCh <- ev
	})
}

// handleDoorClose finishes a door cycle: doors shut and the direction
// is recomputed from whatever the queue holds by now. Events from an
// older generation are dropped.
func (b *Bank) handleDoorClose(ev doorClose) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.gen != b.gen {
		b.logger.Debug("Stale door close dropped", "car", ev.car)
		return
	}

	c := b.cars[ev.car]
	if !c.DoorsOpen {
		return
	}

	c.DoorsOpen = false
	b.updateDirection(c)
	b.publishEvent(EventDoorChange, DoorChangePayload{Car: c.ID, Floor: c.Floor, Open: false})
	b.logger.Debug("Doors closed", "car", c.ID, "floor", c.Floor, "direction", c.Dir)
}

// Reset synchronously reinitializes every car and clears the board,
// then forces one tick so observers see consistent state without
// waiting for the next clock pulse. Door closes scheduled before the
// reset are invalidated.
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.Info("Resetting bank")
	b.gen++
	for i, t := range b.doorTimers {
		if t != nil {
			t.Stop()
			b.doorTimers[i] = nil
		}
	}
	for i := range b.cars {
		b.cars[i] = newCar(i)
	}
	b.board = NewCallBoard(b.cfg.Floors)

	b.publishEvent(EventReset, nil)
	b.tick()
}

// Run drives the simulation clock until ctx is cancelled. Car steps
// fire on the tick period; door closes arrive on their own timers and
// are serialized with the ticks here.
func (b *Bank) Run(ctx context.Context) error {
	b.logger.Info("Bank engine started")

	ticker := time.NewTicker(b.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bank engine stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			b.Tick()
		case ev := <-b.doorCh:
			b.handleDoorClose(ev)
		}
	}
}
