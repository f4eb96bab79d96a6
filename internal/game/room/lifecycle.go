package room

// State is a room's position in its lifecycle.
type State int

const (
	// Uninitialized rooms exist in memory but the plugin has not created them yet.
	Uninitialized State = iota
	// Active rooms are initialized and waiting for their start condition.
	Active
	// Started rooms are running a round.
	Started
	// Over rooms have reached their terminal condition and will be migrated
	// and destroyed within the same tick.
	Over
	// Destroyed rooms have been removed from their registry.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Started:
		return "started"
	case Over:
		return "gameOver"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// State derives the lifecycle state from the room flags.
func (r *Room) State() State {
	switch {
	case r.destroyed:
		return Destroyed
	case !r.initialized:
		return Uninitialized
	case r.GameOver:
		return Over
	case r.Started:
		return Started
	}
	return Active
}

// MarkInitialized records that the plugin has created the room.
func (r *Room) MarkInitialized() {
	r.initialized = true
}

// MarkDestroyed records that the registry has dropped the room.
func (r *Room) MarkDestroyed() {
	r.destroyed = true
	r.emit = nil
}

// Start moves an active room into the started state and resets the per-round
// fields.
//
// Postcondition: Timer == 0 and CurrentPlayerIndex == 0.
func (r *Room) Start() {
	r.Started = true
	r.Timer = 0
	r.CurrentPlayerIndex = 0
}

// EndGame flags the room as finished. The scheduler migrates its players to
// the lobby and destroys it on the same tick.
func (r *Room) EndGame() {
	r.GameOver = true
}
