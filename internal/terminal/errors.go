package terminal

import "errors"

// ErrBusy is returned when a run is requested against a session that
// already has one in flight.
var ErrBusy = errors.New("terminal: a command is already running")

// ErrNotFound names a lookup of a name that was never created (the
// create-on-first-use rule only applies to GetOrCreate). Registry.Get
// reports such a miss through its boolean result, not with this error.
var ErrNotFound = errors.New("terminal: session not found")

// ErrDead is returned when an operation is attempted against a session
// whose shell has exited and not yet been reinitialized.
var ErrDead = errors.New("terminal: shell is not running")
