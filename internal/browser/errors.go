package browser

import "errors"

// ErrPageDead is returned when the active page's target has closed or
// crashed; the dispatcher recreates the page and surfaces this to the
// caller for the failing action only.
var ErrPageDead = errors.New("browser: page is dead")

// ErrBrowserDead is returned when the underlying browser process itself is
// gone and a full restart is required.
var ErrBrowserDead = errors.New("browser: browser process is dead")

// ErrNotReady names the state of a manager that has not finished
// initializing. ExecuteAction does not return it: it initializes the
// manager or waits for a concurrent initialization to finish instead.
var ErrNotReady = errors.New("browser: not ready")
