package editor

import "errors"

// ErrValidation marks a malformed request or a path/command combination
// that validate rejects — never retried as-is by a caller.
var ErrValidation = errors.New("editor: validation error")
