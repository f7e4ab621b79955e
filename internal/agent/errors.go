package agent

import "errors"

// ErrStoreUnavailable is returned when the checkpoint store cannot load or
// save a thread. Callers must surface it instead of answering without state.
var ErrStoreUnavailable = errors.New("checkpoint store unavailable")
