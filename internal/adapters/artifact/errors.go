package artifact

import "errors"

// Sentinel kinds for artifact store errors.
var (
	ErrStoreUnavailable = errors.New("artifact store unavailable")
	ErrNotFound         = errors.New("artifact not found")
)
