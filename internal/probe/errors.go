package probe

import "errors"

// ErrInvalidInterval is returned by the waiter when the poll interval is not positive.
var ErrInvalidInterval = errors.New("probe: check interval must be positive")

// ErrTransportUnavailable is reported when no queue transport is configured.
var ErrTransportUnavailable = errors.New("probe: queue transport unavailable")
