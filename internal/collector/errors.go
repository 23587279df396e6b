package collector

import "errors"

// ErrCollectorDone is returned when a collector is used after Done.
var ErrCollectorDone = errors.New("collector is done")
