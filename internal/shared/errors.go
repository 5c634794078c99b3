package shared

import "errors"

// ErrSourceUnavailable indicates the record store could not be read.
var ErrSourceUnavailable = errors.New("record source unavailable")
