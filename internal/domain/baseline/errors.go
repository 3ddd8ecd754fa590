package baseline

import "errors"

// ErrEmptyBaseline is returned when there are no historical events to build a baseline from.
var ErrEmptyBaseline = errors.New("baseline: no historical events")
