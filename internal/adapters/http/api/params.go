package api

import (
	"fmt"
	"net/url"
	"strings"
)

// flag parses an optional boolean query parameter. Absent or empty is false.
func flag(q url.Values, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(q.Get(name))) {
	case "", "0", "false", "f", "no", "n", "off":
		return false, nil
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, name)
	}
}
