package utils

import (
	"fmt"
	"net/http"
	"strconv"
)

// ParseLimit reads the "limit" query parameter, defaulting to DefaultListLimit
// and capping at MaxListLimit.
func ParseLimit(r *http.Request) (int, error) {
	str := r.URL.Query().Get("limit")
	if str == "" {
		return DefaultListLimit, nil
	}
	limit, err := strconv.Atoi(str)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q, must be a positive integer", str)
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, nil
}
