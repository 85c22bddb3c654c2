package utils

import (
	"encoding/json"
	"io"
	"net/http"
)

// Largest JSON body accepted by DecodeJSONRequest
const MaxJSONBodyBytes = 1 << 20

// DecodeJSONRequest decodes a single JSON value from the request body into v.
// Usage: var data MyType; if err := DecodeJSONRequest(r, &data); err != nil { ... }
func DecodeJSONRequest(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, MaxJSONBodyBytes)).Decode(v)
}
