package reconciler

import (
	"bytes"
	"encoding/json"
)

// SchemaEqual reports whether two model schemas describe the same JSON
// document. Key order and whitespace are ignored. Schemas that are not
// valid JSON are compared as written.
func SchemaEqual(a, b string) bool {
	if a == b {
		return true
	}
	ca, okA := canonicalJSON(a)
	cb, okB := canonicalJSON(b)
	if !okA || !okB {
		return false
	}
	return bytes.Equal(ca, cb)
}

// canonicalJSON re-encodes s with sorted object keys and no whitespace.
func canonicalJSON(s string) ([]byte, bool) {
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return out, true
}
