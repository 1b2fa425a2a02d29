// Package testutil provides small helpers shared by the cache and client
// packages' tests.
//
// AsJSON/ParseJSON round-trip a value through encoding/json so structured
// test expectations (e.g. int literals in Go test code vs float64 from
// json.Unmarshal) compare equal with reflect.DeepEqual, and both panic on
// malformed input since they're only ever used in tests.
package testutil

import "encoding/json"

// AsJSON marshals v and unmarshals the result back into interface{}, so it
// compares equal to a value obtained by decoding a JSON literal via
// ParseJSON regardless of v's original concrete Go type.
func AsJSON(v interface{}) interface{} {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return ParseJSON(string(buf))
}

// ParseJSON decodes a JSON literal into interface{}.
func ParseJSON(s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}
