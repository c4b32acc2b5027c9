// Package xjson is the single import site for JSON encoding. Checkpoint
// records and search documents both round-trip through it, so swapping
// the underlying codec is a one-file change.
package xjson

import (
	json "github.com/goccy/go-json"
)

func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
