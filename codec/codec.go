// Package codec encodes the JSON documents around a store: NOTES.json and
// the info and verification reports printed by the command line tool.
//
// Every codec emits plain JSON, so a document written by one decodes with
// any other.
package codec

import (
	"encoding/json"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// Codec encodes and decodes documents. Implementations are safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

type goJSON struct{ indent bool }

func (c goJSON) Marshal(v any) ([]byte, error) {
	if c.indent {
		return gojson.MarshalIndent(v, "", "  ")
	}
	return gojson.Marshal(v)
}

func (goJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

func (c goJSON) Name() string {
	if c.indent {
		return "go-json"
	}
	return "go-json-compact"
}

type stdJSON struct{}

func (stdJSON) Marshal(v any) ([]byte, error)      { return json.MarshalIndent(v, "", "  ") }
func (stdJSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (stdJSON) Name() string                       { return "json" }

var (
	// GoJSON writes indented JSON with github.com/goccy/go-json.
	GoJSON Codec = goJSON{indent: true}
	// Compact writes single-line JSON with github.com/goccy/go-json.
	Compact Codec = goJSON{}
	// Std writes indented JSON with encoding/json.
	Std Codec = stdJSON{}

	// Default encodes NOTES.json.
	Default = GoJSON
)

// ByName returns the codec called name. The empty name selects Default.
func ByName(name string) (Codec, error) {
	switch name {
	case "":
		return Default, nil
	case GoJSON.Name():
		return GoJSON, nil
	case Compact.Name():
		return Compact, nil
	case Std.Name():
		return Std, nil
	}
	return nil, fmt.Errorf("codec: unknown codec %q", name)
}
