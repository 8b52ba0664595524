// Package codec encodes what the benchmark publishes.
//
// Codec marshals run reports; Compression packs result files before upload.
// Both are looked up by name so a command line flag can pick them.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// ErrUnknownCodec is returned by ByName for an unsupported name.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec encodes and decodes reports. Implementations are safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default encodes run reports unless a publisher is told otherwise.
var Default Codec = GoJSON{}

// ByName returns "json" or "go-json".
func ByName(name string) (Codec, error) {
	switch name {
	case "json":
		return JSON{}, nil
	case "", "go-json":
		return GoJSON{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// JSON writes indented JSON with encoding/json.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.MarshalIndent(v, "", "  ") }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }

// GoJSON writes the same output as JSON using github.com/goccy/go-json.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.MarshalIndent(v, "", "  ") }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (GoJSON) Name() string                       { return "go-json" }
