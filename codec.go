package rewind

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

type (
	// Codec turns snapshots into the string form handed to a Storage, and
	// back into generic values for sanitizing
	Codec interface {
		Marshal(v any) ([]byte, error)
		Unmarshal(data []byte, v any) error
	}

	// JSONCodec encodes snapshots as JSON. It is the default Codec
	JSONCodec struct{}

	// genericDecoder is implemented by Codecs whose plain Unmarshal into an
	// untyped value would lose information, such as JSON numbers beyond the
	// precision of a float64
	genericDecoder interface {
		UnmarshalGeneric(data []byte) (any, error)
	}

	// YAMLCodec encodes snapshots as YAML documents
	YAMLCodec struct{}

	// TOMLCodec encodes snapshots as TOML documents. TOML has no null, so
	// pointer and interface values that are nil are left out entirely
	TOMLCodec struct{}
)

var errTrailingData = errors.New("unexpected data after snapshot")

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// UnmarshalGeneric decodes data into untyped values, keeping numbers as
// json.Number so they re-encode exactly
func (JSONCodec) UnmarshalGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var res any
	if err := dec.Decode(&res); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return res, nil
}

func (YAMLCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func (TOMLCodec) Marshal(v any) ([]byte, error) {
	return toml.Marshal(v)
}

func (TOMLCodec) Unmarshal(data []byte, v any) error {
	return toml.Unmarshal(data, v)
}
