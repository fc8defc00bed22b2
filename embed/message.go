package embed

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// Version of the envelope format.
	Version = 1

	KindLoaded  = "loaded"
	KindContext = "context"
)

var ErrUnsupportedVersion = errors.New("unsupported envelope version")

// Envelope is the versioned message shape exchanged with the embedded game.
type Envelope struct {
	V       int             `json:"v"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// inbound covers both the envelope and the bare {loaded: ...} object.
type inbound struct {
	V      json.RawMessage `json:"v"`
	Kind   string          `json:"kind"`
	Loaded json.RawMessage `json:"loaded"`
}

// IsLoaded reports whether data is a loaded signal. A truthy loaded property
// always counts; the envelope version is only checked when loaded is absent.
// Anything that is not a JSON object decodes to false without error, which
// matches reading a property off a primitive in the browser.
func IsLoaded(data json.RawMessage) (bool, error) {
	if len(data) == 0 || data[0] != '{' {
		return false, nil
	}
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return false, fmt.Errorf("decode message: %w", err)
	}
	if truthy(msg.Loaded) {
		return true, nil
	}
	if len(msg.Loaded) > 0 || len(msg.V) == 0 {
		return false, nil
	}
	var v int
	if err := json.Unmarshal(msg.V, &v); err != nil || v != Version {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedVersion, msg.V)
	}
	return msg.Kind == KindLoaded, nil
}

func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// Format selects how the context is serialized before it is posted.
type Format string

const (
	FormatEnvelope Format = "envelope"
	FormatLegacy   Format = "legacy"
)

// Encode serializes the context into the string posted to the frame.
func (f Format) Encode(ctx Context) (string, error) {
	payload, err := json.Marshal(ctx)
	if err != nil {
		return "", err
	}
	if f == FormatLegacy {
		return string(payload), nil
	}
	data, err := json.Marshal(Envelope{V: Version, Kind: KindContext, Payload: payload})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
