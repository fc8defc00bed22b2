package message

import "encoding/json"

type Type string

const (
	// Event is a message event relayed by the game page.
	Event Type = "event"
	// Frame asks the page to render the game iframe.
	Frame Type = "frame"
	// Post asks the page to postMessage into the iframe.
	Post Type = "post"
	// Error asks the page to show the fallback message.
	Error Type = "error"
)

// Message is a frame on the embed bridge. Which fields are set depends on
// the type.
type Message struct {
	Type   Type            `json:"type"`
	ID     string          `json:"id,omitempty"`
	Src    string          `json:"src,omitempty"`
	Target string          `json:"target,omitempty"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Msg    string          `json:"msg,omitempty"`
}
