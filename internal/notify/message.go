// Package notify delivers toasts and live view events to connected clients.
package notify

import "encoding/json"

// Message types sent over the live view channel.
const (
	TypeToast    = "toast"
	TypeLoading  = "loading"
	TypeResults  = "results"
	TypeNotFound = "not_found"
	TypeState    = "state"
	TypeError    = "error"
	TypeDropped  = "messages_dropped"
)

// Message is the envelope of every outbound live view frame.
type Message struct {
	Type    string `json:"type"`
	View    string `json:"view,omitempty"`
	Seq     uint64 `json:"seq,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Encode marshals m, falling back to an error frame if the payload cannot be encoded.
func Encode(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		b, _ = json.Marshal(Message{Type: TypeError, Payload: map[string]string{"error": "encode failed"}})
	}
	return b
}
