package websocket

import "time"

// Envelope is the frame written to the browser. Type tells the client how to read Payload.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
