package ws

import (
	"github.com/liushun89/zooterrain/internal/observer"
)

// Frame is the outbound wire envelope. Type mirrors the observer's message
// kind so browsers can switch on it directly.
type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const frameError = "error"

func frameFor(msg observer.Message) Frame {
	return Frame{Type: string(msg.Kind()), Payload: msg}
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Request is an inbound client frame.
type Request struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

const (
	// ReqGetData asks for the (capped) data of a single node; the reply is
	// a data frame sent to the requesting client only.
	ReqGetData = "get_data"
)
