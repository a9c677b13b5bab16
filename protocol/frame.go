// Package protocol implements the chat wire format: method frames sent by the client,
// reply and event frames sent by the server, and their interpretation.
package protocol

import (
	"beam-chat/errors"
	"bytes"
	"encoding/json"
	"fmt"
)

type FrameType string

const (
	MethodFrame FrameType = "method"
	ReplyFrame  FrameType = "reply"
	EventFrame  FrameType = "event"
)

// Method names understood by the chat server.
const (
	AuthMethod      = "auth"
	MsgMethod       = "msg"
	GiveawayMethod  = "giveaway:start"
	MessageSentText = "Message sent."
)

// Method is an outbound call. ID is the per-connection request id.
type Method struct {
	Type      FrameType `json:"type"`
	Method    string    `json:"method"`
	Arguments []any     `json:"arguments"`
	ID        int       `json:"id"`
}

func NewMethod(id int, name string, args ...any) Method {
	if args == nil {
		args = []any{}
	}
	return Method{Type: MethodFrame, Method: name, Arguments: args, ID: id}
}

func (m Method) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Heartbeat is the empty keep-alive frame.
var Heartbeat = []byte{}

// Reply answers a method call.
type Reply struct {
	ID      *int
	IsError bool
	Error   any
	Data    any
}

// Event is pushed by the server.
type Event struct {
	Name string
	Data any
}

// Frame is the tagged union of inbound frames: exactly one of Reply and Event is set.
type Frame struct {
	Type  FrameType
	Reply *Reply
	Event *Event
}

type rawFrame struct {
	Type  FrameType       `json:"type"`
	Event string          `json:"event"`
	ID    *int            `json:"id"`
	Error json.RawMessage `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// ParseFrame decodes one transport message. Numbers inside payloads are kept as json.Number
// so identifiers survive untouched.
func ParseFrame(raw []byte) (Frame, error) {
	var rf rawFrame
	if err := json.Unmarshal(raw, &rf); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	data, err := decodeAny(rf.Data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: data: %v", errors.ErrMalformedFrame, err)
	}
	switch rf.Type {
	case ReplyFrame:
		replyErr, err := decodeAny(rf.Error)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: error: %v", errors.ErrMalformedFrame, err)
		}
		return Frame{Type: ReplyFrame, Reply: &Reply{
			ID:      rf.ID,
			IsError: isSet(replyErr),
			Error:   replyErr,
			Data:    data,
		}}, nil
	case EventFrame:
		if rf.Event == "" {
			return Frame{}, fmt.Errorf("%w: event without name", errors.ErrMalformedFrame)
		}
		return Frame{Type: EventFrame, Event: &Event{Name: rf.Event, Data: data}}, nil
	default:
		return Frame{}, fmt.Errorf("%w: unknown frame type %q", errors.ErrMalformedFrame, rf.Type)
	}
}

func decodeAny(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// isSet treats null and false as "no error".
func isSet(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	default:
		return true
	}
}
