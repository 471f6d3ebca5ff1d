package event

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// MessageTransmitter is the fan-out sink the pipeline pushes events
// through for observability. Each trader holds one; implementations
// must be safe for concurrent use since multiple traders may share a
// transmitter.
type MessageTransmitter interface {
	Send(Event)
}

// ChannelTransmitter is an in-process transmitter: it forwards every event
// onto a buffered channel for a consumer (typically a logger goroutine)
// to drain. A full channel drops the event rather than blocking the
// trader that produced it — observability never holds up the pipeline.
type ChannelTransmitter struct {
	events chan Event
}

// NewChannelTransmitter allocates a ChannelTransmitter with the given
// buffer size.
func NewChannelTransmitter(buffer int) *ChannelTransmitter {
	return &ChannelTransmitter{events: make(chan Event, buffer)}
}

func (c *ChannelTransmitter) Send(e Event) {
	select {
	case c.events <- e:
	default:
	}
}

// Events returns the read-only channel consumers drain.
func (c *ChannelTransmitter) Events() <-chan Event { return c.events }

// Close closes the underlying channel. Callers must ensure no further
// Send calls happen afterwards.
func (c *ChannelTransmitter) Close() { close(c.events) }

// wireEvent is the serialisable envelope both JSON and msgpack
// transmitters encode, since Event itself is an interface.
type wireEvent struct {
	Kind    Kind `json:"kind" msgpack:"kind"`
	Payload any  `json:"payload" msgpack:"payload"`
}

// JSONTransmitter encodes each event as a newline-delimited JSON object
// onto an io.Writer. Writes are serialised with a mutex since io.Writer
// is not inherently safe for concurrent callers.
type JSONTransmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONTransmitter(w io.Writer) *JSONTransmitter {
	return &JSONTransmitter{w: w}
}

func (t *JSONTransmitter) Send(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = json.NewEncoder(t.w).Encode(wireEvent{Kind: e.Kind(), Payload: e})
}

// MsgpackTransmitter is a second, alternate wire-format transmitter
// exercising a binary serialisation path for the same Event sum type.
type MsgpackTransmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewMsgpackTransmitter(w io.Writer) *MsgpackTransmitter {
	return &MsgpackTransmitter{w: w}
}

func (t *MsgpackTransmitter) Send(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = msgpack.NewEncoder(t.w).Encode(wireEvent{Kind: e.Kind(), Payload: e})
}
