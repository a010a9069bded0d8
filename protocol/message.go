// Package protocol implements the datagram wire format exchanged between neighbors.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/antnet/antnet/state"
)

type MsgType string

const (
	TypeHello  MsgType = "hello"
	TypeUpdate MsgType = "update"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMalformed   = errors.New("malformed message")
)

// Message is either a hello (discovery) or an update carrying the sender's pheromone table.
type Message interface {
	Type() MsgType
	From() string
}

type Hello struct {
	Source string
}

type Update struct {
	Source     string
	Pheromones state.Snapshot
}

func (h *Hello) Type() MsgType  { return TypeHello }
func (h *Hello) From() string   { return h.Source }
func (u *Update) Type() MsgType { return TypeUpdate }
func (u *Update) From() string  { return u.Source }

type envelope struct {
	Type       MsgType         `json:"type"`
	Source     string          `json:"source"`
	Pheromones json.RawMessage `json:"pheromones,omitempty"`
}

func Marshal(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *Hello:
		return json.Marshal(envelope{Type: TypeHello, Source: m.Source})
	case *Update:
		pheromones := m.Pheromones
		if pheromones == nil {
			pheromones = state.Snapshot{}
		}
		raw, err := json.Marshal(pheromones)
		if err != nil {
			return nil, err
		}
		return json.Marshal(envelope{Type: TypeUpdate, Source: m.Source, Pheromones: raw})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}
}

// Unmarshal strictly decodes a datagram. The pheromone table must be a mapping of
// destination to a mapping of next hop to a finite, non-negative number.
func Unmarshal(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch env.Type {
	case TypeHello, TypeUpdate:
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnknownType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if env.Source == "" {
		return nil, fmt.Errorf("%w: missing source", ErrMalformed)
	}
	if err := state.HostValidator(env.Source); err != nil {
		return nil, fmt.Errorf("%w: source: %w", ErrMalformed, err)
	}

	if env.Type == TypeHello {
		return &Hello{Source: env.Source}, nil
	}

	if len(env.Pheromones) == 0 {
		return nil, fmt.Errorf("%w: update without pheromones", ErrMalformed)
	}
	var pheromones state.Snapshot
	if err := json.Unmarshal(env.Pheromones, &pheromones); err != nil {
		return nil, fmt.Errorf("%w: pheromones: %w", ErrMalformed, err)
	}
	if pheromones == nil {
		return nil, fmt.Errorf("%w: pheromones must be an object", ErrMalformed)
	}
	if err := pheromones.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &Update{Source: env.Source, Pheromones: pheromones}, nil
}
