package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// EventKind classifies entries of the event stream consumed by dashboards and viewers.
type EventKind string

const (
	EventHello  EventKind = "hello"
	EventUpdate EventKind = "update"
	EventError  EventKind = "error"
	EventTable  EventKind = "table"
	EventInfo   EventKind = "info"
)

const (
	EventKey      = "event"
	RouterKey     = "router"
	RoutingKey    = "routing"
	PheromonesKey = "pheromones"
)

var ErrMalformedEvent = errors.New("malformed event")

func EventAttr(kind EventKind) slog.Attr {
	return slog.String(EventKey, string(kind))
}

// NewEventHandler returns the handler producing the event stream: one JSON object per line,
// timestamps rendered with EventTimeFormat in loc.
func NewEventHandler(w io.Writer, routerId string, loc *time.Location, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 && attr.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, attr.Value.Time().In(loc).Format(EventTimeFormat))
			}
			return attr
		},
	}).WithAttrs([]slog.Attr{slog.String(RouterKey, routerId)})
}

// Event is a decoded entry of the event stream.
type Event struct {
	Time       string        `json:"time"`
	Level      string        `json:"level"`
	Msg        string        `json:"msg"`
	Router     string        `json:"router"`
	Kind       EventKind     `json:"event"`
	Routing    RouteSnapshot `json:"routing,omitempty"`
	Pheromones Snapshot      `json:"pheromones,omitempty"`
}

// DecodeEvent strictly decodes a single line of the event stream.
// Lines that are not JSON objects, carry unknown kinds or ill-typed tables are rejected.
func DecodeEvent(line []byte) (*Event, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return nil, fmt.Errorf("%w: not a json object", ErrMalformedEvent)
	}
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	switch ev.Kind {
	case EventHello, EventUpdate, EventError, EventTable, EventInfo:
	case "":
		ev.Kind = EventInfo
		if ev.Level == slog.LevelError.String() {
			ev.Kind = EventError
		}
	default:
		return nil, fmt.Errorf("%w: unknown event kind %q", ErrMalformedEvent, ev.Kind)
	}
	if err := ev.Pheromones.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return &ev, nil
}

// At parses the event timestamp in loc.
func (e *Event) At(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(EventTimeFormat, e.Time, loc)
}
