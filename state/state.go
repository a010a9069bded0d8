package state

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
)

// Env can be read from any Goroutine
type Env struct {
	Config
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger
	Clock   clock.Clock
}

// State is the mutable routing state shared by every task of a node.
// Each table guards itself, callers never need an outer lock.
type State struct {
	*Env
	Pheromones *PheromoneStore
	Routes     *RoutingTable
}

func NewState(env *Env) *State {
	if env.Clock == nil {
		env.Clock = clock.New()
	}
	return &State{
		Env:        env,
		Pheromones: NewPheromoneStore(env.PheromoneInit),
		Routes:     NewRoutingTable(env.Ip, env.Clock.Now()),
	}
}

// Event writes an entry to the event stream. Error events are logged at error level.
func (e *Env) Event(kind EventKind, msg string, args ...any) {
	level := slog.LevelInfo
	if kind == EventError {
		level = slog.LevelError
	}
	e.Log.Log(context.Background(), level, msg, append([]any{EventAttr(kind)}, args...)...)
}

// DebugEvent writes an entry to the event stream at debug level.
func (e *Env) DebugEvent(kind EventKind, msg string, args ...any) {
	e.Log.Log(context.Background(), slog.LevelDebug, msg, append([]any{EventAttr(kind)}, args...)...)
}
