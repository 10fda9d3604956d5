// Package action exposes wallet operations as named actions with a uniform
// result shape, suitable for agents and HTTP callers alike.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/uratmangun/ai-custodial-wallet/logger"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ErrInvalidInput marks errors caused by the caller's input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownAction is returned for names nothing is registered under.
	ErrUnknownAction = errors.New("unknown action")
)

// Fields are the action-specific members of a result.
type Fields map[string]any

// Handler runs an action against raw JSON input.
type Handler func(ctx context.Context, input json.RawMessage) (Fields, error)

// Action is a named operation.
type Action struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Similes     []string `json:"similes,omitempty"`
	Handler     Handler  `json:"-"`
}

// Run executes the action and folds any error into the result.
func (a *Action) Run(ctx context.Context, input json.RawMessage) Result {
	fields, err := a.Handler(ctx, input)
	if err != nil {
		return Failure(err)
	}
	return Success(fields)
}

// Result is the outcome of an action. It marshals to a flat JSON object
// with "status" set to "success" or "error"; errors carry "message".
type Result struct {
	Status  string
	Message string
	Fields  Fields
	Err     error
}

func Success(fields Fields) Result {
	return Result{Status: StatusSuccess, Fields: fields}
}

func Failure(err error) Result {
	return Result{Status: StatusError, Message: err.Error(), Err: err}
}

// OK reports whether the action succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

func (r Result) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["status"] = r.Status
	if r.Status != StatusSuccess {
		m["message"] = r.Message
	}
	return json.Marshal(m)
}

// Registry holds actions by name.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
	order   []string
	log     *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger means slog.Default().
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{actions: make(map[string]*Action), log: log}
}

// Register adds a. Names must be unique.
func (r *Registry) Register(a *Action) error {
	if a == nil || a.Name == "" || a.Handler == nil {
		return errors.New("action needs a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[a.Name]; ok {
		return fmt.Errorf("action %s already registered", a.Name)
	}
	r.actions[a.Name] = a
	r.order = append(r.order, a.Name)
	return nil
}

// Get returns the action registered under name.
func (r *Registry) Get(name string) (*Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// List returns the registered actions in registration order.
func (r *Registry) List() []*Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Action, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.actions[name])
	}
	return out
}

// Run executes the named action.
func (r *Registry) Run(ctx context.Context, name string, input json.RawMessage) Result {
	a, ok := r.Get(name)
	if !ok {
		return Failure(fmt.Errorf("%w: %s", ErrUnknownAction, name))
	}
	res := a.Run(ctx, input)
	if res.OK() {
		r.log.Info("action completed", logger.Action(name))
	} else {
		r.log.Warn("action failed", logger.Action(name), logger.Error(res.Err))
	}
	return res
}

// decodeInput unmarshals input into v. Empty input and null decode as {}.
func decodeInput(input json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
