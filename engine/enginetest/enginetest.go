// Package enginetest provides a recording Engine for builder tests.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/gears/bridge"
	"github.com/kbukum/gears/codec"
	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/operation"
	"github.com/kbukum/gears/scope"
)

// Primitive names used in Calls and FailOn.
const (
	Create    = "create"
	Append    = "append"
	Run       = "run"
	Register  = "register"
	Destroy   = "destroy"
	Execute   = "execute"
	ConfigGet = "config_get"
	Log       = "log"
)

// Call is one recorded primitive invocation.
type Call struct {
	Primitive string
	Handle    engine.Handle
	Args      []string
}

// LogEntry is one message passed to Log.
type LogEntry struct {
	Level   logger.Level
	Message string
}

// Pipeline is what the engine knows about one created pipeline.
type Pipeline struct {
	Reader      string
	Description string
	Scope       *scope.Scope
	Steps       [][]byte
	Destroyed   bool
}

type registration struct {
	handle engine.Handle
	hooks  engine.Hooks
	once   sync.Once
}

// Engine records every primitive call. Failures and results are scripted.
type Engine struct {
	mu            sync.Mutex
	calls         []Call
	pipelines     map[engine.Handle]*Pipeline
	registrations map[string]*registration
	failures      map[string]error
	logs          []LogEntry
	next          int

	// RunResult is returned by Run. A nil value returns an empty result.
	RunResult *engine.Result
	// ExecuteResult is returned by Execute.
	ExecuteResult any
	// Settings backs ConfigGet.
	Settings map[string]string
	// Tag is returned by Hashtag.
	Tag string
}

var _ engine.Engine = (*Engine)(nil)

// New returns an empty recording engine.
func New() *Engine {
	return &Engine{
		pipelines:     make(map[engine.Handle]*Pipeline),
		registrations: make(map[string]*registration),
		failures:      make(map[string]error),
		Settings:      make(map[string]string),
		Tag:           "{06S}",
	}
}

// FailOn makes every later call to primitive return err.
func (e *Engine) FailOn(primitive string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[primitive] = err
}

// Calls returns a copy of the recorded calls.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Count returns how many times primitive was called.
func (e *Engine) Count(primitive string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c.Primitive == primitive {
			n++
		}
	}
	return n
}

// Logs returns the messages passed to Log.
func (e *Engine) Logs() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]LogEntry(nil), e.logs...)
}

// Pipeline returns the state of h, or nil.
func (e *Engine) Pipeline(h engine.Handle) *Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipelines[h]
}

// Operations decodes the steps appended to h.
func (e *Engine) Operations(h engine.Handle) ([]operation.Operation, error) {
	p := e.Pipeline(h)
	if p == nil {
		return nil, errors.NotFound("pipeline", string(h))
	}
	ops := make([]operation.Operation, 0, len(p.Steps))
	for _, step := range p.Steps {
		op, err := operation.Decode(step)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (e *Engine) record(primitive string, h engine.Handle, args ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Primitive: primitive, Handle: h, Args: args})
	return e.failures[primitive]
}

func (e *Engine) Create(_ context.Context, reader, description string, sc *scope.Scope) (engine.Handle, error) {
	if err := e.record(Create, "", reader); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	h := engine.Handle(fmt.Sprintf("pipeline-%d", e.next))
	e.pipelines[h] = &Pipeline{Reader: reader, Description: description, Scope: sc}
	return h, nil
}

func (e *Engine) Append(_ context.Context, h engine.Handle, step []byte) error {
	if err := e.record(Append, h); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pipelines[h]
	if !ok || p.Destroyed {
		return errors.NotFound("pipeline", string(h))
	}
	p.Steps = append(p.Steps, step)
	return nil
}

func (e *Engine) Run(_ context.Context, h engine.Handle, r engine.Reader) (*engine.Result, error) {
	if err := e.record(Run, h, r.Name()); err != nil {
		return nil, err
	}
	if e.RunResult == nil {
		return &engine.Result{}, nil
	}
	return e.RunResult, nil
}

// Register records the registration and runs the OnRegistered hook through a
// bridge, as an engine would after acknowledging it.
func (e *Engine) Register(ctx context.Context, h engine.Handle, r engine.Reader, mode engine.Mode, hooks engine.Hooks) (string, error) {
	if err := e.record(Register, h, r.Name(), mode.String()); err != nil {
		return "", err
	}
	p := e.Pipeline(h)
	if p == nil {
		return "", errors.NotFound("pipeline", string(h))
	}
	if err := bridge.New(p.Scope).Hook(ctx, scope.NewSlot(0), hooks.OnRegistered); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	id := fmt.Sprintf("%s-reg-%d", h, len(e.registrations)+1)
	e.registrations[id] = &registration{handle: h, hooks: hooks}
	return id, nil
}

// Unregister tears down a registration, running OnUnregistered at most once.
func (e *Engine) Unregister(ctx context.Context, id string) error {
	e.mu.Lock()
	reg, ok := e.registrations[id]
	p := e.pipelines[reg.handleOrEmpty()]
	e.mu.Unlock()
	if !ok || p == nil {
		return errors.NotFound("registration", id)
	}
	var err error
	reg.once.Do(func() {
		err = bridge.New(p.Scope).Hook(ctx, scope.NewSlot(0), reg.hooks.OnUnregistered)
	})
	return err
}

func (r *registration) handleOrEmpty() engine.Handle {
	if r == nil {
		return ""
	}
	return r.handle
}

func (e *Engine) Destroy(_ context.Context, h engine.Handle) error {
	if err := e.record(Destroy, h); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pipelines[h]; ok {
		p.Destroyed = true
	}
	return nil
}

func (e *Engine) Execute(_ context.Context, args ...string) (any, error) {
	if err := e.record(Execute, "", args...); err != nil {
		return nil, err
	}
	return e.ExecuteResult, nil
}

func (e *Engine) ConfigGet(_ context.Context, key string) (string, bool, error) {
	if err := e.record(ConfigGet, "", key); err != nil {
		return "", false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.Settings[key]
	return v, ok, nil
}

func (e *Engine) Log(_ context.Context, level logger.Level, msg string) {
	_ = e.record(Log, "", level.String(), msg)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logs = append(e.logs, LogEntry{Level: level, Message: msg})
}

func (e *Engine) Hashtag() string { return e.Tag }

// Frames encodes records as one ordered stream, the shape Run results take.
func Frames(records ...any) ([][]byte, error) {
	enc := codec.NewEncoder()
	frames := make([][]byte, 0, len(records))
	for _, r := range records {
		f, err := enc.Encode(r, false)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Reader is a named reader with no records.
type Reader string

func (r Reader) Name() string { return string(r) }
