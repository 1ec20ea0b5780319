package pipeline

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"
)

// Stage is a step of one enhancement request.
type Stage string

// State constants double as statekit.StateID values.
const (
	StageIdle       = "idle"
	StageComposing  = "composing"
	StageInvoking   = "invoking"
	StageRecovering = "recovering"
	StageValidating = "validating"
	StageCompleted  = "completed"
	StageFallback   = "fallback"
)

const (
	evCompose  = "compose"
	evInvoke   = "invoke"
	evRecover  = "recover"
	evValidate = "validate"
	evComplete = "complete"
	evFail     = "fail"
)

// Event reports a stage transition to an Observer.
type Event struct {
	RequestID string    `json:"request_id"`
	Stage     Stage     `json:"stage"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail,omitempty"`
}

// Observer receives stage transitions in order. It runs on the request
// goroutine and must not block.
type Observer func(Event)

type stageContext struct {
	RequestID string
}

// tracker drives the per-request stage machine. Events that are not valid
// for the current stage are ignored, so completed and fallback are terminal.
type tracker struct {
	interpreter *statekit.Interpreter[stageContext]
	requestID   string
	observer    Observer
}

func newTracker(requestID string, observer Observer) (*tracker, error) {
	builder := statekit.NewMachine[stageContext]("enhance-request").
		WithInitial(statekit.StateID(StageIdle)).
		WithContext(stageContext{RequestID: requestID})

	builder.State(StageIdle).
		On(evCompose).Target(StageComposing).
		On(evFail).Target(StageFallback).
		Done()
	builder.State(StageComposing).
		On(evInvoke).Target(StageInvoking).
		On(evFail).Target(StageFallback).
		Done()
	builder.State(StageInvoking).
		On(evRecover).Target(StageRecovering).
		On(evFail).Target(StageFallback).
		Done()
	builder.State(StageRecovering).
		On(evValidate).Target(StageValidating).
		On(evFail).Target(StageFallback).
		Done()
	builder.State(StageValidating).
		On(evComplete).Target(StageCompleted).
		On(evFail).Target(StageFallback).
		Done()
	builder.State(StageCompleted).Done()
	builder.State(StageFallback).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build stage machine: %w", err)
	}
	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &tracker{interpreter: interpreter, requestID: requestID, observer: observer}, nil
}

func (t *tracker) current() Stage {
	if t == nil {
		return StageIdle
	}
	return Stage(t.interpreter.State().Value)
}

// send fires event and notifies the observer when the stage changed.
func (t *tracker) send(event, detail string) {
	if t == nil {
		return
	}
	before := t.current()
	t.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := t.current()
	if before == after || t.observer == nil {
		return
	}
	t.observer(Event{RequestID: t.requestID, Stage: after, At: time.Now(), Detail: detail})
}

func (t *tracker) terminal() bool {
	s := t.current()
	return s == StageCompleted || s == StageFallback
}
