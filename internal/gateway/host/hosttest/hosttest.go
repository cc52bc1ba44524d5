// Package hosttest provides fakes for the relay host contract used across
// gateway tests.
package hosttest

import (
	"sync"

	"github.com/uyjulian/naoka-ng/internal/gateway/host"
)

// RaisedEvent records one RaiseEvent call on the fake host.
type RaisedEvent struct {
	Targets []int
	Sender  int
	Code    byte
	Params  map[byte]any
}

// PropertyWrite records one SetProperties call on the fake host.
type PropertyWrite struct {
	ActorNumber int
	Properties  map[string]any
	Broadcast   bool
}

// Removal records one RemoveActor call on the fake host.
type Removal struct {
	ActorNumber int
	Reason      string
}

// Fake implements host.Host and records every primitive the gateway invokes.
type Fake struct {
	mu sync.Mutex

	MasterID int
	Actors   []int

	Raised   []RaisedEvent
	Writes   []PropertyWrite
	Removals []Removal
}

// NewFake returns a fake host with the given present actor numbers.
func NewFake(actors ...int) *Fake {
	master := 0
	if len(actors) > 0 {
		master = actors[0]
	}
	return &Fake{MasterID: master, Actors: actors}
}

// RaiseEvent records the synthesized event.
func (f *Fake) RaiseEvent(targets []int, sender int, code byte, params map[byte]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make([]int, len(targets))
	copy(copied, targets)
	f.Raised = append(f.Raised, RaisedEvent{Targets: copied, Sender: sender, Code: code, Params: params})
	return nil
}

// SetProperties records the property write.
func (f *Fake) SetProperties(actorNumber int, props map[string]any, broadcast bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, PropertyWrite{ActorNumber: actorNumber, Properties: props, Broadcast: broadcast})
	return nil
}

// RemoveActor records the forced disconnect.
func (f *Fake) RemoveActor(actorNumber int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removals = append(f.Removals, Removal{ActorNumber: actorNumber, Reason: reason})
	return nil
}

// MasterClientID returns the configured master actor number.
func (f *Fake) MasterClientID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MasterID
}

// ActorNumbers returns the configured present actors.
func (f *Fake) ActorNumbers() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make([]int, len(f.Actors))
	copy(copied, f.Actors)
	return copied
}

// EventsWithCode returns the recorded events matching code.
func (f *Fake) EventsWithCode(code byte) []RaisedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RaisedEvent
	for _, evt := range f.Raised {
		if evt.Code == code {
			out = append(out, evt)
		}
	}
	return out
}

// Call outcome values recorded by CallRecorder.
const (
	OutcomeNone     = "none"
	OutcomeContinue = "continue"
	OutcomeFail     = "fail"
	OutcomeCancel   = "cancel"
	OutcomeMultiple = "multiple"
)

// CallRecorder implements host.Call and tracks the terminal action taken.
// A second terminal action is recorded as OutcomeMultiple, which is a
// protocol violation against the host.
type CallRecorder struct {
	outcome   string
	Reason    string
	terminals int
}

var _ host.Call = (*CallRecorder)(nil)

// NewCallRecorder returns a recorder with no terminal action taken.
func NewCallRecorder() *CallRecorder {
	return &CallRecorder{outcome: OutcomeNone}
}

// Continue records a continue terminal action.
func (c *CallRecorder) Continue() { c.record(OutcomeContinue) }

// Fail records a fail terminal action with the peer-facing reason.
func (c *CallRecorder) Fail(reason string) {
	c.Reason = reason
	c.record(OutcomeFail)
}

// Cancel records a cancel terminal action.
func (c *CallRecorder) Cancel() { c.record(OutcomeCancel) }

// Outcome returns which terminal action was taken.
func (c *CallRecorder) Outcome() string {
	if c.terminals > 1 {
		return OutcomeMultiple
	}
	return c.outcome
}

func (c *CallRecorder) record(outcome string) {
	c.terminals++
	if c.terminals == 1 {
		c.outcome = outcome
	}
}
