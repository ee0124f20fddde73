// Package activation owns whether the assistant is listening and the
// platform policy for how that can change.
package activation

import (
	"context"
	"sync"
	"time"
)

// State of the listening pipeline.
type State int

const (
	StateInactive State = iota
	StateListening
	StateError
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateListening:
		return "listening"
	case StateError:
		return "error"
	}
	return "invalid"
}

// Mode is the platform activation policy, fixed at construction.
type Mode int

const (
	// ModeToggle devices expose a mute control; listening can be switched
	// on and off at will.
	ModeToggle Mode = iota
	// ModeAlwaysOn devices (TV / living-room form factors driven by a
	// remote) cannot be manually silenced; only shutdown stops them.
	ModeAlwaysOn
)

func (m Mode) String() string {
	if m == ModeAlwaysOn {
		return "always_on"
	}
	return "toggle"
}

// Capabilities answers the platform questions the controller needs.
// Implementations live with the daemon wiring; tests inject fakes.
type Capabilities interface {
	AlwaysOnDevice() bool
	SupportsVoiceInput() bool
}

// Utterance is one span of recognized speech.
type Utterance struct {
	Text       string
	Confidence float64
}

// Recognizer produces utterances from the platform audio pipeline. Listen
// blocks until something is heard or ctx ends.
type Recognizer interface {
	Listen(ctx context.Context) (*Utterance, error)
}

// Controller is the activation state machine. All state moves through its
// methods; callers observe changes through the subscriptions.
type Controller struct {
	mu    sync.Mutex
	state State
	mode  Mode
	wake  WakeConfig

	caps Capabilities
	rec  Recognizer

	stateSubs    []func(prev, next State)
	wakeSubs     []func(word, remainder string)
	activitySubs []func()
}

// NewController queries caps once to fix the activation mode. Always-on
// devices get wake-word detection force-enabled so they can be addressed
// at all.
func NewController(caps Capabilities, rec Recognizer) *Controller {
	c := &Controller{
		state: StateInactive,
		caps:  caps,
		rec:   rec,
		wake:  defaultWakeConfig(),
	}
	if deviceAlwaysOn(caps) {
		c.mode = ModeAlwaysOn
		c.wake.Enabled = true
	}
	return c
}

// deviceAlwaysOn treats a panicking provider as a plain toggle device; the
// capability query must never take the controller down.
func deviceAlwaysOn(caps Capabilities) (on bool) {
	defer func() {
		if recover() != nil {
			on = false
		}
	}()
	return caps != nil && caps.AlwaysOnDevice()
}

func supportsVoice(caps Capabilities) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return caps != nil && caps.SupportsVoiceInput()
}

// Mode reports the fixed activation policy.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// State reports the current listening state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether the controller is listening.
func (c *Controller) Active() bool {
	return c.State() == StateListening
}

// Enable starts listening. A platform without voice input moves the
// controller to StateError and reports false; enabling an already
// listening controller is a no-op success.
func (c *Controller) Enable() bool {
	c.mu.Lock()

	if c.state == StateListening {
		c.mu.Unlock()
		return true
	}

	if !supportsVoice(c.caps) {
		prev := c.state
		c.state = StateError
		subs := c.stateSubs
		c.mu.Unlock()
		emitState(subs, prev, StateError)
		return false
	}

	prev := c.state
	c.state = StateListening
	subs := c.stateSubs
	c.mu.Unlock()

	emitState(subs, prev, StateListening)
	return true
}

// Disable stops listening. Always-on devices refuse: they can only be
// silenced by shutting the platform down.
func (c *Controller) Disable() bool {
	c.mu.Lock()

	if c.mode == ModeAlwaysOn {
		c.mu.Unlock()
		return false
	}
	if c.state != StateListening {
		c.mu.Unlock()
		return true
	}

	c.state = StateInactive
	subs := c.stateSubs
	c.mu.Unlock()

	emitState(subs, StateListening, StateInactive)
	return true
}

// Toggle flips the listening state on toggle-capable devices and reports
// the resulting active state. On any other mode it reports the current
// active state without changing anything; this quirk is intentional.
func (c *Controller) Toggle() bool {
	if c.Mode() != ModeToggle {
		return c.Active()
	}
	if c.Active() {
		c.Disable()
		return c.Active()
	}
	c.Enable()
	return c.Active()
}

// ListenForCommand waits up to timeout for one utterance from the
// recognizer. A nil utterance with a nil error means the window expired
// with nothing heard. The activation state is not touched.
func (c *Controller) ListenForCommand(ctx context.Context, timeout time.Duration) (*Utterance, error) {
	c.mu.Lock()
	rec := c.rec
	c.mu.Unlock()

	if rec == nil {
		return nil, ErrNoRecognizer
	}

	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	utt, err := rec.Listen(lctx)
	if err != nil {
		if lctx.Err() != nil && ctx.Err() == nil {
			return nil, nil // window expired, nothing heard
		}
		return nil, err
	}
	return utt, nil
}

// OnStateChanged subscribes fn to activation transitions.
func (c *Controller) OnStateChanged(fn func(prev, next State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateSubs = append(c.stateSubs, fn)
}

// OnWakeWord subscribes fn to wake-word detections.
func (c *Controller) OnWakeWord(fn func(word, remainder string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wakeSubs = append(c.wakeSubs, fn)
}

// OnVoiceActivity subscribes fn to the start of listening windows.
func (c *Controller) OnVoiceActivity(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activitySubs = append(c.activitySubs, fn)
}

// NotifyVoiceActivity is called by the audio layer when speech first
// crosses the capture threshold; it fans out to the subscribers.
func (c *Controller) NotifyVoiceActivity() {
	c.mu.Lock()
	subs := c.activitySubs
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func emitState(subs []func(prev, next State), prev, next State) {
	for _, fn := range subs {
		fn(prev, next)
	}
}
