package activation

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCaps struct {
	alwaysOn bool
	voice    bool
	panics   bool
}

func (f fakeCaps) AlwaysOnDevice() bool {
	if f.panics {
		panic("capability query blew up")
	}
	return f.alwaysOn
}

func (f fakeCaps) SupportsVoiceInput() bool {
	if f.panics {
		panic("capability query blew up")
	}
	return f.voice
}

// scriptedRecognizer replays utterances in order, then blocks until ctx
// ends.
type scriptedRecognizer struct {
	script []string
	next   int
}

func (s *scriptedRecognizer) Listen(ctx context.Context) (*Utterance, error) {
	if s.next < len(s.script) {
		text := s.script[s.next]
		s.next++
		return &Utterance{Text: text, Confidence: 0.9}, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEnableIdempotent(t *testing.T) {
	c := NewController(fakeCaps{voice: true}, nil)

	if !c.Enable() {
		t.Fatal("first enable failed")
	}
	if !c.Active() {
		t.Fatal("not active after enable")
	}
	if !c.Enable() {
		t.Fatal("second enable failed")
	}
	if !c.Active() {
		t.Fatal("not active after second enable")
	}
}

func TestEnableWithoutVoiceSupport(t *testing.T) {
	c := NewController(fakeCaps{voice: false}, nil)

	if c.Enable() {
		t.Fatal("enable should fail without voice input")
	}
	if c.State() != StateError {
		t.Errorf("state: got %s, want error", c.State())
	}
}

func TestCapabilityPanicTreatedAsUnsupported(t *testing.T) {
	c := NewController(fakeCaps{panics: true}, nil)

	if c.Mode() != ModeToggle {
		t.Errorf("mode: got %s, want toggle", c.Mode())
	}
	if c.Enable() {
		t.Fatal("enable should fail when the capability query panics")
	}
	if c.State() != StateError {
		t.Errorf("state: got %s, want error", c.State())
	}
}

func TestAlwaysOnRefusesDisable(t *testing.T) {
	c := NewController(fakeCaps{alwaysOn: true, voice: true}, nil)

	if c.Mode() != ModeAlwaysOn {
		t.Fatalf("mode: got %s, want always_on", c.Mode())
	}
	if !c.Enable() {
		t.Fatal("enable failed")
	}

	for i := 0; i < 2; i++ {
		if c.Disable() {
			t.Fatal("disable must be refused on an always-on device")
		}
		if !c.Active() {
			t.Fatal("disable changed state on an always-on device")
		}
	}
}

func TestAlwaysOnForcesWakeWords(t *testing.T) {
	c := NewController(fakeCaps{alwaysOn: true, voice: true}, nil)

	if !c.WakeConfig().Enabled {
		t.Fatal("wake detection should be force-enabled on always-on devices")
	}
	// Even an explicit request to turn it off is overridden.
	c.ConfigureWakeWords(false, 0.5, nil)
	if !c.WakeConfig().Enabled {
		t.Fatal("wake detection turned off on an always-on device")
	}
}

func TestToggleRoundTrip(t *testing.T) {
	c := NewController(fakeCaps{voice: true}, nil)

	if got := c.Toggle(); !got {
		t.Fatal("first toggle should report active")
	}
	if c.State() != StateListening {
		t.Fatalf("state: got %s, want listening", c.State())
	}

	if got := c.Toggle(); got {
		t.Fatal("second toggle should report inactive")
	}
	if c.State() != StateInactive {
		t.Fatalf("state: got %s, want inactive", c.State())
	}
}

func TestToggleOnAlwaysOnReportsCurrentState(t *testing.T) {
	c := NewController(fakeCaps{alwaysOn: true, voice: true}, nil)

	// Inactive: toggle is a silent no-op that reports the current state.
	if c.Toggle() {
		t.Fatal("toggle reported active on an inactive always-on controller")
	}
	if c.State() != StateInactive {
		t.Fatalf("toggle changed state: %s", c.State())
	}

	c.Enable()
	if !c.Toggle() {
		t.Fatal("toggle should report active once listening")
	}
	if !c.Active() {
		t.Fatal("toggle changed state on an always-on controller")
	}
}

func TestStateChangeNotifications(t *testing.T) {
	c := NewController(fakeCaps{voice: true}, nil)

	type change struct{ prev, next State }
	var seen []change
	c.OnStateChanged(func(prev, next State) { seen = append(seen, change{prev, next}) })

	c.Enable()
	c.Enable() // idempotent, no second notification
	c.Disable()

	want := []change{
		{StateInactive, StateListening},
		{StateListening, StateInactive},
	}
	if len(seen) != len(want) {
		t.Fatalf("notifications: got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d: got %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestListenForCommand(t *testing.T) {
	rec := &scriptedRecognizer{script: []string{"open settings"}}
	c := NewController(fakeCaps{voice: true}, rec)

	utt, err := c.ListenForCommand(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("ListenForCommand: %v", err)
	}
	if utt == nil || utt.Text != "open settings" {
		t.Fatalf("utterance: got %+v", utt)
	}

	// Listening does not flip activation state by itself.
	if c.Active() {
		t.Error("ListenForCommand changed activation state")
	}
}

func TestListenForCommandTimeout(t *testing.T) {
	rec := &scriptedRecognizer{} // nothing to say, blocks
	c := NewController(fakeCaps{voice: true}, rec)

	utt, err := c.ListenForCommand(context.Background(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if utt != nil {
		t.Fatalf("utterance on timeout: got %+v, want nil", utt)
	}
}

func TestListenForCommandCallerCancel(t *testing.T) {
	rec := &scriptedRecognizer{}
	c := NewController(fakeCaps{voice: true}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListenForCommand(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("caller cancellation: got %v, want context.Canceled", err)
	}
}

func TestListenForCommandNoRecognizer(t *testing.T) {
	c := NewController(fakeCaps{voice: true}, nil)
	if _, err := c.ListenForCommand(context.Background(), time.Second); !errors.Is(err, ErrNoRecognizer) {
		t.Fatalf("got %v, want ErrNoRecognizer", err)
	}
}

func TestVoiceActivityNotification(t *testing.T) {
	c := NewController(fakeCaps{voice: true}, nil)

	fired := 0
	c.OnVoiceActivity(func() { fired++ })

	c.NotifyVoiceActivity()
	c.NotifyVoiceActivity()
	if fired != 2 {
		t.Fatalf("activity notifications: got %d, want 2", fired)
	}
}

func TestConfigureWakeWordsClampsSensitivity(t *testing.T) {
	c := NewController(fakeCaps{voice: true}, nil)

	c.ConfigureWakeWords(true, 1.7, []string{"computer"})
	if got := c.WakeConfig().Sensitivity; got != 1 {
		t.Errorf("sensitivity: got %v, want 1", got)
	}

	c.ConfigureWakeWords(true, -0.2, nil)
	if got := c.WakeConfig().Sensitivity; got != 0 {
		t.Errorf("sensitivity: got %v, want 0", got)
	}
	// nil words keeps the previous list.
	if got := c.WakeConfig().Words; len(got) != 1 || got[0] != "computer" {
		t.Errorf("words: got %v, want [computer]", got)
	}
}

func TestDetectWake(t *testing.T) {
	c := NewController(fakeCaps{voice: true}, nil)
	c.ConfigureWakeWords(true, 0.7, []string{"hey jarvis", "jarvis"})

	var hits []string
	c.OnWakeWord(func(word, remainder string) { hits = append(hits, word+"|"+remainder) })

	rem, ok := c.DetectWake("Hey Jarvis, what's my status")
	if !ok {
		t.Fatal("wake word not detected")
	}
	if rem != "what's my status" {
		t.Errorf("remainder: got %q", rem)
	}
	if len(hits) != 1 || hits[0] != "hey jarvis|what's my status" {
		t.Errorf("notifications: got %v", hits)
	}

	if _, ok := c.DetectWake("nothing relevant here"); ok {
		t.Error("false wake detection")
	}

	// Bare wake word: detected, empty remainder.
	rem, ok = c.DetectWake("jarvis")
	if !ok || rem != "" {
		t.Errorf("bare wake word: got (%q, %v)", rem, ok)
	}

	c.ConfigureWakeWords(false, 0.7, nil)
	if _, ok := c.DetectWake("hey jarvis"); ok {
		t.Error("detection while disabled")
	}
}
