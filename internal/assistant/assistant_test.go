package assistant

import (
	"context"
	"strings"
	"testing"

	"jarvis/internal/activation"
	"jarvis/internal/command"
)

type fakeCaps struct{ alwaysOn bool }

func (f fakeCaps) AlwaysOnDevice() bool     { return f.alwaysOn }
func (f fakeCaps) SupportsVoiceInput() bool { return true }

type recordingSpeaker struct{ said []string }

func (s *recordingSpeaker) Say(text string) error {
	s.said = append(s.said, text)
	return nil
}

func newTestAssistant(t *testing.T, alwaysOn bool) (*Assistant, *recordingSpeaker) {
	t.Helper()
	proc := command.NewProcessor()
	ctrl := activation.NewController(fakeCaps{alwaysOn: alwaysOn}, nil)
	spk := &recordingSpeaker{}
	return New(proc, ctrl, spk, Config{}), spk
}

func TestHandleTextSpeaksResponse(t *testing.T) {
	a, spk := newTestAssistant(t, false)

	res := a.HandleText(context.Background(), "help", command.SourceIPC)
	if !res.Success {
		t.Fatalf("help failed: %+v", res)
	}
	if len(spk.said) != 1 || spk.said[0] != res.Response {
		t.Fatalf("spoken: %v, result: %q", spk.said, res.Response)
	}
	if a.LastResponse() != res.Response {
		t.Errorf("LastResponse: got %q", a.LastResponse())
	}
}

func TestStatusHandlerReportsVoiceState(t *testing.T) {
	a, _ := newTestAssistant(t, false)
	a.Controller().Enable()

	res := a.HandleText(context.Background(), "what's my status", command.SourceManual)
	if !res.Success {
		t.Fatalf("status failed: %+v", res)
	}
	if !strings.Contains(res.Response, "listening") {
		t.Errorf("status response should name the voice state: %q", res.Response)
	}
}

func TestExitDisablesToggleDevice(t *testing.T) {
	a, _ := newTestAssistant(t, false)
	a.Controller().Enable()

	res := a.HandleText(context.Background(), "exit", command.SourceManual)
	if !res.Success {
		t.Fatalf("exit failed: %+v", res)
	}
	if a.Controller().Active() {
		t.Error("controller still active after exit")
	}
}

func TestExitRefusedOnAlwaysOnDevice(t *testing.T) {
	a, _ := newTestAssistant(t, true)
	a.Controller().Enable()

	res := a.HandleText(context.Background(), "exit", command.SourceManual)
	if res.Success {
		t.Fatal("exit should be refused on an always-on device")
	}
	if !a.Controller().Active() {
		t.Error("exit silenced an always-on device")
	}
}

func TestRepeatSpeaksLastResponse(t *testing.T) {
	a, spk := newTestAssistant(t, false)

	res := a.HandleText(context.Background(), "repeat", command.SourceManual)
	if !strings.Contains(res.Response, "nothing to repeat") {
		t.Fatalf("empty repeat: %q", res.Response)
	}

	a.HandleText(context.Background(), "help", command.SourceManual)
	helpText := spk.said[len(spk.said)-1]

	res = a.HandleText(context.Background(), "repeat", command.SourceManual)
	if res.Response != helpText {
		t.Fatalf("repeat: got %q, want %q", res.Response, helpText)
	}
}

func TestHandleUtteranceWakeGating(t *testing.T) {
	a, spk := newTestAssistant(t, false)
	a.Controller().ConfigureWakeWords(true, 0.7, []string{"jarvis"})

	// No wake word: dropped silently.
	a.HandleUtterance(context.Background(), &activation.Utterance{Text: "open settings", Confidence: 0.9})
	if len(spk.said) != 0 {
		t.Fatalf("utterance without wake word was handled: %v", spk.said)
	}

	// Bare wake word: acknowledged.
	a.HandleUtterance(context.Background(), &activation.Utterance{Text: "jarvis", Confidence: 0.9})
	if len(spk.said) != 1 || spk.said[0] != "Yes?" {
		t.Fatalf("bare wake word: %v", spk.said)
	}

	// Wake word plus command: remainder is dispatched.
	var seen *command.Command
	a.Processor().OnReceived(func(cmd *command.Command) { seen = cmd })
	a.HandleUtterance(context.Background(), &activation.Utterance{Text: "jarvis open settings", Confidence: 0.8})
	if seen == nil {
		t.Fatal("command not dispatched")
	}
	if seen.Intent != command.IntentSettings {
		t.Errorf("intent: got %s, want settings", seen.Intent)
	}
	if seen.Source != command.SourceWakeWord {
		t.Errorf("source: got %s, want wake_word", seen.Source)
	}
	if seen.RecognitionConfidence != 0.8 {
		t.Errorf("recognition confidence: got %v, want 0.8", seen.RecognitionConfidence)
	}
}

func TestHandleUtteranceWithoutWakeGating(t *testing.T) {
	a, _ := newTestAssistant(t, false)

	var seen *command.Command
	a.Processor().OnReceived(func(cmd *command.Command) { seen = cmd })

	a.HandleUtterance(context.Background(), &activation.Utterance{Text: "open settings", Confidence: 0.9})
	if seen == nil || seen.Intent != command.IntentSettings {
		t.Fatalf("utterance not dispatched: %+v", seen)
	}
}
