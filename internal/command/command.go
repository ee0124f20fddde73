// Package command turns recognized speech into intents and dispatches them
// to registered handlers.
package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Intent is the closed set of things the assistant knows how to do.
type Intent string

const (
	IntentStatus       Intent = "status"
	IntentGenerateCode Intent = "generate_code"
	IntentAnalyze      Intent = "analyze"
	IntentNavigate     Intent = "navigate"
	IntentSearch       Intent = "search"
	IntentSettings     Intent = "settings"
	IntentHelp         Intent = "help"
	IntentStop         Intent = "stop"
	IntentExit         Intent = "exit"
	IntentRepeat       Intent = "repeat"
	IntentChat         Intent = "chat"
	IntentUnknown      Intent = "unknown"
)

var knownIntents = map[Intent]bool{
	IntentStatus:       true,
	IntentGenerateCode: true,
	IntentAnalyze:      true,
	IntentNavigate:     true,
	IntentSearch:       true,
	IntentSettings:     true,
	IntentHelp:         true,
	IntentStop:         true,
	IntentExit:         true,
	IntentRepeat:       true,
	IntentChat:         true,
}

// Known reports whether in is one of the dispatchable intents.
// IntentUnknown is deliberately not dispatchable.
func Known(in Intent) bool { return knownIntents[in] }

// Source says where an utterance came from.
type Source string

const (
	SourceWakeWord Source = "wake_word"
	SourceRemote   Source = "remote"
	SourceManual   Source = "manual"
	SourceIPC      Source = "ipc"
)

// Command is one classified utterance. Built once by the classifier and
// not mutated afterwards.
type Command struct {
	ID                    uuid.UUID
	Text                  string
	Intent                Intent
	Confidence            float64
	RecognitionConfidence float64
	Params                map[string]string
	Source                Source
	ReceivedAt            time.Time
}

// Valid reports whether the command can be dispatched.
func (c *Command) Valid() bool {
	return strings.TrimSpace(c.Text) != "" && c.Intent != IntentUnknown
}

// Result is the outcome of handling one command.
type Result struct {
	Success  bool
	Response string
	Speak    bool
	Elapsed  time.Duration
}

// Handler performs the action bound to an intent. Handlers own respecting
// ctx once they are running; a context cancelled before dispatch never
// reaches them.
type Handler func(ctx context.Context, cmd *Command) (*Result, error)

func failure(response string) *Result {
	return &Result{Success: false, Response: response, Speak: true}
}
