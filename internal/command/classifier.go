package command

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// pattern binds one intent to its trigger phrases. Matching is substring
// containment over the normalized utterance; table order decides ties, so
// the first entry that matches wins.
type pattern struct {
	intent     Intent
	triggers   []string
	capture    bool // extract the remainder after the trigger into param1
	confidence float64
}

const chatConfidence = 0.5

func defaultPatterns() []pattern {
	return []pattern{
		{IntentStatus, []string{"status", "how are you"}, false, 0.9},
		{IntentGenerateCode, []string{"generate code", "generate a function", "create a function", "write some code"}, false, 0.9},
		{IntentAnalyze, []string{"analyze", "examine"}, false, 0.85},
		{IntentNavigate, []string{"go to", "navigate"}, false, 0.85},
		{IntentSearch, []string{"search for", "find"}, true, 0.9},
		{IntentSettings, []string{"settings", "open settings"}, false, 0.9},
		{IntentHelp, []string{"help"}, false, 0.95},
		{IntentStop, []string{"stop"}, false, 0.95},
		{IntentExit, []string{"exit"}, false, 0.95},
		{IntentRepeat, []string{"repeat"}, false, 0.95},
	}
}

// Classifier maps free-form utterances onto the intent table.
type Classifier struct {
	mu       sync.RWMutex
	patterns []pattern

	classifications atomic.Uint64
}

func NewClassifier() *Classifier {
	return &Classifier{patterns: defaultPatterns()}
}

// Classify builds a Command from raw recognized text. Empty or whitespace
// text yields IntentUnknown with zero confidence; any other text that hits
// no trigger falls through to IntentChat, so conversational input is never
// lost to IntentUnknown.
func (cl *Classifier) Classify(text string) *Command {
	cl.classifications.Add(1)

	cmd := &Command{
		ID:         uuid.New(),
		Text:       text,
		Params:     map[string]string{},
		ReceivedAt: time.Now(),
	}

	norm := strings.ToLower(strings.TrimSpace(text))
	if norm == "" {
		cmd.Intent = IntentUnknown
		return cmd
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	for _, p := range cl.patterns {
		for _, trig := range p.triggers {
			if !strings.Contains(norm, trig) {
				continue
			}
			cmd.Intent = p.intent
			cmd.Confidence = p.confidence
			if p.capture {
				if rest := strings.TrimSpace(norm[strings.Index(norm, trig)+len(trig):]); rest != "" {
					cmd.Params["param1"] = rest
				}
			}
			return cmd
		}
	}

	cmd.Intent = IntentChat
	cmd.Confidence = chatConfidence
	return cmd
}

// Patterns returns the trigger phrases bound to in. Unknown intents read
// as empty rather than failing.
func (cl *Classifier) Patterns(in Intent) []string {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	for _, p := range cl.patterns {
		if p.intent == in {
			return append([]string(nil), p.triggers...)
		}
	}
	return nil
}

// SetPatterns replaces the trigger phrases for in, keeping its position in
// the match order.
func (cl *Classifier) SetPatterns(in Intent, triggers []string) error {
	if !Known(in) {
		return ErrUnknownIntent
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	for i := range cl.patterns {
		if cl.patterns[i].intent == in {
			cl.patterns[i].triggers = append([]string(nil), triggers...)
			return nil
		}
	}
	return ErrUnknownIntent
}
