package activation

import (
	"errors"
	"strings"
)

var ErrNoRecognizer = errors.New("no recognizer attached")

// WakeConfig holds the wake-word settings for subsequent listening
// sessions. Changing it never interrupts a window already open.
type WakeConfig struct {
	Enabled     bool
	Sensitivity float64 // 0..1
	Words       []string
}

func defaultWakeConfig() WakeConfig {
	return WakeConfig{
		Enabled:     false,
		Sensitivity: 0.7,
		Words:       []string{"hey jarvis", "jarvis"},
	}
}

// ConfigureWakeWords replaces the wake settings. Sensitivity is clamped to
// [0,1]. On always-on devices detection stays enabled regardless of the
// requested flag.
func (c *Controller) ConfigureWakeWords(enabled bool, sensitivity float64, words []string) {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 1 {
		sensitivity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.wake.Enabled = enabled || c.mode == ModeAlwaysOn
	c.wake.Sensitivity = sensitivity
	if words != nil {
		c.wake.Words = append([]string(nil), words...)
	}
}

// WakeConfig returns a copy of the current wake settings.
func (c *Controller) WakeConfig() WakeConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.wake
	cfg.Words = append([]string(nil), c.wake.Words...)
	return cfg
}

// DetectWake scans a transcript for a configured wake word. On a hit it
// notifies subscribers and returns the text after the wake word, which may
// be empty when the utterance was only the wake word itself.
func (c *Controller) DetectWake(text string) (remainder string, ok bool) {
	c.mu.Lock()
	enabled := c.wake.Enabled
	words := c.wake.Words
	subs := c.wakeSubs
	c.mu.Unlock()

	if !enabled {
		return "", false
	}

	norm := strings.ToLower(strings.TrimSpace(text))
	for _, w := range words {
		idx := strings.Index(norm, strings.ToLower(w))
		if idx < 0 {
			continue
		}
		remainder = strings.Trim(norm[idx+len(w):], " ,.!?")
		for _, fn := range subs {
			fn(w, remainder)
		}
		return remainder, true
	}
	return "", false
}
