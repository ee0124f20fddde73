// Package assistant wires the activation controller, the command pipeline
// and the audio collaborators into one listening session.
package assistant

import (
	"context"
	"sync"
	"time"

	log "log/slog"

	"jarvis/internal/activation"
	"jarvis/internal/command"
)

// Speaker voices a response. Implementations: espeak (internal/speak) and
// the silent fallback.
type Speaker interface {
	Say(text string) error
}

// Ducker lowers other playback while the assistant is busy. May be nil.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Notifier surfaces activation changes to the desktop. May be nil.
type Notifier interface {
	Earcon()
	Notify(text string)
}

type Config struct {
	// ListenWindow bounds one recognizer wait. Zero means 15s.
	ListenWindow time.Duration
	// IdlePause is the backoff while the controller is not listening.
	IdlePause time.Duration
}

type Assistant struct {
	proc     *command.Processor
	ctrl     *activation.Controller
	speaker  Speaker
	ducker   Ducker
	notifier Notifier
	cfg      Config

	mu           sync.Mutex
	lastResponse string
	cancelActive context.CancelFunc
}

func New(proc *command.Processor, ctrl *activation.Controller, speaker Speaker, cfg Config) *Assistant {
	if cfg.ListenWindow <= 0 {
		cfg.ListenWindow = 15 * time.Second
	}
	if cfg.IdlePause <= 0 {
		cfg.IdlePause = 250 * time.Millisecond
	}

	a := &Assistant{
		proc:    proc,
		ctrl:    ctrl,
		speaker: speaker,
		cfg:     cfg,
	}
	a.registerControlHandlers()

	ctrl.OnStateChanged(func(prev, next activation.State) {
		log.Info("activation state changed", "prev", prev.String(), "next", next.String())
		if a.notifier == nil {
			return
		}
		switch next {
		case activation.StateListening:
			a.notifier.Earcon()
			a.notifier.Notify("Listening...")
		case activation.StateError:
			a.notifier.Notify("Voice input unavailable.")
		}
	})
	ctrl.OnWakeWord(func(word, _ string) {
		log.Debug("wake word detected", "word", word)
	})

	return a
}

// SetDucker attaches playback ducking; safe to skip on headless hosts.
func (a *Assistant) SetDucker(d Ducker) { a.ducker = d }

// SetNotifier attaches desktop notifications.
func (a *Assistant) SetNotifier(n Notifier) { a.notifier = n }

// Run is the listening session: while the controller is active, wait for
// an utterance, gate it on the wake word when configured, dispatch and
// speak. Returns when ctx ends.
func (a *Assistant) Run(ctx context.Context) {
	log.Info("assistant session started")

	for ctx.Err() == nil {
		if !a.ctrl.Active() {
			select {
			case <-ctx.Done():
			case <-time.After(a.cfg.IdlePause):
			}
			continue
		}

		utt, err := a.ctrl.ListenForCommand(ctx, a.cfg.ListenWindow)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("listen failed", "err", err)
			continue
		}
		if utt == nil {
			continue // window expired, nothing heard
		}

		a.HandleUtterance(ctx, utt)
	}

	log.Info("assistant session stopped")
}

// HandleUtterance runs one recognized utterance through wake gating and
// the command pipeline.
func (a *Assistant) HandleUtterance(ctx context.Context, utt *activation.Utterance) {
	text := utt.Text

	if a.ctrl.WakeConfig().Enabled {
		remainder, ok := a.ctrl.DetectWake(utt.Text)
		if !ok {
			log.Debug("no wake word, ignoring", "text", utt.Text)
			return
		}
		if remainder == "" {
			a.speak("Yes?")
			return
		}
		text = remainder
	}

	a.handle(ctx, text, command.SourceWakeWord, utt.Confidence)
}

// HandleText dispatches text that arrived without the audio pipeline,
// e.g. from the control socket or the remote hub.
func (a *Assistant) HandleText(ctx context.Context, text string, src command.Source) *command.Result {
	return a.handle(ctx, text, src, 1)
}

func (a *Assistant) handle(ctx context.Context, text string, src command.Source, recConf float64) *command.Result {
	if a.ducker != nil {
		if err := a.ducker.Duck(ctx); err != nil {
			log.Warn("duck failed", "err", err)
		}
		defer func() {
			if err := a.ducker.Restore(ctx); err != nil {
				log.Warn("unduck failed", "err", err)
			}
		}()
	}

	hctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancelActive = cancel
	a.mu.Unlock()
	defer cancel()

	cmd := a.proc.Classify(text)
	cmd.Source = src
	cmd.RecognitionConfidence = recConf

	log.Info("command classified",
		"id", cmd.ID,
		"intent", string(cmd.Intent),
		"confidence", cmd.Confidence,
		"source", string(src))

	res := a.proc.Process(hctx, cmd)

	log.Info("command processed",
		"id", cmd.ID,
		"success", res.Success,
		"elapsed", res.Elapsed)

	if res.Speak {
		a.speak(res.Response)
	}
	return res
}

func (a *Assistant) speak(text string) {
	if text == "" {
		return
	}

	a.mu.Lock()
	a.lastResponse = text
	a.mu.Unlock()

	if a.speaker == nil {
		return
	}
	if err := a.speaker.Say(text); err != nil {
		log.Error("speech synthesis failed", "err", err)
	}
}

// LastResponse returns the most recent spoken response.
func (a *Assistant) LastResponse() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResponse
}

// Processor exposes the command pipeline for control surfaces.
func (a *Assistant) Processor() *command.Processor { return a.proc }

// Controller exposes the activation state machine for control surfaces.
func (a *Assistant) Controller() *activation.Controller { return a.ctrl }
