package listen

import (
	"context"

	log "log/slog"

	"jarvis/internal/activation"
)

// micConfidence is reported for local recognitions; the whisper bindings
// expose no utterance-level score.
const micConfidence = 0.85

// Listener glues the recorder and the transcriber into the recognizer the
// activation controller consumes.
type Listener struct {
	rec  *Recorder
	tr   *Transcriber
	opts TranscribeOptions
}

func NewListener(rec *Recorder, tr *Transcriber, opts TranscribeOptions) *Listener {
	return &Listener{rec: rec, tr: tr, opts: opts}
}

// Listen captures one utterance and transcribes it.
func (l *Listener) Listen(ctx context.Context) (*activation.Utterance, error) {
	pcm, err := l.rec.Capture(ctx)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, ctx.Err()
	}

	log.Debug("captured utterance", "samples", len(pcm))

	text, err := l.tr.Transcribe(ctx, pcm, l.opts)
	if err != nil {
		return nil, err
	}

	log.Info("transcribed", "text", text)
	return &activation.Utterance{Text: text, Confidence: micConfidence}, nil
}
