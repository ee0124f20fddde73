package speak

import log "log/slog"

// Silent logs responses instead of voicing them. Used on headless hosts
// and with --mute.
type Silent struct{}

func (Silent) Say(text string) error {
	log.Info("response (muted)", "text", text)
	return nil
}
