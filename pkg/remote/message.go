// Package remote connects the daemon to a command hub over a websocket, so
// remote controls and companion apps can drive it with text or short audio
// clips.
package remote

import "errors"

// Message is one hub frame. Exactly one of Text or Audio is meaningful:
// KindText carries recognized or typed text, KindAudio a compressed clip
// (wav/mp3/ogg) for the daemon to transcribe. Replies flow back as
// KindReply.
type Message struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Kind   string `json:"kind"`
	Text   string `json:"text,omitempty"`
	Audio  []byte `json:"audio,omitempty"`
	Format string `json:"format,omitempty"` // audio container hint: wav, mp3, ogg
	OK     bool   `json:"ok,omitempty"`
}

const (
	KindText  = "text"
	KindAudio = "audio"
	KindReply = "reply"
)

// Validate rejects frames the daemon cannot act on.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindText:
		if m.Text == "" {
			return errors.New("text frame without text")
		}
	case KindAudio:
		if len(m.Audio) == 0 {
			return errors.New("audio frame without audio")
		}
	case KindReply:
	default:
		return errors.New("unknown frame kind: " + m.Kind)
	}
	return nil
}
