// Package notify plays activation earcons and posts desktop notifications.
package notify

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Desktop plays an mp3 earcon when listening starts and mirrors spoken
// text into desktop notifications.
type Desktop struct {
	SoundPath string
}

func NewDesktop(soundPath string) *Desktop {
	return &Desktop{SoundPath: soundPath}
}

// Earcon plays the configured chime; missing or undecodable files are
// silently skipped so a bad path never breaks activation.
func (d *Desktop) Earcon() {
	if d.SoundPath == "" {
		return
	}
	_ = d.playFile(d.SoundPath)
}

func (d *Desktop) playFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return err
	}

	done := make(chan bool)
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		done <- true
	})))
	<-done
	return nil
}

// Notify posts a transient desktop notification via notify-send when it
// exists on PATH.
func (d *Desktop) Notify(text string) {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return
	}
	_ = exec.Command("notify-send", "-t", "3000", "JARVIS", text).Run()
}
