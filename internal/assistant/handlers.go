package assistant

import (
	"context"
	"fmt"

	"jarvis/internal/activation"
	"jarvis/internal/command"
)

// registerControlHandlers overrides the built-in defaults for the intents
// that touch live session state. The known intents always accept these, so
// the Register errors are impossible here.
func (a *Assistant) registerControlHandlers() {
	a.proc.Register(command.IntentStatus, a.handleStatus)
	a.proc.Register(command.IntentStop, a.handleStop)
	a.proc.Register(command.IntentExit, a.handleExit)
	a.proc.Register(command.IntentRepeat, a.handleRepeat)
}

func (a *Assistant) handleStatus(_ context.Context, _ *command.Command) (*command.Result, error) {
	stats := a.proc.Stats()
	return &command.Result{
		Success: true,
		Response: fmt.Sprintf("All systems operational. Voice mode is %s. I have handled %d commands this session.",
			a.ctrl.State(), stats["total_processed"]),
		Speak: true,
	}, nil
}

func (a *Assistant) handleStop(_ context.Context, _ *command.Command) (*command.Result, error) {
	a.mu.Lock()
	cancel := a.cancelActive
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return &command.Result{Success: true, Response: "Stopping.", Speak: true}, nil
}

func (a *Assistant) handleExit(_ context.Context, _ *command.Command) (*command.Result, error) {
	if a.ctrl.Mode() == activation.ModeAlwaysOn {
		return &command.Result{
			Success:  false,
			Response: "This device is always listening and can't be switched off by voice.",
			Speak:    true,
		}, nil
	}
	a.ctrl.Disable()
	return &command.Result{Success: true, Response: "Goodbye. Voice mode is off.", Speak: true}, nil
}

func (a *Assistant) handleRepeat(_ context.Context, _ *command.Command) (*command.Result, error) {
	last := a.LastResponse()
	if last == "" {
		return &command.Result{Success: true, Response: "There is nothing to repeat yet.", Speak: true}, nil
	}
	return &command.Result{Success: true, Response: last, Speak: true}, nil
}
