package command

import (
	"context"
	"fmt"
)

// builtinHandlers are the canned fallbacks installed at construction.
// Anything wired to a real collaborator (LLM chat, activation control)
// overrides these through Register.
func builtinHandlers() map[Intent]Handler {
	return map[Intent]Handler{
		IntentStatus:       canned("All systems operational."),
		IntentGenerateCode: canned("Code generation is not connected yet."),
		IntentAnalyze:      canned("There is nothing loaded to analyze."),
		IntentNavigate:     navigate,
		IntentSearch:       search,
		IntentSettings:     canned("Opening settings."),
		IntentHelp:         canned("You can ask for status, search, navigation, code generation, or just talk to me."),
		IntentStop:         canned("Stopping."),
		IntentExit:         canned("Goodbye."),
		IntentRepeat:       canned("There is nothing to repeat yet."),
		IntentChat:         canned("I heard you, but my chat backend is not connected."),
	}
}

func canned(response string) Handler {
	return func(context.Context, *Command) (*Result, error) {
		return &Result{Success: true, Response: response, Speak: true}, nil
	}
}

func navigate(_ context.Context, cmd *Command) (*Result, error) {
	return &Result{
		Success:  true,
		Response: fmt.Sprintf("I can't open pages from here. You said: %s", cmd.Text),
		Speak:    true,
	}, nil
}

func search(_ context.Context, cmd *Command) (*Result, error) {
	q, ok := cmd.Params["param1"]
	if !ok {
		return &Result{Success: true, Response: "What should I search for?", Speak: true}, nil
	}
	return &Result{
		Success:  true,
		Response: fmt.Sprintf("Searching for %s.", q),
		Speak:    true,
	}, nil
}
