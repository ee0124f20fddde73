package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var ErrUnknownIntent = errors.New("unknown intent")

const (
	respNotUnderstood = "I didn't understand that command."
	respCancelled     = "Command cancelled."
	respNoHandler     = "I don't know how to handle that command type."
)

// Processor owns the handler registry, dispatch, notifications and the
// per-instance statistics. It embeds the classifier so callers can go
// straight from text to a result.
type Processor struct {
	*Classifier

	mu        sync.RWMutex
	handlers  map[Intent]Handler
	received  []func(*Command)
	processed []func(*Command, *Result)

	totalProcessed atomic.Uint64
	okProcessed    atomic.Uint64
	failProcessed  atomic.Uint64
}

func NewProcessor() *Processor {
	p := &Processor{
		Classifier: NewClassifier(),
		handlers:   make(map[Intent]Handler),
	}
	for in, h := range builtinHandlers() {
		p.handlers[in] = h
	}
	return p
}

// Register binds h to in, replacing any prior handler including the
// built-in one. Intents outside the known set are rejected.
func (p *Processor) Register(in Intent, h Handler) error {
	if !Known(in) {
		return fmt.Errorf("register %q: %w", in, ErrUnknownIntent)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[in] = h
	return nil
}

// Unregister removes the handler for in. The built-in default is not
// restored: until somebody registers again, commands of this intent fail
// with a no-handler result.
func (p *Processor) Unregister(in Intent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handlers, in)
}

// OnReceived subscribes fn to the notification raised at the start of every
// Process call, before any dispatch.
func (p *Processor) OnReceived(fn func(*Command)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, fn)
}

// OnProcessed subscribes fn to the notification raised after a result is
// known. For one invocation it always fires after the OnReceived one.
func (p *Processor) OnProcessed(fn func(*Command, *Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, fn)
}

// Process dispatches cmd to its handler and never fails with an error:
// invalid commands, missing handlers, cancellation, handler errors and
// handler panics all come back as failure results with a speakable
// response.
func (p *Processor) Process(ctx context.Context, cmd *Command) *Result {
	p.emitReceived(cmd)

	res := p.dispatch(ctx, cmd)

	p.totalProcessed.Add(1)
	if res.Success {
		p.okProcessed.Add(1)
	} else {
		p.failProcessed.Add(1)
	}

	p.emitProcessed(cmd, res)
	return res
}

func (p *Processor) dispatch(ctx context.Context, cmd *Command) *Result {
	if !cmd.Valid() {
		return failure(respNotUnderstood)
	}
	if ctx.Err() != nil {
		return failure(respCancelled)
	}

	p.mu.RLock()
	h, ok := p.handlers[cmd.Intent]
	p.mu.RUnlock()
	if !ok {
		return failure(respNoHandler)
	}

	start := time.Now()
	res := run(ctx, h, cmd)
	res.Elapsed = time.Since(start)
	return res
}

// run isolates the handler call so a panic cannot escape Process.
func run(ctx context.Context, h Handler, cmd *Command) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failure("Something went wrong handling that command.")
		}
	}()

	r, err := h(ctx, cmd)
	if err != nil {
		return failure("Something went wrong handling that command.")
	}
	if r == nil {
		return failure("Something went wrong handling that command.")
	}
	return r
}

// ProcessText classifies text, stamps the source and dispatches in one go.
func (p *Processor) ProcessText(ctx context.Context, text string, src Source) *Result {
	cmd := p.Classify(text)
	cmd.Source = src
	return p.Process(ctx, cmd)
}

func (p *Processor) emitReceived(cmd *Command) {
	p.mu.RLock()
	subs := p.received
	p.mu.RUnlock()
	for _, fn := range subs {
		fn(cmd)
	}
}

func (p *Processor) emitProcessed(cmd *Command, res *Result) {
	p.mu.RLock()
	subs := p.processed
	p.mu.RUnlock()
	for _, fn := range subs {
		fn(cmd, res)
	}
}

// Stats reports the counters since construction or the last ResetStats.
// Not persisted anywhere.
func (p *Processor) Stats() map[string]uint64 {
	return map[string]uint64{
		"total_classifications": p.classifications.Load(),
		"total_processed":       p.totalProcessed.Load(),
		"successful_processed":  p.okProcessed.Load(),
		"failed_processed":      p.failProcessed.Load(),
	}
}

func (p *Processor) ResetStats() {
	p.classifications.Store(0)
	p.totalProcessed.Store(0)
	p.okProcessed.Store(0)
	p.failProcessed.Store(0)
}
