package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ragdesk/internal/identity"
)

// fakeBackend answers through per-test functions and counts calls.
type fakeBackend struct {
	chatFn   func(ctx context.Context, question string) (string, error)
	uploadFn func(ctx context.Context, files []File) (IngestionSummary, error)
	infoFn   func(ctx context.Context) (string, error)

	chatCalls   atomic.Int32
	uploadCalls atomic.Int32
	infoCalls   atomic.Int32

	mu        sync.Mutex
	questions []string
	batches   [][]File
}

func (f *fakeBackend) Chat(ctx context.Context, question string) (string, error) {
	f.chatCalls.Add(1)
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	if f.chatFn == nil {
		return "answer to " + question, nil
	}
	return f.chatFn(ctx, question)
}

func (f *fakeBackend) UploadBatch(ctx context.Context, files []File) (IngestionSummary, error) {
	f.uploadCalls.Add(1)
	f.mu.Lock()
	f.batches = append(f.batches, files)
	f.mu.Unlock()
	if f.uploadFn == nil {
		return IngestionSummary{AddedChunks: len(files)}, nil
	}
	return f.uploadFn(ctx, files)
}

func (f *fakeBackend) Info(ctx context.Context) (string, error) {
	f.infoCalls.Add(1)
	if f.infoFn == nil {
		return "ready", nil
	}
	return f.infoFn(ctx)
}

func (f *fakeBackend) lastQuestion() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.questions) == 0 {
		return ""
	}
	return f.questions[len(f.questions)-1]
}

func (f *fakeBackend) lastBatch() []File {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil
	}
	return f.batches[len(f.batches)-1]
}

// gate blocks a fake call until released and signals when it was entered.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) open() {
	g.once.Do(func() { close(g.release) })
}

type noResponseError struct{}

func (noResponseError) Error() string    { return "connection refused" }
func (noResponseError) NoResponse() bool { return true }

type badStatusError struct{}

func (badStatusError) Error() string    { return "status 500" }
func (badStatusError) NoResponse() bool { return false }

var errSink = errors.New("sink unavailable")

type recordingSink struct {
	mu     sync.Mutex
	events []IngestionEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event IngestionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) all() []IngestionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]IngestionEvent, len(s.events))
	copy(out, s.events)
	return out
}

type fakeProvider struct {
	who        *identity.Identity
	err        error
	signOutErr error
	signOuts   atomic.Int32
	lastToken  atomic.Value
}

func (p *fakeProvider) Current(_ context.Context, token string) (*identity.Identity, error) {
	p.lastToken.Store(token)
	if p.err != nil {
		return nil, p.err
	}
	if p.who == nil {
		return nil, nil
	}
	who := *p.who
	return &who, nil
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.signOuts.Add(1)
	p.lastToken.Store(token)
	return p.signOutErr
}
