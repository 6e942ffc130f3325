package console

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ApologyText replaces the answer when a chat request fails, so every user
// turn is still followed by exactly one assistant turn.
const ApologyText = "Sorry, checking the knowledge base failed."

// ChatAPI is the inference boundary used by the chat flow.
type ChatAPI interface {
	Chat(ctx context.Context, question string) (string, error)
}

// ChatView is a point-in-time snapshot for rendering.
type ChatView struct {
	Turns   []Turn `json:"turns"`
	Draft   string `json:"draft"`
	Loading bool   `json:"loading"`
}

type ChatSession struct {
	api     ChatAPI
	ctrl    *Controller
	history *History
	logger  *zap.Logger

	mu    sync.Mutex
	draft string
}

func NewChatSession(api ChatAPI, logger *zap.Logger) *ChatSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatSession{
		api:     api,
		ctrl:    NewController(logger),
		history: &History{},
		logger:  logger,
	}
}

// SetDraft replaces the pending input buffer.
func (s *ChatSession) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

func (s *ChatSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *ChatSession) Loading() bool {
	return s.ctrl.Loading(KindChatSend)
}

func (s *ChatSession) State() RequestState {
	return s.ctrl.State(KindChatSend)
}

func (s *ChatSession) Turns() []Turn {
	return s.history.Turns()
}

func (s *ChatSession) Snapshot() ChatView {
	var view ChatView
	s.ctrl.Observe(func(state func(Kind) RequestState) {
		view = ChatView{
			Turns:   s.history.Turns(),
			Draft:   s.Draft(),
			Loading: state(KindChatSend).Phase == PhaseInFlight,
		}
	})
	return view
}

// SubmitDraft submits the current input buffer.
func (s *ChatSession) SubmitDraft(ctx context.Context) bool {
	return s.SubmitQuestion(ctx, s.Draft())
}

// SubmitQuestion appends the user turn, clears the draft and asks the
// backend, blocking until the assistant turn has been appended. It returns
// false and changes nothing when the text is blank or a question is already
// in flight.
func (s *ChatSession) SubmitQuestion(ctx context.Context, text string) bool {
	question := strings.TrimSpace(text)
	if question == "" {
		return false
	}
	return Run(ctx, s.ctrl, KindChatSend, Operation[string]{
		Start: func() {
			s.history.append(Turn{Role: RoleUser, Text: question})
			s.SetDraft("")
		},
		Call: func(ctx context.Context) (string, error) {
			return s.api.Chat(ctx, question)
		},
		Settle: func(answer string, err error) {
			if err != nil {
				s.logger.Warn("chat request failed", zap.Error(err))
				s.history.append(Turn{Role: RoleAssistant, Text: ApologyText})
				return
			}
			s.history.append(Turn{Role: RoleAssistant, Text: answer})
		},
	})
}
