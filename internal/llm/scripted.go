package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by a ScriptedClient with nothing left to say.
var ErrScriptExhausted = errors.New("scripted client: no responses left")

// Reply is one scripted answer.
type Reply struct {
	Text string
	Err  error
}

// ScriptedClient is an in-memory Client for tests. Handler, when set, answers
// every request; otherwise Replies are consumed in call order.
type ScriptedClient struct {
	Handler func(ctx context.Context, req Request) (string, error)

	mu      sync.Mutex
	replies []Reply
	calls   []Request
}

// NewScriptedClient returns a client that answers with replies in order.
func NewScriptedClient(replies ...Reply) *ScriptedClient {
	return &ScriptedClient{replies: replies}
}

// Texts builds successful replies.
func Texts(texts ...string) []Reply {
	out := make([]Reply, len(texts))
	for i, t := range texts {
		out[i] = Reply{Text: t}
	}
	return out
}

func (s *ScriptedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.calls = append(s.calls, req)
	handler := s.Handler
	var (
		reply Reply
		ok    bool
	)
	if handler == nil && len(s.replies) > 0 {
		reply, s.replies, ok = s.replies[0], s.replies[1:], true
	}
	s.mu.Unlock()

	if handler != nil {
		return handler(ctx, req)
	}
	if !ok {
		return "", ErrScriptExhausted
	}
	return reply.Text, reply.Err
}

// Calls returns a copy of every request received so far.
func (s *ScriptedClient) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of requests received.
func (s *ScriptedClient) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var _ Client = (*ScriptedClient)(nil)
