package oracle

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a scripted oracle for tests and the "mock" provider. Replies
// are consumed in order; when the script runs out it returns empty JSON,
// which parses as an empty reply and exercises the deterministic fallbacks.
type MockClient struct {
	mu      sync.Mutex
	replies []string
	// Calls records every prompt received, for assertions.
	Calls []string
}

// NewMockClient creates an unscripted mock.
func NewMockClient(replies ...string) *MockClient {
	return &MockClient{replies: replies}
}

// Push appends replies to the script.
func (m *MockClient) Push(replies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Complete pops the next scripted reply.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem pops the next scripted reply.
func (m *MockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, userPrompt)
	if len(m.replies) == 0 {
		return "{}", nil
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next, nil
}

// LastCall returns the most recent prompt, or "".
func (m *MockClient) LastCall() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return ""
	}
	return m.Calls[len(m.Calls)-1]
}

// CallsContaining counts prompts containing the substring.
func (m *MockClient) CallsContaining(sub string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.Contains(c, sub) {
			n++
		}
	}
	return n
}
