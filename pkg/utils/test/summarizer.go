package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftline/driftline/pkg/summarize"
)

// MockSummarizer is a summarize.CallFunc source that returns canned labels
// and records the prompts and model overrides it saw.
type MockSummarizer struct {
	mu      sync.Mutex
	prompts []string
	models  []string

	// Reply is returned for every call when set; otherwise replies are
	// numbered sequentially.
	Reply string

	// Err causes every call to fail when set.
	Err error
}

func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

func (m *MockSummarizer) Call(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	m.prompts = append(m.prompts, prompt)
	if m.Reply != "" {
		return m.Reply, nil
	}
	return fmt.Sprintf("summary %d", len(m.prompts)), nil
}

// Factory satisfies summarize.Factory, recording the model override
// requested for each caller it hands out.
func (m *MockSummarizer) Factory(model string) summarize.CallFunc {
	m.mu.Lock()
	m.models = append(m.models, model)
	m.mu.Unlock()
	return m.Call
}

// Prompts returns a copy of the prompts seen so far.
func (m *MockSummarizer) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Models returns the model overrides passed to Factory, in order.
func (m *MockSummarizer) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.models...)
}
