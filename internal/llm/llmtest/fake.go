// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"
)

// Fake answers Generate with Reply, recording every prompt it receives.
type Fake struct {
	Reply func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// Static returns a Fake that always answers text.
func Static(text string) *Fake {
	return &Fake{Reply: func(string) (string, error) { return text, nil }}
}

// Failing returns a Fake that always fails with err.
func Failing(err error) *Fake {
	return &Fake{Reply: func(string) (string, error) { return "", err }}
}

func (f *Fake) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Reply(prompt)
}

func (f *Fake) Name() string { return "fake" }

// Prompts returns the prompts seen so far.
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
