package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type fakeCompletions struct {
	content string
	err     error
	called  bool
}

func (f *fakeCompletions) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestAltText(t *testing.T) {
	fake := &fakeCompletions{content: "  A red bicycle leaning against a wall.\n"}
	c := &Client{chat: fake, model: openai.ChatModelGPT4oMini}

	alt, err := c.AltText(context.Background(), []byte{0xff, 0xd8, 0xff})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fake.called {
		t.Fatal("completion service not called")
	}
	if alt != "A red bicycle leaning against a wall." {
		t.Errorf("alt text not trimmed: %q", alt)
	}
}

func TestAltTextError(t *testing.T) {
	c := &Client{chat: &fakeCompletions{err: errors.New("rate limited")}, model: openai.ChatModelGPT4oMini}
	if _, err := c.AltText(context.Background(), []byte{1}); err == nil {
		t.Error("expected error from completion service")
	}
}

type emptyCompletions struct{}

func (emptyCompletions) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	return &openai.ChatCompletion{}, nil
}

func TestAltTextNoChoices(t *testing.T) {
	c := &Client{chat: emptyCompletions{}, model: openai.ChatModelGPT4oMini}
	if _, err := c.AltText(context.Background(), []byte{1}); err == nil {
		t.Error("expected error for empty choice list")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error for missing API key")
	}
}
