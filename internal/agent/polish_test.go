package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

type failingPolisher struct{ err error }

func (p *failingPolisher) Polish(ctx context.Context, userMessage, draft string) (ports.PolishResult, error) {
	return ports.PolishResult{}, p.err
}

type slowPolisher struct{ delay time.Duration }

func (p *slowPolisher) Polish(ctx context.Context, userMessage, draft string) (ports.PolishResult, error) {
	select {
	case <-ctx.Done():
		return ports.PolishResult{}, ctx.Err()
	case <-time.After(p.delay):
		return ports.PolishResult{Reply: "too late", Polished: true}, nil
	}
}

func TestTemplatePolisherPrefixes(t *testing.T) {
	p := NewTemplatePolisher()
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		prefix  string
	}{
		{name: "question", message: "How long does shipping take?", prefix: "Great question!"},
		{name: "trouble", message: "my package arrived broken", prefix: "I'm sorry for the trouble."},
		{name: "default", message: "tell me about returns", prefix: "Thanks for reaching out!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Polish(ctx, tt.message, "Here is the answer.")
			require.NoError(t, err)
			assert.True(t, result.Polished)
			assert.Equal(t, tt.prefix+" Here is the answer.", result.Reply)
		})
	}
}

func TestTemplatePolisherHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTemplatePolisher().Polish(ctx, "hi", "draft")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToneUsesPolishedReply(t *testing.T) {
	w := NewWorkflow(nil, time.Second)

	state := stateWithMessage("What is your return policy?")
	state.DraftReply = domain.StringPtr("Returns are accepted within 30 days.")

	out, err := w.Tone(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, out.FinalReply)
	assert.Equal(t, "Great question! Returns are accepted within 30 days.", *out.FinalReply)
	require.NotNil(t, out.ReplySource)
	assert.Equal(t, domain.ReplySourcePolished, *out.ReplySource)
}

func TestToneFallsBackOnPolishError(t *testing.T) {
	w := NewWorkflow(&failingPolisher{err: errors.New("model offline")}, time.Second)

	state := stateWithMessage("What is your return policy?")
	state.DraftReply = domain.StringPtr("Returns are accepted within 30 days.")

	out, err := w.Tone(context.Background(), state)
	require.NoError(t, err, "polish failure must not fail the turn")

	require.NotNil(t, out.FinalReply)
	assert.Equal(t, "Returns are accepted within 30 days.", *out.FinalReply)
	require.NotNil(t, out.ReplySource)
	assert.Equal(t, domain.ReplySourceDraft, *out.ReplySource)
}

func TestToneFallsBackOnTimeout(t *testing.T) {
	w := NewWorkflow(&slowPolisher{delay: time.Second}, 10*time.Millisecond)

	state := stateWithMessage("What is your return policy?")
	state.DraftReply = domain.StringPtr("Returns are accepted within 30 days.")

	out, err := w.Tone(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, out.FinalReply)
	assert.Equal(t, "Returns are accepted within 30 days.", *out.FinalReply)
	assert.Equal(t, domain.ReplySourceDraft, *out.ReplySource)
}

func TestToneDefaultsMissingDraft(t *testing.T) {
	w := NewWorkflow(nil, time.Second)

	out, err := w.Tone(context.Background(), stateWithMessage("hello there"))
	require.NoError(t, err)

	require.NotNil(t, out.FinalReply)
	assert.Contains(t, *out.FinalReply, "I'm here to help!")
}
