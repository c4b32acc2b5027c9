package agent

import (
	"context"
	"strings"
	"time"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

// TemplatePolisher rewrites drafts with a deterministic empathetic
// frame. It stands where a model call would go; the Polisher port is
// the integration seam for a real one.
type TemplatePolisher struct{}

func NewTemplatePolisher() *TemplatePolisher { return &TemplatePolisher{} }

func (p *TemplatePolisher) Polish(ctx context.Context, userMessage, draft string) (ports.PolishResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.PolishResult{}, err
	}

	lower := strings.ToLower(userMessage)
	var prefix string
	switch {
	case containsAny(lower, "sorry", "problem", "issue", "wrong", "late", "missing", "broken"):
		prefix = "I'm sorry for the trouble."
	case strings.Contains(userMessage, "?"):
		prefix = "Great question!"
	default:
		prefix = "Thanks for reaching out!"
	}

	return ports.PolishResult{Reply: prefix + " " + draft, Polished: true}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Workflow binds the node set to its polisher dependency.
type Workflow struct {
	polisher ports.Polisher
	timeout  time.Duration
}

func NewWorkflow(polisher ports.Polisher, polishTimeout time.Duration) *Workflow {
	if polisher == nil {
		polisher = NewTemplatePolisher()
	}
	return &Workflow{polisher: polisher, timeout: polishTimeout}
}

// Tone finalizes the outgoing reply. Polish failures and timeouts never
// fail the turn: the unmodified draft ships with ReplySource "draft".
func (w *Workflow) Tone(ctx context.Context, state domain.ConversationState) (domain.ConversationState, error) {
	draft := "I'm here to help!"
	if state.DraftReply != nil && strings.TrimSpace(*state.DraftReply) != "" {
		draft = *state.DraftReply
	}

	polishCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		polishCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	result, err := w.polisher.Polish(polishCtx, state.UserMessage, draft)
	if err != nil || !result.Polished {
		state.FinalReply = domain.StringPtr(draft)
		state.ReplySource = domain.StringPtr(domain.ReplySourceDraft)
		return state, nil
	}

	state.FinalReply = domain.StringPtr(result.Reply)
	state.ReplySource = domain.StringPtr(domain.ReplySourcePolished)
	return state, nil
}
