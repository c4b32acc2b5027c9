package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/imniteen/loom/internal/domain"
)

const (
	IntentFAQ   = "faq"
	IntentOrder = "order"
	IntentHuman = "human"
)

// ActionEscalate marks a thread that triage handed to a human.
const ActionEscalate = "escalate"

// EscalationNotice is the user-visible acknowledgment for a turn that
// halted for human review.
const EscalationNotice = "Your request has been escalated to a support specialist. A human will review your case and respond shortly."

var angerKeywords = []string{"angry", "furious", "unacceptable", "refund now", "cancel immediately"}

var orderIDPattern = regexp.MustCompile(`#?(\d{5})`)

// Triage classifies the message into an intent and extracts the order
// reference when present. Escalation signals win over everything else.
func Triage(ctx context.Context, state domain.ConversationState) (domain.ConversationState, error) {
	lower := strings.ToLower(state.UserMessage)

	for _, keyword := range angerKeywords {
		if strings.Contains(lower, keyword) {
			state.Intent = domain.StringPtr(IntentHuman)
			state.PendingAction = domain.StringPtr(ActionEscalate)
			return state, nil
		}
	}

	if strings.Contains(lower, "order") || strings.Contains(state.UserMessage, "#") {
		state.Intent = domain.StringPtr(IntentOrder)
		if m := orderIDPattern.FindStringSubmatch(state.UserMessage); m != nil {
			state.OrderID = domain.StringPtr(m[1])
		}
		return state, nil
	}

	state.Intent = domain.StringPtr(IntentFAQ)
	return state, nil
}

var faqEntries = []struct {
	keywords []string
	reply    string
}{
	{
		keywords: []string{"return", "refund"},
		reply:    "Our return policy allows returns within 30 days of purchase. Items must be unused and in original packaging.",
	},
	{
		keywords: []string{"shipping"},
		reply:    "Standard shipping takes 5-7 business days. Express shipping is available for 2-3 day delivery.",
	},
	{
		keywords: []string{"payment"},
		reply:    "We accept all major credit cards, PayPal, and Apple Pay.",
	},
	{
		keywords: []string{"contact", "support"},
		reply:    "You can reach us at support@example.com or call 1-800-SUPPORT.",
	},
}

// FAQ drafts a canned answer by keyword, first entry wins. An unmatched
// question gets a clarifying prompt instead of a guess.
func FAQ(ctx context.Context, state domain.ConversationState) (domain.ConversationState, error) {
	lower := strings.ToLower(state.UserMessage)

	var reply string
	for _, entry := range faqEntries {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				reply = entry.reply
				break
			}
		}
		if reply != "" {
			break
		}
	}
	if reply == "" {
		reply = "I'd be happy to help! Could you please provide more details about your question?"
	}

	state.DraftReply = domain.StringPtr(reply)
	return state, nil
}

var mockOrders = map[string]struct {
	status   string
	delivery string
}{
	"12345": {status: "In Transit", delivery: "Thursday, Dec 12"},
	"67890": {status: "Delivered", delivery: "Dec 8"},
	"11111": {status: "Processing", delivery: "Dec 15"},
}

// OrderLookup drafts an order status reply. Without an order reference
// it asks for one; the thread keeps the reference for later turns.
func OrderLookup(ctx context.Context, state domain.ConversationState) (domain.ConversationState, error) {
	if state.OrderID == nil {
		state.DraftReply = domain.StringPtr("I'd be happy to help with your order. Could you provide your order number? (Format: #12345)")
		return state, nil
	}

	info, ok := mockOrders[*state.OrderID]
	if !ok {
		state.DraftReply = domain.StringPtr(fmt.Sprintf(
			"I couldn't find order #%s. Please check the order number and try again.", *state.OrderID))
		return state, nil
	}

	state.DraftReply = domain.StringPtr(fmt.Sprintf(
		"Order #%s status: %s\nExpected delivery: %s\n\nIs there anything else I can help you with?",
		*state.OrderID, info.status, info.delivery))
	return state, nil
}

// Human runs only when an operator resumes an escalated thread; the
// arriving message is the operator's resolution, relayed to the user.
func Human(ctx context.Context, state domain.ConversationState) (domain.ConversationState, error) {
	resolution := strings.TrimSpace(state.UserMessage)
	if resolution == "" {
		state.FinalReply = domain.StringPtr("A support specialist has reviewed your case and will follow up shortly.")
	} else {
		state.FinalReply = domain.StringPtr(fmt.Sprintf("A support specialist has reviewed your case: %s", resolution))
	}

	state.PendingAction = nil
	return state, nil
}

// RouteByIntent steers triaged turns; an unset intent falls back to faq.
func RouteByIntent(state domain.ConversationState) string {
	if state.Intent == nil {
		return IntentFAQ
	}
	return *state.Intent
}
