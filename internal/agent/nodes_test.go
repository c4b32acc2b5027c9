package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imniteen/loom/internal/domain"
)

func stateWithMessage(message string) domain.ConversationState {
	state := domain.NewConversationState("alice:s1", "alice", "s1")
	state.UserMessage = message
	return state
}

func TestTriage(t *testing.T) {
	tests := []struct {
		name          string
		message       string
		wantIntent    string
		wantOrderID   string
		wantEscalated bool
	}{
		{
			name:       "plain question is faq",
			message:    "What is your return policy?",
			wantIntent: IntentFAQ,
		},
		{
			name:        "order keyword",
			message:     "Where is my order 12345?",
			wantIntent:  IntentOrder,
			wantOrderID: "12345",
		},
		{
			name:        "hash reference without the word order",
			message:     "Any update on #67890?",
			wantIntent:  IntentOrder,
			wantOrderID: "67890",
		},
		{
			name:       "order keyword without a number",
			message:    "I have a question about my order",
			wantIntent: IntentOrder,
		},
		{
			name:          "anger escalates",
			message:       "This is UNACCEPTABLE, fix it",
			wantIntent:    IntentHuman,
			wantEscalated: true,
		},
		{
			name:          "refund now escalates",
			message:       "I want my refund now",
			wantIntent:    IntentHuman,
			wantEscalated: true,
		},
		{
			name:          "anger wins over order signal",
			message:       "I am furious about order #12345",
			wantIntent:    IntentHuman,
			wantEscalated: true,
		},
		{
			name:       "short numbers are not order ids",
			message:    "order #123 please",
			wantIntent: IntentOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Triage(context.Background(), stateWithMessage(tt.message))
			require.NoError(t, err)

			require.NotNil(t, out.Intent)
			assert.Equal(t, tt.wantIntent, *out.Intent)

			if tt.wantOrderID == "" {
				assert.Nil(t, out.OrderID)
			} else {
				require.NotNil(t, out.OrderID)
				assert.Equal(t, tt.wantOrderID, *out.OrderID)
			}

			if tt.wantEscalated {
				require.NotNil(t, out.PendingAction)
				assert.Equal(t, ActionEscalate, *out.PendingAction)
			} else {
				assert.Nil(t, out.PendingAction)
			}
		})
	}
}

func TestFAQ(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		contains string
	}{
		{name: "return policy", message: "What is your return policy?", contains: "30 days"},
		{name: "refund maps to return policy", message: "Can I get a refund?", contains: "30 days"},
		{name: "shipping", message: "How long does shipping take?", contains: "5-7 business days"},
		{name: "payment", message: "What payment methods do you take?", contains: "PayPal"},
		{name: "contact", message: "How do I contact you?", contains: "support@example.com"},
		{name: "unknown asks for details", message: "Tell me about the weather", contains: "more details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FAQ(context.Background(), stateWithMessage(tt.message))
			require.NoError(t, err)
			require.NotNil(t, out.DraftReply)
			assert.Contains(t, *out.DraftReply, tt.contains)
		})
	}
}

func TestOrderLookup(t *testing.T) {
	tests := []struct {
		name     string
		orderID  *string
		contains string
	}{
		{name: "no id asks for one", orderID: nil, contains: "Format: #12345"},
		{name: "in transit", orderID: domain.StringPtr("12345"), contains: "In Transit"},
		{name: "delivered", orderID: domain.StringPtr("67890"), contains: "Delivered"},
		{name: "processing", orderID: domain.StringPtr("11111"), contains: "Processing"},
		{name: "unknown order", orderID: domain.StringPtr("99999"), contains: "couldn't find order #99999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateWithMessage("where is my order")
			state.OrderID = tt.orderID

			out, err := OrderLookup(context.Background(), state)
			require.NoError(t, err)
			require.NotNil(t, out.DraftReply)
			assert.Contains(t, *out.DraftReply, tt.contains)
		})
	}
}

func TestHumanRelaysOperatorResolution(t *testing.T) {
	state := stateWithMessage("Refund issued, order resent with express shipping")
	state.Intent = domain.StringPtr(IntentHuman)
	state.PendingAction = domain.StringPtr(ActionEscalate)

	out, err := Human(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, out.FinalReply)
	assert.Contains(t, *out.FinalReply, "Refund issued")
	assert.Nil(t, out.PendingAction)
}

func TestHumanWithoutMessageFallsBack(t *testing.T) {
	state := stateWithMessage("   ")

	out, err := Human(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, out.FinalReply)
	assert.Contains(t, *out.FinalReply, "follow up shortly")
}

func TestRouteByIntent(t *testing.T) {
	state := stateWithMessage("hi")
	assert.Equal(t, IntentFAQ, RouteByIntent(state))

	state.Intent = domain.StringPtr(IntentOrder)
	assert.Equal(t, IntentOrder, RouteByIntent(state))

	state.Intent = domain.StringPtr(IntentHuman)
	assert.Equal(t, IntentHuman, RouteByIntent(state))
}
