package agent

import (
	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

// GraphSpec assembles the shipped support workflow: triage fans out to
// faq, order handling, or human escalation; drafted replies pass through
// tone before terminal; the human node is gated for operator input.
func GraphSpec(polisher ports.Polisher, cfg domain.AgentConfig) domain.GraphSpec {
	w := NewWorkflow(polisher, cfg.PolishTimeout)

	return domain.GraphSpec{
		Start: "triage",
		Nodes: []domain.NodeSpec{
			{Name: "triage", Fn: Triage},
			{Name: "faq", Fn: FAQ},
			{Name: "order", Fn: OrderLookup},
			{Name: "human", Fn: Human},
			{Name: "tone", Fn: w.Tone},
		},
		Edges: []domain.EdgeSpec{
			{From: "faq", To: "tone"},
			{From: "order", To: "tone"},
			{From: "tone", To: domain.End},
			{From: "human", To: domain.End},
		},
		Routers: []domain.RouterSpec{
			{
				Node:    "triage",
				Fn:      RouteByIntent,
				Targets: []string{IntentFAQ, IntentOrder, IntentHuman},
			},
		},
		InterruptBefore: []string{"human"},
	}
}
