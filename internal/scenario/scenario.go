// Package scenario provides declarative conversation scripts for
// exercising a manager end to end: each scenario is a sequence of user
// turns with expectations about the state the workflow must reach.
package scenario

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imniteen/loom/internal/agent"
	"github.com/imniteen/loom/internal/domain"
)

// Scenario is a named conversation script for a single user.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	UserID      string       `yaml:"user_id"`
	Steps       []Step       `yaml:"steps"`
	Search      *SearchCheck `yaml:"search,omitempty"`
}

// Step sends one user message. NewSession drops the running session so
// the turn opens a fresh thread; Restart reopens the manager first to
// prove the thread survives a process boundary.
type Step struct {
	Message    string      `yaml:"message"`
	NewSession bool        `yaml:"new_session,omitempty"`
	Restart    bool        `yaml:"restart,omitempty"`
	Expect     Expectation `yaml:"expect,omitempty"`
}

// Expectation describes the state a turn must reach. Zero-valued fields
// are not checked; pointer fields distinguish "must be false" from
// "don't care".
type Expectation struct {
	Intent        string   `yaml:"intent,omitempty"`
	Resolved      *bool    `yaml:"resolved,omitempty"`
	AwaitingInput *bool    `yaml:"awaiting_input,omitempty"`
	Interrupted   *bool    `yaml:"interrupted,omitempty"`
	OrderID       string   `yaml:"order_id,omitempty"`
	ReplyContains []string `yaml:"reply_contains,omitempty"`
	MinHistory    int      `yaml:"min_history,omitempty"`
}

// SearchCheck runs after all steps and polls the index until the query
// returns enough conversations for the scenario's user.
type SearchCheck struct {
	Query      string `yaml:"query"`
	MinResults int    `yaml:"min_results"`
}

// Load reads scenarios from a YAML file with a top-level scenarios list.
func Load(path string) ([]Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "failed to read scenario file",
			Details: map[string]interface{}{"path": path, "error": err.Error()},
		}
	}

	var file struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "failed to parse scenario file",
			Details: map[string]interface{}{"path": path, "error": err.Error()},
		}
	}
	if len(file.Scenarios) == 0 {
		return nil, domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "scenario file defines no scenarios",
			Details: map[string]interface{}{"path": path},
		}
	}

	for _, sc := range file.Scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Scenarios, nil
}

// Validate checks a scenario for structural problems before it runs.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return domain.Error{Type: domain.ErrorTypeValidation, Message: "scenario has no name"}
	}
	if s.UserID == "" {
		return domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "scenario has no user_id",
			Details: map[string]interface{}{"scenario": s.Name},
		}
	}
	if len(s.Steps) == 0 {
		return domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "scenario has no steps",
			Details: map[string]interface{}{"scenario": s.Name},
		}
	}
	for i, step := range s.Steps {
		if strings.TrimSpace(step.Message) == "" {
			return domain.Error{
				Type:    domain.ErrorTypeValidation,
				Message: "scenario step has an empty message",
				Details: map[string]interface{}{"scenario": s.Name, "step": i + 1},
			}
		}
	}
	if s.Search != nil && s.Search.Query == "" {
		return domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "scenario search check has no query",
			Details: map[string]interface{}{"scenario": s.Name},
		}
	}
	return nil
}

// Builtin returns the stock scenarios, one per workflow property worth
// demonstrating from the command line.
func Builtin() []Scenario {
	return []Scenario{
		basicScenario(),
		hitlScenario(),
		durabilityScenario(),
		searchScenario(),
	}
}

// ByName finds a builtin scenario.
func ByName(name string) (Scenario, bool) {
	for _, sc := range Builtin() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

func basicScenario() Scenario {
	return Scenario{
		Name:        "basic",
		Description: "FAQ turn plus a follow-up on the same session",
		UserID:      "test-user-basic",
		Steps: []Step{
			{
				Message: "What's your return policy?",
				Expect: Expectation{
					Intent:        agent.IntentFAQ,
					Resolved:      domain.BoolPtr(true),
					ReplyContains: []string{"30 days"},
				},
			},
			{
				Message: "How long do I have?",
				Expect: Expectation{
					Resolved:   domain.BoolPtr(true),
					MinHistory: 4,
				},
			},
		},
	}
}

func hitlScenario() Scenario {
	return Scenario{
		Name:        "hitl",
		Description: "Escalation pauses the thread until an operator responds",
		UserID:      "test-user-hitl",
		Steps: []Step{
			{
				Message: "I'm extremely angry! Refund my order NOW!",
				Expect: Expectation{
					Intent:        agent.IntentHuman,
					Interrupted:   domain.BoolPtr(true),
					AwaitingInput: domain.BoolPtr(true),
					Resolved:      domain.BoolPtr(false),
				},
			},
			{
				Message: "Approved: Issue full refund for order #12345",
				Expect: Expectation{
					Interrupted:   domain.BoolPtr(false),
					AwaitingInput: domain.BoolPtr(false),
					Resolved:      domain.BoolPtr(true),
					ReplyContains: []string{"Approved"},
				},
			},
		},
	}
}

func durabilityScenario() Scenario {
	return Scenario{
		Name:        "durability",
		Description: "Conversation state survives a manager restart",
		UserID:      "test-user-durability",
		Steps: []Step{
			{
				Message: "I need help with order #67890",
				Expect: Expectation{
					Intent:        agent.IntentOrder,
					OrderID:       "67890",
					ReplyContains: []string{"Delivered"},
				},
			},
			{
				Message: "When will it arrive?",
				Restart: true,
				Expect: Expectation{
					OrderID:    "67890",
					MinHistory: 4,
				},
			},
		},
	}
}

func searchScenario() Scenario {
	return Scenario{
		Name:        "search",
		Description: "Resolved conversations become findable by full-text search",
		UserID:      "test-user-search",
		Steps: []Step{
			{
				Message:    "I need a refund for my delayed order",
				NewSession: true,
				Expect:     Expectation{Intent: agent.IntentOrder},
			},
			{
				Message:    "What's your shipping policy?",
				NewSession: true,
				Expect: Expectation{
					Intent:        agent.IntentFAQ,
					ReplyContains: []string{"5-7 business days"},
				},
			},
			{
				Message:    "My package is damaged, need refund",
				NewSession: true,
				Expect: Expectation{
					Intent:        agent.IntentFAQ,
					ReplyContains: []string{"30 days"},
				},
			},
		},
		Search: &SearchCheck{Query: "refund", MinResults: 2},
	}
}
