package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/fsmpoller"
)

// RuleKind selects which poller registration a [Rule] becomes.
type RuleKind string

const (
	OnTo     RuleKind = "to"
	OnFrom   RuleKind = "from"
	OnFromTo RuleKind = "from_to"
	OnAny    RuleKind = "any"
	OnWhile  RuleKind = "while"
)

// Action is what a rule does when it fires.
type Action string

const (
	// ActionLog writes the rule's message at the rule's level.
	ActionLog Action = "log"

	// ActionExit logs like ActionLog and then ends [Engine.Run].
	ActionExit Action = "exit"
)

// AllEndpoints as a rule's Endpoint applies the rule to every endpoint.
const AllEndpoints = "*"

// ErrExitRequested is returned from a poll when an exit rule fired.
var ErrExitRequested = errors.New("exit rule fired")

// Rule binds a reaction to transitions or residency of one or all endpoints.
type Rule struct {
	// Endpoint is an endpoint name, or "" / "*" for every endpoint.
	Endpoint string

	Kind RuleKind

	// From and To are used by OnFrom, OnTo and OnFromTo.
	From []string
	To   []string

	// States is used by OnWhile.
	States []string

	Action  Action
	Level   slog.Level
	Message string
}

func (r Rule) appliesTo(endpoint string) bool {
	return r.Endpoint == "" || r.Endpoint == AllEndpoints || r.Endpoint == endpoint
}

// Validate checks that the rule carries the states its kind needs.
func (r Rule) Validate() error {
	switch r.Kind {
	case OnTo:
		if len(r.To) == 0 || len(r.From) > 0 {
			return errors.New("rule 'to' requires 'to' states and no 'from' states")
		}
	case OnFrom:
		if len(r.From) == 0 || len(r.To) > 0 {
			return errors.New("rule 'from' requires 'from' states and no 'to' states")
		}
	case OnFromTo:
		if len(r.From) == 0 || len(r.To) == 0 {
			return errors.New("rule 'from_to' requires both 'from' and 'to' states")
		}
	case OnAny:
		if len(r.From) > 0 || len(r.To) > 0 || len(r.States) > 0 {
			return errors.New("rule 'any' takes no states")
		}
	case OnWhile:
		if len(r.States) == 0 {
			return errors.New("rule 'while' requires 'states'")
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}

	if r.Kind != OnWhile && len(r.States) > 0 {
		return fmt.Errorf("rule %q does not take 'states'", r.Kind)
	}

	switch r.Action {
	case "", ActionLog, ActionExit:
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	return nil
}

// register installs r on p for the endpoint p watches.
func (r Rule) register(p *fsmpoller.Poller[string], endpoint string, logger *slog.Logger) {
	onTransition := func(e fsmpoller.TransitionEvent[string]) error {
		msg := r.Message
		if msg == "" {
			msg = "state transition"
		}
		logger.Log(context.Background(), r.Level, msg,
			"endpoint", endpoint,
			"rule", string(r.Kind),
			"from", e.From,
			"to", e.To,
		)
		return r.result()
	}

	onState := func(state string) error {
		msg := r.Message
		if msg == "" {
			msg = "state residency"
		}
		logger.Log(context.Background(), r.Level, msg,
			"endpoint", endpoint,
			"rule", string(r.Kind),
			"state", state,
		)
		return r.result()
	}

	switch r.Kind {
	case OnTo:
		p.ToStates(r.To, onTransition)
	case OnFrom:
		p.FromStates(r.From, onTransition)
	case OnFromTo:
		p.FromToStates(r.From, r.To, onTransition)
	case OnAny:
		p.AnyTransition(onTransition)
	case OnWhile:
		p.ExecuteWhileInStates(r.States, onState)
	}
}

func (r Rule) result() error {
	if r.Action == ActionExit {
		return ErrExitRequested
	}
	return nil
}
