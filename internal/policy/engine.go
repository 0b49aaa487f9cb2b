// Package policy evaluates the admin authorization policy with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Admin actions checked by the policy.
const (
	ActionListSessions     = "sessions.list"
	ActionGetSession       = "sessions.get"
	ActionListActivities   = "sessions.activities"
	ActionTerminateSession = "sessions.terminate"
	ActionSetSessionStatus = "sessions.status"
)

// Input is the document the policy is evaluated against.
type Input struct {
	Action        string `json:"action"`
	SessionID     string `json:"session_id,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares policyContent. The module must define
// data.admin_policy.decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.admin_policy.decision"),
		rego.Module("admin_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision string for input. An undefined decision is
// treated as deny.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionDeny, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionDeny, nil
}

// Allowed reports whether input is allowed.
func (e *Engine) Allowed(ctx context.Context, input Input) (bool, error) {
	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return false, err
	}
	return decision == DecisionAllow, nil
}

// DefaultPolicy lets anyone read the session directory and requires an
// authenticated caller for mutations.
const DefaultPolicy = `
package admin_policy

import rego.v1

read_actions := {"sessions.list", "sessions.get", "sessions.activities"}

default allow := false

allow if input.action in read_actions

allow if input.authenticated == true

default decision := "deny"

decision := "allow" if allow
`
