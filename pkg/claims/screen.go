package claims

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/inzo-ai/core-contracts/pkg/fault"
)

// Screen is an optional expression pre-screen applied to assessments before
// triage. Rules are CEL boolean expressions over the claim and assessment;
// any rule evaluating false rejects the submission outright. The triage table
// itself is never expressed in rules, so deterministic triage is preserved.
type Screen struct {
	env      *cel.Env
	rules    []string
	mu       sync.RWMutex
	prgCache map[string]cel.Program
}

// NewScreen compiles a screen environment over the assessment inputs.
func NewScreen(rules []string) (*Screen, error) {
	env, err := cel.NewEnv(
		cel.Variable("claim", cel.DynType),
		cel.Variable("assessment", cel.DynType),
		cel.Variable("coverage", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create screen environment: %w", err)
	}
	return &Screen{
		env:      env,
		rules:    rules,
		prgCache: make(map[string]cel.Program),
	}, nil
}

// Check evaluates every rule against the claim and assessment. Fail-closed:
// an evaluation error counts as a rejection.
func (s *Screen) Check(c *Claim, a Assessment, coverage int64) error {
	input := map[string]any{
		"coverage": coverage,
		"claim": map[string]any{
			"id":               c.ID,
			"policy_id":        c.PolicyID,
			"requested_amount": c.RequestedAmount,
		},
		"assessment": map[string]any{
			"payout":     a.Payout,
			"confidence": a.Confidence,
			"fraud_flag": a.FraudFlag,
		},
	}
	for i, rule := range s.rules {
		ok, err := s.evaluate(rule, input)
		if err != nil {
			return fault.New(fault.KindInvalidState, "assessment screen rule %d: %v", i, err)
		}
		if !ok {
			return fault.New(fault.KindInvalidState, "assessment screen rejected claim %s (rule %d)", c.ID, i)
		}
	}
	return nil
}

func (s *Screen) evaluate(expr string, input map[string]any) (bool, error) {
	s.mu.RLock()
	prg, hit := s.prgCache[expr]
	s.mu.RUnlock()

	if !hit {
		s.mu.Lock()
		if prg, hit = s.prgCache[expr]; !hit {
			ast, issues := s.env.Compile(expr)
			if issues != nil && issues.Err() != nil {
				s.mu.Unlock()
				return false, fmt.Errorf("compile: %w", issues.Err())
			}
			p, err := s.env.Program(ast,
				cel.InterruptCheckFrequency(100),
				cel.CostLimit(10000),
			)
			if err != nil {
				s.mu.Unlock()
				return false, fmt.Errorf("program: %w", err)
			}
			s.prgCache[expr] = p
			prg = p
		}
		s.mu.Unlock()
	}

	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("result not bool")
	}
	return val, nil
}
