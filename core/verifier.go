package core

// verifier.go — C12 Result Verifier. Grounded on
// original_source/duxos_tasks/result_verifier.py's rule-registry shape,
// rebuilt as a pure function pipeline per spec §4.9 (no database, no
// mutation): presence/non-negative-time, hash match, a service-specific
// hook, then per-task-id custom rules.

import (
	"fmt"
)

// RuleType is a verification rule's kind (spec §4.9).
type RuleType string

const (
	RuleHash   RuleType = "hash"
	RuleFormat RuleType = "format"
	RuleRange  RuleType = "range"
	RuleCustom RuleType = "custom"
)

// Rule is one verification check in a task's RuleSet.
type Rule struct {
	Type RuleType

	// RuleHash
	ExpectedHash string

	// RuleFormat
	RequiredFields map[string]string // field -> expected Go kind name ("string","float64","bool","map","slice")

	// RuleRange
	Field string
	Min   float64
	Max   float64

	// RuleCustom
	Check func(output map[string]any) error
}

// ServiceHook is a service-specific validation function dispatched by
// service_name.
type ServiceHook func(output map[string]any) error

// Verifier applies the ordered checks of spec §4.9. It is pure and
// side-effect-free: Verify never mutates task or escrow state, only
// returns a pass/fail decision.
type Verifier struct {
	hooks    map[string]ServiceHook
	ruleSets map[string][]Rule // keyed by task id
}

// NewVerifier builds an empty Verifier.
func NewVerifier() *Verifier {
	return &Verifier{
		hooks:    make(map[string]ServiceHook),
		ruleSets: make(map[string][]Rule),
	}
}

// RegisterServiceHook installs a service-specific check dispatched by
// serviceName.
func (v *Verifier) RegisterServiceHook(serviceName string, hook ServiceHook) {
	v.hooks[serviceName] = hook
}

// RegisterRules installs a custom RuleSet for a specific task id (spec
// §4.9 step iv; original_source's per-task_id rule dict, SPEC_FULL.md C.7).
func (v *Verifier) RegisterRules(taskID string, rules []Rule) {
	v.ruleSets[taskID] = rules
}

// Verify runs the full ordered check pipeline for a release attempt. It
// recomputes the result hash from resultFields and compares it against
// resultHash (spec §4.3's release precondition), then applies a
// service-specific hook and any task-specific RuleSet.
func (v *Verifier) Verify(taskID, resultHash string, resultFields map[string]any) error {
	if resultFields == nil {
		return FieldError(KindValidation, "output_data", "output data is required")
	}
	if t, ok := resultFields["execution_time_seconds"].(float64); ok && t < 0 {
		return FieldError(KindValidation, "execution_time_seconds", "execution time must be non-negative")
	}
	if len(resultHash) != 64 {
		return FieldError(KindValidation, "result_hash", "result_hash must be 64 hex characters")
	}
	recomputed := ResultHash(resultFields)
	if recomputed != resultHash {
		return FieldError(KindValidation, "result_hash", "result_hash does not match recomputed hash")
	}

	if serviceName, ok := resultFields["service_name"].(string); ok {
		if hook, ok := v.hooks[serviceName]; ok {
			if err := hook(resultFields); err != nil {
				return WrapError(KindValidation, "service-specific verification failed", err)
			}
		}
	}

	for _, rule := range v.ruleSets[taskID] {
		if err := applyRule(rule, resultFields); err != nil {
			return err
		}
	}
	return nil
}

func applyRule(rule Rule, output map[string]any) error {
	switch rule.Type {
	case RuleHash:
		if ResultHash(output) != rule.ExpectedHash {
			return FieldError(KindValidation, "result_hash", "custom hash rule failed")
		}
	case RuleFormat:
		for field, kind := range rule.RequiredFields {
			val, ok := output[field]
			if !ok {
				return FieldError(KindValidation, field, "required field missing")
			}
			if !matchesKind(val, kind) {
				return FieldError(KindValidation, field, fmt.Sprintf("field has wrong type, expected %s", kind))
			}
		}
	case RuleRange:
		val, ok := output[rule.Field].(float64)
		if !ok {
			return FieldError(KindValidation, rule.Field, "field is not numeric")
		}
		if val < rule.Min || val > rule.Max {
			return FieldError(KindValidation, rule.Field, "field out of range")
		}
	case RuleCustom:
		if rule.Check != nil {
			if err := rule.Check(output); err != nil {
				return WrapError(KindValidation, "custom rule failed", err)
			}
		}
	}
	return nil
}

func matchesKind(val any, kind string) bool {
	switch kind {
	case "string":
		_, ok := val.(string)
		return ok
	case "float64":
		_, ok := val.(float64)
		return ok
	case "bool":
		_, ok := val.(bool)
		return ok
	case "map":
		_, ok := val.(map[string]any)
		return ok
	case "slice":
		_, ok := val.([]any)
		return ok
	default:
		return false
	}
}
