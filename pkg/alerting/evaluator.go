// Package alerting evaluates threshold rules against the hive snapshot and
// hands newly triggered alerts to notifiers.
package alerting

import (
	"sync"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
)

// IDSet is a set of rule ids.
type IDSet map[string]struct{}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Evaluation is the outcome of one rule pass. Rules keep their configured order.
type Evaluation struct {
	Active    []entities.AlertRule
	Triggered []entities.AlertRule
}

func (e Evaluation) Critical() []entities.AlertRule {
	return bySeverity(e.Active, entities.SeverityCritical)
}

func (e Evaluation) Warnings() []entities.AlertRule {
	return bySeverity(e.Active, entities.SeverityWarning)
}

func bySeverity(rules []entities.AlertRule, severity entities.Severity) []entities.AlertRule {
	result := []entities.AlertRule{}
	for _, rule := range rules {
		if rule.Severity == severity {
			result = append(result, rule)
		}
	}
	return result
}

// Matches reports whether rule holds for snapshot. Unknown fields never match.
func Matches(rule entities.AlertRule, snapshot entities.Snapshot) bool {
	value, ok := snapshot.Numeric(rule.Field)
	if !ok {
		return false
	}
	switch rule.Condition {
	case entities.ConditionGreater:
		return value > rule.Threshold
	case entities.ConditionLess:
		return value < rule.Threshold
	}
	return false
}

// Evaluate computes the active set for snapshot and the rules that were not
// active in previous.
func Evaluate(rules []entities.AlertRule, snapshot entities.Snapshot, previous IDSet) (IDSet, Evaluation) {
	active := make(IDSet)
	evaluation := Evaluation{Active: []entities.AlertRule{}, Triggered: []entities.AlertRule{}}
	for _, rule := range rules {
		if !Matches(rule, snapshot) {
			continue
		}
		active[rule.ID] = struct{}{}
		evaluation.Active = append(evaluation.Active, rule)
		if !previous.Has(rule.ID) {
			evaluation.Triggered = append(evaluation.Triggered, rule)
		}
	}
	return active, evaluation
}

// Evaluator owns the previous active set used for edge detection.
type Evaluator struct {
	rules []entities.AlertRule

	mu       sync.RWMutex
	previous IDSet
	last     Evaluation
}

func NewEvaluator(rules []entities.AlertRule) *Evaluator {
	owned := make([]entities.AlertRule, len(rules))
	copy(owned, rules)
	return &Evaluator{
		rules:    owned,
		previous: make(IDSet),
		last:     Evaluation{Active: []entities.AlertRule{}, Triggered: []entities.AlertRule{}},
	}
}

// Evaluate runs every rule against snapshot and replaces the previous active
// set with the new one.
func (e *Evaluator) Evaluate(snapshot entities.Snapshot) Evaluation {
	e.mu.Lock()
	defer e.mu.Unlock()
	active, evaluation := Evaluate(e.rules, snapshot, e.previous)
	e.previous = active
	e.last = evaluation
	return evaluation
}

// Current returns the result of the last evaluation.
func (e *Evaluator) Current() Evaluation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

func (e *Evaluator) Rules() []entities.AlertRule {
	rules := make([]entities.AlertRule, len(e.rules))
	copy(rules, e.rules)
	return rules
}
