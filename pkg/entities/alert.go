package entities

import "time"

type Condition string

type Severity string

const (
	ConditionGreater Condition = "greater"
	ConditionLess    Condition = "less"

	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	AlertKindRule       = "rule"
	AlertKindConnection = "connection"
)

type AlertRule struct {
	ID        string    `yaml:"id" json:"id" validate:"required"`
	Field     Field     `yaml:"field" json:"field" validate:"required"`
	Condition Condition `yaml:"condition" json:"condition" validate:"oneof=greater less"`
	Threshold float64   `yaml:"threshold" json:"threshold"`
	Severity  Severity  `yaml:"severity" json:"severity" validate:"oneof=warning critical"`
	Message   string    `yaml:"message" json:"message" validate:"required"`
}

type RuleSet struct {
	Rules []AlertRule `yaml:"rules" validate:"dive"`
}

// Alert is what a notifier receives: a newly triggered rule or a connection notice.
type Alert struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	RuleID    string    `json:"ruleId,omitempty"`
	Field     Field     `json:"field,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Title     string    `json:"title"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
