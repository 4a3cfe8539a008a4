package alerting

import (
	"fmt"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/chadibenrejeb/hive-watch/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// DefaultRules returns the built-in hive thresholds.
func DefaultRules() []entities.AlertRule {
	return []entities.AlertRule{
		{
			ID:        "humidity_high",
			Field:     entities.FieldHumidity,
			Condition: entities.ConditionGreater,
			Threshold: 80,
			Severity:  entities.SeverityCritical,
			Message:   "High humidity detected! Risk of condensation in hive.",
		},
		{
			ID:        "temperature_low",
			Field:     entities.FieldTemperature,
			Condition: entities.ConditionLess,
			Threshold: 20,
			Severity:  entities.SeverityCritical,
			Message:   "Temperature too low! Bees may be stressed.",
		},
		{
			ID:        "temperature_high",
			Field:     entities.FieldTemperature,
			Condition: entities.ConditionGreater,
			Threshold: 35,
			Severity:  entities.SeverityWarning,
			Message:   "Temperature getting high. Monitor ventilation.",
		},
		{
			ID:        "humidity_low",
			Field:     entities.FieldHumidity,
			Condition: entities.ConditionLess,
			Threshold: 30,
			Severity:  entities.SeverityWarning,
			Message:   "Low humidity detected. Check water sources.",
		},
		{
			ID:        "weight_low",
			Field:     entities.FieldWeight,
			Condition: entities.ConditionLess,
			Threshold: 20,
			Severity:  entities.SeverityWarning,
			Message:   "Hive weight is low. Check honey stores.",
		},
	}
}

// LoadRules reads a YAML rule file. An empty path yields the default rules.
func LoadRules(path string) ([]entities.AlertRule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	ruleSet, err := utils.ConfigurationParser(path, entities.RuleSet{})
	if err != nil {
		return nil, errors.Wrapf(err, "read rules file %s", path)
	}
	if err := ValidateRules(ruleSet.Rules); err != nil {
		return nil, errors.Wrapf(err, "rules file %s", path)
	}
	return ruleSet.Rules, nil
}

// ValidateRules checks tags, id uniqueness and that every rule targets a
// numeric channel.
func ValidateRules(rules []entities.AlertRule) error {
	if len(rules) == 0 {
		return errors.New("no alert rules defined")
	}
	seen := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		if err := validate.Struct(rule); err != nil {
			return errors.Wrapf(err, "rule %d", i)
		}
		if !rule.Field.IsNumeric() {
			return fmt.Errorf("rule %s: field %q is not a numeric sensor channel", rule.ID, rule.Field)
		}
		if _, ok := seen[rule.ID]; ok {
			return fmt.Errorf("rule %s: duplicated id", rule.ID)
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}
