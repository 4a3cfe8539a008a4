package alerting

import (
	"testing"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func value(v float64) *float64 { return &v }

func ids(rules []entities.AlertRule) []string {
	result := []string{}
	for _, rule := range rules {
		result = append(result, rule.ID)
	}
	return result
}

type evaluatorSuite struct {
	suite.Suite
	evaluator *Evaluator
}

func (s *evaluatorSuite) SetupTest() {
	s.evaluator = NewEvaluator(DefaultRules())
}

func (s *evaluatorSuite) TestUnknownFieldsNeverMatch() {
	evaluation := s.evaluator.Evaluate(entities.Snapshot{})
	assert.Empty(s.T(), evaluation.Active)
	assert.Empty(s.T(), evaluation.Triggered)
}

func (s *evaluatorSuite) TestHumidityThresholdIsStrict() {
	evaluation := s.evaluator.Evaluate(entities.Snapshot{Humidity: value(80)})
	assert.NotContains(s.T(), ids(evaluation.Active), "humidity_high")

	evaluation = s.evaluator.Evaluate(entities.Snapshot{Humidity: value(80.01)})
	assert.Contains(s.T(), ids(evaluation.Active), "humidity_high")
	assert.Contains(s.T(), ids(evaluation.Triggered), "humidity_high")
}

func (s *evaluatorSuite) TestLessComparator() {
	evaluation := s.evaluator.Evaluate(entities.Snapshot{Temperature: value(20)})
	assert.Empty(s.T(), evaluation.Active)

	evaluation = s.evaluator.Evaluate(entities.Snapshot{Temperature: value(19.9)})
	assert.Equal(s.T(), []string{"temperature_low"}, ids(evaluation.Active))
}

func (s *evaluatorSuite) TestActiveRuleIsSurfacedOnce() {
	first := s.evaluator.Evaluate(entities.Snapshot{Humidity: value(90)})
	second := s.evaluator.Evaluate(entities.Snapshot{Humidity: value(91)})

	assert.Equal(s.T(), []string{"humidity_high"}, ids(first.Triggered))
	assert.Equal(s.T(), []string{"humidity_high"}, ids(second.Active))
	assert.Empty(s.T(), second.Triggered)
}

func (s *evaluatorSuite) TestRuleRetriggersAfterDeactivation() {
	surfaced := 0
	for _, humidity := range []float64{90, 50, 95} {
		evaluation := s.evaluator.Evaluate(entities.Snapshot{Humidity: value(humidity)})
		surfaced += len(evaluation.Triggered)
	}
	assert.Equal(s.T(), 2, surfaced)
}

func (s *evaluatorSuite) TestOnlyNewRulesAreTriggered() {
	s.evaluator.Evaluate(entities.Snapshot{Temperature: value(38)})
	evaluation := s.evaluator.Evaluate(entities.Snapshot{Temperature: value(38), Weight: value(5)})
	assert.Equal(s.T(), []string{"temperature_high", "weight_low"}, ids(evaluation.Active))
	assert.Equal(s.T(), []string{"weight_low"}, ids(evaluation.Triggered))
}

func (s *evaluatorSuite) TestPartitionBySeverity() {
	evaluation := s.evaluator.Evaluate(entities.Snapshot{
		Humidity:    value(85),
		Temperature: value(10),
		Weight:      value(3),
	})
	assert.Equal(s.T(), []string{"humidity_high", "temperature_low"}, ids(evaluation.Critical()))
	assert.Equal(s.T(), []string{"weight_low"}, ids(evaluation.Warnings()))
}

func (s *evaluatorSuite) TestCurrentReturnsLastEvaluation() {
	assert.Empty(s.T(), s.evaluator.Current().Active)
	s.evaluator.Evaluate(entities.Snapshot{Weight: value(3)})
	assert.Equal(s.T(), []string{"weight_low"}, ids(s.evaluator.Current().Active))
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(evaluatorSuite))
}

func TestEvaluateIsPure(t *testing.T) {
	previous := IDSet{"weight_low": {}}
	snapshot := entities.Snapshot{Weight: value(3)}

	active, evaluation := Evaluate(DefaultRules(), snapshot, previous)
	assert.True(t, active.Has("weight_low"))
	assert.Empty(t, evaluation.Triggered)
	assert.Len(t, previous, 1)

	active, evaluation = Evaluate(DefaultRules(), snapshot, IDSet{})
	assert.True(t, active.Has("weight_low"))
	assert.Equal(t, []string{"weight_low"}, ids(evaluation.Triggered))
}

func TestMatchesIgnoresNonNumericFields(t *testing.T) {
	door := true
	rule := entities.AlertRule{ID: "door", Field: entities.FieldDoor, Condition: entities.ConditionGreater, Threshold: 0}
	assert.False(t, Matches(rule, entities.Snapshot{Door: &door}))
}
