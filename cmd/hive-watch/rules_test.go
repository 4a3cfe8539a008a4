package main

import (
	"bytes"
	"testing"

	"github.com/chadibenrejeb/hive-watch/pkg/alerting"
	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestPrintRulesTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRules(&out, alerting.DefaultRules(), "table"))

	assert.Contains(t, out.String(), "humidity_high")
	assert.Contains(t, out.String(), "High humidity detected! Risk of condensation in hive.")
	assert.Equal(t, 6, bytes.Count(out.Bytes(), []byte("\n")))
}

func TestPrintRulesYAMLRoundTrips(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRules(&out, alerting.DefaultRules(), "yaml"))

	var ruleSet entities.RuleSet
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &ruleSet))
	assert.Equal(t, alerting.DefaultRules(), ruleSet.Rules)
}

func TestPrintRulesUnknownFormat(t *testing.T) {
	assert.Error(t, printRules(&bytes.Buffer{}, alerting.DefaultRules(), "xml"))
}
