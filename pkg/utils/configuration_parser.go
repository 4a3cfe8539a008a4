// Package utils reads YAML documents into typed configuration values.
package utils

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type document interface {
	entities.RuleSet | entities.ConnectionConfig
}

var errEmptyDocument = errors.New("file is empty")

// ConfigurationParser decodes the YAML file at path on top of defaults.
// Unknown keys are an error.
func ConfigurationParser[T document](path string, defaults T) (T, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return defaults, errors.Wrap(err, "read configuration file")
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return defaults, errors.Wrap(errEmptyDocument, path)
	}

	parsed := defaults
	if err := yaml.UnmarshalStrict(content, &parsed); err != nil {
		return defaults, errors.Wrapf(err, "parse %s", path)
	}
	return parsed, nil
}
