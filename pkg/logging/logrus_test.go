package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestCreateLogger(t *testing.T) {
	level := "info"
	log := NewLogrus(level, "text", os.Stdout)

	assert.Equal(t, log.level, level)
}

func TestGetLogger(t *testing.T) {
	log := NewLogrus("info", "text", os.Stdout)
	logger := log.Get("Testing")
	assert.Equal(t, logger.Logger.Out, os.Stdout)
	assert.Equal(t, "Testing", logger.Data["Context"])
}

func TestGetLoggerWhenInvalidLevelThenInfo(t *testing.T) {
	log := NewLogrus("loud", "text", os.Stdout)
	logger := log.Get("Testing")
	assert.Equal(t, logrus.InfoLevel, logger.Logger.GetLevel())
}

func TestGetLoggerWhenJSONFormatThenWritesJSON(t *testing.T) {
	var buffer bytes.Buffer
	log := NewLogrus("debug", "json", &buffer)
	log.Get("connection-manager").Debug("subscribed")
	assert.Contains(t, buffer.String(), `"Context":"connection-manager"`)
	assert.Contains(t, buffer.String(), `"msg":"subscribed"`)
}
