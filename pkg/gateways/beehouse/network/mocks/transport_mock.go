package mocks

import (
	"github.com/chadibenrejeb/hive-watch/pkg/gateways/beehouse/network"
	"github.com/stretchr/testify/mock"
)

type TransportMock struct {
	mock.Mock
}

func (t *TransportMock) Connect(url string, options network.Options, handlers network.Handlers) (network.Client, error) {
	args := t.Called(url, options, handlers)
	client, _ := args.Get(0).(network.Client)
	return client, args.Error(1)
}

type ClientMock struct {
	mock.Mock
}

func (c *ClientMock) Subscribe(topic string) error {
	args := c.Called(topic)
	return args.Error(0)
}

func (c *ClientMock) Close() error {
	args := c.Called()
	return args.Error(0)
}
