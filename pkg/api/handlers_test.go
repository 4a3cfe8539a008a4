package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chadibenrejeb/hive-watch/pkg/alerting"
	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/chadibenrejeb/hive-watch/pkg/gateways/beehouse"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func value(v float64) *float64 { return &v }

type fakeEngine struct {
	status     entities.ConnectionStatus
	lastErr    error
	snapshot   entities.Snapshot
	history    []entities.Snapshot
	evaluation alerting.Evaluation
	connectErr error
	connected  []entities.ConnectionConfig
	disconnect int
}

func (f *fakeEngine) Connect(config entities.ConnectionConfig) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = append(f.connected, config)
	f.status = entities.StatusConnecting
	return nil
}

func (f *fakeEngine) Disconnect() error {
	f.disconnect++
	f.status = entities.StatusDisconnected
	return nil
}

func (f *fakeEngine) Status() entities.ConnectionStatus { return f.status }
func (f *fakeEngine) IsConnected() bool                 { return f.status == entities.StatusConnected }
func (f *fakeEngine) LastError() error                  { return f.lastErr }
func (f *fakeEngine) Snapshot() entities.Snapshot       { return f.snapshot }
func (f *fakeEngine) History() []entities.Snapshot      { return f.history }
func (f *fakeEngine) Alerts() alerting.Evaluation       { return f.evaluation }
func (f *fakeEngine) Rules() []entities.AlertRule       { return alerting.DefaultRules() }
func (f *fakeEngine) Topics() []string                  { return []string{"beehouse/sensor/temperature"} }

type handlerSuite struct {
	suite.Suite
	engine *fakeEngine
	router http.Handler
}

func (s *handlerSuite) SetupTest() {
	s.engine = &fakeEngine{status: entities.StatusDisconnected}
	defaults := entities.ConnectionConfig{BrokerURL: "ws://broker.local:9001/mqtt", Username: "hive"}
	s.router = NewRouter(NewHandler(s.engine, nil, defaults, logrus.NewEntry(logrus.New())))
}

func (s *handlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, request)
	return recorder
}

func (s *handlerSuite) decode(recorder *httptest.ResponseRecorder, target interface{}) {
	require.Equal(s.T(), "application/json", recorder.Header().Get("Content-Type"))
	require.NoError(s.T(), json.NewDecoder(recorder.Body).Decode(target))
}

func (s *handlerSuite) TestHealth() {
	recorder := s.do(http.MethodGet, "/health", "")
	assert.Equal(s.T(), http.StatusOK, recorder.Code)
	assert.Equal(s.T(), "OK\n", recorder.Body.String())
}

func (s *handlerSuite) TestMetrics() {
	recorder := s.do(http.MethodGet, "/metrics", "")
	assert.Equal(s.T(), http.StatusOK, recorder.Code)
	assert.Contains(s.T(), recorder.Body.String(), "go_goroutines")
}

func (s *handlerSuite) TestStatus() {
	s.engine.status = entities.StatusError
	s.engine.lastErr = errors.New("connection refused")

	recorder := s.do(http.MethodGet, "/api/status", "")
	var response StatusResponse
	s.decode(recorder, &response)

	assert.Equal(s.T(), entities.StatusError, response.Status)
	assert.False(s.T(), response.Connected)
	assert.Equal(s.T(), "connection refused", response.Error)
	assert.Equal(s.T(), []string{"beehouse/sensor/temperature"}, response.Topics)
}

func (s *handlerSuite) TestSnapshotIncludesGaugeLevels() {
	s.engine.snapshot = entities.Snapshot{Temperature: value(38), Humidity: value(50)}

	recorder := s.do(http.MethodGet, "/api/snapshot", "")
	var response SnapshotResponse
	s.decode(recorder, &response)

	assert.Equal(s.T(), 38.0, *response.Snapshot.Temperature)
	assert.Nil(s.T(), response.Snapshot.Weight)
	require.Len(s.T(), response.Gauges, 2)
	assert.Equal(s.T(), entities.FieldTemperature, response.Gauges[0].Field)
	assert.Equal(s.T(), alerting.LevelWarning, response.Gauges[0].Level)
	assert.Equal(s.T(), entities.FieldHumidity, response.Gauges[1].Field)
	assert.Equal(s.T(), alerting.LevelNormal, response.Gauges[1].Level)
}

func (s *handlerSuite) TestEmptyHistory() {
	recorder := s.do(http.MethodGet, "/api/history", "")
	body := recorder.Body.String()
	assert.Equal(s.T(), http.StatusOK, recorder.Code)
	assert.JSONEq(s.T(), `{"count": 0, "entries": null}`, body)
}

func (s *handlerSuite) TestHistory() {
	s.engine.history = []entities.Snapshot{{Temperature: value(20)}, {Temperature: value(21)}}

	recorder := s.do(http.MethodGet, "/api/history", "")
	var response HistoryResponse
	s.decode(recorder, &response)

	assert.Equal(s.T(), 2, response.Count)
	assert.Equal(s.T(), 21.0, *response.Entries[1].Temperature)
}

func (s *handlerSuite) TestAlertsArePartitionedBySeverity() {
	rules := alerting.DefaultRules()
	s.engine.evaluation = alerting.Evaluation{Active: []entities.AlertRule{rules[0], rules[2]}}

	recorder := s.do(http.MethodGet, "/api/alerts", "")
	var response AlertsResponse
	s.decode(recorder, &response)

	require.Len(s.T(), response.Critical, 1)
	require.Len(s.T(), response.Warning, 1)
	assert.Equal(s.T(), "humidity_high", response.Critical[0].ID)
	assert.Equal(s.T(), "temperature_high", response.Warning[0].ID)
}

func (s *handlerSuite) TestRules() {
	recorder := s.do(http.MethodGet, "/api/rules", "")
	var rules []entities.AlertRule
	s.decode(recorder, &rules)
	assert.Len(s.T(), rules, 5)
}

func (s *handlerSuite) TestConnectWithDefaults() {
	recorder := s.do(http.MethodPost, "/api/connect", "")

	assert.Equal(s.T(), http.StatusAccepted, recorder.Code)
	require.Len(s.T(), s.engine.connected, 1)
	assert.Equal(s.T(), "ws://broker.local:9001/mqtt", s.engine.connected[0].BrokerURL)
	assert.Equal(s.T(), "hive", s.engine.connected[0].Username)
}

func (s *handlerSuite) TestConnectWithBody() {
	recorder := s.do(http.MethodPost, "/api/connect", `{"brokerUrl": "tcp://10.0.0.5:1883", "clientId": "abc"}`)

	var response StatusResponse
	s.decode(recorder, &response)
	assert.Equal(s.T(), http.StatusAccepted, recorder.Code)
	assert.Equal(s.T(), entities.StatusConnecting, response.Status)
	require.Len(s.T(), s.engine.connected, 1)
	assert.Equal(s.T(), entities.ConnectionConfig{BrokerURL: "tcp://10.0.0.5:1883", ClientID: "abc"}, s.engine.connected[0])
}

func (s *handlerSuite) TestConnectWithMalformedBody() {
	recorder := s.do(http.MethodPost, "/api/connect", `{"brokerUrl": `)
	assert.Equal(s.T(), http.StatusBadRequest, recorder.Code)
	assert.Empty(s.T(), s.engine.connected)
}

func (s *handlerSuite) TestConnectRejectedByEngine() {
	s.engine.connectErr = errors.New("invalid connection config")
	recorder := s.do(http.MethodPost, "/api/connect", "")
	assert.Equal(s.T(), http.StatusBadRequest, recorder.Code)
}

func (s *handlerSuite) TestConnectAfterShutdown() {
	s.engine.connectErr = beehouse.ErrStopped
	recorder := s.do(http.MethodPost, "/api/connect", "")
	assert.Equal(s.T(), http.StatusServiceUnavailable, recorder.Code)
}

func (s *handlerSuite) TestDisconnect() {
	recorder := s.do(http.MethodPost, "/api/disconnect", "")
	assert.Equal(s.T(), http.StatusAccepted, recorder.Code)
	assert.Equal(s.T(), 1, s.engine.disconnect)
}

func (s *handlerSuite) TestStreamWithoutHub() {
	recorder := s.do(http.MethodGet, "/ws", "")
	assert.Equal(s.T(), http.StatusNotFound, recorder.Code)
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(handlerSuite))
}
