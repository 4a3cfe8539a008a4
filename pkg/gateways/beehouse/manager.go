// Package beehouse connects to the apiary broker and runs the telemetry
// pipeline: decode, merge, record history, evaluate alert rules.
package beehouse

import (
	"context"
	"sync"
	"time"

	"github.com/chadibenrejeb/hive-watch/pkg/alerting"
	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/chadibenrejeb/hive-watch/pkg/gateways/beehouse/network"
	"github.com/chadibenrejeb/hive-watch/pkg/metrics"
	"github.com/chadibenrejeb/hive-watch/pkg/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	eventBufferSize = 256

	connectedTitle    = "Connected to Beehouse"
	connectedMessage  = "Successfully connected to MQTT broker"
	errorTitle        = "Connection Error"
	errorMessage      = "Failed to connect to MQTT broker"
	disconnectedTitle = "Disconnected"
	disconnectMessage = "Disconnected from MQTT broker"
)

var ErrStopped = errors.New("connection manager is stopped")

var validate = validator.New()

// Settings tune one Manager. Zero values fall back to the defaults.
type Settings struct {
	TopicPrefix       string
	HistoryCapacity   int
	Rules             []entities.AlertRule
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
}

// Manager owns at most one transport handle. All state changes happen on the
// goroutine running Run; the accessors may be called from anywhere.
type Manager struct {
	transport network.Transport
	decoder   *telemetry.Decoder
	store     *telemetry.Store
	history   *telemetry.History
	evaluator *alerting.Evaluator
	notifier  alerting.Notifier
	log       *logrus.Entry
	now       func() time.Time
	settings  Settings

	events  chan event
	actions eventActionMapping
	done    chan struct{}
	once    sync.Once

	// owned by the event loop
	client     network.Client
	generation uint64

	mu        sync.RWMutex
	status    entities.ConnectionStatus
	connected bool
	lastErr   error
	hooks     []func(entities.ConnectionStatus)
}

func NewManager(transport network.Transport, notifier alerting.Notifier, settings Settings, log *logrus.Entry) *Manager {
	if settings.TopicPrefix == "" {
		settings.TopicPrefix = telemetry.DefaultTopicPrefix
	}
	if settings.HistoryCapacity <= 0 {
		settings.HistoryCapacity = telemetry.DefaultHistoryCapacity
	}
	if settings.Rules == nil {
		settings.Rules = alerting.DefaultRules()
	}
	if settings.ConnectTimeout <= 0 {
		settings.ConnectTimeout = network.DefaultConnectTimeout
	}
	if settings.ReconnectInterval <= 0 {
		settings.ReconnectInterval = network.DefaultReconnectInterval
	}
	m := &Manager{
		transport: transport,
		decoder:   telemetry.NewDecoder(settings.TopicPrefix),
		store:     telemetry.NewStore(),
		history:   telemetry.NewHistory(settings.HistoryCapacity),
		evaluator: alerting.NewEvaluator(settings.Rules),
		notifier:  notifier,
		log:       log,
		now:       time.Now,
		settings:  settings,
		events:    make(chan event, eventBufferSize),
		actions:   newEventActionMapping(),
		done:      make(chan struct{}),
		status:    entities.StatusDisconnected,
	}
	metrics.SetConnectionStatus(m.status)
	return m
}

// OnStatusChange registers fn to be called on every status transition. It
// must be called before Run.
func (m *Manager) OnStatusChange(fn func(entities.ConnectionStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Run consumes the event stream until ctx is cancelled, then closes the live
// handle.
func (m *Manager) Run(ctx context.Context) error {
	defer m.once.Do(func() { close(m.done) })
	for {
		select {
		case <-ctx.Done():
			m.closeClient()
			m.generation++
			m.setStatus(entities.StatusDisconnected, nil)
			return nil
		case e := <-m.events:
			m.dispatch(e)
		}
	}
}

// Connect validates config and asks the event loop to open a new connection,
// closing the current one first. It does not wait for the broker.
func (m *Manager) Connect(config entities.ConnectionConfig) error {
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "invalid connection config")
	}
	if !m.enqueue(event{kind: eventConnect, config: config}) {
		return ErrStopped
	}
	return nil
}

// Disconnect asks the event loop to close the current connection. Calling it
// without a connection is a no-op.
func (m *Manager) Disconnect() error {
	if !m.enqueue(event{kind: eventDisconnect}) {
		return ErrStopped
	}
	return nil
}

func (m *Manager) Status() entities.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// LastError returns the last transport failure, or nil after a successful
// connect or an explicit disconnect.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) Snapshot() entities.Snapshot {
	return m.store.Snapshot()
}

func (m *Manager) History() []entities.Snapshot {
	return m.history.Read()
}

// Alerts returns the rules active after the last evaluation.
func (m *Manager) Alerts() alerting.Evaluation {
	return m.evaluator.Current()
}

func (m *Manager) Rules() []entities.AlertRule {
	return m.evaluator.Rules()
}

func (m *Manager) Topics() []string {
	return m.decoder.Topics()
}

func (m *Manager) enqueue(e event) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.events <- e:
		return true
	case <-m.done:
		return false
	}
}

// sync returns once every event queued before it has been handled.
func (m *Manager) sync() {
	done := make(chan struct{})
	if !m.enqueue(event{kind: eventSync, done: done}) {
		return
	}
	select {
	case <-done:
	case <-m.done:
	}
}

func (m *Manager) dispatch(e event) {
	if e.kind.fromTransport() && e.generation != m.generation {
		m.log.WithField("event", e.kind).Debugln("dropping event from a closed connection")
		return
	}
	action, ok := m.actions[e.kind]
	if !ok {
		m.log.WithField("event", e.kind).Warnln("no handler for event")
		return
	}
	action(m, e)
}

func (m *Manager) handlers(generation uint64) network.Handlers {
	return network.Handlers{
		OnConnect: func() {
			m.enqueue(event{kind: eventConnected, generation: generation})
		},
		OnMessage: func(topic string, payload []byte) {
			m.enqueue(event{kind: eventMessage, generation: generation, topic: topic, payload: payload})
		},
		OnError: func(err error) {
			m.enqueue(event{kind: eventError, generation: generation, err: err})
		},
		OnOffline: func() {
			m.enqueue(event{kind: eventOffline, generation: generation})
		},
		OnReconnecting: func() {
			m.enqueue(event{kind: eventReconnecting, generation: generation})
		},
	}
}

func (m *Manager) handleConnect(e event) {
	m.closeClient()
	m.generation++

	clientID := e.config.ClientID
	if clientID == "" {
		var err error
		clientID, err = network.GenerateClientID()
		if err != nil {
			m.fail(errors.Wrap(err, "generate client id"))
			return
		}
	}
	m.setStatus(entities.StatusConnecting, nil)
	m.log.WithFields(logrus.Fields{"broker": e.config.BrokerURL, "client": clientID}).Infoln("connecting to broker")

	options := network.Options{
		ClientID:          clientID,
		Username:          e.config.Username,
		Password:          e.config.Password,
		ConnectTimeout:    m.settings.ConnectTimeout,
		ReconnectInterval: m.settings.ReconnectInterval,
	}
	client, err := m.transport.Connect(e.config.BrokerURL, options, m.handlers(m.generation))
	if err != nil {
		m.fail(errors.Wrap(err, "connect"))
		return
	}
	m.client = client
}

func (m *Manager) handleDisconnect(_ event) {
	hadClient := m.client != nil
	m.closeClient()
	m.generation++
	m.setStatus(entities.StatusDisconnected, nil)
	if hadClient {
		m.log.Infoln("disconnected from broker")
		m.notify(alerting.NewConnectionNotice(disconnectedTitle, disconnectMessage, entities.SeverityInfo, m.now()))
	}
}

func (m *Manager) handleConnected(_ event) {
	m.setStatus(entities.StatusConnected, nil)
	m.log.Infoln("connected to broker")
	m.notify(alerting.NewConnectionNotice(connectedTitle, connectedMessage, entities.SeverityInfo, m.now()))
	if m.client != nil {
		go m.subscribeAll(m.client, m.decoder.Topics())
	}
}

func (m *Manager) subscribeAll(client network.Client, topics []string) {
	for _, topic := range topics {
		if err := client.Subscribe(topic); err != nil {
			metrics.SubscriptionFailures.Inc()
			m.log.WithError(err).WithField("topic", topic).Errorln("subscription failed")
			continue
		}
		m.log.WithField("topic", topic).Debugln("subscribed")
	}
}

func (m *Manager) handleError(e event) {
	m.fail(e.err)
}

func (m *Manager) fail(err error) {
	m.setStatus(entities.StatusError, err)
	m.log.WithError(err).Errorln("connection error")
	m.notify(alerting.NewConnectionNotice(errorTitle, errorMessage+": "+err.Error(), entities.SeverityCritical, m.now()))
}

func (m *Manager) handleOffline(_ event) {
	m.setStatus(entities.StatusDisconnected, m.LastError())
	m.log.Warnln("broker connection lost")
}

func (m *Manager) handleReconnecting(_ event) {
	m.setStatus(entities.StatusConnecting, m.LastError())
	m.log.Infoln("reconnecting to broker")
}

func (m *Manager) handleMessage(e event) {
	update, err := m.decoder.Decode(e.topic, e.payload)
	if err != nil {
		if errors.Is(err, telemetry.ErrUnknownTopic) {
			m.log.WithField("topic", e.topic).Debugln("ignoring message on unknown topic")
			return
		}
		field := ""
		var decodeErr *telemetry.DecodeError
		if errors.As(err, &decodeErr) {
			field = string(decodeErr.Field)
		}
		metrics.DecodeFailures.WithLabelValues(field).Inc()
		m.log.WithError(err).Warnln("discarding sensor message")
		return
	}
	metrics.MessagesDecoded.WithLabelValues(string(update.Field)).Inc()

	if !m.store.Apply(update) {
		return
	}
	snapshot := m.store.Stamp(m.now())
	if m.history.Append(snapshot) {
		metrics.HistoryLength.Set(float64(m.history.Len()))
	}
	metrics.SetSnapshotGauges(snapshot)

	evaluation := m.evaluator.Evaluate(snapshot)
	for _, rule := range evaluation.Triggered {
		metrics.AlertsTriggered.WithLabelValues(rule.ID, string(rule.Severity)).Inc()
		m.notify(alerting.NewRuleAlert(rule, snapshot, snapshot.Timestamp))
	}
}

func (m *Manager) notify(alert entities.Alert) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(alert); err != nil {
		m.log.WithError(err).WithField("alert", alert.Title).Warnln("failed to deliver notification")
	}
}

func (m *Manager) closeClient() {
	if m.client == nil {
		return
	}
	if err := m.client.Close(); err != nil {
		m.log.WithError(err).Warnln("failed to close broker connection")
	}
	m.client = nil
}

func (m *Manager) setStatus(status entities.ConnectionStatus, err error) {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	m.connected = status == entities.StatusConnected
	m.lastErr = err
	hooks := m.hooks
	m.mu.Unlock()

	metrics.SetConnectionStatus(status)
	if changed {
		for _, hook := range hooks {
			hook(status)
		}
	}
}
