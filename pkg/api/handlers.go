package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/chadibenrejeb/hive-watch/pkg/alerting"
	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/chadibenrejeb/hive-watch/pkg/gateways/beehouse"
	"github.com/chadibenrejeb/hive-watch/pkg/notify/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Engine is the part of the connection manager the API needs.
type Engine interface {
	Connect(config entities.ConnectionConfig) error
	Disconnect() error
	Status() entities.ConnectionStatus
	IsConnected() bool
	LastError() error
	Snapshot() entities.Snapshot
	History() []entities.Snapshot
	Alerts() alerting.Evaluation
	Rules() []entities.AlertRule
	Topics() []string
}

type Handler struct {
	engine   Engine
	hub      *websocket.Hub
	defaults entities.ConnectionConfig
	log      *logrus.Entry
}

// NewHandler builds the handlers. hub may be nil, in which case /ws answers
// 404. defaults is used by POST /api/connect when the body is empty.
func NewHandler(engine Engine, hub *websocket.Hub, defaults entities.ConnectionConfig, log *logrus.Entry) *Handler {
	return &Handler{engine: engine, hub: hub, defaults: defaults, log: log}
}

type StatusResponse struct {
	Status    entities.ConnectionStatus `json:"status"`
	Connected bool                      `json:"connected"`
	Error     string                    `json:"error,omitempty"`
	Topics    []string                  `json:"topics"`
}

type GaugeReading struct {
	alerting.Gauge
	Value float64        `json:"value"`
	Level alerting.Level `json:"level"`
}

type SnapshotResponse struct {
	Snapshot entities.Snapshot `json:"snapshot"`
	Gauges   []GaugeReading    `json:"gauges"`
}

type HistoryResponse struct {
	Count   int                 `json:"count"`
	Entries []entities.Snapshot `json:"entries"`
}

type AlertsResponse struct {
	Critical []entities.AlertRule `json:"critical"`
	Warning  []entities.AlertRule `json:"warning"`
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "OK")
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.status())
}

func (h *Handler) status() StatusResponse {
	response := StatusResponse{
		Status:    h.engine.Status(),
		Connected: h.engine.IsConnected(),
		Topics:    h.engine.Topics(),
	}
	if err := h.engine.LastError(); err != nil {
		response.Error = err.Error()
	}
	return response
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, snapshotResponse(h.engine.Snapshot()))
}

func snapshotResponse(snapshot entities.Snapshot) SnapshotResponse {
	levels := alerting.Levels(snapshot)
	response := SnapshotResponse{Snapshot: snapshot, Gauges: []GaugeReading{}}
	for _, field := range entities.MonitoredFields {
		value, ok := snapshot.Numeric(field)
		gauge, found := alerting.Gauges[field]
		if !ok || !found {
			continue
		}
		response.Gauges = append(response.Gauges, GaugeReading{Gauge: gauge, Value: value, Level: levels[field]})
	}
	return response
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries := h.engine.History()
	h.writeJSON(w, http.StatusOK, HistoryResponse{Count: len(entries), Entries: entries})
}

func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	evaluation := h.engine.Alerts()
	h.writeJSON(w, http.StatusOK, AlertsResponse{Critical: evaluation.Critical(), Warning: evaluation.Warnings()})
}

func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Rules())
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	config := h.defaults
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		config = entities.ConnectionConfig{}
		if err := json.Unmarshal(body, &config); err != nil {
			h.log.WithError(err).Debugln("invalid connect request")
			http.Error(w, "Bad Request: Cannot parse JSON", http.StatusBadRequest)
			return
		}
	}
	if err := h.engine.Connect(config); err != nil {
		h.log.WithError(err).Warnln("connect request rejected")
		status := http.StatusBadRequest
		if errors.Is(err, beehouse.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	h.writeJSON(w, http.StatusAccepted, h.status())
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Disconnect(); err != nil {
		h.log.WithError(err).Errorln("disconnect request failed")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, http.StatusAccepted, h.status())
}

// Stream upgrades to a websocket that first receives the current status and
// snapshot, then every alert and status change.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.NotFound(w, r)
		return
	}
	h.hub.Serve(w, r,
		websocket.Message{Type: websocket.TypeStatus, Payload: h.engine.Status()},
		websocket.Message{Type: websocket.TypeSnapshot, Payload: snapshotResponse(h.engine.Snapshot())},
	)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.WithError(err).Errorln("failed to write response")
	}
}
