package metrics

import (
	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Messages decoded successfully, labeled by channel
var MessagesDecoded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hivewatch_messages_decoded_total",
		Help: "The total number of sensor messages decoded",
	},
	[]string{"field"},
)

var DecodeFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hivewatch_decode_failures_total",
		Help: "Sensor messages discarded because the payload could not be decoded",
	},
	[]string{"field"},
)

var SubscriptionFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "hivewatch_subscription_failures_total",
		Help: "Topic subscriptions rejected by the broker",
	},
)

var AlertsTriggered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hivewatch_alerts_triggered_total",
		Help: "Alert rules that transitioned from inactive to active",
	},
	[]string{"rule", "severity"},
)

var HistoryLength = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "hivewatch_history_entries",
		Help: "Snapshots currently retained in the history window",
	},
)

var SensorValue = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hivewatch_sensor_value",
		Help: "Last known value of each numeric hive channel",
	},
	[]string{"field"},
)

// One series per status, set to 1 for the current one
var ConnectionStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hivewatch_connection_status",
		Help: "Broker connection status",
	},
	[]string{"status"},
)

var statuses = []entities.ConnectionStatus{
	entities.StatusDisconnected,
	entities.StatusConnecting,
	entities.StatusConnected,
	entities.StatusError,
}

func SetConnectionStatus(current entities.ConnectionStatus) {
	for _, status := range statuses {
		v := 0.0
		if status == current {
			v = 1
		}
		ConnectionStatus.WithLabelValues(string(status)).Set(v)
	}
}

func SetSnapshotGauges(snapshot entities.Snapshot) {
	for _, field := range entities.MonitoredFields {
		if v, ok := snapshot.Numeric(field); ok {
			SensorValue.WithLabelValues(string(field)).Set(v)
		}
	}
}
