package alerting

import "github.com/chadibenrejeb/hive-watch/pkg/entities"

type Level string

const (
	LevelUnknown  Level = "unknown"
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Band is an optional [Min, Max] range; a nil bound is open.
type Band struct {
	Min *float64
	Max *float64
}

func (b Band) outside(value float64) bool {
	return (b.Min != nil && value < *b.Min) || (b.Max != nil && value > *b.Max)
}

// Gauge describes how a channel is displayed and classified.
type Gauge struct {
	Field    entities.Field `json:"field"`
	Title    string         `json:"title"`
	Unit     string         `json:"unit"`
	Min      float64        `json:"min"`
	Max      float64        `json:"max"`
	Warning  Band           `json:"-"`
	Critical Band           `json:"-"`
}

func bound(v float64) *float64 { return &v }

var Gauges = map[entities.Field]Gauge{
	entities.FieldTemperature: {
		Field: entities.FieldTemperature, Title: "Temperature", Unit: "°C", Min: 0, Max: 50,
		Warning:  Band{Min: bound(15), Max: bound(35)},
		Critical: Band{Min: bound(10), Max: bound(40)},
	},
	entities.FieldHumidity: {
		Field: entities.FieldHumidity, Title: "Humidity", Unit: "%", Min: 0, Max: 100,
		Warning:  Band{Min: bound(30), Max: bound(70)},
		Critical: Band{Max: bound(80)},
	},
	entities.FieldWeight: {
		Field: entities.FieldWeight, Title: "Hive Weight", Unit: "kg", Min: 0, Max: 100,
		Warning:  Band{Min: bound(20)},
		Critical: Band{Min: bound(10)},
	},
	entities.FieldBattery: {
		Field: entities.FieldBattery, Title: "Battery", Unit: "%", Min: 0, Max: 100,
	},
	entities.FieldMicrophone: {
		Field: entities.FieldMicrophone, Title: "Sound Level", Unit: "dB", Min: 0, Max: 120,
	},
	entities.FieldHumidityExternal: {
		Field: entities.FieldHumidityExternal, Title: "External Humidity", Unit: "%", Min: 0, Max: 100,
	},
}

// Classify returns the gauge level of value; critical bands win over warning bands.
func (g Gauge) Classify(value float64) Level {
	if g.Critical.outside(value) {
		return LevelCritical
	}
	if g.Warning.outside(value) {
		return LevelWarning
	}
	return LevelNormal
}

// Levels classifies every numeric channel of snapshot.
func Levels(snapshot entities.Snapshot) map[entities.Field]Level {
	levels := make(map[entities.Field]Level, len(Gauges))
	for field, gauge := range Gauges {
		value, ok := snapshot.Numeric(field)
		if !ok {
			levels[field] = LevelUnknown
			continue
		}
		levels[field] = gauge.Classify(value)
	}
	return levels
}
