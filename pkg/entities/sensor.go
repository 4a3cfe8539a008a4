package entities

import "time"

type Field string

const (
	FieldTemperature      Field = "temperature"
	FieldHumidity         Field = "humidity"
	FieldWeight           Field = "weight"
	FieldBattery          Field = "battery"
	FieldGPS              Field = "gps"
	FieldMicrophone       Field = "microphone"
	FieldDoor             Field = "door"
	FieldHumidityExternal Field = "humidity_external"
)

// Fields lists every channel of the hive in subscription order.
var Fields = []Field{
	FieldTemperature,
	FieldHumidity,
	FieldWeight,
	FieldBattery,
	FieldGPS,
	FieldMicrophone,
	FieldDoor,
	FieldHumidityExternal,
}

// MonitoredFields are the numeric channels. A snapshot is only worth recording
// once at least one of them is known.
var MonitoredFields = []Field{
	FieldTemperature,
	FieldHumidity,
	FieldWeight,
	FieldBattery,
	FieldMicrophone,
	FieldHumidityExternal,
}

func (f Field) IsNumeric() bool {
	for _, monitored := range MonitoredFields {
		if f == monitored {
			return true
		}
	}
	return false
}

func (f Field) IsValid() bool {
	for _, field := range Fields {
		if f == field {
			return true
		}
	}
	return false
}

type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Snapshot holds the last known value of each channel. A nil pointer means no
// reading has been decoded for that channel yet.
type Snapshot struct {
	Temperature      *float64    `json:"temperature"`
	Humidity         *float64    `json:"humidity"`
	Weight           *float64    `json:"weight"`
	Battery          *float64    `json:"battery"`
	GPS              *Coordinate `json:"gps"`
	Microphone       *float64    `json:"microphone"`
	Door             *bool       `json:"door"`
	HumidityExternal *float64    `json:"humidityExternal"`
	Timestamp        time.Time   `json:"timestamp"`
}

// NumericSlot returns the storage of a numeric channel, nil for door, gps or
// unknown fields.
func (s *Snapshot) NumericSlot(field Field) **float64 {
	switch field {
	case FieldTemperature:
		return &s.Temperature
	case FieldHumidity:
		return &s.Humidity
	case FieldWeight:
		return &s.Weight
	case FieldBattery:
		return &s.Battery
	case FieldMicrophone:
		return &s.Microphone
	case FieldHumidityExternal:
		return &s.HumidityExternal
	}
	return nil
}

// Numeric returns the value of a numeric channel and whether it is known.
func (s Snapshot) Numeric(field Field) (float64, bool) {
	slot := s.NumericSlot(field)
	if slot == nil || *slot == nil {
		return 0, false
	}
	return **slot, true
}

func (s Snapshot) Known(field Field) bool {
	switch field {
	case FieldGPS:
		return s.GPS != nil
	case FieldDoor:
		return s.Door != nil
	}
	_, ok := s.Numeric(field)
	return ok
}

// HasReading reports whether any monitored channel is known.
func (s Snapshot) HasReading() bool {
	for _, field := range MonitoredFields {
		if s.Known(field) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no pointers with s.
func (s Snapshot) Clone() Snapshot {
	clone := Snapshot{Timestamp: s.Timestamp}
	for _, field := range MonitoredFields {
		if value, ok := s.Numeric(field); ok {
			v := value
			*clone.NumericSlot(field) = &v
		}
	}
	if s.GPS != nil {
		gps := *s.GPS
		clone.GPS = &gps
	}
	if s.Door != nil {
		door := *s.Door
		clone.Door = &door
	}
	return clone
}
