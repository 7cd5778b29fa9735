package config

// ValueType is the schema-declared type of a config value.
type ValueType int

const (
	TypeInteger ValueType = iota
	TypeFloat
	TypeBoolean
	TypeString
)

// SchemaEntry describes one recognized config key.
type SchemaEntry struct {
	Default   string
	Type      ValueType
	Sensitive bool // blocked from the config POST endpoint
}

// Schema is the full set of recognized config keys and their defaults,
// including setpoint bounds, unit polarity/continuous-fan/heater-present
// flags, and telemetry/API credentials.
var Schema = map[string]SchemaEntry{
	"logging.interval_sec":       {Default: "300", Type: TypeInteger},
	"logging.retention_period":   {Default: "30", Type: TypeInteger},
	"trl.number":                 {Default: "1234", Type: TypeInteger},
	"defrost.interval_hours":     {Default: "8", Type: TypeInteger},
	"defrost.timeout_mins":       {Default: "45", Type: TypeInteger},
	"defrost.coil_temperature":   {Default: "45", Type: TypeFloat},
	"setpoint.offset":            {Default: "2", Type: TypeFloat},
	"setpoint.min":               {Default: "-20", Type: TypeFloat},
	"setpoint.max":               {Default: "80", Type: TypeFloat},
	"setpoint":                   {Default: "55", Type: TypeFloat},
	"compressor.off_timer":       {Default: "5", Type: TypeInteger},
	"debug.code":                 {Default: "1", Type: TypeInteger},
	"debug.enable_send_data":     {Default: "0", Type: TypeBoolean},
	"wifi.enable_hotspot":        {Default: "1", Type: TypeBoolean},
	"sensor.return":               {Default: "", Type: TypeString},
	"sensor.supply":               {Default: "", Type: TypeString},
	"sensor.coil":                 {Default: "", Type: TypeString},
	"unit.relay_active_low":      {Default: "1", Type: TypeBoolean},
	"unit.fan_continuous":        {Default: "0", Type: TypeBoolean},
	"unit.electric_heater":       {Default: "1", Type: TypeBoolean},
	"compressor.on_total_seconds": {Default: "0", Type: TypeInteger},
	"client.sent_mins":           {Default: "10", Type: TypeInteger},
	"client.enable":              {Default: "0", Type: TypeBoolean},
	"client.host":                {Default: "", Type: TypeString},
	"client.port":                {Default: "8443", Type: TypeInteger},
	"client.cert":                {Default: "", Type: TypeString, Sensitive: true},
	"client.key":                 {Default: "", Type: TypeString, Sensitive: true},
	"client.ca":                  {Default: "", Type: TypeString, Sensitive: true},
	"api.key":                    {Default: "", Type: TypeString, Sensitive: true},
	"api.listen":                 {Default: ":8443", Type: TypeString},
	"api.tls_cert":               {Default: "", Type: TypeString, Sensitive: true},
	"api.tls_key":                {Default: "", Type: TypeString, Sensitive: true},
	"unit.number":                {Default: "1", Type: TypeInteger},
}

// IsKeyKnown reports whether key is part of the recognized schema.
func IsKeyKnown(key string) bool {
	_, ok := Schema[key]
	return ok
}

// IsSensitive reports whether key is blocked from remote config updates.
func IsSensitive(key string) bool {
	e, ok := Schema[key]
	return ok && e.Sensitive
}

// Validate checks value against key's declared schema type. Unknown keys
// are rejected.
func Validate(key, value string) bool {
	e, ok := Schema[key]
	if !ok {
		return false
	}
	switch e.Type {
	case TypeInteger:
		return isInteger(value)
	case TypeFloat:
		return isFloat(value)
	case TypeBoolean:
		return value == "0" || value == "1"
	case TypeString:
		return true
	default:
		return false
	}
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isFloat(s string) bool {
	if s == "" {
		return false
	}
	seenDot := false
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if seenDot {
				return false
			}
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
