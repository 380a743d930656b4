package tele_config

const (
	TransportPaho   = "paho"
	TransportGomqtt = "gomqtt"
	TransportNoop   = "noop"

	DefaultPort  = 1883
	DefaultTopic = "v1/devices/me/telemetry"
)

type Config struct { //nolint:maligned
	Transport         string `hcl:"transport"`
	Host              string `hcl:"host"`
	Port              int    `hcl:"port"`
	Token             string `hcl:"token"`
	Password          string `hcl:"password"`
	Topic             string `hcl:"topic"`
	Qos               int    `hcl:"qos"`
	MaxAttempts       int    `hcl:"max_attempts"`
	AttemptDelayMs    int    `hcl:"attempt_delay_ms"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	QuiesceMs         int    `hcl:"quiesce_ms"`
	LogDebug          bool   `hcl:"log_debug"`
}
