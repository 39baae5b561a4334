package signaling

import (
	"time"

	env "github.com/Netflix/go-env"
)

// Config tunes the websocket edge. Room capacity is not configurable; it is
// a fixed admission constant owned by the registry.
type Config struct {
	ReadLimit     int64         `env:"WS_READ_LIMIT,default=65536"`
	PongWait      time.Duration `env:"WS_PONG_WAIT,default=60s"`
	PingPeriod    time.Duration `env:"WS_PING_PERIOD,default=54s"`
	EventBuffer   int           `env:"WS_EVENT_BUFFER,default=256"`
	AllowedOrigin string        `env:"WS_ALLOWED_ORIGIN"`
}

func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}
