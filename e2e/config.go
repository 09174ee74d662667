package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// GATEWAY_ADDR points at a running realtime gateway; the suite is
	// skipped when it is empty.
	GatewayAddr string `envconfig:"GATEWAY_ADDR"`
	HTTPAddr    string `envconfig:"HTTP_ADDR"`
	// JWT_SECRET must match the server's signing key for HTTP steps
	JWTSecret string `envconfig:"JWT_SECRET"`
	// E2E_DEBUG_JSON allows dumping full wire frames as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
