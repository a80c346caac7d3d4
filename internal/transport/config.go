package transport

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/birdctl/internal/protocol"
)

const (
	DefaultHost           = "localhost"
	DefaultPort           = 2004
	DefaultConnectTimeout = 5 * time.Second
)

// Config selects the harness endpoint. Zero values fall back to defaults.
type Config struct {
	Host            string
	Port            int
	ConnectTimeout  time.Duration
	MaxPayloadBytes uint64
}

func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		ConnectTimeout:  DefaultConnectTimeout,
		MaxPayloadBytes: protocol.DefaultMaxPayload,
	}
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Host) == "" {
		c.Host = d.Host
	}
	if c.Port <= 0 {
		c.Port = d.Port
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = d.MaxPayloadBytes
	}
	return c
}

// Address returns host:port after defaults are applied.
func (c Config) Address() string {
	c = c.WithDefaults()
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}
