package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`
	Prod  bool `env:"PROD" envDefault:"false"`

	Port       string `env:"PORT" envDefault:"3000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`

	// Domain is the public base URL used for origin checks and remote links
	// when running behind a reverse proxy.
	Domain string `env:"DOMAIN" envDefault:"http://localhost:3000"`

	// JWTSecret enables the identity requirement for remote connections.
	// When empty, connections are trusted with their self-declared name.
	JWTSecret string `env:"JWT_SECRET"`

	Catalog CatalogConfig

	// RoomTTL bounds how long a room that never saw a connection may live
	// before the reaper collects it.
	RoomTTL time.Duration `env:"ROOM_TTL" envDefault:"10m"`

	StaticDir string `env:"STATIC_DIR" envDefault:"web"`
}

type CatalogConfig struct {
	// Path to the SQLite song catalog. Built by the import subcommand.
	Path string `env:"DB_PATH" envDefault:"./karaoke.db"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &c, nil
}
