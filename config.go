package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/nwah/vagvisare/feeds"
	"github.com/nwah/vagvisare/mapview"
	"github.com/nwah/vagvisare/nav"
	"github.com/nwah/vagvisare/server"
)

// Config holds the application configuration
type Config struct {
	Port           int            `toml:"port"`
	Env            string         `toml:"env"`      // development or production
	Database       string         `toml:"database"` // empty keeps settings in memory
	AllowedOrigins []string       `toml:"allowed_origins"`
	SessionMaxIdle string         `toml:"session_max_idle"`
	Nav            nav.NavConfig  `toml:"nav"`
	Map            mapview.Config `toml:"map"`
	Feeds          feeds.Config   `toml:"feeds"`
}

// Secrets and overrides read from .env and the environment
const (
	envPort            = "VAGVISARE_PORT"
	envResRobotKey     = "RESROBOT_API_KEY"
	envTrafikverketKey = "TRAFIKVERKET_API_KEY"
	envChargingKey     = "OPENCHARGEMAP_API_KEY"
)

func defaultConfig() Config {
	return Config{
		Port:           8080,
		Env:            "production",
		Database:       "vagvisare.db",
		SessionMaxIdle: "30m",
		Nav: nav.NavConfig{
			NominatimURL:     "https://nominatim.openstreetmap.org/search",
			OSRMURL:          "https://router.project-osrm.org",
			TimeoutSeconds:   10,
			GeocodeRateLimit: 1,
			ResRobot: nav.ResRobotConfig{
				BaseURL:  "https://api.resrobot.se/v2.1/trip",
				Products: 502,
			},
		},
		Map: mapview.Config{}.WithDefaults(),
		Feeds: feeds.Config{
			Trafikverket: feeds.TrafikverketConfig{APIURL: "https://api.trafikinfo.trafikverket.se/v2/data.json"},
			Charging:     feeds.ChargingConfig{APIURL: "https://api.openchargemap.io/v3/poi/", MaxResults: 20},
			Parking:      feeds.ParkingConfig{APIURL: "https://api.parkering.se/v1/parkings"},
			Weather:      feeds.WeatherConfig{APIURL: "https://opendata-download-warnings.smhi.se/ibww/api/version/1/warning.json"},
		},
	}
}

// LoadConfig reads filename on top of the defaults. A missing file is not
// an error. Values from envFile and then the process environment win.
func LoadConfig(filename, envFile string) (Config, error) {
	cfg := defaultConfig()

	if filename != "" {
		if _, err := toml.DecodeFile(filename, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("error reading %s: %w", envFile, err)
		}
		if m != nil {
			dotenv = m
		}
	}
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	if v := lookup(envPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", envPort, v, err)
		}
		cfg.Port = port
	}
	if v := lookup(envResRobotKey); v != "" {
		cfg.Nav.ResRobot.APIKey = v
	}
	if v := lookup(envTrafikverketKey); v != "" {
		cfg.Feeds.Trafikverket.APIKey = v
	}
	if v := lookup(envChargingKey); v != "" {
		cfg.Feeds.Charging.APIKey = v
	}

	return cfg, cfg.Validate()
}

// Validate checks the fields the server cannot run without
func (c Config) Validate() error {
	if c.Nav.NominatimURL == "" {
		return fmt.Errorf("nav.nominatim_url is required in config file")
	}
	if c.Nav.OSRMURL == "" {
		return fmt.Errorf("nav.osrm_url is required in config file")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := c.maxIdle(); err != nil {
		return err
	}
	return nil
}

func (c Config) maxIdle() (time.Duration, error) {
	if c.SessionMaxIdle == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SessionMaxIdle)
	if err != nil {
		return 0, fmt.Errorf("invalid session_max_idle %q: %w", c.SessionMaxIdle, err)
	}
	return d, nil
}

// ServerConfig returns the HTTP server part of the configuration
func (c Config) ServerConfig() server.Config {
	idle, _ := c.maxIdle()
	return server.Config{
		Port:           c.Port,
		AllowedOrigins: c.AllowedOrigins,
		SessionMaxIdle: idle,
	}
}
