// Package config loads the tombola server's ambient settings: listen
// host/port and the logging mode. It keeps the teacher's layered-loader
// shape (Defaults returns a complete Config, Load overlays a config
// file, then environment variables) but reads key=value lines instead
// of JSON, since spec.md section 6.5 defines a key=value file format
// for the core's configuration rather than a JSON document.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every setting the entrypoint needs to start the server.
type Config struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Logging string `json:"logging"`
	LogPath string `json:"logpath"`
}

// Defaults returns a Config with the values spec.md section 6.5
// specifies when the file (or a given key) is absent.
func Defaults() *Config {
	return &Config{
		Host:    "127.0.0.1",
		Port:    3000,
		Logging: "console",
		LogPath: "./logs",
	}
}

// Load builds a Config starting from Defaults, overlaying path if it
// exists (godotenv.Read parses key=value lines without touching the
// process environment), then applying TOMBOLA_* environment variable
// overrides. path missing is not an error: defaults apply.
func Load(path string) *Config {
	cfg := Defaults()

	if values, err := godotenv.Read(path); err == nil {
		applyValues(cfg, values)
	} else if !os.IsNotExist(err) {
		log.Printf("config: warning: failed to parse %s: %v", path, err)
	}

	overrideString(&cfg.Host, "TOMBOLA_HOST")
	overrideInt(&cfg.Port, "TOMBOLA_PORT")
	overrideString(&cfg.Logging, "TOMBOLA_LOGGING")
	overrideString(&cfg.LogPath, "TOMBOLA_LOGPATH")

	return cfg
}

func applyValues(cfg *Config, values map[string]string) {
	if v, ok := values["host"]; ok && v != "" {
		cfg.Host = v
	}
	if v, ok := values["port"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		} else {
			log.Printf("config: warning: invalid port %q", v)
		}
	}
	if v, ok := values["logging"]; ok && v != "" {
		cfg.Logging = v
	}
	if v, ok := values["logpath"]; ok && v != "" {
		cfg.LogPath = v
	}
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("config: warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
