package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"spinwheel/internal/wheelapi"
)

type Config struct {
	Port              string                `json:"port"`
	FileLog           string                `json:"fileLog"`
	ErrorLog          string                `json:"errorLog"`
	LogLevel          string                `json:"logLevel"`
	Console           bool                  `json:"console"`
	AllowOrigins      []string              `json:"allowOrigins"`
	WebUrl            string                `json:"webUrl"`
	BotUsername       string                `json:"botUsername"`
	RateLimit         uint                  `json:"rateLimit"`
	RateLimitWindow   Duration              `json:"rateLimitWindow"`
	StoreTimeout      Duration              `json:"storeTimeout"`
	TokenTtl          Duration              `json:"tokenTtl"`
	PurgeInterval     Duration              `json:"purgeInterval"`
	JwtTtl            Duration              `json:"jwtTtl"`
	WorkerConcurrency int                   `json:"workerConcurrency"`
	Settings          *wheelapi.AppSettings `json:"settings"`
}

// Duration reads "90s" style strings from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func DefaultConfig() *Config {
	return &Config{
		Port:              "8000",
		LogLevel:          "info",
		Console:           true,
		AllowOrigins:      []string{"http://0.0.0.0:3000", "http://localhost:3000"},
		RateLimit:         100,
		RateLimitWindow:   Duration{time.Second},
		StoreTimeout:      Duration{5 * time.Second},
		TokenTtl:          Duration{time.Hour},
		PurgeInterval:     Duration{10 * time.Minute},
		JwtTtl:            Duration{7 * 24 * time.Hour},
		WorkerConcurrency: 4,
		Settings:          &wheelapi.DefaultAppConfig().Settings,
	}
}

// ConfigPath is os.Args[1] when it names a file, ./config.json otherwise.
func ConfigPath(args []string) string {
	if len(args) > 1 && strings.HasSuffix(args[1], ".json") {
		return args[1]
	}
	return "./config.json"
}

// ConfigLoad decodes path over the defaults, settings included. A missing
// file keeps the defaults.
func ConfigLoad(path string) (*Config, error) {
	config := DefaultConfig()
	configFile, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	defer configFile.Close()
	jsonParser := json.NewDecoder(configFile)
	if err := jsonParser.Decode(config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Options() wheelapi.Options {
	opts := wheelapi.Options{
		StoreTimeout: c.StoreTimeout.Duration,
		JwtTtl:       c.JwtTtl.Duration,
	}
	if c.Settings != nil {
		opts.Settings = &wheelapi.AppConfig{Settings: *c.Settings}
	}
	return opts
}
