// Package engineconfig loads engine startup configuration from flags, then
// environment variables, then defaults — mirroring
// fankserver-discord-voice-mcp/cmd/discord-voice-mcp/main.go's init()
// pattern: flag.Parse() first, godotenv.Load() to populate the process
// environment from a .env file, then individual os.Getenv fallbacks, and
// logrus configured from the resolved log level.
package engineconfig

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the engine's startup parameters.
type Config struct {
	SampleRate      float64
	BlockSize       int
	TempoCPS        float64
	MaxVoices       int
	QuantizeDefault uint32
	LogLevel        string
}

// Load parses args (pass os.Args[1:] from main), falls back to environment
// variables (loading a .env file first, if present), and finally to
// built-in defaults. It also configures the package-level logrus logger as
// a side effect, so callers get flags and logging wired up in one place.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("synthgo", flag.ContinueOnError)
	sampleRate := fs.Float64("sample-rate", 0, "audio sample rate in Hz (default 48000, or SYNTHGO_SAMPLE_RATE)")
	blockSize := fs.Int("block-size", 0, "render block size in samples (default 512, or SYNTHGO_BLOCK_SIZE)")
	tempoCPS := fs.Float64("tempo-cps", 0, "transport tempo in cycles per second (default 0.5, or SYNTHGO_TEMPO_CPS)")
	maxVoices := fs.Int("max-voices", 0, "polyphonic voice pool capacity (default 16, or SYNTHGO_MAX_VOICES)")
	quantize := fs.Uint("quantize", 0, "default recorder quantization, subdivisions per cycle (default 16, or SYNTHGO_QUANTIZE)")
	logLevel := fs.String("log-level", "", "logrus level: debug, info, warn, error (default info, or LOG_LEVEL)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	_ = godotenv.Load()

	cfg := &Config{
		SampleRate:      firstPositiveFloat(*sampleRate, envFloat("SYNTHGO_SAMPLE_RATE"), 48000),
		BlockSize:       firstPositiveInt(*blockSize, envInt("SYNTHGO_BLOCK_SIZE"), 512),
		TempoCPS:        firstPositiveFloat(*tempoCPS, envFloat("SYNTHGO_TEMPO_CPS"), 0.5),
		MaxVoices:       firstPositiveInt(*maxVoices, envInt("SYNTHGO_MAX_VOICES"), 16),
		QuantizeDefault: uint32(firstPositiveInt(int(*quantize), envInt("SYNTHGO_QUANTIZE"), 16)),
		LogLevel:        firstNonEmpty(*logLevel, os.Getenv("LOG_LEVEL"), "info"),
	}

	configureLogrus(cfg.LogLevel)
	return cfg, nil
}

// configureLogrus mirrors fankserver's main(): a timestamped text formatter
// and a level parsed from the same string the flag/env resolution produced.
func configureLogrus(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch strings.ToLower(level) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositiveFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func envFloat(name string) float64 {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// String renders the resolved configuration for startup logging.
func (c *Config) String() string {
	return fmt.Sprintf("sampleRate=%.0f blockSize=%d tempoCPS=%.3f maxVoices=%d quantize=%d logLevel=%s",
		c.SampleRate, c.BlockSize, c.TempoCPS, c.MaxVoices, c.QuantizeDefault, c.LogLevel)
}
