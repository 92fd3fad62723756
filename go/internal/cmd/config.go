package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race"
)

type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	RulesFile      string
	EventBuffer    int
	EventStats     bool
	NATS           NATSConfig
	Gateway        GatewayConfig
}

type NATSConfig struct {
	URL           string
	Stream        string
	SubjectPrefix string
}

type GatewayConfig struct {
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int
	SendBufferSize int
}

// rulesFile is the layout of RULES_FILE
type rulesFile struct {
	Race race.Rules `yaml:"race"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadConfig() Config {
	return Config{
		Port:           getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RulesFile:      getEnv("RULES_FILE", ""),
		EventBuffer:    getEnvAsInt("EVENT_BUFFER", 1024),
		EventStats:     getEnvAsBool("EVENT_STATS", true),
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			Stream:        getEnv("NATS_STREAM", "RACE_EVENTS"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "race.events"),
		},
		Gateway: GatewayConfig{
			PingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
			ReadTimeout:    getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second),
			MaxMessageSize: getEnvAsInt("WS_MAX_MESSAGE_SIZE", 4096),
			SendBufferSize: getEnvAsInt("WS_SEND_BUFFER", 256),
		},
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadRules layers the race section of path over the default rules. An
// empty path yields the defaults.
func loadRules(path string) (race.Rules, error) {
	if path == "" {
		return race.DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return race.Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	config := rulesFile{Race: race.DefaultRules()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return race.Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if err := config.Race.Validate(); err != nil {
		return race.Rules{}, fmt.Errorf("invalid rules in %s: %w", path, err)
	}
	return config.Race, nil
}

func setupLogging(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	switch cfg.LogFormat {
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		return errors.New("LOG_FORMAT must be console or json")
	}
	return nil
}
