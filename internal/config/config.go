package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/S1M0N38/cr-db/internal/constants"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const TokenEnv = "CLASH_ROYALE_API_TOKEN"

var (
	ErrMissingToken = errors.New("API token is required: create " + constants.DefaultTokenFile + " or set " + TokenEnv)
	ErrInvalidValue = errors.New("invalid configuration value")
)

type Config struct {
	APIToken    string
	APIBaseURL  string
	TokenSource string

	DBPath     string
	SeedTag    string
	LogLevel   string
	StatusPort string

	Staleness    time.Duration
	RequestDelay time.Duration
	IdleWait     time.Duration
	ExitWhenIdle bool

	GameModes   []int
	MinTrophies int
}

// Overrides carries values set explicitly on the command line. A nil field
// leaves the environment or default in place.
type Overrides struct {
	DBPath       *string
	SeedTag      *string
	LogLevel     *string
	TokenFile    *string
	StatusPort   *string
	Staleness    *time.Duration
	RequestDelay *time.Duration
	IdleWait     *time.Duration
	ExitWhenIdle *bool
}

func Load(ov Overrides) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var err error
	cfg := &Config{
		APIBaseURL: getEnv("API_BASE_URL", constants.DefaultAPIBaseURL),
		DBPath:     getEnv("DB_PATH", constants.DefaultDBPath),
		SeedTag:    getEnv("SEED_PLAYER", constants.DefaultSeedPlayer),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		StatusPort: getEnv("STATUS_PORT", ""),
	}

	if cfg.Staleness, err = getEnvSeconds("STALENESS_SECONDS", constants.DefaultStaleness); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = getEnvSeconds("REQUEST_DELAY_SECONDS", constants.DefaultRequestDelay); err != nil {
		return nil, err
	}
	if cfg.IdleWait, err = getEnvSeconds("IDLE_WAIT_SECONDS", constants.DefaultIdleWait); err != nil {
		return nil, err
	}
	if cfg.ExitWhenIdle, err = getEnvBool("EXIT_WHEN_IDLE", false); err != nil {
		return nil, err
	}
	if cfg.GameModes, err = getEnvInts("ELIGIBLE_GAME_MODES", constants.DefaultGameModes); err != nil {
		return nil, err
	}
	if cfg.MinTrophies, err = getEnvInt("MIN_STARTING_TROPHIES", constants.DefaultMinTrophies); err != nil {
		return nil, err
	}

	tokenFile := getEnv("TOKEN_FILE", constants.DefaultTokenFile)
	ov.apply(cfg, &tokenFile)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// a missing token is reported by RequireToken, so commands that never
	// call the API can still run
	token, source, err := readToken(tokenFile)
	if err != nil && !errors.Is(err, ErrMissingToken) {
		return nil, err
	}
	cfg.APIToken = token
	cfg.TokenSource = source

	return cfg, nil
}

func (c *Config) RequireToken() error {
	if c.APIToken == "" {
		return ErrMissingToken
	}
	return nil
}

func (ov Overrides) apply(cfg *Config, tokenFile *string) {
	if ov.DBPath != nil {
		cfg.DBPath = *ov.DBPath
	}
	if ov.SeedTag != nil {
		cfg.SeedTag = *ov.SeedTag
	}
	if ov.LogLevel != nil {
		cfg.LogLevel = *ov.LogLevel
	}
	if ov.StatusPort != nil {
		cfg.StatusPort = *ov.StatusPort
	}
	if ov.Staleness != nil {
		cfg.Staleness = *ov.Staleness
	}
	if ov.RequestDelay != nil {
		cfg.RequestDelay = *ov.RequestDelay
	}
	if ov.IdleWait != nil {
		cfg.IdleWait = *ov.IdleWait
	}
	if ov.ExitWhenIdle != nil {
		cfg.ExitWhenIdle = *ov.ExitWhenIdle
	}
	if ov.TokenFile != nil {
		*tokenFile = *ov.TokenFile
	}
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidValue)
	}
	if c.SeedTag == "" {
		return fmt.Errorf("%w: seed player is empty", ErrInvalidValue)
	}
	if c.Staleness < 0 || c.RequestDelay < 0 || c.IdleWait < 0 {
		return fmt.Errorf("%w: durations must be non-negative", ErrInvalidValue)
	}
	if len(c.GameModes) == 0 {
		return fmt.Errorf("%w: at least one game mode is required", ErrInvalidValue)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidValue, c.LogLevel)
	}
	return nil
}

// readToken prefers the secret file over the environment.
func readToken(path string) (token, source string, err error) {
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if token := strings.TrimSpace(string(data)); token != "" {
				return token, path, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return "", "", fmt.Errorf("failed to read token file: %w", err)
		}
	}

	if token := strings.TrimSpace(os.Getenv(TokenEnv)); token != "" {
		return token, TokenEnv, nil
	}
	return "", "", ErrMissingToken
}

// MarshalZerologObject logs everything except the token itself.
func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("db_path", c.DBPath).
		Str("seed_player", c.SeedTag).
		Str("log_level", c.LogLevel).
		Str("token_source", c.TokenSource).
		Str("api_base_url", c.APIBaseURL).
		Str("status_port", c.StatusPort).
		Dur("staleness", c.Staleness).
		Dur("request_delay", c.RequestDelay).
		Dur("idle_wait", c.IdleWait).
		Bool("exit_when_idle", c.ExitWhenIdle).
		Ints("game_modes", c.GameModes).
		Int("min_trophies", c.MinTrophies)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, v, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, v, err)
	}
	return b, nil
}

func getEnvInts(key string, fallback []int) ([]int, error) {
	v := os.Getenv(key)
	if v == "" {
		return append([]int(nil), fallback...), nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, v, err)
		}
		out = append(out, n)
	}
	return out, nil
}
