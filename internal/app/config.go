package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		// Default based on environment
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// GetRequiredEnv fetches a required environment variable or exits if not set.
func GetRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatal().Msgf("%s environment variable is required", key)
	}
	return value
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Config carries the tunable playback and server settings.
type Config struct {
	ListenAddr string
	DBPath     string

	ImageDuration        time.Duration
	ItemsPerTable        int
	RowsPerPage          int
	RowHighlightDuration time.Duration

	RequireImages bool

	// Optional service-account credentials for private sheets.
	CredentialsFile string

	NtfyEnabled bool
	NtfyURL     string
	NtfyTopic   string
}

// LoadConfig reads the configuration from the environment, falling back to
// the defaults the display has always shipped with.
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:           GetEnvWithDefault("LISTEN_ADDR", ":8080"),
		DBPath:               GetEnvWithDefault("DB_PATH", "./data/auction.db"),
		ImageDuration:        envSeconds("AUCTION_IMAGE_SECONDS", 5),
		ItemsPerTable:        envInt("AUCTION_ITEMS_PER_TABLE", 5),
		RowsPerPage:          envInt("AUCTION_ROWS_PER_PAGE", 10),
		RowHighlightDuration: envSeconds("AUCTION_ROW_HIGHLIGHT_SECONDS", 1),
		RequireImages:        GetEnvWithDefault("AUCTION_REQUIRE_IMAGES", "true") == "true",
		CredentialsFile:      os.Getenv("SHEETS_CREDENTIALS_FILE"),
		NtfyEnabled:          GetEnvWithDefault("NTFY_ENABLED", "false") == "true",
		NtfyURL:              GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
		NtfyTopic:            GetEnvWithDefault("NTFY_TOPIC", "auction-display"),
	}

	log.Debug().
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Dur("image_duration", cfg.ImageDuration).
		Int("items_per_table", cfg.ItemsPerTable).
		Int("rows_per_page", cfg.RowsPerPage).
		Dur("row_highlight", cfg.RowHighlightDuration).
		Bool("require_images", cfg.RequireImages).
		Msg("Loaded configuration")

	return cfg
}

func envInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msgf("Invalid value, defaulting to %d", defaultValue)
		return defaultValue
	}
	return n
}

func envSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(envInt(key, defaultSeconds)) * time.Second
}
