package config

import (
	"os"
	"strconv"
	"time"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Settings is everything read from the environment at startup. Optional
// integrations (Redis, Postgres, JWT auth) activate only when their variable
// is set.
type Settings struct {
	Port int

	// AuthSecret enables JWT authentication; empty means guest identities.
	AuthSecret string

	// RedisAddr enables the Redis session ticket store.
	RedisAddr     string
	RedisPassword string

	// DatabaseURL enables match history persistence.
	DatabaseURL string

	TiePolicy internal.TiePolicy

	DiscussionDuration time.Duration
	TurnDuration       time.Duration
	VotingDuration     time.Duration
	GuessDuration      time.Duration
	ReconnectGrace     time.Duration

	HistoryRetention time.Duration

	// TopicsFile optionally replaces the built-in topic table.
	TopicsFile string
}

// Load reads settings from the environment. Call godotenv.Load beforehand if
// a .env file should participate.
func Load() Settings {
	return Settings{
		Port:               envInt("PORT", 8080),
		AuthSecret:         os.Getenv("AUTH_SECRET"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		TiePolicy:          internal.TiePolicy(os.Getenv("TIE_POLICY")),
		DiscussionDuration: envDuration("DISCUSSION_DURATION", 0),
		TurnDuration:       envDuration("TURN_DURATION", 0),
		VotingDuration:     envDuration("VOTING_DURATION", 0),
		GuessDuration:      envDuration("GUESS_DURATION", 0),
		ReconnectGrace:     envDuration("RECONNECT_GRACE", 0),
		HistoryRetention:   envDuration("HISTORY_RETENTION", 0),
		TopicsFile:         os.Getenv("TOPICS_FILE"),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
