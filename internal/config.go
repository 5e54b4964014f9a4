package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080"`

	PingInterval     time.Duration `env:"PING_INTERVAL,default=10s"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT,default=10s"`

	SupportedLanguages string `env:"SUPPORTED_LANGUAGES,default=en;es;fr;de;it;pt;ja;zh"`

	TranslationEndpoint string        `env:"TRANSLATION_ENDPOINT,required=true"`
	TranslationAPIKey   string        `env:"TRANSLATION_API_KEY"`
	TranslationTimeout  time.Duration `env:"TRANSLATION_TIMEOUT,default=5s"`
	TranslationCacheTTL time.Duration `env:"TRANSLATION_CACHE_TTL,default=5m"`

	TranscriptionEndpoint string        `env:"TRANSCRIPTION_ENDPOINT"`
	TranscriptionAPIKey   string        `env:"TRANSCRIPTION_API_KEY"`
	TranscriptionTimeout  time.Duration `env:"TRANSCRIPTION_TIMEOUT,default=15s"`

	MaxRooms        int `env:"MAX_ROOMS,default=0"`
	MaxParticipants int `env:"MAX_PARTICIPANTS,default=0"`

	CommandBufferSize int `env:"COMMAND_BUFFER_SIZE,default=256"`
	PlanBufferSize    int `env:"PLAN_BUFFER_SIZE,default=256"`
	SendBufferSize    int `env:"SEND_BUFFER_SIZE,default=64"`
	HistoryBufferSize int `env:"HISTORY_BUFFER_SIZE,default=1024"`

	LimitMessages *int `env:"LIMIT_MESSAGES"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	AuthSecret        string        `env:"AUTH_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	DebugPort         int           `env:"DEBUG_PORT,default=0"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Languages splits SUPPORTED_LANGUAGES on ';'. Normalization happens in the
// language set itself.
func (c Config) Languages() []string {
	return strings.Split(c.SupportedLanguages, ";")
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
