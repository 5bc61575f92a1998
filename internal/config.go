package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config defines the client environment variables.
type Config struct {
	APIBaseURL  string `env:"API_BASE_URL,required=true" validate:"required,url"`
	WSBaseURL   string `env:"WS_BASE_URL,required=true" validate:"required"`
	AccessToken string `env:"ACCESS_TOKEN,required=true" validate:"required"`
	TenantID    string `env:"TENANT_ID"`

	APITimeout        time.Duration `env:"API_TIMEOUT,default=30s"`
	NotifyRetryDelay  time.Duration `env:"NOTIFY_RETRY_DELAY,default=3s" validate:"min=100ms"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	CachePath         string        `env:"CACHE_PATH"`
	SearchIndexPath   string        `env:"SEARCH_INDEX_PATH"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	MaskCharacter     string        `env:"MASK_CHARACTER,default=*"`
	EnableModeration  bool          `env:"ENABLE_MODERATION,default=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
}

// Validate applies the struct rules after env unmarshalling.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// MaskRune returns the single mask character, erroring on multi-rune values.
func (c Config) MaskRune() (rune, error) {
	return CharacterRune(c.MaskCharacter)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MASK_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
