package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendGitHub = "github"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is read once at start and passed by value afterwards.
type Config struct {
	Addr      string `env:"QUIZBANK_ADDR"       envDefault:":8080"`
	Commit    string `env:"QUIZBANK_COMMIT"`
	BuildTime string `env:"QUIZBANK_BUILD_TIME"`

	// Backend selects the document store. Empty leaves the store
	// unconfigured and every data route answers 503.
	Backend string `env:"QUIZBANK_BACKEND"`

	GitHub GitHub `envPrefix:"QUIZBANK_GITHUB_"`
	Redis  Redis  `envPrefix:"QUIZBANK_REDIS_"`

	QuestionsPath string `env:"QUIZBANK_QUESTIONS_PATH" envDefault:"db/questions.json"`
	ScoresPath    string `env:"QUIZBANK_SCORES_PATH"    envDefault:"db/scores.json"`
	ImportFile    string `env:"QUIZBANK_IMPORT_FILE"`

	JWTSecret     string        `env:"QUIZBANK_JWT_SECRET"`
	AdminUser     string        `env:"QUIZBANK_ADMIN_USER"`
	AdminPassHash string        `env:"QUIZBANK_ADMIN_PASSWORD_HASH"`
	TokenTTL      time.Duration `env:"QUIZBANK_TOKEN_TTL"            envDefault:"24h"`

	RetryAttempts int `env:"QUIZBANK_RETRY_ATTEMPTS" envDefault:"1"`

	ReadTimeout    time.Duration `env:"QUIZBANK_READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout   time.Duration `env:"QUIZBANK_WRITE_TIMEOUT"    envDefault:"30s"`
	StoreTimeout   time.Duration `env:"QUIZBANK_STORE_TIMEOUT"    envDefault:"20s"`
	ShutdownPeriod time.Duration `env:"QUIZBANK_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel   string `env:"QUIZBANK_LOG_LEVEL"  envDefault:"info"`
	LogFormat  string `env:"QUIZBANK_LOG_FORMAT" envDefault:"text"`
	EnableCORS bool   `env:"QUIZBANK_CORS"       envDefault:"true"`
}

// GitHub addresses the repository that holds the documents. The token may be
// split across TOKEN_1..TOKEN_3 so that no single variable carries it whole.
type GitHub struct {
	Token   string `env:"TOKEN"`
	Token1  string `env:"TOKEN_1"`
	Token2  string `env:"TOKEN_2"`
	Token3  string `env:"TOKEN_3"`
	Owner   string `env:"OWNER"`
	Repo    string `env:"REPO"`
	Branch  string `env:"BRANCH"   envDefault:"main"`
	BaseURL string `env:"BASE_URL"`
}

// FullToken joins the token parts; Token wins when set.
func (g GitHub) FullToken() string {
	if g.Token != "" {
		return g.Token
	}
	return g.Token1 + g.Token2 + g.Token3
}

type Redis struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`
	Prefix   string `env:"PREFIX"   envDefault:"quizbank:"`
}

// Load reads an optional .env file, then the environment.
func Load(dotenv ...string) (Config, error) {
	if err := loadDotenv(dotenv...); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return cfg, cfg.Validate()
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case "", BackendMemory:
	case BackendGitHub:
		if c.GitHub.FullToken() == "" {
			errs = append(errs, errors.New("github backend requires QUIZBANK_GITHUB_TOKEN or its parts"))
		}
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			errs = append(errs, errors.New("github backend requires QUIZBANK_GITHUB_OWNER and QUIZBANK_GITHUB_REPO"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis backend requires QUIZBANK_REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.QuestionsPath == "" || c.ScoresPath == "" {
		errs = append(errs, errors.New("document paths must not be empty"))
	}
	if c.AdminUser != "" && c.AdminPassHash == "" {
		errs = append(errs, errors.New("QUIZBANK_ADMIN_USER needs QUIZBANK_ADMIN_PASSWORD_HASH"))
	}
	if c.AdminUser != "" && c.JWTSecret == "" {
		errs = append(errs, errors.New("QUIZBANK_ADMIN_USER needs QUIZBANK_JWT_SECRET"))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, errors.New("QUIZBANK_RETRY_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}

// StoreConfigured reports whether a document backend was selected.
func (c Config) StoreConfigured() bool { return c.Backend != "" }

// AdminEnabled reports whether question-mutating routes require a token.
func (c Config) AdminEnabled() bool { return c.AdminUser != "" && c.AdminPassHash != "" }
