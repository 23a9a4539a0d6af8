package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds process-level configuration for the review service.
type Settings struct {
	Mode           string
	Addr           string
	DatabaseDSN    string
	LogLevel       string
	LogFormat      string
	MaxIterations  int
	Linter         string
	LintTimeout    time.Duration
	OpenAIKey      string
	OpenAIBaseURL  string
	LLMModel       string
	MaxUploadBytes int64
}

// LoadSettings reads envfile (if it exists) into the process environment and
// builds Settings from it. Variables already set in the environment win.
func LoadSettings(envfile string) (Settings, error) {
	if envfile != "" {
		if err := godotenv.Load(envfile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", envfile, err)
		}
	}

	maxIter, err := getIntEnv("MAX_ITERATIONS", DefaultMaxIterations)
	if err != nil {
		return Settings{}, err
	}
	lintTimeout, err := getIntEnv("LINT_TIMEOUT_SECONDS", 30)
	if err != nil {
		return Settings{}, err
	}
	maxUpload, err := getIntEnv("MAX_UPLOAD_BYTES", 1<<20)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Mode:           GetEnv("RUN_MODE", "dev"),
		Addr:           GetEnv("ADDR", ":8000"),
		DatabaseDSN:    GetEnv("DATABASE_URL", ""),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		LogFormat:      GetEnv("LOG_FORMAT", "console"),
		MaxIterations:  maxIter,
		Linter:         GetEnv("LINTER", "ruff"),
		LintTimeout:    time.Duration(lintTimeout) * time.Second,
		OpenAIKey:      GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  GetEnv("OPENAI_BASE_URL", ""),
		LLMModel:       GetEnv("LLM_MODEL", "gpt-4o-mini"),
		MaxUploadBytes: int64(maxUpload),
	}, nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}
