package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// dotEnvFile is read before the YAML so ${VAR} placeholders can come from it.
var dotEnvFile = ".env"

// loadDotEnv loads dotEnvFile when present. Variables already set in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	return nil
}
