// Package env provides environment variable loading from .env files.
// This lets a private node endpoint (for example one carrying an API key)
// live in a gitignored .env file instead of the YAML config.
package env

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// Load reads ./.env if present. Variables in the file override the process
// environment; a missing file is not an error.
func Load() error {
	return LoadFile(".env")
}

// LoadFile reads KEY=VALUE pairs from path into the process environment.
func LoadFile(path string) error {
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}
