// this module resolves the default on-disk locations used by the CLI front-ends
package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir is where the store directory lives when a CLI front-end
// isn't told otherwise.
var DefaultDataDir = configFile("data")

func configFile(name string) string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, name)
	}
	// default to the user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(homeDir, ".kvs", name)
}
