package config

import (
	"os"
	"path/filepath"
)

func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "pakky")
	}
	return filepath.Join(home, ".config", "pakky")
}

func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "pakky.toml")
}

func QueueFilePath() string {
	return filepath.Join(ConfigDir(), "queue.json")
}

func LogFilePath() string {
	return filepath.Join(ConfigDir(), "pakky.log")
}

func TemplatesDir() string {
	return filepath.Join(ConfigDir(), "templates")
}
