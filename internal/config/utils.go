package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetBasePath expands environment variables in path, cleans it, and
// creates the directory if it doesn't already exist. Used for resolving
// output/export/archive staging directories from config values.
func GetBasePath(path string) string {
	expandedPath := os.ExpandEnv(path)
	basePath := filepath.Clean(expandedPath)

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			fmt.Printf("failed to create directory %q: %v\n", basePath, err)
		}
	}

	return basePath
}
