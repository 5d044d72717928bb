package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rtexpr/rtexpr/internal/config"
)

// loadSpec reads path and decodes it as a BatchSpec, choosing YAML or JSON
// by file extension (.json selects the gjson-based path; everything else
// is treated as YAML).
func loadSpec(path string) (*config.BatchSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.ParseJSON(raw)
	}
	return config.ParseYAML(raw)
}
