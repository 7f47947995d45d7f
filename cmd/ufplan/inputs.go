package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/replay"
)

// loadSession reads a session file in the replay fixture session shape:
// {"session_id", "inputs", "actuals"}. YAML files use the same keys.
func loadSession(path string) (replay.FixtureSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return replay.FixtureSession{}, fmt.Errorf("read session %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return replay.FixtureSession{}, fmt.Errorf("parse session %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return replay.FixtureSession{}, fmt.Errorf("parse session %s: %w", path, err)
		}
	}
	var sess replay.FixtureSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return replay.FixtureSession{}, fmt.Errorf("parse session %s: %w", path, err)
	}
	return sess, nil
}
