package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/config"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// #region fixture-types

// Fixture is the top-level structure for a replay fixture. It is read from
// JSON or YAML; both use the JSON field names.
type Fixture struct {
	Description     string                  `json:"description"`
	PatientID       string                  `json:"patient_id,omitempty"`
	StartOffset     float64                 `json:"start_offset"`
	Config          config.File             `json:"config"`
	Sessions        []FixtureSession        `json:"sessions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureSession mirrors Session with JSON tags.
type FixtureSession struct {
	SessionID string             `json:"session_id"`
	Inputs    risk.SessionInputs `json:"inputs"`
	Actuals   *update.Actuals    `json:"actuals,omitempty"`
}

// FixtureExpectedResult captures the expected action per session.
type FixtureExpectedResult struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON. Config keys the file omits keep their defaults.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	if isYAML(path) {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", path, err)
		}
	}
	f := Fixture{Config: config.DefaultFile()}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Config.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s config: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f to path as YAML or JSON depending on the extension.
func WriteFixture(f Fixture, path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if isYAML(path) {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("convert fixture: %w", err)
		}
		if data, err = yaml.Marshal(doc); err != nil {
			return fmt.Errorf("marshal fixture yaml: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToSession converts a FixtureSession to a domain Session.
func (fs *FixtureSession) ToSession() Session {
	return Session{
		SessionID: fs.SessionID,
		Inputs:    fs.Inputs,
		Actuals:   fs.Actuals,
	}
}

// ToSessions converts every fixture session. Sessions without a patient id
// inherit the fixture's, and a missing tau or omega takes the config target.
func (f *Fixture) ToSessions() []Session {
	out := make([]Session, len(f.Sessions))
	for i := range f.Sessions {
		out[i] = f.Sessions[i].ToSession()
		if out[i].Inputs.PatientID == "" {
			out[i].Inputs.PatientID = f.PatientID
		}
		out[i].Inputs = f.Config.ApplyTargets(out[i].Inputs)
	}
	return out
}

// ToReplayConfig converts the fixture config to a domain ReplayConfig.
func (f *Fixture) ToReplayConfig() ReplayConfig {
	return ReplayConfig{
		Planner:    f.Config.PlannerConfig(),
		Learn:      f.Config.LearnConfig(),
		EvalConfig: f.Config.EvalConfig(),
	}
}

// #endregion fixture-loader

// #region helpers
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON re-encodes a YAML document as JSON so a single set of struct
// tags serves both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// #endregion helpers
