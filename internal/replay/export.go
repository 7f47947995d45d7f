package replay

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/config"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/logging"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// #region from-log
// FixtureFromLog rebuilds a replay fixture from a patient's session log.
// Entries are grouped by session id in log order; a learn entry supplies the
// actuals and the expected action, otherwise the plan entry's decision is used.
func FixtureFromLog(entries []logging.SessionEntry, patientID string, startOffset float64) (Fixture, error) {
	f := Fixture{
		Description: fmt.Sprintf("exported session log for patient %s", patientID),
		PatientID:   patientID,
		StartOffset: startOffset,
		Config:      config.DefaultFile(),
	}

	index := map[string]int{}
	for _, e := range entries {
		if e.PatientID != patientID {
			continue
		}
		i, seen := index[e.SessionID]
		if !seen {
			i = len(f.Sessions)
			index[e.SessionID] = i
			f.Sessions = append(f.Sessions, FixtureSession{SessionID: e.SessionID})
			f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{SessionID: e.SessionID})
		}
		sess := &f.Sessions[i]

		if e.InputsJSON != "" {
			if err := json.Unmarshal([]byte(e.InputsJSON), &sess.Inputs); err != nil {
				return Fixture{}, fmt.Errorf("session %s inputs: %w", e.SessionID, err)
			}
		}
		switch e.TriggerType {
		case logging.TriggerLearn:
			if e.ActualsJSON != "" {
				var act update.Actuals
				if err := json.Unmarshal([]byte(e.ActualsJSON), &act); err != nil {
					return Fixture{}, fmt.Errorf("session %s actuals: %w", e.SessionID, err)
				}
				sess.Actuals = &act
			}
			f.ExpectedResults[i].Action = e.Decision
		case logging.TriggerPlan:
			if sess.Actuals == nil {
				f.ExpectedResults[i].Action = e.Decision
			}
		}
	}

	if len(f.Sessions) == 0 {
		return Fixture{}, fmt.Errorf("no sessions logged for patient %s", patientID)
	}
	return f, nil
}

// #endregion from-log
