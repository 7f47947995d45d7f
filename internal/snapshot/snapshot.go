package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// Learning is the post-session half of a snapshot.
type Learning struct {
	Actuals update.Actuals
	Result  update.LearnResult
}

// #region build
// Build assembles a snapshot from the session inputs, its plan and an
// optional learning step. Extension minutes come from the learning step
// when one ran and from the plan otherwise.
func Build(in risk.SessionInputs, plan planner.PlanResult, learn *Learning) Record {
	cov := plan.Covariates
	r := Record{
		PatientID:   in.PatientID,
		Age:         in.Age,
		Weight:      in.Weight,
		DurationMin: in.DurationMinutes,
		IDWG:        in.IDWG,
		IntakeL:     in.IntakeL,
		RinsebackL:  in.RinsebackL,
		IVL:         in.IVL,

		MedsRecent:    in.MedsRecent,
		Diabetes:      in.Diabetes,
		PressureDelta: in.PressureDelta10hPa,

		SBPPre:    in.SBPPre,
		SBPPost:   in.SBPPost,
		BPDropPct: cov.BPDropPct,
		Symptoms:  in.Symptoms,

		EFPercent:  in.EFPercent,
		Arrhythmia: in.Arrhythmia,
		AFRecent:   in.AFRecent,

		TMPStart: in.TMPStart,
		TMPEnd:   in.TMPEnd,
		TMPSlope: cov.TMPSlope,
		VPStart:  in.VPStart,
		VPEnd:    in.VPEnd,
		VPTrend:  cov.VPTrend,

		Dialysate: in.Dialysate,

		OverhydrationL:        in.OverhydrationL,
		Dyspnea:               in.Dyspnea,
		Edema:                 in.Edema,
		ChestSymptoms:         in.ChestSymptoms,
		ResidualUrineMLPerDay: in.ResidualUrineMLPerDay,
		SevereAS:              in.SevereAS,
		SevereMR:              in.SevereMR,

		Tau:               in.TauPercent,
		SafeRate:          plan.SafeRate,
		UFCap:             plan.UFCap,
		UFNeeded:          plan.UFNeeded,
		UFRecommended:     plan.UFRecommended,
		OverhydrationRisk: plan.OverhydrationRisk,

		OffsetCurrent:       plan.BiasOffset,
		ExtraMinutes:        plan.ExtraMinutes,
		RecommendedTotalMin: plan.RecommendedTotalMinutes,
	}
	if !in.SessionAt.IsZero() {
		r.SessionDT = in.SessionAt.Format(SessionTimeLayout)
	}

	if learn == nil {
		return r
	}

	res := learn.Result
	r.UFActualTotal = ptr(learn.Actuals.UFActualTotalL)
	r.DurationActualMin = ptr(learn.Actuals.DurationActualMin)
	outcome := int(learn.Actuals.Outcome)
	r.OutcomeLast = &outcome
	r.Alpha = ptr(res.Update.Alpha)
	r.OffsetCurrent = res.Update.PriorOffset
	r.OffsetUpdated = ptr(res.Update.NewOffset)
	if res.HasObservedRate {
		r.UFActualNet = ptr(res.UFActualNet)
		r.RateUsedLast = ptr(res.ObservedRate)
	}
	r.SafeRateNext = ptr(res.Next.Final)
	r.UFCapNext = ptr(res.UFCapNext)
	r.ExtraMinutes = res.Extension.ExtraMinutes
	r.RecommendedTotalMin = res.Extension.RecommendedTotalMinutes
	return r
}

// #endregion build

// #region encode
// Marshal renders the record as indented JSON.
func Marshal(r Record) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal parses a snapshot exported by Marshal.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return r, nil
}

// #endregion encode

func ptr[T any](v T) *T { return &v }
