package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/transport"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #region plan-output
func printPlan(w io.Writer, resp transport.PlanResponse) {
	p := resp.Plan
	fmt.Fprintf(w, "Session:            %s (patient %s)\n", resp.SessionID, orDash(resp.PatientID))
	if resp.VersionID != "" {
		fmt.Fprintf(w, "Offset version:     %s\n", resp.VersionID)
	}
	fmt.Fprintf(w, "γ0 offset:          %.4f\n", resp.Offset)
	fmt.Fprintf(w, "r_max_dyn:          %.2f mL/kg/h (raw %.2f, bounded %.2f)\n", p.SafeRate, p.RateRaw, p.RateBounded)
	fmt.Fprintf(w, "UF cap:             %.2f L\n", p.UFCap)
	fmt.Fprintf(w, "UF needed:          %.2f L\n", p.UFNeeded)
	fmt.Fprintf(w, "UF recommended:     %.2f L\n", p.UFRecommended)
	fmt.Fprintf(w, "UF deficit:         %.2f L\n", p.UFDeficit)
	fmt.Fprintf(w, "Guard:              %v\n", p.HypotensionGuardTriggered)
	if p.Guard.Fired {
		fmt.Fprintf(w, "  reason:           %s\n", p.Guard.Reason)
	}
	fmt.Fprintf(w, "P_overhydration:    %.1f%%\n", p.OverhydrationRisk*100)
	if p.ExtraMinutes > 0 {
		fmt.Fprintf(w, "Extension:          +%d min (total %d min)\n", p.ExtraMinutes, p.RecommendedTotalMinutes)
	}
	fmt.Fprintf(w, "Alerts:             %s\n", joinOrDash(p.Alerts))
	for _, n := range p.Notes {
		fmt.Fprintf(w, "Note:               %s\n", n)
	}
	fmt.Fprintf(w, "Eval:               %s\n", evalLine(resp.Eval.Passed, resp.Eval.Reason))
}

// #endregion plan-output

// #region learn-output
func printLearn(w io.Writer, resp transport.LearnResponse) {
	fmt.Fprintf(w, "Session:            %s (patient %s)\n", resp.SessionID, orDash(resp.PatientID))
	fmt.Fprintf(w, "Action:             %s\n", resp.Action)
	if resp.Reason != "" {
		fmt.Fprintf(w, "Reason:             %s\n", resp.Reason)
	}
	l := resp.Learn
	if l.HasObservedRate {
		fmt.Fprintf(w, "UF actual net:      %.2f L\n", l.UFActualNet)
		fmt.Fprintf(w, "r_used_last:        %.2f mL/kg/h\n", l.ObservedRate)
		fmt.Fprintf(w, "p_old → p_target:   %.4f → %.4f\n", l.Update.POld, l.Update.PTarget)
	}
	fmt.Fprintf(w, "γ0 offset:          %.4f → %.4f (α=%.2f)\n", l.Update.PriorOffset, l.Update.NewOffset, l.Update.Alpha)
	fmt.Fprintf(w, "r_max_next_dyn:     %.2f mL/kg/h", l.Next.Final)
	if l.Next.CapApplied {
		fmt.Fprintf(w, " (capped at %.2f)", l.Next.Capped)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "UF cap next:        %.2f L\n", l.UFCapNext)
	if l.UFDeficitNext > 0 {
		fmt.Fprintf(w, "UF deficit next:    %.2f L, extend +%d min\n", l.UFDeficitNext, l.Extension.ExtraMinutes)
	}
	for _, warn := range l.Warnings {
		fmt.Fprintf(w, "Warning:            %s\n", warn)
	}
	if resp.VersionID != "" && resp.VersionID != resp.PriorVersionID {
		fmt.Fprintf(w, "New version:        %s (parent %s)\n", resp.VersionID, orDash(resp.PriorVersionID))
	}
	if resp.Eval != nil {
		fmt.Fprintf(w, "Eval:               %s\n", evalLine(resp.Eval.Passed, resp.Eval.Reason))
	}
}

// #endregion learn-output

// #region history-output
func printHistory(w io.Writer, resp transport.HistoryResponse) {
	fmt.Fprintf(w, "Patient: %s  active: %s\n\n", resp.PatientID, orDash(resp.ActiveVersionID))
	fmt.Fprintf(w, "%-3s %-38s %-10s %s\n", "", "VERSION", "OFFSET", "CREATED")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, v := range resp.Versions {
		mark := ""
		if v.Active {
			mark = "*"
		}
		fmt.Fprintf(w, "%-3s %-38s %-10.4f %s\n", mark, v.VersionID, v.BiasOffset, v.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if len(resp.Sessions) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%-20s %-6s %-14s %s\n", "SESSION", "TYPE", "DECISION", "CREATED")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, s := range resp.Sessions {
		fmt.Fprintf(w, "%-20s %-6s %-14s %s\n", s.SessionID, s.TriggerType, s.Decision, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

// #endregion history-output

func evalLine(passed bool, reason string) string {
	if passed {
		return "pass"
	}
	return "FAIL " + reason
}

func joinOrDash(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, "; ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
