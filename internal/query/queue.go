package query

import "concierge/internal/model"

// PendingDecisions returns the decisions still awaiting an answer, in input
// order.
func PendingDecisions(decisions []model.Decision) []model.Decision {
	out := make([]model.Decision, 0)
	for _, d := range decisions {
		if d.Status == model.DecisionPending {
			out = append(out, d)
		}
	}
	return out
}

// UnresolvedAlerts returns the alerts that have not been resolved, in input
// order.
func UnresolvedAlerts(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, 0)
	for _, a := range alerts {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}
