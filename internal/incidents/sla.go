package incidents

import "time"

// DefaultRiskThreshold is how close to the due date an active incident counts as at risk.
const DefaultRiskThreshold = 2 * time.Hour

// ComputeSLA derives the SLA status with the default threshold.
func ComputeSLA(status Status, due *time.Time, updatedAt, now time.Time) SLAStatus {
	return ComputeSLAWithThreshold(status, due, updatedAt, now, DefaultRiskThreshold)
}

// ComputeSLAWithThreshold derives the SLA status. Resolved and closed incidents are judged
// at their last update, active ones at now.
func ComputeSLAWithThreshold(status Status, due *time.Time, updatedAt, now time.Time, threshold time.Duration) SLAStatus {
	if due == nil || due.IsZero() {
		return SLAOk
	}
	reference := now
	if status.Done() {
		reference = updatedAt
	}
	if reference.After(*due) {
		return SLABreached
	}
	if status.Done() {
		return SLAOk
	}
	if due.Sub(now) <= threshold {
		return SLARisk
	}
	return SLAOk
}
