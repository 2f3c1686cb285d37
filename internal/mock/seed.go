package mock

import (
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/opsboard/internal/deployments"
	"github.com/miradorstack/opsboard/internal/incidents"
)

// SeedIncidents is the dataset a fresh backend starts with, relative to now.
func SeedIncidents(now time.Time) []incidents.Incident {
	now = now.UTC()
	ago := func(d time.Duration) time.Time { return now.Add(-d) }
	due := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	return []incidents.Incident{
		{
			ID:              uuid.NewString(),
			Title:           "API latency in payments service",
			Description:     "Increased latency observed in payment processing.",
			Severity:        incidents.SeverityHigh,
			Status:          incidents.StatusInvestigating,
			Service:         "payments",
			AffectedSystems: []string{"payments-api", "payments-worker"},
			CreatedAt:       ago(12 * time.Hour),
			UpdatedAt:       ago(2 * time.Hour),
			SLADueAt:        due(6 * time.Hour),
			AssignedTo:      "alice",
			Tags:            []string{"latency", "p99"},
			Timeline: []incidents.TimelineEvent{
				event(incidents.EventComment, "Incident detected by monitoring", SystemActor, ago(12*time.Hour)),
				event(incidents.EventAssignment, "Assigned to alice", "alice", ago(11*time.Hour)),
			},
		},
		{
			ID:              uuid.NewString(),
			Title:           "Error rate spike in auth service",
			Description:     "5xx error spike impacting login flow.",
			Severity:        incidents.SeverityCritical,
			Status:          incidents.StatusOpen,
			Service:         "auth",
			AffectedSystems: []string{"auth-api"},
			CreatedAt:       ago(5 * time.Hour),
			UpdatedAt:       ago(5 * time.Hour),
			SLADueAt:        due(-30 * time.Minute),
			AssignedTo:      "ops-bot",
			Tags:            []string{"errors"},
			Timeline: []incidents.TimelineEvent{
				event(incidents.EventComment, "Incident created from alert", SystemActor, ago(5*time.Hour)),
			},
		},
		{
			ID:              uuid.NewString(),
			Title:           "Degraded search relevance",
			Description:     "Search results are missing recent documents.",
			Severity:        incidents.SeverityMedium,
			Status:          incidents.StatusMitigated,
			Service:         "search",
			AffectedSystems: []string{"search-api"},
			CreatedAt:       ago(24 * time.Hour),
			UpdatedAt:       ago(4 * time.Hour),
			SLADueAt:        due(2 * time.Hour),
			AssignedTo:      "carol",
			Tags:            []string{"relevance"},
			Timeline: []incidents.TimelineEvent{
				event(incidents.EventComment, "Mitigation deployed", "carol", ago(4*time.Hour)),
			},
		},
	}
}

// SeedDeployments is the deployment dataset a fresh backend starts with.
func SeedDeployments(now time.Time) []deployments.Deployment {
	now = now.UTC()
	created := now.Add(-time.Hour)
	approved := now.Add(-30 * time.Minute)
	return []deployments.Deployment{
		{
			ID:        uuid.NewString(),
			Name:      "Payments rollout",
			Service:   "payments",
			Version:   "v2.3.1",
			Status:    deployments.StatusPending,
			CreatedAt: created,
			UpdatedAt: created,
			Steps:     seedSteps("payments"),
			Logs: []deployments.LogLine{
				{At: created, Message: "Deployment created", Level: deployments.LevelInfo, Actor: "alice"},
			},
			Audit: []deployments.Transition{
				{At: created, Actor: "alice", To: deployments.StatusPending},
			},
		},
		{
			ID:        uuid.NewString(),
			Name:      "Auth hotfix",
			Service:   "auth",
			Version:   "v1.9.5",
			Status:    deployments.StatusApproved,
			CreatedAt: created,
			UpdatedAt: approved,
			Steps:     seedSteps("auth"),
			Logs: []deployments.LogLine{
				{At: approved, Message: "Approved by ops", Level: deployments.LevelInfo, Actor: "ops"},
				{At: approved, Message: "Ready to run", Level: deployments.LevelInfo, Actor: "ops"},
			},
			Audit: []deployments.Transition{
				{At: created, Actor: "ops", To: deployments.StatusPending},
				{At: approved, Actor: "ops", From: deployments.StatusPending, To: deployments.StatusApproved},
			},
		},
	}
}

func seedSteps(service string) []deployments.Step {
	titles := []string{"Build " + service, "Deploy " + service, "Smoke tests"}
	steps := make([]deployments.Step, 0, len(titles))
	for _, title := range titles {
		steps = append(steps, deployments.Step{ID: uuid.NewString(), Title: title, Status: deployments.StepIdle})
	}
	return steps
}
