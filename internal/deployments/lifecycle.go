package deployments

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

// Transitions is the deployment lifecycle. Success and failed are terminal.
var Transitions = store.Transitions[Status]{
	StatusPending:  {StatusApproved},
	StatusApproved: {StatusRunning},
	StatusRunning:  {StatusSuccess, StatusFailed},
	StatusSuccess:  {},
	StatusFailed:   {},
}

// InitialProgress is reported as soon as a rollout starts.
const InitialProgress = 5

func invalidState(d Deployment, action string) error {
	return utils.NewAppError(action+" deployment", "Invalid state",
		fmt.Errorf("%w: %s is %s", utils.ErrInvalidState, d.ID, d.Status))
}

// ApplyApprove moves a pending deployment to approved.
func ApplyApprove(d Deployment, actor string, now time.Time) (Deployment, error) {
	if !Transitions.Allowed(d.Status, StatusApproved) {
		return d, invalidState(d, "approve")
	}
	next := d.clone()
	next.transition(StatusApproved, actor, now)
	next.log("Approved by "+actor, actor, now)
	return next, nil
}

// ApplyStart moves an approved deployment to running, resets progress and marks the first
// step running.
func ApplyStart(d Deployment, actor string, now time.Time) (Deployment, error) {
	if !Transitions.Allowed(d.Status, StatusRunning) {
		return d, invalidState(d, "start")
	}
	next := d.clone()
	next.transition(StatusRunning, actor, now)
	next.Progress = InitialProgress
	for i := range next.Steps {
		next.Steps[i].Status = StepIdle
		if i == 0 {
			next.Steps[i].Status = StepRunning
		}
	}
	next.log("Deployment started by "+actor, actor, now)
	return next, nil
}

// ApplyProgress advances a running deployment. Progress never decreases and is capped at
// 100; steps before stepIndex are done and stepIndex itself is running until 100.
func ApplyProgress(d Deployment, progress, stepIndex int, actor string, now time.Time) (Deployment, error) {
	if d.Status != StatusRunning {
		return d, invalidState(d, "progress")
	}
	next := d.clone()
	next.Progress = max(next.Progress, min(progress, 100))
	for i := range next.Steps {
		switch {
		case i < stepIndex:
			next.Steps[i].Status = StepDone
		case i == stepIndex && next.Progress >= 100:
			next.Steps[i].Status = StepDone
		case i == stepIndex:
			next.Steps[i].Status = StepRunning
		}
	}
	next.UpdatedAt = now
	next.log("Progress "+strconv.Itoa(next.Progress)+"%", actor, now)
	return next, nil
}

// ApplyFinish ends a running deployment. Success completes every step at 100%; failure
// keeps progress and marks the running step as errored.
func ApplyFinish(d Deployment, status Status, actor string, now time.Time) (Deployment, error) {
	if status != StatusSuccess && status != StatusFailed {
		return d, utils.NewAppError("finish deployment", "Invalid outcome",
			fmt.Errorf("%w: %q", utils.ErrValidation, status))
	}
	if !Transitions.Allowed(d.Status, status) {
		return d, invalidState(d, "finish")
	}
	next := d.clone()
	next.transition(status, actor, now)
	for i := range next.Steps {
		switch {
		case status == StatusSuccess:
			next.Steps[i].Status = StepDone
		case next.Steps[i].Status == StepRunning:
			next.Steps[i].Status = StepError
		}
	}
	level := LevelInfo
	if status == StatusSuccess {
		next.Progress = 100
	} else {
		level = LevelError
	}
	next.Logs = append(next.Logs, LogLine{At: now, Message: "Deployment " + string(status), Level: level, Actor: actor})
	return next, nil
}

func (d *Deployment) transition(to Status, actor string, now time.Time) {
	d.Audit = append(d.Audit, Transition{At: now, Actor: actor, From: d.Status, To: to})
	d.Status = to
	d.UpdatedAt = now
}

func (d *Deployment) log(message, actor string, now time.Time) {
	d.Logs = append(d.Logs, LogLine{At: now, Message: message, Level: LevelInfo, Actor: actor})
}

func (d Deployment) clone() Deployment {
	d.Steps = slices.Clone(d.Steps)
	d.Logs = slices.Clone(d.Logs)
	d.Audit = slices.Clone(d.Audit)
	return d
}
