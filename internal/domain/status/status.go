// Package status holds the shared lifecycle vocabulary and the derivation
// engine that turns dates plus per-intervention outcomes into the task
// status shown to users. Task status is never stored: every list view and
// summary count goes through this package, in Go via DeriveTask and in SQL
// via TaskStatusSQL, so the two can never drift apart.
package status

import (
	"fmt"
	"time"
)

// TaskStatus is the derived status of a task.
type TaskStatus string

const (
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskOverdue    TaskStatus = "overdue"
	TaskCompleted  TaskStatus = "completed"
)

// OutcomeStatus is the per-intervention outcome recorded by the assigned
// staff member.
type OutcomeStatus string

const (
	OutcomeUnseen    OutcomeStatus = "unseen"
	OutcomeSeen      OutcomeStatus = "seen"
	OutcomeAttempted OutcomeStatus = "attempted"
	OutcomeDeclined  OutcomeStatus = "declined"
	OutcomeHandover  OutcomeStatus = "handover"
)

var validOutcomes = map[OutcomeStatus]bool{
	OutcomeUnseen:    true,
	OutcomeSeen:      true,
	OutcomeAttempted: true,
	OutcomeDeclined:  true,
	OutcomeHandover:  true,
}

func (o OutcomeStatus) Valid() bool { return validOutcomes[o] }

// RequiresExplanation reports whether an outcome status must carry outcome
// text and an outcome date. For every other status those fields are
// cleared, not left stale.
func (o OutcomeStatus) RequiresExplanation() bool { return o == OutcomeHandover }

// ReferralStatus is the stored status of a referral.
type ReferralStatus string

const (
	ReferralActive      ReferralStatus = "active"
	ReferralDischarged  ReferralStatus = "discharged"
	ReferralUnavailable ReferralStatus = "unavailable"
	ReferralCancelled   ReferralStatus = "cancelled"
	ReferralSuccess     ReferralStatus = "success"
)

var validReferralStatuses = map[ReferralStatus]bool{
	ReferralActive:      true,
	ReferralDischarged:  true,
	ReferralUnavailable: true,
	ReferralCancelled:   true,
	ReferralSuccess:     true,
}

func (s ReferralStatus) Valid() bool { return validReferralStatuses[s] }

// Terminal reports whether a referral in this status may no longer be
// edited.
func (s ReferralStatus) Terminal() bool {
	return s == ReferralSuccess || s == ReferralCancelled
}

// TriageDecision is the destination department's decision on an incoming
// referral. Redirecting re-queues the referral, so the stored decision goes
// back to pending rather than recording "redirected".
type TriageDecision string

const (
	TriagePending  TriageDecision = "pending"
	TriageAccepted TriageDecision = "accepted"
	TriageRejected TriageDecision = "rejected"
)

// Priority is an ordinal 1–3, higher is more urgent. It travels as an
// integer and is labelled on display.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

func (p Priority) Valid() bool { return p >= PriorityLow && p <= PriorityHigh }

var priorityLabels = map[Priority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
}

func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// DateOnly truncates a time to its calendar date in UTC. Task and
// intervention windows are date-granular.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DeriveTask computes a task's status from today, its window, and its
// interventions' outcomes.
//
// A task with zero interventions has no unseen items, so it derives
// assigned before its start date and completed from the start date on.
// Once no outcome is unseen the task stays completed regardless of dates.
func DeriveTask(today, startDate, endDate time.Time, outcomes []OutcomeStatus) TaskStatus {
	day := DateOnly(today)
	if day.Before(DateOnly(startDate)) {
		return TaskAssigned
	}
	anyUnseen := false
	for _, o := range outcomes {
		if o == OutcomeUnseen {
			anyUnseen = true
			break
		}
	}
	if !anyUnseen {
		return TaskCompleted
	}
	if day.After(DateOnly(endDate)) {
		return TaskOverdue
	}
	return TaskInProgress
}

// TaskStatusSQL returns a CASE expression deriving the task status in SQL,
// mirroring DeriveTask exactly. alias is the task table alias and todayIdx
// the positional parameter the caller binds today's date to. Binding the
// date instead of using CURRENT_DATE keeps SQL and Go on the same clock.
func TaskStatusSQL(alias string, todayIdx int) string {
	return fmt.Sprintf(`CASE
	WHEN $%[2]d::date < %[1]s.start_date THEN 'assigned'
	WHEN EXISTS (SELECT 1 FROM task_intervention ti WHERE ti.task_id = %[1]s.id AND ti.outcome_status = 'unseen') THEN
		CASE WHEN $%[2]d::date > %[1]s.end_date THEN 'overdue' ELSE 'in_progress' END
	ELSE 'completed'
END`, alias, todayIdx)
}

// PresentedReferral resolves the status shown for a referral: while the
// triage decision is pending the triage sub-state masks the stored status.
func PresentedReferral(stored ReferralStatus, decision TriageDecision) string {
	if decision == TriagePending && !stored.Terminal() {
		return "pending"
	}
	return string(stored)
}
