package domain

import (
	"fmt"
	"strings"
)

const (
	ProjectPending    = "pending"
	ProjectInProgress = "in_progress"
	ProjectReview     = "review"
	ProjectCompleted  = "completed"
)

const (
	ActivityPending    = "pending"
	ActivityInProgress = "in_progress"
	ActivityReview     = "review"
	ActivityCompleted  = "completed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// NormalizeActivityStatus maps the accepted aliases (todo, done) onto stored values.
func NormalizeActivityStatus(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "todo":
		return ActivityPending, nil
	case "in_progress":
		return ActivityInProgress, nil
	case "review":
		return ActivityReview, nil
	case "completed", "done":
		return ActivityCompleted, nil
	}
	return "", fmt.Errorf("invalid activity status %q", s)
}

func NormalizePriority(p string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return strings.ToLower(strings.TrimSpace(p)), nil
	}
	return "", fmt.Errorf("invalid priority %q", p)
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// Tally counts a project's activities by the classes the status rules look at.
type Tally struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
}

// TallyStages flattens the activities of every stage and counts them.
// Review activities count as in progress.
func TallyStages(stages []Stage) Tally {
	var t Tally
	for _, st := range stages {
		for _, a := range st.Activities {
			t.Total++
			switch a.Status {
			case ActivityCompleted:
				t.Completed++
			case ActivityInProgress, ActivityReview:
				t.InProgress++
			default:
				t.Pending++
			}
		}
	}
	return t
}

// DateEffect says what a derived status does to a project's real dates.
type DateEffect int

const (
	DatesUntouched DateEffect = iota
	// StampEnd sets real_end_date to now.
	StampEnd
	// StampStartClearEnd sets real_start_date to now and clears real_end_date.
	StampStartClearEnd
)

// DeriveProjectStatus applies the precedence: all completed -> review,
// some outstanding work in flight -> in_progress, otherwise pending.
func DeriveProjectStatus(t Tally) (string, DateEffect) {
	if t.Total > 0 && t.Completed == t.Total {
		return ProjectReview, StampEnd
	}
	if t.Total > t.Completed && t.InProgress > 0 {
		return ProjectInProgress, StampStartClearEnd
	}
	return ProjectPending, DatesUntouched
}

// Direction is a reorder direction. Up moves a stage toward a higher ordinal.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), true
	}
	return "", false
}

// NeighborOrdinal returns the ordinal a stage swaps with when moved in d.
func (d Direction) NeighborOrdinal(current int) int {
	if d == DirectionUp {
		return current + 1
	}
	return current - 1
}
