package models

import "time"

// ResourceKind distinguishes people from equipment. The distinction matters
// when aggregating busy intervals: a person can escape a conflict by
// declining an invite or marking an event as free, a machine cannot.
type ResourceKind string

const (
	ResourceKindHuman    ResourceKind = "human"
	ResourceKindMaterial ResourceKind = "material"
)

// Resource is a bookable person or piece of equipment.
type Resource struct {
	ID         string       `bson:"id" json:"id"`
	Name       string       `bson:"name" json:"name"`
	Kind       ResourceKind `bson:"kind" json:"kind"`
	UserID     string       `bson:"user_id,omitempty" json:"user_id,omitempty"` // linked identity, human resources only
	CalendarID string       `bson:"calendar_id" json:"calendar_id"`
}

// Combination is a fixed group of resources that must all be free
// simultaneously for a booking to use it. When ForcedCalendarID is set it
// replaces every member's own calendar for availability purposes.
type Combination struct {
	ID               string   `bson:"id" json:"id"`
	Name             string   `bson:"name" json:"name"`
	ResourceIDs      []string `bson:"resource_ids" json:"resource_ids"`
	ForcedCalendarID string   `bson:"forced_calendar_id,omitempty" json:"forced_calendar_id,omitempty"`
}

// AssignmentPolicy controls the order in which a booking type's candidate
// combinations are tried during auto-assignment.
type AssignmentPolicy string

const (
	// AssignSorted tries candidates in their configured sequence order.
	AssignSorted AssignmentPolicy = "sorted"
	// AssignRandom tries candidates in a shuffled order; any free candidate
	// is a valid pick.
	AssignRandom AssignmentPolicy = "random"
)

// CombinationRef links a combination to a booking type with its position
// in the sorted assignment order.
type CombinationRef struct {
	CombinationID string `bson:"combination_id" json:"combination_id"`
	Sequence      int    `bson:"sequence" json:"sequence"`
}

// BookingType configures how bookings of one kind are scheduled: how long
// they last, which calendar further restricts them, which resource
// combinations may serve them and in what order, and how close to the start
// they may still be modified by an unprivileged actor.
type BookingType struct {
	ID                     string           `bson:"id" json:"id"`
	Name                   string           `bson:"name" json:"name"`
	DurationMinutes        int              `bson:"duration_minutes" json:"duration_minutes"`
	CalendarID             string           `bson:"calendar_id" json:"calendar_id"`
	ModificationDeadlineHr float64          `bson:"modification_deadline_hr" json:"modification_deadline_hr"`
	Assignment             AssignmentPolicy `bson:"assignment" json:"assignment"`
	Combinations           []CombinationRef `bson:"combinations" json:"combinations"`
	// SlotGranularityMinutes is the step between generated slot starts.
	// Zero means one slot per duration. Bookings may span several
	// underlying granularity steps.
	SlotGranularityMinutes int `bson:"slot_granularity_minutes,omitempty" json:"slot_granularity_minutes,omitempty"`
}

// Duration returns the fixed booking length.
func (bt BookingType) Duration() time.Duration {
	return time.Duration(bt.DurationMinutes) * time.Minute
}

// SlotGranularity returns the step between candidate slot starts.
func (bt BookingType) SlotGranularity() time.Duration {
	if bt.SlotGranularityMinutes > 0 {
		return time.Duration(bt.SlotGranularityMinutes) * time.Minute
	}
	return bt.Duration()
}

// ModificationDeadline returns how long before start a booking freezes for
// unprivileged actors.
func (bt BookingType) ModificationDeadline() time.Duration {
	return time.Duration(bt.ModificationDeadlineHr * float64(time.Hour))
}
