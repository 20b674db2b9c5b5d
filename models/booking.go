package models

import (
	"fmt"
	"time"
)

// BookingState is derived, never stored directly: it follows from the
// booking's active flag, its meeting, and the requester's attendance.
type BookingState string

const (
	// StatePending means no meeting is scheduled yet.
	StatePending BookingState = "pending"
	// StateScheduled means a meeting exists but the requester has not
	// confirmed attendance.
	StateScheduled BookingState = "scheduled"
	// StateConfirmed means the requester accepted the meeting.
	StateConfirmed BookingState = "confirmed"
	// StateCanceled is terminal: the meeting is gone and the booking
	// archived.
	StateCanceled BookingState = "canceled"
)

// AttendeeStatus mirrors the classic calendar RSVP states.
type AttendeeStatus string

const (
	AttendeeNeedsAction AttendeeStatus = "needsAction"
	AttendeeAccepted    AttendeeStatus = "accepted"
	AttendeeDeclined    AttendeeStatus = "declined"
	AttendeeTentative   AttendeeStatus = "tentative"
)

// Attendee is one invited identity on a meeting.
type Attendee struct {
	UserID string         `bson:"user_id" json:"user_id"`
	Status AttendeeStatus `bson:"status" json:"status"`
}

// MeetingShowAs marks whether a meeting blocks its owner's time.
type MeetingShowAs string

const (
	ShowAsBusy MeetingShowAs = "busy"
	ShowAsFree MeetingShowAs = "free"
)

// Meeting is a materialized calendar occupation. A booking owns at most one
// meeting (created on schedule, destroyed on unschedule); meetings with an
// empty BookingID are generic calendar events that only matter as busy
// sources for human resources.
type Meeting struct {
	ID        string        `bson:"id" json:"id"`
	BookingID string        `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	Name      string        `bson:"name" json:"name"`
	OwnerID   string        `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Start     time.Time     `bson:"start" json:"start"`
	Stop      time.Time     `bson:"stop" json:"stop"`
	ShowAs    MeetingShowAs `bson:"show_as" json:"show_as"`
	Attendees []Attendee    `bson:"attendees" json:"attendees"`
	// ResourceIDs is denormalized from the owning booking's combination so
	// busy-interval scans never need a join per meeting.
	ResourceIDs []string `bson:"resource_ids,omitempty" json:"resource_ids,omitempty"`
}

// Interval returns the meeting's occupied span.
func (m Meeting) Interval() TimeInterval {
	return TimeInterval{Start: m.Start, End: m.Stop}
}

// BooksResource reports whether the meeting occupies the given resource
// through its owning booking's combination.
func (m Meeting) BooksResource(resourceID string) bool {
	for _, id := range m.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}

// AttendeeStatus returns the recorded status for the given identity, or
// false when the identity is not invited.
func (m Meeting) AttendeeStatus(userID string) (AttendeeStatus, bool) {
	for _, att := range m.Attendees {
		if att.UserID == userID {
			return att.Status, true
		}
	}
	return "", false
}

// SetAttendeeStatus updates (or adds) an attendee entry in place.
func (m *Meeting) SetAttendeeStatus(userID string, status AttendeeStatus) {
	for i := range m.Attendees {
		if m.Attendees[i].UserID == userID {
			m.Attendees[i].Status = status
			return
		}
	}
	m.Attendees = append(m.Attendees, Attendee{UserID: userID, Status: status})
}

// Booking ties a requester to a booking type, a chosen start and a chosen
// resource combination. Start and Stop are either both zero (pending) or
// both set; Stop is always derived as Start plus the type's duration.
type Booking struct {
	ID            string    `bson:"id" json:"id"`
	RequesterID   string    `bson:"requester_id" json:"requester_id"`
	TypeID        string    `bson:"type_id" json:"type_id"`
	Start         time.Time `bson:"start,omitempty" json:"start,omitempty"`
	Stop          time.Time `bson:"stop,omitempty" json:"stop,omitempty"`
	CombinationID string    `bson:"combination_id,omitempty" json:"combination_id,omitempty"`
	MeetingID     string    `bson:"meeting_id,omitempty" json:"meeting_id,omitempty"`
	// AutoAssign makes scheduling pick the best free combination; when
	// false the combination was hand-picked and is kept as-is.
	AutoAssign bool      `bson:"auto_assign" json:"auto_assign"`
	Active     bool      `bson:"active" json:"active"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// IsScheduled reports whether the booking currently holds a meeting.
func (b Booking) IsScheduled() bool {
	return b.MeetingID != ""
}

// Interval returns the booked span. Only meaningful when scheduled.
func (b Booking) Interval() TimeInterval {
	return TimeInterval{Start: b.Start, End: b.Stop}
}

// State derives the lifecycle state from the booking and its meeting.
func (b Booking) State(meeting *Meeting) BookingState {
	if !b.Active {
		return StateCanceled
	}
	if meeting == nil || b.MeetingID == "" {
		return StatePending
	}
	if status, ok := meeting.AttendeeStatus(b.RequesterID); ok && status == AttendeeAccepted {
		return StateConfirmed
	}
	return StateScheduled
}

// IsOverdue reports whether now is past the modification deadline, after
// which only managers may reschedule or cancel. A booking without a start
// is never overdue.
func (b Booking) IsOverdue(now time.Time, deadline time.Duration) bool {
	if b.Start.IsZero() {
		return false
	}
	return now.After(b.Start.Add(-deadline))
}

// DisplayName produces the human-readable booking label used in logs and
// task payloads.
func (b Booking) DisplayName(requesterName, typeName string) string {
	if b.Start.IsZero() {
		return fmt.Sprintf("%s - %s", requesterName, typeName)
	}
	return fmt.Sprintf("%s - %s - %s", requesterName, typeName, b.Start.Format("2006-01-02 15:04"))
}
