package models

import "time"

// Attendance is one recurring weekly opening of a calendar, expressed as
// minutes from midnight in the calendar's own time zone (e.g. 480 for
// 8:00 AM, 1020 for 5:00 PM).
type Attendance struct {
	Weekday     time.Weekday `bson:"weekday" json:"weekday"`
	StartMinute int          `bson:"start_minute" json:"start_minute"`
	EndMinute   int          `bson:"end_minute" json:"end_minute"`
}

// Calendar is a recurring weekly attendance pattern. Combined with leave
// exceptions it defines when a resource (or a booking type) is open.
type Calendar struct {
	ID          string       `bson:"id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Timezone    string       `bson:"timezone" json:"timezone"` // IANA name, e.g. "Europe/Madrid"
	Attendances []Attendance `bson:"attendances" json:"attendances"`
}

// Location resolves the calendar's IANA zone, falling back to UTC when the
// zone is unset or unknown.
func (c Calendar) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Leave removes time from a calendar. A leave with an empty ResourceID is
// global: it applies to every resource using the calendar. Otherwise it is
// scoped to the one resource it names.
type Leave struct {
	ID         string    `bson:"id" json:"id"`
	CalendarID string    `bson:"calendar_id" json:"calendar_id"`
	ResourceID string    `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	From       time.Time `bson:"from" json:"from"`
	To         time.Time `bson:"to" json:"to"`
	Reason     string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

// AppliesTo reports whether the leave affects the given resource.
func (l Leave) AppliesTo(resourceID string) bool {
	return l.ResourceID == "" || l.ResourceID == resourceID
}
