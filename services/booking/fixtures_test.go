package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bookingRepo "slotwise/database/repository/booking"
	"slotwise/models"
	"slotwise/services/calendar"
)

// memStore is an in-memory stand-in for the Mongo repositories. Its
// transactional schedule path mimics the real one: write, re-check, roll
// back on failure.
type memStore struct {
	mu           sync.Mutex
	calendars    map[string]models.Calendar
	leaves       []models.Leave
	resources    map[string]models.Resource
	combinations map[string]models.Combination
	types        map[string]models.BookingType
	bookings     map[string]models.Booking
	meetings     map[string]models.Meeting
}

func newMemStore() *memStore {
	return &memStore{
		calendars:    map[string]models.Calendar{},
		resources:    map[string]models.Resource{},
		combinations: map[string]models.Combination{},
		types:        map[string]models.BookingType{},
		bookings:     map[string]models.Booking{},
		meetings:     map[string]models.Meeting{},
	}
}

func (s *memStore) GetCalendar(_ context.Context, id string) (*models.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cal, ok := s.calendars[id]
	if !ok {
		return nil, fmt.Errorf("calendar %s not found", id)
	}
	return &cal, nil
}

func (s *memStore) ListLeaves(_ context.Context, calendarID string, from, to time.Time) ([]models.Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Leave
	for _, leave := range s.leaves {
		if leave.CalendarID == calendarID && leave.From.Before(to) && leave.To.After(from) {
			out = append(out, leave)
		}
	}
	return out, nil
}

func (s *memStore) UpsertCalendar(_ context.Context, cal *models.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[cal.ID] = *cal
	return nil
}

func (s *memStore) AddLeave(_ context.Context, leave *models.Leave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves = append(s.leaves, *leave)
	return nil
}

func (s *memStore) RemoveLeave(_ context.Context, leaveID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, leave := range s.leaves {
		if leave.ID == leaveID {
			s.leaves = append(s.leaves[:i], s.leaves[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("leave %s not found", leaveID)
}

func (s *memStore) GetResource(_ context.Context, id string) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.resources[id]
	if !ok {
		return nil, fmt.Errorf("resource %s not found", id)
	}
	return &res, nil
}

func (s *memStore) ListResources(_ context.Context, ids []string) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Resource
	for _, id := range ids {
		if res, ok := s.resources[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *memStore) GetCombination(_ context.Context, id string) (*models.Combination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comb, ok := s.combinations[id]
	if !ok {
		return nil, fmt.Errorf("combination %s not found", id)
	}
	return &comb, nil
}

func (s *memStore) GetBookingType(_ context.Context, id string) (*models.BookingType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bt, ok := s.types[id]
	if !ok {
		return nil, fmt.Errorf("booking type %s not found", id)
	}
	return &bt, nil
}

func (s *memStore) ListResourcesByCalendar(_ context.Context, calendarID string) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Resource
	for _, res := range s.resources {
		if res.CalendarID == calendarID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListCombinationsByForcedCalendar(_ context.Context, calendarID string) ([]models.Combination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Combination
	for _, comb := range s.combinations {
		if comb.ForcedCalendarID == calendarID {
			out = append(out, comb)
		}
	}
	return out, nil
}

func (s *memStore) UpsertResource(_ context.Context, res *models.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[res.ID] = *res
	return nil
}

func (s *memStore) UpsertCombination(_ context.Context, comb *models.Combination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combinations[comb.ID] = *comb
	return nil
}

func (s *memStore) UpsertBookingType(_ context.Context, bt *models.BookingType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[bt.ID] = *bt
	return nil
}

func (s *memStore) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s not found", id)
	}
	return &b, nil
}

func (s *memStore) CreateBooking(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) SaveBooking(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) GetMeeting(_ context.Context, id string) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s not found", id)
	}
	return &m, nil
}

func (s *memStore) SaveMeeting(_ context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = *m
	return nil
}

func (s *memStore) DeleteMeeting(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meetings, id)
	return nil
}

func (s *memStore) ListMeetings(_ context.Context, from, to time.Time) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Meeting
	for _, m := range s.meetings {
		if m.Start.Before(to) && m.Stop.After(from) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *memStore) ListScheduledForResources(_ context.Context, resourceIDs []string, after time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range resourceIDs {
		wanted[id] = true
	}
	var out []models.Booking
	for _, m := range s.meetings {
		if m.BookingID == "" || !m.Stop.After(after) {
			continue
		}
		uses := false
		for _, id := range m.ResourceIDs {
			if wanted[id] {
				uses = true
				break
			}
		}
		if !uses {
			continue
		}
		if b, ok := s.bookings[m.BookingID]; ok && b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) ListScheduledForCombination(_ context.Context, combinationID string, after time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.CombinationID == combinationID && b.Active && b.MeetingID != "" && b.Stop.After(after) {
			out = append(out, b)
		}
	}
	return out, nil
}

// ScheduleTransactionally applies the writes, runs the check against the
// post-write state, and restores the previous state when the check fails.
func (s *memStore) ScheduleTransactionally(ctx context.Context, b *models.Booking, m *models.Meeting, check bookingRepo.CheckFunc) error {
	s.mu.Lock()
	prevBooking, hadBooking := s.bookings[b.ID]
	s.bookings[b.ID] = *b
	var prevMeeting models.Meeting
	hadMeeting := false
	if m != nil {
		prevMeeting, hadMeeting = s.meetings[m.ID]
		s.meetings[m.ID] = *m
	}
	s.mu.Unlock()

	var err error
	if check != nil {
		err = check(ctx, []models.Booking{*b})
	}
	if err != nil {
		s.mu.Lock()
		if hadBooking {
			s.bookings[b.ID] = prevBooking
		} else {
			delete(s.bookings, b.ID)
		}
		if m != nil {
			if hadMeeting {
				s.meetings[m.ID] = prevMeeting
			} else {
				delete(s.meetings, m.ID)
			}
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// env wires the engine and lifecycle service over a memStore with a fixed
// clock.
type env struct {
	store  *memStore
	engine *Engine
	svc    *Service
	now    time.Time
}

func newEnv(now time.Time) *env {
	store := newMemStore()
	e := &env{store: store, now: now}
	calSvc := &calendar.Service{Repo: store}
	e.engine = &Engine{
		Calendars: calSvc,
		Directory: store,
		Repo:      store,
		Now:       func() time.Time { return e.now },
	}
	e.svc = &Service{Engine: e.engine, Repo: store, Directory: store}
	return e
}

// monday is a fixed anchor: Monday 2026-01-05, all fixtures in UTC.
var monday = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}

func (e *env) addCalendar(id string, weekdays []time.Weekday, startMinute, endMinute int) {
	var atts []models.Attendance
	for _, wd := range weekdays {
		atts = append(atts, models.Attendance{Weekday: wd, StartMinute: startMinute, EndMinute: endMinute})
	}
	e.store.calendars[id] = models.Calendar{ID: id, Timezone: "UTC", Attendances: atts}
}

func (e *env) addResource(id string, kind models.ResourceKind, userID, calendarID string) {
	e.store.resources[id] = models.Resource{ID: id, Name: id, Kind: kind, UserID: userID, CalendarID: calendarID}
}

func (e *env) addCombination(id string, resourceIDs ...string) {
	e.store.combinations[id] = models.Combination{ID: id, Name: id, ResourceIDs: resourceIDs}
}

func (e *env) addType(id, calendarID string, durationMinutes int, deadlineHours float64, combinationIDs ...string) {
	refs := make([]models.CombinationRef, len(combinationIDs))
	for i, cid := range combinationIDs {
		refs[i] = models.CombinationRef{CombinationID: cid, Sequence: i}
	}
	e.store.types[id] = models.BookingType{
		ID:                     id,
		Name:                   id,
		DurationMinutes:        durationMinutes,
		CalendarID:             calendarID,
		ModificationDeadlineHr: deadlineHours,
		Assignment:             models.AssignSorted,
		Combinations:           refs,
	}
}

func (e *env) addBooking(id, requesterID, typeID string, autoAssign bool) *models.Booking {
	b := models.Booking{
		ID:          id,
		RequesterID: requesterID,
		TypeID:      typeID,
		AutoAssign:  autoAssign,
		Active:      true,
		CreatedAt:   e.now,
	}
	e.store.bookings[id] = b
	return &b
}
