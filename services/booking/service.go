package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingRepo "slotwise/database/repository/booking"
	resourceRepo "slotwise/database/repository/resource"
	"slotwise/models"
	"slotwise/utils"
)

// Actor identifies who is driving a lifecycle call. Managers may modify
// overdue bookings; portal actors get the user-facing "not available"
// error instead of scheduling past conflicts.
type Actor struct {
	UserID  string
	Manager bool
}

// ExpiryScheduler enqueues the deferred auto-cancel of a booking that is
// still unconfirmed when its modification deadline passes.
type ExpiryScheduler interface {
	EnqueueExpiry(ctx context.Context, bookingID string, fireAt time.Time) error
}

// Service drives the booking lifecycle: pending -> scheduled -> confirmed,
// with cancel as the terminal state. Every write that could produce a
// conflict goes through the repository's transactional schedule path so the
// scheduling check runs against the post-write state.
type Service struct {
	Engine    *Engine
	Repo      bookingRepo.BookingRepository
	Directory resourceRepo.ResourceRepository
	// Tasks is optional; nil disables deadline auto-cancel.
	Tasks ExpiryScheduler
}

// Create registers a pending booking with no time chosen yet.
func (s *Service) Create(ctx context.Context, requesterID, typeID string, autoAssign bool) (*models.Booking, error) {
	if _, err := s.Directory.GetBookingType(ctx, typeID); err != nil {
		return nil, err
	}
	b := &models.Booking{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		TypeID:      typeID,
		AutoAssign:  autoAssign,
		Active:      true,
		CreatedAt:   s.Engine.clock(),
	}
	if err := s.Repo.CreateBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Schedule sets the booking's start, picks (or keeps) its combination,
// materializes the meeting and commits everything transactionally. The
// requester and every human resource of the chosen combination are invited;
// resource attendees start accepted when the combination was hand-picked.
func (s *Service) Schedule(ctx context.Context, bookingID string, start time.Time, actor Actor) (*models.Booking, error) {
	b, err := s.Repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Active {
		return nil, fmt.Errorf("booking %s is canceled", b.ID)
	}
	bt, err := s.Directory.GetBookingType(ctx, b.TypeID)
	if err != nil {
		return nil, err
	}
	if err := s.guardModifiable(b, bt, actor); err != nil {
		return nil, err
	}

	b.Start = start
	b.Stop = start.Add(bt.Duration())
	desired := models.TimeInterval{Start: b.Start, End: b.Stop}

	comb, err := s.resolveCombination(ctx, b, bt, desired)
	if err != nil {
		return nil, err
	}
	b.CombinationID = comb.ID

	meeting, err := s.buildMeeting(ctx, b, bt, comb)
	if err != nil {
		return nil, err
	}
	b.MeetingID = meeting.ID

	if err := s.Repo.ScheduleTransactionally(ctx, b, meeting, s.Engine.CheckScheduling); err != nil {
		return nil, err
	}
	utils.GetLogger().Info("booking scheduled",
		zap.String("bookingID", b.ID),
		zap.String("combinationID", b.CombinationID),
		zap.Time("start", b.Start))

	if s.Tasks != nil {
		fireAt := b.Start.Add(-bt.ModificationDeadline())
		if fireAt.After(s.Engine.clock()) {
			if err := s.Tasks.EnqueueExpiry(ctx, b.ID, fireAt); err != nil {
				utils.GetLogger().Warn("failed to enqueue booking expiry",
					zap.String("bookingID", b.ID), zap.Error(err))
			}
		}
	}
	return b, nil
}

// Confirm marks the requester's attendance accepted, turning the tentative
// hold authoritative, and re-runs the scheduling check in the same
// transaction. When confirmOwn is set the calling actor's attendance is
// accepted too.
func (s *Service) Confirm(ctx context.Context, bookingID string, actor Actor, confirmOwn bool) (*models.Booking, error) {
	b, err := s.Repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsScheduled() {
		return nil, fmt.Errorf("booking %s has no meeting to confirm", b.ID)
	}
	meeting, err := s.Repo.GetMeeting(ctx, b.MeetingID)
	if err != nil {
		return nil, err
	}
	meeting.SetAttendeeStatus(b.RequesterID, models.AttendeeAccepted)
	if confirmOwn && actor.UserID != "" {
		meeting.SetAttendeeStatus(actor.UserID, models.AttendeeAccepted)
	}
	if err := s.Repo.ScheduleTransactionally(ctx, b, meeting, s.Engine.CheckScheduling); err != nil {
		return nil, err
	}
	utils.GetLogger().Info("booking confirmed", zap.String("bookingID", b.ID))
	return b, nil
}

// Unschedule destroys the meeting and clears the chosen time. The
// combination assignment is kept so re-scheduling lands on the same
// resources when they are still free.
func (s *Service) Unschedule(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	b, err := s.Repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	bt, err := s.Directory.GetBookingType(ctx, b.TypeID)
	if err != nil {
		return nil, err
	}
	if err := s.guardModifiable(b, bt, actor); err != nil {
		return nil, err
	}
	if b.MeetingID != "" {
		if err := s.Repo.DeleteMeeting(ctx, b.MeetingID); err != nil {
			return nil, err
		}
	}
	b.MeetingID = ""
	b.Start = time.Time{}
	b.Stop = time.Time{}
	if err := s.Repo.SaveBooking(ctx, b); err != nil {
		return nil, err
	}
	utils.GetLogger().Info("booking unscheduled", zap.String("bookingID", b.ID))
	return b, nil
}

// Cancel unschedules and archives the booking. Terminal.
func (s *Service) Cancel(ctx context.Context, bookingID string, actor Actor) error {
	b, err := s.Unschedule(ctx, bookingID, actor)
	if err != nil {
		return err
	}
	b.Active = false
	if err := s.Repo.SaveBooking(ctx, b); err != nil {
		return err
	}
	utils.GetLogger().Info("booking canceled", zap.String("bookingID", b.ID))
	return nil
}

// State resolves the booking's derived lifecycle state.
func (s *Service) State(ctx context.Context, bookingID string) (models.BookingState, error) {
	b, err := s.Repo.GetBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	var meeting *models.Meeting
	if b.MeetingID != "" {
		meeting, err = s.Repo.GetMeeting(ctx, b.MeetingID)
		if err != nil {
			return "", err
		}
	}
	return b.State(meeting), nil
}

// RecheckCalendar re-validates every active scheduled booking whose
// availability depends on the given calendar, either through a member
// resource's own calendar or through a combination forcing it. Wired as
// the calendar repository's in-transaction write hook.
func (s *Service) RecheckCalendar(ctx context.Context, calendarID string) error {
	resources, err := s.Directory.ListResourcesByCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	resourceIDs := make([]string, 0, len(resources))
	for _, res := range resources {
		resourceIDs = append(resourceIDs, res.ID)
	}
	forced, err := s.Directory.ListCombinationsByForcedCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	for _, comb := range forced {
		resourceIDs = append(resourceIDs, comb.ResourceIDs...)
	}
	if len(resourceIDs) == 0 {
		return nil
	}
	return s.recheckForResources(ctx, resourceIDs)
}

// RecheckCombination re-validates bookings using a combination whose
// membership or forced calendar just changed. Bookings assigned to the
// combination are looked up directly: a membership edit can replace every
// resource their meetings reference, which would hide them from the
// resource-based lookup.
func (s *Service) RecheckCombination(ctx context.Context, combinationID string) error {
	comb, err := s.Directory.GetCombination(ctx, combinationID)
	if err != nil {
		return err
	}
	now := s.Engine.clock()
	assigned, err := s.Repo.ListScheduledForCombination(ctx, combinationID, now)
	if err != nil {
		return err
	}
	byResource, err := s.Repo.ListScheduledForResources(ctx, comb.ResourceIDs, now)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(assigned))
	for _, b := range assigned {
		seen[b.ID] = true
	}
	for _, b := range byResource {
		if !seen[b.ID] {
			assigned = append(assigned, b)
		}
	}
	return s.Engine.CheckScheduling(ctx, assigned)
}

// RecheckResource re-validates bookings whose combinations use the given
// resource, typically after the resource moved to another calendar.
func (s *Service) RecheckResource(ctx context.Context, resourceID string) error {
	return s.recheckForResources(ctx, []string{resourceID})
}

func (s *Service) recheckForResources(ctx context.Context, resourceIDs []string) error {
	bookings, err := s.Repo.ListScheduledForResources(ctx, resourceIDs, s.Engine.clock())
	if err != nil {
		return err
	}
	return s.Engine.CheckScheduling(ctx, bookings)
}

// guardModifiable rejects schedule/unschedule on an overdue booking unless
// the actor holds manager privilege.
func (s *Service) guardModifiable(b *models.Booking, bt *models.BookingType, actor Actor) error {
	if actor.Manager {
		return nil
	}
	if b.IsOverdue(s.Engine.clock(), bt.ModificationDeadline()) {
		return fmt.Errorf("%w: booking %s", ErrForbidden, b.ID)
	}
	return nil
}

// resolveCombination picks the combination for a schedule call: auto-assign
// runs the selector (preferring the current assignment), a hand-picked
// combination is kept and validated by the commit-time check instead.
func (s *Service) resolveCombination(ctx context.Context, b *models.Booking, bt *models.BookingType, desired models.TimeInterval) (*models.Combination, error) {
	if !b.AutoAssign && b.CombinationID != "" {
		return s.Directory.GetCombination(ctx, b.CombinationID)
	}
	return s.Engine.SelectCombination(ctx, b, bt, desired)
}

// buildMeeting materializes the calendar occupation for a scheduled
// booking, reusing the meeting id across reschedules when one exists.
func (s *Service) buildMeeting(ctx context.Context, b *models.Booking, bt *models.BookingType, comb *models.Combination) (*models.Meeting, error) {
	resources, err := s.Directory.ListResources(ctx, comb.ResourceIDs)
	if err != nil {
		return nil, err
	}
	meetingID := b.MeetingID
	if meetingID == "" {
		meetingID = uuid.NewString()
	}
	meeting := &models.Meeting{
		ID:          meetingID,
		BookingID:   b.ID,
		Name:        b.DisplayName(b.RequesterID, bt.Name),
		Start:       b.Start,
		Stop:        b.Stop,
		ShowAs:      models.ShowAsBusy,
		ResourceIDs: comb.ResourceIDs,
	}
	meeting.SetAttendeeStatus(b.RequesterID, models.AttendeeNeedsAction)
	resourceStatus := models.AttendeeNeedsAction
	if !b.AutoAssign {
		// Hand-picked combinations imply the resources already agreed.
		resourceStatus = models.AttendeeAccepted
	}
	for _, res := range resources {
		if res.Kind == models.ResourceKindHuman && res.UserID != "" {
			meeting.SetAttendeeStatus(res.UserID, resourceStatus)
		}
	}
	return meeting, nil
}
