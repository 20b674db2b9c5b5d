package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotwise/models"
)

func lifecycleEnv(t *testing.T, deadlineHours float64) *env {
	t.Helper()
	e := newEnv(at(monday, 0, 0))
	e.addCalendar("cal", []time.Weekday{time.Monday}, 8*60, 17*60)
	e.addResource("r1", models.ResourceKindMaterial, "", "cal")
	e.addCombination("c1", "r1")
	e.addType("consult", "cal", 30, deadlineHours, "c1")
	return e
}

func TestBookingLifecycleRoundTrip(t *testing.T) {
	e := lifecycleEnv(t, 0)
	ctx := context.Background()
	alice := Actor{UserID: "alice"}

	b, err := e.svc.Create(ctx, "alice", "consult", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertState(t, e, b.ID, models.StatePending)

	b, err = e.svc.Schedule(ctx, b.ID, at(monday, 9, 0), alice)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if b.CombinationID != "c1" {
		t.Fatalf("assigned %s, want c1", b.CombinationID)
	}
	if !b.Stop.Equal(at(monday, 9, 30)) {
		t.Fatalf("stop %s, want start plus the type duration", b.Stop)
	}
	assertState(t, e, b.ID, models.StateScheduled)

	meeting, err := e.store.GetMeeting(ctx, b.MeetingID)
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if status, ok := meeting.AttendeeStatus("alice"); !ok || status != models.AttendeeNeedsAction {
		t.Fatalf("requester should be invited pending, got %v %v", status, ok)
	}

	if _, err := e.svc.Confirm(ctx, b.ID, alice, false); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	assertState(t, e, b.ID, models.StateConfirmed)

	b, err = e.svc.Unschedule(ctx, b.ID, alice)
	if err != nil {
		t.Fatalf("Unschedule: %v", err)
	}
	assertState(t, e, b.ID, models.StatePending)
	if !b.Start.IsZero() || b.MeetingID != "" {
		t.Fatalf("unscheduled booking must have no time and no meeting: %+v", b)
	}
	if b.CombinationID != "c1" {
		t.Fatal("the combination assignment must survive unscheduling")
	}

	// Re-scheduling lands on the kept combination again.
	b, err = e.svc.Schedule(ctx, b.ID, at(monday, 14, 0), alice)
	if err != nil {
		t.Fatalf("re-Schedule: %v", err)
	}
	if b.CombinationID != "c1" {
		t.Fatalf("re-assigned %s, want the kept c1", b.CombinationID)
	}
	assertState(t, e, b.ID, models.StateScheduled)

	if err := e.svc.Cancel(ctx, b.ID, alice); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	assertState(t, e, b.ID, models.StateCanceled)

	if _, err := e.svc.Schedule(ctx, b.ID, at(monday, 15, 0), alice); err == nil {
		t.Fatal("a canceled booking must not be schedulable")
	}
}

// Two requesters race for the only combination's last slot. The first
// commit wins; the second passes pre-validation but fails the in-transaction
// re-check and is rolled back completely.
func TestScheduleConflictRollsBackLoser(t *testing.T) {
	e := lifecycleEnv(t, 0)
	ctx := context.Background()

	winner, err := e.svc.Create(ctx, "alice", "consult", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := e.svc.Schedule(ctx, winner.ID, at(monday, 9, 0), Actor{UserID: "alice"}); err != nil {
		t.Fatalf("Schedule winner: %v", err)
	}

	// The loser hand-picked the same combination, so selection is skipped
	// and the conflict only surfaces at commit time.
	loser, err := e.svc.Create(ctx, "bob", "consult", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored, _ := e.store.GetBooking(ctx, loser.ID)
	stored.CombinationID = "c1"
	if err := e.store.SaveBooking(ctx, stored); err != nil {
		t.Fatalf("SaveBooking: %v", err)
	}

	_, err = e.svc.Schedule(ctx, loser.ID, at(monday, 9, 0), Actor{UserID: "bob"})
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected ErrSchedulingConflict, got %v", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || len(conflict.BookingIDs) != 1 || conflict.BookingIDs[0] != loser.ID {
		t.Fatalf("conflict should name the losing booking, got %+v", conflict)
	}

	// Rollback: the loser is still pending, its tentative meeting is gone,
	// the winner is untouched.
	assertState(t, e, loser.ID, models.StatePending)
	after, _ := e.store.GetBooking(ctx, loser.ID)
	if after.MeetingID != "" || !after.Start.IsZero() {
		t.Fatalf("losing booking must be rolled back, got %+v", after)
	}
	if len(e.store.meetings) != 1 {
		t.Fatalf("only the winner's meeting may remain, got %d", len(e.store.meetings))
	}
	assertState(t, e, winner.ID, models.StateScheduled)
}

func TestScheduleAutoAssignFailsBeforeCommit(t *testing.T) {
	e := lifecycleEnv(t, 0)
	ctx := context.Background()

	winner, _ := e.svc.Create(ctx, "alice", "consult", true)
	if _, err := e.svc.Schedule(ctx, winner.ID, at(monday, 9, 0), Actor{UserID: "alice"}); err != nil {
		t.Fatalf("Schedule winner: %v", err)
	}

	second, _ := e.svc.Create(ctx, "bob", "consult", true)
	_, err := e.svc.Schedule(ctx, second.ID, at(monday, 9, 0), Actor{UserID: "bob"})
	if !errors.Is(err, ErrNoCombinationAvailable) {
		t.Fatalf("expected ErrNoCombinationAvailable, got %v", err)
	}
}

func TestOverdueBookingFrozenForNonManagers(t *testing.T) {
	e := lifecycleEnv(t, 24)
	ctx := context.Background()

	// Scheduled for Monday 09:00 with a 24h deadline while the clock reads
	// Monday 00:00: already inside the frozen window.
	e.store.bookings["b1"] = models.Booking{
		ID: "b1", RequesterID: "alice", TypeID: "consult",
		Start: at(monday, 9, 0), Stop: at(monday, 9, 30),
		CombinationID: "c1", MeetingID: "m1", Active: true,
	}
	e.store.meetings["m1"] = models.Meeting{
		ID: "m1", BookingID: "b1",
		Start: at(monday, 9, 0), Stop: at(monday, 9, 30),
		ShowAs: models.ShowAsBusy, ResourceIDs: []string{"r1"},
	}

	if _, err := e.svc.Unschedule(ctx, "b1", Actor{UserID: "alice"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := e.svc.Unschedule(ctx, "b1", Actor{UserID: "staff", Manager: true}); err != nil {
		t.Fatalf("manager override: %v", err)
	}
	assertState(t, e, "b1", models.StatePending)
}

func TestConfirmRequiresAMeeting(t *testing.T) {
	e := lifecycleEnv(t, 0)
	ctx := context.Background()
	b, _ := e.svc.Create(ctx, "alice", "consult", true)
	if _, err := e.svc.Confirm(ctx, b.ID, Actor{UserID: "alice"}, false); err == nil {
		t.Fatal("confirming a pending booking must fail")
	}
}

func TestHandPickedCombinationAutoConfirmsResources(t *testing.T) {
	e := newEnv(at(monday, 0, 0))
	e.addCalendar("cal", []time.Weekday{time.Monday}, 8*60, 17*60)
	e.addResource("r-bob", models.ResourceKindHuman, "bob", "cal")
	e.addCombination("c1", "r-bob")
	e.addType("consult", "cal", 30, 0, "c1")
	ctx := context.Background()

	picked, _ := e.svc.Create(ctx, "alice", "consult", false)
	stored, _ := e.store.GetBooking(ctx, picked.ID)
	stored.CombinationID = "c1"
	_ = e.store.SaveBooking(ctx, stored)
	picked, err := e.svc.Schedule(ctx, picked.ID, at(monday, 9, 0), Actor{UserID: "alice"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	meeting, _ := e.store.GetMeeting(ctx, picked.MeetingID)
	if status, _ := meeting.AttendeeStatus("bob"); status != models.AttendeeAccepted {
		t.Fatalf("hand-picked resource should start accepted, got %v", status)
	}

	auto, _ := e.svc.Create(ctx, "carol", "consult", true)
	auto, err = e.svc.Schedule(ctx, auto.ID, at(monday, 11, 0), Actor{UserID: "carol"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	meeting, _ = e.store.GetMeeting(ctx, auto.MeetingID)
	if status, _ := meeting.AttendeeStatus("bob"); status != models.AttendeeNeedsAction {
		t.Fatalf("auto-assigned resource should start pending, got %v", status)
	}
}

// A calendar write that shrinks the openings must surface every scheduled
// booking it breaks; this is the hook the calendar repository runs inside
// its write transaction.
func TestRecheckCalendarFlagsBrokenBookings(t *testing.T) {
	e := lifecycleEnv(t, 0)
	ctx := context.Background()

	b, _ := e.svc.Create(ctx, "alice", "consult", true)
	if _, err := e.svc.Schedule(ctx, b.ID, at(monday, 9, 0), Actor{UserID: "alice"}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if err := e.svc.RecheckCalendar(ctx, "cal"); err != nil {
		t.Fatalf("recheck with unchanged openings must pass: %v", err)
	}

	e.store.leaves = append(e.store.leaves, models.Leave{
		ID: "l1", CalendarID: "cal", From: at(monday, 9, 0), To: at(monday, 10, 0),
	})
	err := e.svc.RecheckCalendar(ctx, "cal")
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected ErrSchedulingConflict after the leave, got %v", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || len(conflict.BookingIDs) != 1 || conflict.BookingIDs[0] != b.ID {
		t.Fatalf("conflict should name the broken booking, got %+v", conflict)
	}
}

func TestRecheckResourceFlagsBrokenBookings(t *testing.T) {
	e := lifecycleEnv(t, 0)
	ctx := context.Background()

	b, _ := e.svc.Create(ctx, "alice", "consult", true)
	if _, err := e.svc.Schedule(ctx, b.ID, at(monday, 9, 0), Actor{UserID: "alice"}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// Moving the resource to a calendar with no openings invalidates its
	// scheduled booking.
	e.store.calendars["closed"] = models.Calendar{ID: "closed", Timezone: "UTC"}
	e.addResource("r1", models.ResourceKindMaterial, "", "closed")
	err := e.svc.RecheckResource(ctx, "r1")
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected ErrSchedulingConflict, got %v", err)
	}
}

func TestRecheckCombinationFlagsBrokenBookings(t *testing.T) {
	e := lifecycleEnv(t, 0)
	ctx := context.Background()

	b, _ := e.svc.Create(ctx, "alice", "consult", true)
	if _, err := e.svc.Schedule(ctx, b.ID, at(monday, 9, 0), Actor{UserID: "alice"}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// Emptying the combination makes the booking unservable.
	e.store.combinations["c1"] = models.Combination{ID: "c1", Name: "c1"}
	err := e.svc.RecheckCombination(ctx, "c1")
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected ErrSchedulingConflict, got %v", err)
	}
}

func assertState(t *testing.T, e *env, bookingID string, want models.BookingState) {
	t.Helper()
	got, err := e.svc.State(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}
