package controller

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"eventease/internal/models"
	"eventease/internal/session"
)

func TestDetail_LoadNotFound(t *testing.T) {
	f := newFixture(t)
	d := NewDetailController(f.deps, nil, "missing")
	if err := d.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if st := d.State(); st.Phase != PhaseNotFound || st.Banner != "" {
		t.Fatalf("expected not_found without banner, got %+v", st)
	}
}

func TestDetail_LoadError(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail("GET /events/{id}", 500, "Database unavailable")
	d := NewDetailController(f.deps, nil, "evt-1")
	d.Load(context.Background())
	if st := d.State(); st.Phase != PhaseError || st.Banner != "Database unavailable" {
		t.Fatalf("expected error phase with banner, got %+v", st)
	}
}

func TestDetail_AnonymousViewer(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Meetup", CreatorID: "owner", Date: testNow.Add(2 * time.Hour)})
	d := NewDetailController(f.deps, nil, e.ID)
	if err := d.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := d.State()
	if st.Phase != PhaseLoaded || st.Attendance != AttendanceUnknown || st.Status != models.StatusUpcoming {
		t.Fatalf("unexpected state %+v", st)
	}
	if f.backend.Calls("GET /events/{id}/is-attending") != 0 {
		t.Fatal("anonymous viewers must not check attendance")
	}
	if got := d.Actions(); !reflect.DeepEqual(got, []Action{ActionSignIn}) {
		t.Fatalf("expected sign-in action, got %v", got)
	}
	if err := d.Join(context.Background()); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if f.ui.lastRoute() != RouteSignIn {
		t.Fatalf("expected sign-in navigation, got %q", f.ui.lastRoute())
	}
}

func TestDetail_AttendanceCheckIsIdempotent(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Meetup", CreatorID: "owner", Date: testNow.Add(48 * time.Hour)})
	f.backend.SetAttending(e.ID, "u1", true)
	d := NewDetailController(f.deps, f.session("u1"), e.ID)

	for i := 0; i < 2; i++ {
		if err := d.Load(context.Background()); err != nil {
			t.Fatal(err)
		}
		if st := d.State(); st.Attendance != AttendanceAttending {
			t.Fatalf("load %d: expected attending, got %s", i, st.Attendance)
		}
	}
	if got := d.Actions(); !reflect.DeepEqual(got, []Action{ActionLeave}) {
		t.Fatalf("expected leave action, got %v", got)
	}
}

func TestDetail_AttendanceCheckFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Meetup", CreatorID: "owner", Date: testNow.Add(48 * time.Hour)})
	f.backend.Fail("GET /events/{id}/is-attending", 500, "boom")
	d := NewDetailController(f.deps, f.session("u1"), e.ID)

	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("attendance failure must not fail the page, got %v", err)
	}
	st := d.State()
	if st.Phase != PhaseLoaded || st.Attendance != AttendanceNotAttending || st.Banner != "" {
		t.Fatalf("expected loaded/not_attending without banner, got %+v", st)
	}
	if len(f.ui.alerts) != 0 {
		t.Fatalf("attendance failure must not alert, got %v", f.ui.alerts)
	}
}

func TestDetail_JoinAndLeave(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Meetup", CreatorID: "owner", Date: testNow.Add(48 * time.Hour), MaxAttendees: intPtr(10)})
	d := NewDetailController(f.deps, f.session("u1"), e.ID)
	ctx := context.Background()
	d.Load(ctx)

	if got := d.Actions(); !reflect.DeepEqual(got, []Action{ActionJoin}) {
		t.Fatalf("expected join action, got %v", got)
	}
	if err := d.Join(ctx); err != nil {
		t.Fatal(err)
	}
	if d.State().Attendance != AttendanceAttending || !f.backend.Attending(e.ID, "u1") {
		t.Fatal("expected attending after join")
	}
	if d.State().Joining {
		t.Fatal("joining flag should be cleared")
	}

	if err := d.Leave(ctx); err != nil {
		t.Fatal(err)
	}
	if d.State().Attendance != AttendanceNotAttending || f.backend.Attending(e.ID, "u1") {
		t.Fatal("expected not attending after leave")
	}
	if len(f.ui.prompts) != 1 {
		t.Fatalf("leave must ask for confirmation, prompts: %v", f.ui.prompts)
	}
}

func TestDetail_JoinFailureAlertsAndKeepsState(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Meetup", CreatorID: "owner", Date: testNow.Add(48 * time.Hour)})
	f.backend.Fail("POST /events/{id}/join", 400, "Event is full")
	d := NewDetailController(f.deps, f.session("u1"), e.ID)
	ctx := context.Background()
	d.Load(ctx)

	if err := d.Join(ctx); err == nil {
		t.Fatal("expected join failure")
	}
	if f.ui.lastAlert() != "Event is full" {
		t.Fatalf("expected backend detail alert, got %q", f.ui.lastAlert())
	}
	st := d.State()
	if st.Attendance != AttendanceNotAttending || st.Phase != PhaseLoaded || st.Banner != "" {
		t.Fatalf("failed join must leave the page untouched, got %+v", st)
	}
}

func TestDetail_LeaveDeclined(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Meetup", CreatorID: "owner", Date: testNow.Add(48 * time.Hour)})
	f.backend.SetAttending(e.ID, "u1", true)
	f.ui.confirm = false
	d := NewDetailController(f.deps, f.session("u1"), e.ID)
	ctx := context.Background()
	d.Load(ctx)

	if err := d.Leave(ctx); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if f.backend.Calls("POST /events/{id}/leave") != 0 {
		t.Fatal("declined leave must not call the backend")
	}
	if !f.backend.Attending(e.ID, "u1") {
		t.Fatal("attendance must be unchanged")
	}
}

func TestDetail_CreatorDeletes(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Mine", CreatorID: "u1", Date: testNow.Add(-time.Hour)})
	d := NewDetailController(f.deps, f.session("u1"), e.ID)
	ctx := context.Background()
	d.Load(ctx)

	st := d.State()
	if !st.IsCreator || st.Status != models.StatusCompleted {
		t.Fatalf("unexpected state %+v", st)
	}
	if got := d.Actions(); !reflect.DeepEqual(got, []Action{ActionEdit, ActionDelete}) {
		t.Fatalf("expected creator actions, got %v", got)
	}
	if err := d.Join(ctx); !errors.Is(err, ErrNotOffered) {
		t.Fatalf("creator must not be offered join, got %v", err)
	}
	if err := d.Delete(ctx); err != nil {
		t.Fatal(err)
	}
	if f.ui.lastRoute() != RouteMyEvents {
		t.Fatalf("expected navigation to my events, got %q", f.ui.lastRoute())
	}
	if len(f.backend.Events()) != 0 {
		t.Fatal("expected event deleted")
	}
}

func TestDetail_NonCreatorCannotDelete(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Theirs", CreatorID: "owner", Date: testNow.Add(48 * time.Hour)})
	d := NewDetailController(f.deps, f.session("u1"), e.ID)
	d.Load(context.Background())

	if err := d.Delete(context.Background()); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
	if len(f.ui.prompts) != 0 {
		t.Fatal("non-creator must not be asked to confirm")
	}
}

func TestDetail_OccupancyRenderedAsReported(t *testing.T) {
	f := newFixture(t)
	e := f.backend.AddEvent(models.Event{Title: "Full", CreatorID: "owner", MaxAttendees: intPtr(3), CurrentAttendees: 3, Date: testNow.Add(48 * time.Hour)})
	d := NewDetailController(f.deps, nil, e.ID)
	d.Load(context.Background())

	got, ok := d.State().Event.Occupancy()
	if !ok || got != "3 / 3" {
		t.Fatalf("expected 3 / 3, got %q", got)
	}
}
