package controller

import (
	"context"
	"sync"

	"eventease/internal/api"
	"eventease/internal/models"
	"eventease/internal/notify"
	"eventease/internal/session"
)

// Phase is the load state of the detail view.
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseError    Phase = "error"
	PhaseNotFound Phase = "not_found"
	PhaseLoaded   Phase = "loaded"
)

// Attendance is the viewer's attendance as last reported by the backend.
type Attendance string

const (
	AttendanceUnknown      Attendance = "unknown"
	AttendanceChecking     Attendance = "checking"
	AttendanceAttending    Attendance = "attending"
	AttendanceNotAttending Attendance = "not_attending"
)

// Action is something the detail view offers the viewer.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionJoin   Action = "join"
	ActionLeave  Action = "leave"
	ActionSignIn Action = "sign_in"
)

// DetailState is a snapshot of the detail view.
type DetailState struct {
	Phase      Phase
	Event      *models.Event
	Banner     string
	Attendance Attendance
	Status     models.Status
	IsCreator  bool
	Joining    bool
	Leaving    bool
}

// DetailController drives a single event page.
type DetailController struct {
	deps    Deps
	sess    *session.Session
	eventID string

	mu         sync.Mutex
	phase      Phase
	event      *models.Event
	banner     string
	attendance Attendance
	joining    bool
	leaving    bool
}

func NewDetailController(deps Deps, sess *session.Session, eventID string) *DetailController {
	return &DetailController{
		deps:       deps.withDefaults(),
		sess:       sess,
		eventID:    eventID,
		phase:      PhaseLoading,
		attendance: AttendanceUnknown,
	}
}

// Load fetches the event and, for signed-in viewers, their attendance.
func (d *DetailController) Load(ctx context.Context) error {
	d.mu.Lock()
	d.phase = PhaseLoading
	d.banner = ""
	d.mu.Unlock()

	event, err := d.deps.API.GetEvent(ctx, d.eventID)
	if err != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
		if api.IsNotFound(err) {
			d.phase = PhaseNotFound
			return err
		}
		d.deps.Logger.Error("Failed to load event details", "eventID", d.eventID, "error", err)
		d.phase = PhaseError
		d.banner = api.Message(err)
		return err
	}

	d.mu.Lock()
	d.event = event
	d.phase = PhaseLoaded
	d.mu.Unlock()

	if d.sess.Authenticated() {
		d.checkAttendance(ctx)
	}
	return nil
}

// checkAttendance is best effort: any failure counts as not attending.
func (d *DetailController) checkAttendance(ctx context.Context) {
	d.setAttendance(AttendanceChecking)

	token, err := d.sess.AccessToken(ctx)
	if err != nil {
		d.deps.Logger.Warn("Attendance check failed, assuming not attending", "eventID", d.eventID, "error", err)
		d.setAttendance(AttendanceNotAttending)
		return
	}
	attending, err := d.deps.API.IsAttending(ctx, d.eventID, token)
	if err != nil {
		d.deps.Logger.Warn("Attendance check failed, assuming not attending", "eventID", d.eventID, "error", err)
		d.setAttendance(AttendanceNotAttending)
		return
	}
	if attending {
		d.setAttendance(AttendanceAttending)
	} else {
		d.setAttendance(AttendanceNotAttending)
	}
}

// State returns a snapshot of the view.
func (d *DetailController) State() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := DetailState{
		Phase:      d.phase,
		Event:      d.event,
		Banner:     d.banner,
		Attendance: d.attendance,
		Joining:    d.joining,
		Leaving:    d.leaving,
	}
	if d.event != nil {
		st.Status = EventStatus(d.deps.now(), d.event.Date)
		st.IsCreator = d.event.IsCreatedBy(d.sess.UserID())
	}
	return st
}

// Actions lists what the viewer may do in the current state.
func (d *DetailController) Actions() []Action {
	st := d.State()
	if st.Phase != PhaseLoaded {
		return nil
	}
	switch {
	case !d.sess.Authenticated():
		return []Action{ActionSignIn}
	case st.IsCreator:
		return []Action{ActionEdit, ActionDelete}
	case st.Attendance == AttendanceAttending:
		return []Action{ActionLeave}
	case st.Attendance == AttendanceChecking:
		return nil
	default:
		return []Action{ActionJoin}
	}
}

// Join adds the viewer to the event. Concurrent calls are not deduplicated.
func (d *DetailController) Join(ctx context.Context) error {
	if !d.sess.Authenticated() {
		d.deps.UI.Navigate(RouteSignIn)
		return session.ErrNoSession
	}
	if !d.offers(ActionJoin) {
		return ErrNotOffered
	}

	d.setBusy(&d.joining, true)
	defer d.setBusy(&d.joining, false)

	err := d.authorized(ctx, func(token string) error {
		return d.deps.API.JoinEvent(ctx, d.eventID, token)
	})
	if err != nil {
		d.deps.Logger.Error("Failed to join event", "eventID", d.eventID, "error", err)
		d.deps.UI.Alert(api.Message(err))
		return err
	}
	d.setAttendance(AttendanceAttending)
	d.deps.publish(ctx, notify.KindJoined, d.eventID, d.sess.UserID())
	d.deps.UI.Alert("You joined the event!")
	return nil
}

// Leave removes the viewer from the event after confirmation.
func (d *DetailController) Leave(ctx context.Context) error {
	if !d.sess.Authenticated() {
		d.deps.UI.Navigate(RouteSignIn)
		return session.ErrNoSession
	}
	if !d.offers(ActionLeave) {
		return ErrNotOffered
	}
	if !d.deps.UI.Confirm("Are you sure you want to leave this event?") {
		return ErrCancelled
	}

	d.setBusy(&d.leaving, true)
	defer d.setBusy(&d.leaving, false)

	err := d.authorized(ctx, func(token string) error {
		return d.deps.API.LeaveEvent(ctx, d.eventID, token)
	})
	if err != nil {
		d.deps.Logger.Error("Failed to leave event", "eventID", d.eventID, "error", err)
		d.deps.UI.Alert(api.Message(err))
		return err
	}
	d.setAttendance(AttendanceNotAttending)
	d.deps.publish(ctx, notify.KindLeft, d.eventID, d.sess.UserID())
	d.deps.UI.Alert("You left the event.")
	return nil
}

// Delete removes the event. Only its creator is offered this.
func (d *DetailController) Delete(ctx context.Context) error {
	if !d.sess.Authenticated() {
		d.deps.UI.Navigate(RouteSignIn)
		return session.ErrNoSession
	}
	if !d.State().IsCreator {
		return ErrNotCreator
	}
	if !d.deps.UI.Confirm("Are you sure you want to delete this event? This cannot be undone.") {
		return ErrCancelled
	}

	err := d.authorized(ctx, func(token string) error {
		return d.deps.API.DeleteEvent(ctx, d.eventID, token)
	})
	if err != nil {
		d.deps.Logger.Error("Failed to delete event", "eventID", d.eventID, "error", err)
		d.deps.UI.Alert(api.Message(err))
		return err
	}
	d.deps.publish(ctx, notify.KindDeleted, d.eventID, d.sess.UserID())
	d.deps.UI.Alert("Event deleted.")
	d.deps.UI.Navigate(RouteMyEvents)
	return nil
}

// authorized runs fn with a freshly exchanged backend token.
func (d *DetailController) authorized(ctx context.Context, fn func(token string) error) error {
	token, err := d.sess.AccessToken(ctx)
	if err != nil {
		return err
	}
	return fn(token)
}

func (d *DetailController) offers(a Action) bool {
	for _, offered := range d.Actions() {
		if offered == a {
			return true
		}
	}
	return false
}

func (d *DetailController) setAttendance(a Attendance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attendance = a
}

func (d *DetailController) setBusy(flag *bool, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*flag = v
}
