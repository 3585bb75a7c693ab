package controller

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"eventease/internal/api"
	"eventease/internal/models"
	"eventease/internal/notify"
	"eventease/internal/session"
)

const createdMessage = "Event created successfully!"

var errEventNotLoaded = errors.New("event not loaded")

// FormController drives the create and edit event forms.
type FormController struct {
	deps Deps
	sess *session.Session
	// eventID is set for edit forms.
	eventID string

	mu     sync.Mutex
	event  *models.Event
	data   FormData
	banner string
	saving bool
	denied bool
}

// NewCreateForm returns an empty, public create form.
func NewCreateForm(deps Deps, sess *session.Session) *FormController {
	return &FormController{deps: deps.withDefaults(), sess: sess, data: FormData{IsPublic: true}}
}

// NewEditForm returns a form for event id. Call Load before Submit.
func NewEditForm(deps Deps, sess *session.Session, id string) *FormController {
	return &FormController{deps: deps.withDefaults(), sess: sess, eventID: id, data: FormData{IsPublic: true}}
}

// Editing reports whether this is an edit form.
func (f *FormController) Editing() bool { return f.eventID != "" }

// Load fetches the event being edited and fills the form. Create forms have
// nothing to load.
func (f *FormController) Load(ctx context.Context) error {
	if !f.Editing() {
		return nil
	}
	f.setBanner("")
	if !f.deps.API.Configured() {
		f.setBanner("Backend API is not configured yet.")
		return &api.ConfigurationError{Op: "get_event"}
	}

	event, err := f.deps.API.GetEvent(ctx, f.eventID)
	if err != nil {
		f.deps.Logger.Error("Failed to load event for editing", "eventID", f.eventID, "error", err)
		f.setBanner(api.Message(err))
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.event = event
	f.data = FormDataFrom(event, f.deps.location())
	if f.sess.Authenticated() && !event.IsCreatedBy(f.sess.UserID()) {
		f.denied = true
		f.banner = "You are not allowed to edit this event."
		return ErrNotCreator
	}
	return nil
}

// Set replaces the form data.
func (f *FormController) Set(d FormData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = d
}

// Data returns the current form data.
func (f *FormController) Data() FormData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Banner is the message shown above the form.
func (f *FormController) Banner() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banner
}

// Saving reports whether a submit is in flight.
func (f *FormController) Saving() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saving
}

// Submit validates and sends the form. On success it navigates away; on
// failure the form stays and Banner explains why.
func (f *FormController) Submit(ctx context.Context) error {
	if !f.sess.Authenticated() {
		f.deps.UI.Navigate(RouteSignIn)
		return session.ErrNoSession
	}

	f.mu.Lock()
	if f.Editing() {
		if f.event == nil {
			f.mu.Unlock()
			return errEventNotLoaded
		}
		if f.denied || !f.event.IsCreatedBy(f.sess.UserID()) {
			f.banner = "You are not allowed to edit this event."
			f.mu.Unlock()
			return ErrNotCreator
		}
	}
	data := f.data
	f.banner = ""
	f.saving = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.saving = false
		f.mu.Unlock()
	}()

	if violations := ValidateEventData(data, f.deps.now(), f.deps.location()); len(violations) > 0 {
		verr := &ValidationError{Violations: violations}
		f.setBanner(verr.Error())
		return verr
	}
	if !f.deps.API.Configured() {
		f.setBanner("Backend API is not configured yet. Please try again later.")
		return &api.ConfigurationError{Op: "submit_event"}
	}

	in, err := data.Input(f.deps.location())
	if err != nil {
		f.setBanner(err.Error())
		return err
	}
	token, err := f.sess.AccessToken(ctx)
	if err != nil {
		f.deps.Logger.Error("Token exchange failed", "error", err)
		f.setBanner(api.Message(err))
		return err
	}

	if f.Editing() {
		return f.update(ctx, in, token)
	}
	return f.create(ctx, in, token)
}

func (f *FormController) create(ctx context.Context, in models.EventInput, token string) error {
	event, err := f.deps.API.CreateEvent(ctx, in, token)
	if err != nil {
		f.deps.Logger.Error("Failed to create event", "title", in.Title, "error", err)
		f.setBanner(api.Message(err))
		return err
	}
	f.deps.Logger.Info("Event created", "eventID", event.ID, "title", event.Title)
	f.deps.publish(ctx, notify.KindCreated, event.ID, f.sess.UserID())
	f.deps.UI.Navigate(RouteDashboard + "?message=" + url.QueryEscape(createdMessage))
	return nil
}

func (f *FormController) update(ctx context.Context, in models.EventInput, token string) error {
	event, err := f.deps.API.UpdateEvent(ctx, f.eventID, in, token)
	if err != nil {
		f.deps.Logger.Error("Failed to update event", "eventID", f.eventID, "error", err)
		f.setBanner(api.Message(err))
		return err
	}
	f.mu.Lock()
	f.event = event
	f.mu.Unlock()
	f.deps.Logger.Info("Event updated", "eventID", f.eventID)
	f.deps.publish(ctx, notify.KindUpdated, f.eventID, f.sess.UserID())
	f.deps.UI.Alert("Event updated successfully!")
	f.deps.UI.Navigate(RouteEvent(f.eventID))
	return nil
}

func (f *FormController) setBanner(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banner = msg
}
