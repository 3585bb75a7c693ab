package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"eventease/internal/controller"
	"eventease/internal/models"

	"github.com/urfave/cli/v2"
)

const displayLayout = "Mon Jan 2 2006 15:04"

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Browse and manage events.",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List public events (and your private ones).",
				Action: withRuntime(listAction(controller.ListAll)),
			},
			{
				Name:      "show",
				Usage:     "Show one event and what you can do with it.",
				ArgsUsage: "EVENT_ID",
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					d, err := loadDetail(c, r)
					if err != nil {
						return err
					}
					printDetail(os.Stdout, d)
					return nil
				}),
			},
			{
				Name:   "create",
				Usage:  "Create an event.",
				Flags:  formFlags(true),
				Action: withRuntime(createAction),
			},
			{
				Name:      "edit",
				Usage:     "Edit an event you created. Only the given flags change.",
				ArgsUsage: "EVENT_ID",
				Flags:     formFlags(false),
				Action:    withRuntime(editAction),
			},
			{
				Name:      "delete",
				Usage:     "Delete an event you created.",
				ArgsUsage: "EVENT_ID",
				Action: withRuntime(detailAction(func(c *cli.Context, d *controller.DetailController) error {
					return d.Delete(c.Context)
				})),
			},
			{
				Name:      "join",
				Usage:     "Join an event.",
				ArgsUsage: "EVENT_ID",
				Action: withRuntime(detailAction(func(c *cli.Context, d *controller.DetailController) error {
					return d.Join(c.Context)
				})),
			},
			{
				Name:      "leave",
				Usage:     "Leave an event.",
				ArgsUsage: "EVENT_ID",
				Action: withRuntime(detailAction(func(c *cli.Context, d *controller.DetailController) error {
					return d.Leave(c.Context)
				})),
			},
			{
				Name:      "status",
				Usage:     "Show whether you are attending an event.",
				ArgsUsage: "EVENT_ID",
				Action: withRuntime(detailAction(func(c *cli.Context, d *controller.DetailController) error {
					st := d.State()
					fmt.Fprintf(os.Stdout, "%s: %s\n", st.Event.Title, st.Attendance)
					return nil
				})),
			},
		},
	}
}

func myCommand() *cli.Command {
	return &cli.Command{
		Name:  "my",
		Usage: "List events you created.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remove", Usage: "Delete the event with this id."},
		},
		Action: withRuntime(listAction(controller.ListMine)),
	}
}

func attendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "attending",
		Usage: "List events you joined.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remove", Usage: "Leave the event with this id."},
		},
		Action: withRuntime(listAction(controller.ListAttending)),
	}
}

func listAction(kind controller.ListKind) func(c *cli.Context, r *runtime) error {
	return func(c *cli.Context, r *runtime) error {
		sess, err := r.session()
		if err != nil {
			return err
		}
		l := controller.NewListController(r.deps(), kind, sess)
		if err := l.Load(c.Context); err != nil {
			return fmt.Errorf("failed to load %s events: %w", kind, err)
		}
		if id := c.String("remove"); id != "" {
			if err := finish(l.Remove(c.Context, id)); err != nil {
				return err
			}
		}
		return printEvents(os.Stdout, l.Events(), l.StatusOf)
	}
}

func loadDetail(c *cli.Context, r *runtime) (*controller.DetailController, error) {
	if c.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one EVENT_ID argument")
	}
	sess, err := r.session()
	if err != nil {
		return nil, err
	}
	d := controller.NewDetailController(r.deps(), sess, c.Args().First())
	if err := d.Load(c.Context); err != nil {
		if d.State().Phase == controller.PhaseNotFound {
			return nil, fmt.Errorf("event %s not found", c.Args().First())
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return d, nil
}

func detailAction(fn func(c *cli.Context, d *controller.DetailController) error) func(c *cli.Context, r *runtime) error {
	return func(c *cli.Context, r *runtime) error {
		d, err := loadDetail(c, r)
		if err != nil {
			return err
		}
		return finish(fn(c, d))
	}
}

func formFlags(create bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Required: create},
		&cli.StringFlag{Name: "description", Required: create},
		&cli.StringFlag{Name: "date", Required: create, Usage: "Local time as " + controller.DateInputLayout + "."},
		&cli.StringFlag{Name: "location", Required: create},
		&cli.StringFlag{Name: "max-attendees", Usage: "Leave empty for no limit."},
		&cli.BoolFlag{Name: "private", Usage: "Hide the event from other users."},
	}
}

// applyFormFlags overlays the flags that were given onto d.
func applyFormFlags(c *cli.Context, d controller.FormData) controller.FormData {
	set := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	set("title", &d.Title)
	set("description", &d.Description)
	set("date", &d.Date)
	set("location", &d.Location)
	set("max-attendees", &d.MaxAttendees)
	if c.IsSet("private") {
		d.IsPublic = !c.Bool("private")
	}
	return d
}

func createAction(c *cli.Context, r *runtime) error {
	sess, err := r.session()
	if err != nil {
		return err
	}
	form := controller.NewCreateForm(r.deps(), sess)
	form.Set(applyFormFlags(c, form.Data()))
	return submit(c, r, form)
}

func editAction(c *cli.Context, r *runtime) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one EVENT_ID argument")
	}
	sess, err := r.requireSession()
	if err != nil {
		return err
	}
	form := controller.NewEditForm(r.deps(), sess, c.Args().First())
	if err := form.Load(c.Context); err != nil {
		return fmt.Errorf("cannot edit event: %s", form.Banner())
	}
	form.Set(applyFormFlags(c, form.Data()))
	return submit(c, r, form)
}

func submit(c *cli.Context, r *runtime, form *controller.FormController) error {
	if err := form.Submit(c.Context); err != nil {
		if banner := form.Banner(); banner != "" {
			r.ui.Alert(banner)
		}
		return err
	}
	return nil
}

// finish treats a declined confirmation as success.
func finish(err error) error {
	if errors.Is(err, controller.ErrCancelled) {
		fmt.Fprintln(os.Stdout, "Cancelled.")
		return nil
	}
	return err
}

func printEvents(w io.Writer, events []models.Event, status func(models.Event) models.Status) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tLOCATION\tATTENDEES\tSTATUS")
	for i := range events {
		e := &events[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date.Local().Format(displayLayout), e.Title, e.Location, attendees(e), status(*e).Label())
	}
	return tw.Flush()
}

func printDetail(w io.Writer, d *controller.DetailController) {
	st := d.State()
	e := st.Event
	visibility := "public"
	if !e.IsPublic {
		visibility = "private"
	}
	fmt.Fprintf(w, "%s [%s]\n", e.Title, st.Status.Label())
	fmt.Fprintf(w, "  when:      %s\n", e.Date.Local().Format(displayLayout))
	fmt.Fprintf(w, "  where:     %s\n", e.Location)
	fmt.Fprintf(w, "  attendees: %s\n", attendees(e))
	fmt.Fprintf(w, "  visible:   %s\n", visibility)
	if st.Attendance != controller.AttendanceUnknown {
		fmt.Fprintf(w, "  you:       %s\n", strings.ReplaceAll(string(st.Attendance), "_", " "))
	}
	fmt.Fprintf(w, "\n%s\n", e.Description)
	if actions := d.Actions(); len(actions) > 0 {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		fmt.Fprintf(w, "\nactions: %s\n", strings.Join(names, ", "))
	}
}

func attendees(e *models.Event) string {
	if occ, ok := e.Occupancy(); ok {
		return occ
	}
	return strconv.Itoa(e.CurrentAttendees)
}
