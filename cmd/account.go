package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"eventease/internal/auth"
	"eventease/internal/models"
	"eventease/internal/session"

	"github.com/urfave/cli/v2"
)

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the backend API is reachable.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			h, err := r.client.Health(c.Context)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			fmt.Fprintf(os.Stdout, "%s (%s) at %s\n", h.Status, h.Timestamp, r.client.BaseURL())
			return nil
		}),
	}
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create a backend account.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Prompted for when omitted."},
		},
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			password := c.String("password")
			if password == "" {
				password = r.ui.Prompt("Password: ")
			}
			u, err := r.client.CreateUser(c.Context, models.NewUser{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("sign up failed: %w", err)
			}
			r.logger.Info("Account created", "userID", u.ID, "email", u.Email)
			fmt.Fprintf(os.Stdout, "Account created for %s. You can now sign in.\n", u.Email)
			return nil
		}),
	}
}

func signinCommand() *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in and remember the session.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Prompted for when omitted."},
		},
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			password := c.String("password")
			if password == "" {
				password = r.ui.Prompt("Password: ")
			}
			identity, err := r.authenticator().Authenticate(c.Context, c.String("email"), password)
			if err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}
			if err := r.store.Save(session.Record{Identity: identity, SignedInAt: time.Now().UTC()}); err != nil {
				return err
			}
			r.logger.Info("Signed in", "userID", identity.ID, "provider", r.cfg.AuthProvider)
			fmt.Fprintf(os.Stdout, "Signed in as %s.\n", identity.DisplayName())
			return nil
		}),
	}
}

func signoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "signout",
		Usage: "Forget the stored session.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			if err := r.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "Signed out.")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			rec, err := r.store.Load()
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintln(os.Stdout, "Not signed in.")
				return nil
			}
			id := rec.Identity
			fmt.Fprintf(os.Stdout, "%s <%s>\nid: %s\nrole: %s\nsigned in: %s\n",
				id.DisplayName(), id.Email, id.ID, id.Role, rec.SignedInAt.Local().Format(time.RFC1123))
			return nil
		}),
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "List backend users.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			sess, err := r.requireSession()
			if err != nil {
				return err
			}
			token, err := sess.AccessToken(c.Context)
			if err != nil {
				return err
			}
			users, err := r.client.ListUsers(c.Context, token)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
			}
			return w.Flush()
		}),
	}
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Print a bcrypt hash for a static_users entry.",
		ArgsUsage: "PASSWORD",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one password argument")
			}
			h, err := auth.HashPassword(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, h)
			return nil
		},
	}
}
