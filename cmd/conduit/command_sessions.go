package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
)

type SessionsCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv envFactory
}

func NewSessionsCommand(stdout, stderr io.Writer, newEnv envFactory) *SessionsCommand {
	return &SessionsCommand{stdout: stdout, stderr: stderr, newEnv: newEnv}
}

func (c *SessionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	newTitle := fs.String("new", "", "create a session with the given title")
	renameID := fs.String("rename", "", "session id to rename (requires --title)")
	title := fs.String("title", "", "title for --rename")
	deleteID := fs.String("delete", "", "session id to delete")
	limit := fs.Int("limit", 100, "maximum sessions to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := c.newEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	ctx := context.Background()

	switch {
	case *newTitle != "":
		session, err := env.api.CreateSession(ctx, *newTitle)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, session.ID)
		return nil
	case *renameID != "":
		if *title == "" {
			return errors.New("--rename requires --title")
		}
		if _, err := env.api.RenameSession(ctx, *renameID, *title); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "renamed")
		return nil
	case *deleteID != "":
		if err := env.api.DeleteSession(ctx, *deleteID); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "deleted")
		return nil
	}

	sessions, err := env.api.ListSessions(ctx, 0, *limit)
	if err != nil {
		return err
	}
	if cache := env.repo.Sessions(); cache != nil {
		_ = cache.SaveSessions(sessions)
	}
	printSessions(c.stdout, sessions)
	return nil
}
