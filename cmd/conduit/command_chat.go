package main

import (
	"flag"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"conduit/internal/app"
	"conduit/internal/chat"
	"conduit/internal/config"
	"conduit/internal/logging"
)

type ChatCommand struct {
	stderr io.Writer
	newEnv envFactory
}

func NewChatCommand(stderr io.Writer, newEnv envFactory) *ChatCommand {
	return &ChatCommand{stderr: stderr, newEnv: newEnv}
}

func (c *ChatCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := c.newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	// The UI owns the terminal, so its log goes to a file.
	logger := logging.Nop()
	if path, perr := config.UILogPath(); perr == nil {
		if fileLogger, closeFn, lerr := logging.NewFile(path, logging.ParseLevel(env.cfg.LogLevel())); lerr == nil {
			logger = fileLogger
			defer closeFn()
		}
	}

	lifecycle := chat.NewLifecycle(env.api, env.repo.Sessions())
	model := app.New(env.api, lifecycle, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
