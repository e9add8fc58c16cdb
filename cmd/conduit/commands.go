package main

import (
	"io"
	"os"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout io.Writer
	stderr io.Writer
	newEnv envFactory
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout: stdout,
		stderr: stderr,
		newEnv: newCommandEnv,
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"chat":     NewChatCommand(wiring.stderr, wiring.newEnv),
		"sessions": NewSessionsCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"login":    NewLoginCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"logout":   NewLogoutCommand(wiring.stdout, wiring.stderr, wiring.newEnv),
		"config":   NewConfigCommand(wiring.stdout, wiring.stderr),
	}
}
