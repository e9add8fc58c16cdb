package main

import (
	"fmt"
	"os"
)

const usageText = `conduit is a terminal client for an agent orchestration backend.

Usage:
  conduit <command> [flags]

Commands:
  chat      open the interactive chat UI
  sessions  list and manage chat sessions
  login     store an access/refresh token pair
  logout    clear stored credentials
  config    print effective configuration
  help      show help

Flags:
  -h, --help   show help

Session flags:
  --new <title>    create a session
  --rename <id>    rename a session (requires --title)
  --delete <id>    delete a session

Examples:
  conduit chat
  conduit sessions
  conduit sessions --rename 3f2a --title "Budget review"
  conduit login --access-token <token> --refresh-token <token>
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
