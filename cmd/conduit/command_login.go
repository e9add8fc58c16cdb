package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"conduit/internal/auth"
)

// Login stores a token pair obtained out of band; the backend's login page
// is a web flow, and the terminal client just receives the result.
type LoginCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv envFactory
	stdin  io.Reader
}

func NewLoginCommand(stdout, stderr io.Writer, newEnv envFactory) *LoginCommand {
	return &LoginCommand{stdout: stdout, stderr: stderr, newEnv: newEnv, stdin: os.Stdin}
}

func (c *LoginCommand) Run(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	accessToken := fs.String("access-token", "", "access token")
	refreshToken := fs.String("refresh-token", "", "refresh token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	access := strings.TrimSpace(*accessToken)
	refresh := strings.TrimSpace(*refreshToken)
	reader := bufio.NewReader(c.stdin)
	if access == "" {
		fmt.Fprint(c.stderr, "access token: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		access = strings.TrimSpace(line)
	}
	if refresh == "" {
		fmt.Fprint(c.stderr, "refresh token: ")
		line, err := reader.ReadString('\n')
		if err != nil && access == "" {
			return err
		}
		refresh = strings.TrimSpace(line)
	}
	if access == "" {
		return errors.New("access token is required")
	}

	env, err := c.newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.creds.Set(auth.Credentials{AccessToken: access, RefreshToken: refresh}); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "logged in")
	return nil
}

type LogoutCommand struct {
	stdout io.Writer
	stderr io.Writer
	newEnv envFactory
}

func NewLogoutCommand(stdout, stderr io.Writer, newEnv envFactory) *LogoutCommand {
	return &LogoutCommand{stdout: stdout, stderr: stderr, newEnv: newEnv}
}

func (c *LogoutCommand) Run(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := c.newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.creds.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "logged out")
	return nil
}
