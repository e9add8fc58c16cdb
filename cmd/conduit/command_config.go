package main

import (
	"flag"
	"fmt"
	"io"

	"conduit/internal/config"
)

type ConfigCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
}

func NewConfigCommand(stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{stdout: stdout, stderr: stderr, loadConfig: config.Load}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("defaults", false, "print built-in defaults instead of the effective config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if !*defaults {
		loaded, err := c.loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
	}

	rendered, err := cfg.Render()
	if err != nil {
		return err
	}
	if path, perr := config.ConfigPath(); perr == nil {
		fmt.Fprintf(c.stdout, "# %s\n", path)
	}
	fmt.Fprint(c.stdout, rendered)
	return nil
}
