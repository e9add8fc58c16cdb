package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"conduit/internal/auth"
	"conduit/internal/client"
	"conduit/internal/config"
	"conduit/internal/logging"
	"conduit/internal/store"
	"conduit/internal/types"
)

type envFactory func() (*cmdEnv, error)

// cmdEnv holds everything a command needs: effective config, the local
// repository, the credential store and an API client whose transport does
// bearer injection and 401 recovery.
type cmdEnv struct {
	cfg   config.Config
	repo  store.Repository
	creds *auth.CredentialStore
	api   *client.Client

	closers []func() error
}

func newCommandEnv() (*cmdEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := config.EnsureDataDir(); err != nil {
		return nil, err
	}
	dbPath, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	repo, err := store.NewBboltRepository(dbPath)
	if err != nil {
		return nil, err
	}

	env := &cmdEnv{cfg: cfg, repo: repo}
	env.closers = append(env.closers, repo.Close)

	refreshURL := cfg.BaseURL() + "/api/v1/auth/refresh"
	// The refresh exchange uses a bare client so the recovery transport
	// never intercepts its own traffic.
	env.creds = auth.NewCredentialStore(repo.Credentials(), refreshURL, &http.Client{
		Timeout: cfg.RequestTimeout(),
	})

	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout(),
		Transport: &auth.RecoveryTransport{
			Store:    env.creds,
			Location: func() string { return locationPath(cfg.Tenant()) },
		},
	}
	env.api = client.New(cfg.BaseURL(), httpClient)

	if cfg.StreamDebugEnabled() {
		if path, perr := config.StreamLogPath(); perr == nil {
			if logger, closeFn, lerr := logging.NewFile(path, logging.Debug); lerr == nil {
				env.api.SetStreamLogger(logger)
				env.closers = append(env.closers, closeFn)
			}
		}
	}
	return env, nil
}

func (e *cmdEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// locationPath is the client's notion of where the user "is", used to pick
// the login entry point when the session expires.
func locationPath(tenant string) string {
	if tenant != "" {
		return "/tenants/" + tenant + "/chat"
	}
	return "/chat"
}

func printSessions(output io.Writer, sessions []*types.ChatSession) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTITLE\tMESSAGES\tCREATED")
	for _, session := range sessions {
		created := "-"
		if !session.CreatedAt.IsZero() {
			created = session.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\n", session.ID, session.DisplayTitle(), session.MessageCount, created)
	}
	_ = writer.Flush()
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	var expired *auth.SessionExpiredError
	if auth.AsSessionExpired(err, &expired) {
		fmt.Fprintf(stderr, "%s error: session expired, log in again at %s\n", label, expired.LoginPath)
		os.Exit(1)
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}
