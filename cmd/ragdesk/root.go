package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragdesk/internal/backend"
	"ragdesk/internal/console"
	"ragdesk/internal/identity"
)

var (
	errNotSignedIn  = errors.New("not signed in")
	errAccessDenied = errors.New("access denied")
)

type rootFlags struct {
	server     string
	backendURL string
	token      string
	adminEmail string
	timeout    time.Duration
	verbose    bool
}

// session is one client instance: one guard, one console registry.
type session struct {
	guard    *console.Guard
	registry *console.Registry
	token    string
	server   string
	out      io.Writer
}

// providerFactory lets tests swap the identity provider.
type providerFactory func(server string, timeout time.Duration) identity.Provider

func newRootCmd(in io.Reader, out io.Writer, newProvider providerFactory) *cobra.Command {
	if newProvider == nil {
		newProvider = func(server string, timeout time.Duration) identity.Provider {
			return identity.NewRemoteProvider(server, timeout)
		}
	}
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "ragdesk",
		Short:        "Ask the knowledge base and manage its documents",
		SilenceUsage: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.server, "server", envOr("RAGDESK_SERVER", "http://localhost:8080"), "console server used to resolve the session")
	pf.StringVar(&flags.backendURL, "backend", envOr("BACKEND_URL", console.DefaultBackendURL), "backend API base URL")
	pf.StringVar(&flags.token, "token", os.Getenv("RAGDESK_TOKEN"), "session token")
	pf.StringVar(&flags.adminEmail, "admin-email", os.Getenv("ADMIN_EMAIL"), "privileged address")
	pf.DurationVar(&flags.timeout, "timeout", 120*time.Second, "backend request timeout")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log backend calls")

	open := func(cmd *cobra.Command) *session {
		logger := zap.NewNop()
		if flags.verbose {
			if l, err := zap.NewDevelopment(); err == nil {
				logger = l
			}
		}
		opts := console.Options{
			BackendBaseURL:    flags.backendURL,
			PrivilegedAddress: flags.adminEmail,
		}
		client := backend.NewClient(opts.BackendURL(), flags.timeout, logger.Named("backend"))
		return &session{
			guard:    console.NewGuard(newProvider(flags.server, 10*time.Second), opts.PrivilegedAddress, logger.Named("guard")),
			registry: console.NewRegistry(client, opts, nil, logger.Named("console")),
			token:    flags.token,
			server:   flags.server,
			out:      cmd.OutOrStdout(),
		}
	}

	root.AddCommand(
		newChatCmd(open),
		newAdminCmd(open),
		newLogoutCmd(open),
	)
	return root
}

// enter runs the guard for view and returns the console when authorized.
func (s *session) enter(ctx context.Context, view console.View) (*console.Console, error) {
	decision := s.guard.Enter(ctx, s.token, view)
	switch decision.Outcome {
	case console.OutcomeAuthorized:
		con, _ := s.registry.Enter(ctx, decision, view)
		return con, nil
	case console.OutcomeForbidden:
		fmt.Fprintln(s.out, "Access Denied: you are not authorized to view this page.")
		fmt.Fprintln(s.out, "Run `ragdesk logout` to sign out.")
		return nil, errAccessDenied
	default:
		fmt.Fprintf(s.out, "Please sign in at %s%s and pass the token with --token.\n", s.server, decision.Redirect)
		return nil, errNotSignedIn
	}
}

func newLogoutCmd(open func(*cobra.Command) *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := open(cmd)
			decision := s.guard.Logout(cmd.Context(), s.token)
			fmt.Fprintf(s.out, "Signed out. Sign in again at %s%s\n", s.server, decision.Redirect)
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
