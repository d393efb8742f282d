package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jwelary/internal/platform/logger"
	"jwelary/pkg/sessionclient"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Client session tools",
	}
	cmd.AddCommand(sessionWatchCmd())
	return cmd
}

func sessionWatchCmd() *cobra.Command {
	var (
		gatewayURL string
		email      string
		pass       string
		idle       time.Duration
		warnBefore time.Duration
		check      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sign in and hold the session until it idles out",
		Long: `Sign in through the gateway and keep the session open. Every line typed
on stdin counts as activity. After the idle warning, answer y to stay signed
in; anything else signs out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || pass == "" {
				return errors.New("--email and --password are required")
			}
			client, err := sessionclient.New(gatewayURL)
			if err != nil {
				return err
			}
			monitor := sessionclient.NewMonitor(sessionclient.MonitorConfig{
				Timeout:       idle,
				WarnBefore:    warnBefore,
				CheckInterval: check,
			})
			return watch(cmd.Context(), client, monitor, email, pass, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	def := sessionclient.DefaultMonitorConfig()
	cmd.Flags().StringVar(&gatewayURL, "gateway", "http://localhost:3000", "Gateway base URL")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&pass, "password", "", "Account password")
	cmd.Flags().DurationVar(&idle, "idle-timeout", def.Timeout, "Sign out after this much inactivity")
	cmd.Flags().DurationVar(&warnBefore, "warn-before", def.WarnBefore, "Warn this long before signing out")
	cmd.Flags().DurationVar(&check, "check-interval", def.CheckInterval, "How often to check for inactivity")
	return cmd
}

func watch(ctx context.Context, client *sessionclient.Client, monitor *sessionclient.Monitor, email, pass string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := sessionclient.NewSession(client, monitor, logger.Discard(),
		sessionclient.OnWarn(func() {
			fmt.Fprint(out, "Stay signed in? [y/N] ")
		}),
		sessionclient.OnExpire(func(reason sessionclient.EndReason) {
			if reason == sessionclient.EndDeclined {
				fmt.Fprintln(out, "Signed out.")
				return
			}
			fmt.Fprintln(out, "Signed out after inactivity.")
		}),
	)

	user, err := session.Start(ctx, email, pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s (%s).\n", user.Name, user.Role)

	go readActivity(ctx, session, in)

	err = session.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return session.Stop(context.WithoutCancel(ctx))
	}
	return err
}

// readActivity turns stdin lines into activity, or into the answer to a
// pending warning.
func readActivity(ctx context.Context, session *sessionclient.Session, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if session.State() == sessionclient.Warned {
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			session.Respond(ctx, answer == "y" || answer == "yes")
			continue
		}
		session.Activity()
	}
}
