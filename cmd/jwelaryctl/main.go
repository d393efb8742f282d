package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jwelaryctl",
		Short: "Operator and client tooling for the jwelary storefront",
		Long: `jwelaryctl manages the jwelary auth subsystem.

It seeds the admin account, hashes passwords with the configured bcrypt
cost, and can hold an interactive session against the gateway with the
idle timeout enforced.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		seedAdminCmd(),
		hashPasswordCmd(),
		sessionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
