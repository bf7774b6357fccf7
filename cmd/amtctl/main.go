// Command amtctl manages API clients and runs fixture staging and view
// verification against the analytics database without going through the
// HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// errVerificationFailed signals that the views disagree with the fixture.
var errVerificationFailed = errors.New("views do not match fixture")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amtctl",
		Short: "Analytics Middle Tier maintenance tool",
		Long: "Create API clients, stage fixture rows and verify the analytics views.\n" +
			"Connection settings come from the same environment as the API server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		buildClientCmd(nil),
		buildStageCmd(nil),
		buildVerifyCmd(nil),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errVerificationFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
