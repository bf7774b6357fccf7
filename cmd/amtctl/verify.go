package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stemsi/analytics-middletier/internal/cache"
	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/queue"
	"github.com/stemsi/analytics-middletier/internal/service"
)

type fixtureVerifier interface {
	Verify(ctx context.Context, f *fixture.Fixture) (*model.VerificationReport, error)
}

type verifyRunner struct {
	verifier fixtureVerifier
	path     string
	stdout   io.Writer
}

func buildVerifyCmd(verifier fixtureVerifier) *cobra.Command {
	r := &verifyRunner{}

	return &cobra.Command{
		Use:   "verify <fixture.json>",
		Short: "Compare the analytics views with a fixture",
		Long:  "Compare the analytics views with a fixture. Exits with status 1 when any row differs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r.path = args[0]
			r.stdout = cmd.OutOrStdout()
			if verifier != nil {
				r.verifier = verifier
				return r.Run(cmd.Context())
			}

			s, err := openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			// Synchronous runs never queue and never store reports.
			r.verifier = service.NewVerificationService(
				s.orgRepo, s.authRepo, queue.NewMemoryQueue(1), cache.NewMemoryCache(), s.cfg.ReportTTL, s.log)
			return r.Run(cmd.Context())
		},
	}
}

func (r *verifyRunner) Run(ctx context.Context) error {
	f, err := fixture.LoadFile(r.path)
	if err != nil {
		return err
	}

	report, err := r.verifier.Verify(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.stdout, "Checked %d education organizations and %d user authorizations\n",
		report.EducationOrganizations, report.UserAuthorizations)
	if report.Passed {
		fmt.Fprintln(r.stdout, "PASS")
		return nil
	}

	tw := tabwriter.NewWriter(r.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VIEW\tKIND\tKEY\tFIELD\tEXPECTED\tACTUAL")
	for _, m := range report.Mismatches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", m.View, m.Kind, m.Key, m.Field, m.Expected, m.Actual)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "FAIL: %d mismatches\n", len(report.Mismatches))
	return errVerificationFailed
}
