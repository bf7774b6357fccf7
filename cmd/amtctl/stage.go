package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/repository"
	"github.com/stemsi/analytics-middletier/internal/service"
)

type fixtureStager interface {
	Stage(ctx context.Context, f *fixture.Fixture, replace bool) (*service.StageResult, error)
}

type stageRunner struct {
	stager  fixtureStager
	path    string
	replace bool
	stdout  io.Writer
}

func buildStageCmd(stager fixtureStager) *cobra.Command {
	r := &stageRunner{}

	cmd := &cobra.Command{
		Use:   "stage <fixture.json>",
		Short: "Load fixture rows into the tables behind the views",
		Args:  cobra.ExactArgs(1),
		Example: `  # Replace all staged rows with the Grand Bend fixture
  amtctl stage testdata/grand_bend.json --replace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r.path = args[0]
			r.stdout = cmd.OutOrStdout()
			if stager != nil {
				r.stager = stager
				return r.Run(cmd.Context())
			}

			s, err := openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			analytics := service.NewAnalyticsService(s.orgRepo, s.authRepo, s.viewCache(cmd.Context()), s.cfg.CacheTTL, s.log)
			r.stager = service.NewStagingService(repository.NewTransactor(s.pool), s.orgRepo, s.authRepo, analytics, s.log)
			return r.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&r.replace, "replace", false, "truncate staged rows before loading")
	return cmd
}

func (r *stageRunner) Run(ctx context.Context) error {
	f, err := fixture.LoadFile(r.path)
	if err != nil {
		return err
	}

	res, err := r.stager.Stage(ctx, f, r.replace)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.stdout, "Staged %d education organizations and %d user authorizations",
		res.EducationOrganizations, res.UserAuthorizations)
	if res.Replaced {
		fmt.Fprint(r.stdout, " (replaced)")
	}
	fmt.Fprintln(r.stdout)
	return nil
}
