package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/repository"
	"github.com/stemsi/analytics-middletier/internal/service"
	"golang.org/x/term"
)

const minSecretLength = 12

type clientCreator interface {
	CreateClient(ctx context.Context, clientID, name, secret string, permissions []string) (*model.APIClient, error)
}

type clientRunner struct {
	creator     clientCreator
	clientID    string
	name        string
	permissions []string
	readSecret  func(prompt io.Writer) (string, error)
	stdout      io.Writer
}

func buildClientCmd(creator clientCreator) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage API clients",
	}
	cmd.AddCommand(buildClientCreateCmd(creator))
	return cmd
}

func buildClientCreateCmd(creator clientCreator) *cobra.Command {
	r := &clientRunner{readSecret: readSecret}

	cmd := &cobra.Command{
		Use:   "create <client-id>",
		Short: "Register an API client",
		Long:  "Register an API client. The secret is read from the terminal, or from stdin when it is not a terminal.",
		Args:  cobra.ExactArgs(1),
		Example: `  # Read-only client for a reporting job
  amtctl client create reporting --permission analytics:read

  # CI client that stages fixtures and verifies views
  echo "$SECRET" | amtctl client create ci --permission fixtures:stage --permission verifications:run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r.clientID = args[0]
			r.stdout = cmd.OutOrStdout()
			if creator != nil {
				r.creator = creator
				return r.Run(cmd.Context())
			}

			s, err := openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			r.creator = service.NewAuthService(s.cfg, repository.NewAPIClientRepository(s.pool))
			return r.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&r.name, "name", "", "display name (defaults to the client id)")
	cmd.Flags().StringSliceVar(&r.permissions, "permission", []string{string(model.PermissionAnalyticsRead)},
		"permission to grant, repeatable")
	return cmd
}

func (r *clientRunner) Run(ctx context.Context) error {
	for _, p := range r.permissions {
		if !model.IsValidPermission(p) {
			return fmt.Errorf("unknown permission %q", p)
		}
	}

	secret, err := r.readSecret(r.stdout)
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	if len(secret) < minSecretLength {
		return fmt.Errorf("secret must be at least %d characters", minSecretLength)
	}

	name := r.name
	if name == "" {
		name = r.clientID
	}

	client, err := r.creator.CreateClient(ctx, r.clientID, name, secret, r.permissions)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.stdout, "Client %q created (ID: %d) with permissions %s\n",
		client.ClientID, client.ID, strings.Join(client.Permissions, ", "))
	return nil
}

func readSecret(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(prompt, "Client secret: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
