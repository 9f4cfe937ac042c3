package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Leganyst/legal-marketplace/internal/authtoken"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/service"
)

// Каталог идентичностей в проде ведёт внешний сервис; эти команды
// нужны для локальной разработки.
func newIdentityCmd(load func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage identities in the local directory",
	}

	var role, name, contact string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register an identity and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			identities := service.NewIdentityService(repository.NewGormUserRepository(a.db), a.cfg.QueryTimeout)
			u, err := identities.Register(cmd.Context(), model.Role(role), name, contact)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&role, "role", string(model.RoleClient), "client, provider or coordinator")
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&contact, "contact", "", "email or phone")
	_ = add.MarkFlagRequired("name")

	var newName, newContact string
	update := &cobra.Command{
		Use:   "update <identity-id>",
		Short: "Change display name or contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid identity id: %w", err)
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			identities := service.NewIdentityService(repository.NewGormUserRepository(a.db), a.cfg.QueryTimeout)
			u, err := identities.UpdateContacts(cmd.Context(), id, newName, newContact)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", u.ID, u.DisplayName, u.Contact)
			return nil
		},
	}
	update.Flags().StringVar(&newName, "name", "", "new display name")
	update.Flags().StringVar(&newContact, "contact", "", "new contact")

	cmd.AddCommand(add, update)
	return cmd
}

func newTokenCmd(load func() (*app, error)) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <identity-id>",
		Short: "Mint a bearer token for an existing identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid identity id: %w", err)
			}
			a, err := load()
			if err != nil {
				return err
			}
			defer a.close()

			identities := service.NewIdentityService(repository.NewGormUserRepository(a.db), a.cfg.QueryTimeout)
			if _, err := identities.Resolve(cmd.Context(), id); err != nil {
				return err
			}
			tok, err := authtoken.NewService(a.cfg.JWTSecret, a.cfg.JWTIssuer).Issue(id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
