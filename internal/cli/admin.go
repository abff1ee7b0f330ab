package cli

import (
	"context"
	"fmt"
	"strings"

	"matchlink/backend/internal/api/handler"
	"matchlink/backend/internal/config"
	"matchlink/backend/internal/models"
	"matchlink/backend/internal/storage"

	"github.com/lib/pq"
	"github.com/spf13/cobra"
)

// NewTokenCommand mints a wallet session token for testing the API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <wallet>",
		Short: "Issue a session token for a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := config.SessionSecret()
			if err != nil {
				return err
			}
			token, err := handler.NewSessions(secret).Generate(args[0])
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, map[string]string{"token": token}, token)
		},
	}
}

// NewUserCommand groups profile management.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local profiles",
	}
	cmd.AddCommand(newUserAddCommand(rootOpts))
	cmd.AddCommand(newUserShowCommand(rootOpts))
	return cmd
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	var name string
	var interests []string

	cmd := &cobra.Command{
		Use:   "add <wallet>",
		Short: "Bind a profile to a wallet address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, false)
			if err != nil {
				return err
			}
			defer d.Close()

			user, err := upsertUser(cmd.Context(), d.storage, args[0], name, interests)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, user,
				fmt.Sprintf("user %s bound to %s", user.ID, user.WalletAddress))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&interests, "interests", nil, "comma separated interests")
	return cmd
}

func newUserShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <wallet>",
		Short: "Show the profile bound to a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, false)
			if err != nil {
				return err
			}
			defer d.Close()

			user, err := d.storage.GetUserByWallet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no profile bound to %s", args[0])
			}
			return emit(cmd.OutOrStdout(), rootOpts, user,
				fmt.Sprintf("%s %s %q [%s]", user.ID, user.WalletAddress, user.DisplayName, strings.Join(user.Interests, ",")))
		},
	}
}

// upsertUser keeps the existing id when the wallet already has a profile.
func upsertUser(ctx context.Context, s storage.Storage, wallet, name string, interests []string) (*models.User, error) {
	if !strings.HasPrefix(models.NormalizeAddress(wallet), "0x") {
		return nil, fmt.Errorf("wallet address %q must be 0x-prefixed", wallet)
	}
	user, err := s.GetUserByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &models.User{WalletAddress: wallet}
	}
	if name != "" {
		user.DisplayName = name
	}
	if interests != nil {
		user.Interests = pq.StringArray(interests)
	}
	if err := s.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// NewMigrateCommand creates or updates the tables.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, false)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.storage.Migrate(); err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, map[string]string{"status": "migrated"}, "migrations complete")
		},
	}
}

// NewWatchCommand prints the chat-ready events published for a wallet.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <wallet>",
		Short: "Stream chat-ready notifications for a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, true)
			if err != nil {
				return err
			}
			defer d.Close()

			feed, err := d.storage.SubscribeChatReady(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for n := range feed {
				line := fmt.Sprintf("match=%s chat_room=%s allowlist=%s", n.Event.MatchID, n.Event.ChatRoomID, n.Event.ChatAllowlistID)
				if err := emit(cmd.OutOrStdout(), rootOpts, n.Event, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
