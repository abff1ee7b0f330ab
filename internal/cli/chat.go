package cli

import (
	"fmt"

	"matchlink/backend/internal/chatlink"

	"github.com/spf13/cobra"
)

// NewResolveCommand reports what a match still needs.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var ledgerOnly bool

	cmd := &cobra.Command{
		Use:   "resolve <match-id>",
		Short: "Show whether a match has its chat room and allowlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, false)
			if err != nil {
				return err
			}
			defer d.Close()

			var res *chatlink.Resolution
			if ledgerOnly {
				res, err = d.service.Resolver.Resolve(cmd.Context(), args[0])
			} else {
				res, err = d.service.Resolve(cmd.Context(), args[0])
			}
			if err != nil {
				return describe(err)
			}
			return emit(cmd.OutOrStdout(), rootOpts, res, formatResolution(res))
		},
	}
	cmd.Flags().BoolVar(&ledgerOnly, "ledger", false, "ignore the local mirror and ask the ledger")
	return cmd
}

// NewReconcileCommand replays a confirmed transaction into the mirror.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var action, chatRoomID string

	cmd := &cobra.Command{
		Use:   "reconcile <match-id> <digest>",
		Short: "Write the mirror row for a confirmed transaction",
		Long: `Reads the transaction's created objects and upserts the chat mirror row.
Safe to repeat: the same digest always produces the same row.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, true)
			if err != nil {
				return err
			}
			defer d.Close()

			row, err := d.service.Reconcile(cmd.Context(), chatlink.ReconcileRequest{
				MatchID:    args[0],
				Digest:     args[1],
				Action:     chatlink.Action(action),
				ChatRoomID: chatRoomID,
				Operator:   true,
			})
			if err != nil {
				return describe(err)
			}
			return emit(cmd.OutOrStdout(), rootOpts, row,
				fmt.Sprintf("mirrored chat_room=%s allowlist=%s match=%s", row.ChatRoomID, row.ChatAllowlistID, row.MatchID))
		},
	}
	cmd.Flags().StringVar(&action, "action", string(chatlink.ActionCreateChat), "action the transaction performed (create_chat|create_allowlist)")
	cmd.Flags().StringVar(&chatRoomID, "chat-room", "", "chat room id for create_allowlist (defaults to the one linked to the match)")
	return cmd
}

// NewMirrorCommand prints a stored mirror row.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror <chat-room-id>",
		Short: "Show the mirror row for a chat room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, false)
			if err != nil {
				return err
			}
			defer d.Close()

			row, err := d.service.Mirror(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			return emit(cmd.OutOrStdout(), rootOpts, row,
				fmt.Sprintf("chat_room=%s allowlist=%s match=%s participants=%s,%s",
					row.ChatRoomID, row.ChatAllowlistID, row.MatchID, row.Participant1, row.Participant2))
		},
	}
}

// NewHistoryCommand lists recent transactions touching an object.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <object-id>",
		Short: "List recent transactions that changed a match or chat room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(cmd.Context(), rootOpts, false)
			if err != nil {
				return err
			}
			defer d.Close()

			blocks, err := d.service.History(cmd.Context(), args[0], limit)
			if err != nil {
				return describe(err)
			}
			if rootOpts.Format == "json" {
				return emit(cmd.OutOrStdout(), rootOpts, blocks, "")
			}
			for _, b := range blocks {
				status := "unknown"
				if b.Effects != nil {
					status = b.Effects.Status.Status
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s created=%d\n", b.Digest, status, len(b.Created()))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of transactions")
	return cmd
}

func formatResolution(res *chatlink.Resolution) string {
	out := fmt.Sprintf("match=%s action=%s", res.MatchID, res.Action)
	if res.ChatRoomID != "" {
		out += " chat_room=" + res.ChatRoomID
	}
	if res.ChatAllowlistID != "" {
		out += " allowlist=" + res.ChatAllowlistID
	}
	return out
}

// describe turns workflow errors into one readable line.
func describe(err error) error {
	e := chatlink.Describe(err)
	if e.AbortCode >= 0 {
		return fmt.Errorf("%s (%s, abort %d): %w", e.Message, e.Kind, e.AbortCode, err)
	}
	return fmt.Errorf("%s (%s): %w", e.Message, e.Kind, err)
}
