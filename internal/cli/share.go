package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/models"
	"github.com/nexx/mediacenter/internal/services"
)

// newShareCmd creates the 'share' command group.
func newShareCmd() *cobra.Command {
	shareCmd := &cobra.Command{
		Use:   "share",
		Short: "Public share links (create, update, delete, open)",
	}

	shareCmd.AddCommand(newShareCreateCmd())
	shareCmd.AddCommand(newShareUpdateCmd())
	shareCmd.AddCommand(newShareDeleteCmd())
	shareCmd.AddCommand(newShareOpenCmd())

	return shareCmd
}

// shareRequest builds a request from the --protect and --ttl flags.
func shareRequest(protect bool, ttl time.Duration) (services.ShareRequest, error) {
	if ttl < 0 {
		return services.ShareRequest{}, fmt.Errorf("--ttl must not be negative, got %s", ttl)
	}
	req := services.ShareRequest{TTL: ttl}
	if protect {
		pw, err := readPassword(os.Stdin, os.Stderr, "Share password: ")
		if err != nil {
			return req, err
		}
		if pw == "" {
			return req, errors.New("share password must not be empty")
		}
		req.Password = pw
	}
	return req, nil
}

func printShareLink(w io.Writer, link *models.ShareLink) {
	fmt.Fprintf(w, "Token:     %s\n", link.Token)
	fmt.Fprintf(w, "URL:       %s\n", link.URL)
	fmt.Fprintf(w, "Protected: %t\n", link.PasswordRequired)
	if link.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:   %s\n", link.ExpiresAt.Local().Format(time.RFC3339))
	}
}

func newShareCreateCmd() *cobra.Command {
	var protect bool
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "create <file-id>",
		Short: "Create a share link for a file",
		Long: `Create a public link to a file.

Examples:
  mediacenter share create 4f1c
  mediacenter share create 4f1c --protect --ttl 72h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := shareRequest(protect, ttl)
			if err != nil {
				return err
			}
			sess, err := newSession()
			if err != nil {
				return err
			}
			link, err := sess.Shares.Create(GetContext(), args[0], req)
			if err != nil {
				return err
			}
			printShareLink(cmd.OutOrStdout(), link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&protect, "protect", false, "Require a password (prompted for)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Expire the link after this duration (0 = never)")
	return cmd
}

func newShareUpdateCmd() *cobra.Command {
	var protect bool
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "update <token>",
		Short: "Replace a link's password and expiry",
		Long: `Replace a link's protection and expiry. Without --protect the
password is removed; without --ttl the expiry is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := shareRequest(protect, ttl)
			if err != nil {
				return err
			}
			sess, err := newSession()
			if err != nil {
				return err
			}
			link, err := sess.Shares.Update(GetContext(), args[0], req)
			if err != nil {
				return err
			}
			printShareLink(cmd.OutOrStdout(), link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&protect, "protect", false, "Require a password (prompted for)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Expire the link after this duration (0 = never)")
	return cmd
}

func newShareDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token>",
		Short: "Revoke a share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			if err := sess.Shares.Delete(GetContext(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", args[0])
			return nil
		},
	}
}

func newShareOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <token>",
		Short: "Resolve a share link to its file",
		Long: `Resolve a share link and print the file's name, size and download
URL. Protected links ask for the password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			ctx := GetContext()
			f, err := sess.Shares.Open(ctx, args[0], "")
			for attempt := 0; errors.Is(err, services.ErrSharePasswordRequired) && attempt < constants.MaxFolderPasswordAttempts; attempt++ {
				pw, perr := readPassword(os.Stdin, os.Stderr, "Share password: ")
				if perr != nil {
					return perr
				}
				f, err = sess.Shares.Open(ctx, args[0], pw)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s\n", f.FileName)
			fmt.Fprintf(out, "Size:     %s\n", locale.FormatSize(f.Size))
			fmt.Fprintf(out, "Download: %s\n", f.DownloadURL)
			if !f.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Expires:  %s\n", f.ExpiresAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}
