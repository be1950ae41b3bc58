package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nexx/mediacenter/internal/scope"
)

// newFoldersCmd creates the 'folders' command group.
func newFoldersCmd() *cobra.Command {
	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "Folder operations (tree, breadcrumb, create, rename, delete)",
		Long:  `Commands for browsing and managing the folder hierarchy.`,
	}

	foldersCmd.AddCommand(newFoldersTreeCmd())
	foldersCmd.AddCommand(newFoldersBreadcrumbCmd())
	foldersCmd.AddCommand(newFoldersCreateCmd())
	foldersCmd.AddCommand(newFoldersRenameCmd())
	foldersCmd.AddCommand(newFoldersDeleteCmd())

	return foldersCmd
}

// parseFolderID parses a positive folder id argument.
func parseFolderID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid folder id %q", s)
	}
	return id, nil
}

func newFoldersTreeCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the folder hierarchy",
		Long: `Show the folder hierarchy of the configured entity.

Folders whose parent is not in the listing are not shown. Protected
folders are marked as locked.

Examples:
  mediacenter folders tree
  mediacenter folders tree --lang fa`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			if err := sess.Folders.Load(GetContext(), refresh); err != nil {
				return err
			}
			renderTree(cmd.OutOrStdout(), sess.Folders.Tree().Roots(), sess.Scope.Get().FolderID, sess.Scope.Locale())
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the folder cache")
	return cmd
}

func newFoldersBreadcrumbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breadcrumb <folder-id>",
		Short: "Show the path from the top level to a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFolderID(args[0])
			if err != nil {
				return err
			}
			sess, err := newSession()
			if err != nil {
				return err
			}
			if err := sess.Folders.Load(GetContext(), false); err != nil {
				return err
			}
			crumbs, err := sess.Folders.Tree().Breadcrumb(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatBreadcrumb(crumbs, sess.Scope.Locale()))
			return nil
		},
	}
}

func newFoldersCreateCmd() *cobra.Command {
	var parent int
	var protect bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder",
		Long: `Create a folder at the top level or under --parent.

With --protect the folder requires a password, which is prompted for.

Examples:
  mediacenter folders create Trailers
  mediacenter folders create Raw --parent 12 --protect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			ctx := GetContext()
			if err := sess.Folders.Load(ctx, false); err != nil {
				return err
			}

			var password string
			if protect {
				password, err = readPassword(os.Stdin, cmd.ErrOrStderr(), "Folder password: ")
				if err != nil {
					return err
				}
				if password == "" {
					return fmt.Errorf("password must not be empty with --protect")
				}
			}

			rec, err := sess.Folders.Create(ctx, args[0], parent, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created folder %q [%d]\n", rec.Name, rec.ID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&parent, "parent", "p", scope.NoFolder, "Parent folder id (default: top level)")
	cmd.Flags().BoolVar(&protect, "protect", false, "Require a password for the folder")
	return cmd
}

func newFoldersRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folder-id> <new-name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFolderID(args[0])
			if err != nil {
				return err
			}
			sess, err := newSession()
			if err != nil {
				return err
			}
			ctx := GetContext()
			if err := sess.Folders.Load(ctx, false); err != nil {
				return err
			}
			err = withFolderPassword(sess, id, func() error {
				return sess.Folders.Rename(ctx, id, args[1])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed folder %d to %q\n", id, args[1])
			return nil
		},
	}
}

func newFoldersDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <folder-id>",
		Short: "Delete a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFolderID(args[0])
			if err != nil {
				return err
			}
			sess, err := newSession()
			if err != nil {
				return err
			}
			ctx := GetContext()
			if err := sess.Folders.Load(ctx, false); err != nil {
				return err
			}
			rec, ok := sess.Folders.Tree().Lookup(id)
			if !ok {
				return fmt.Errorf("folder %d not found", id)
			}
			if !yes && !confirm(bufio.NewReader(os.Stdin), cmd.ErrOrStderr(), fmt.Sprintf("Delete folder %q and its contents?", rec.Name)) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
				return nil
			}
			err = withFolderPassword(sess, id, func() error {
				return sess.Folders.Delete(ctx, id)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted folder %q [%d]\n", rec.Name, id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
