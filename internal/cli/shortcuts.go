package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/localfs"
	"github.com/nexx/mediacenter/internal/scope"
)

// AddShortcuts adds shortcut commands to the root command.
func AddShortcuts(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadShortcut())
	rootCmd.AddCommand(newDownloadShortcut())
	rootCmd.AddCommand(newLsShortcut())
}

// newUploadShortcut creates the 'upload' shortcut command.
func newUploadShortcut() *cobra.Command {
	var folderID int
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload files (shortcut for 'files upload')",
		Long: `Equivalent to: mediacenter files upload <files>

Examples:
  mediacenter upload trailer.mp4 poster.jpg
  mediacenter upload *.mov --folder 12 --max-concurrent 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeUpload(cmd.OutOrStdout(), args, localfs.Options{}, folderID, maxConcurrent)
		},
	}

	cmd.Flags().IntVarP(&folderID, "folder", "f", scope.NoFolder, "Target folder id (default: entity root)")
	cmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "m", constants.DefaultMaxConcurrent,
		fmt.Sprintf("Maximum concurrent uploads (1-%d)", constants.MaxMaxConcurrent))
	return cmd
}

// newDownloadShortcut creates the 'download' shortcut command. Existing
// files are skipped since the shortcut asks nothing.
func newDownloadShortcut() *cobra.Command {
	var outputDir string
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "download <file-id> [file-id...]",
		Short: "Download files (shortcut for 'files download --skip-existing')",
		Long: `Equivalent to: mediacenter files download <ids> --skip-existing

Examples:
  mediacenter download 4f1c
  mediacenter download 4f1c 77ab --outdir ./media`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := executeDownload(cmd.OutOrStdout(), args, outputDir, maxConcurrent,
				newConflictResolver(false, true, os.Stdin, cmd.ErrOrStderr()))
			return err
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", config.DefaultDownloadDir(), "Output directory for downloaded files")
	cmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "m", constants.DefaultMaxConcurrent,
		fmt.Sprintf("Maximum concurrent downloads (1-%d)", constants.MaxMaxConcurrent))
	return cmd
}

// newLsShortcut creates the 'ls' shortcut command.
func newLsShortcut() *cobra.Command {
	cmd := newFilesListCmd()
	cmd.Use = "ls"
	cmd.Short = "List files (shortcut for 'files list')"
	cmd.Long = `Equivalent to: mediacenter files list

Examples:
  mediacenter ls
  mediacenter ls --folder 12 --type image --sort createdDate --desc`
	return cmd
}
