package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	initName        string
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Initialize a new retention workspace",
	Long: `Init creates the workspace layout (data/raw, data/processed, reports, logs,
database) and a workspace.json that records pipeline runs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolve workspace dir: %w", err)
		}
		name := strings.TrimSpace(initName)
		if name == "" {
			name = filepath.Base(dir)
		}
		ws, err := workspace.Init(dir, name, initDescription)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Workspace initialized: %s\n", ws.RootDir())
		fmt.Fprintf(out, "  Put raw exports in %s, or run 'retention generate'\n", ws.Path(workspace.DirRaw))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "workspace name (default: directory name)")
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "workspace description")
}
