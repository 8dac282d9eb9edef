package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/pkg/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Snapshot a local repository and print its id",
	Long: `Walks the repository at <path>, filters out binaries, oversized files
and gitignored paths, and writes an immutable snapshot under the
workspace. The printed repo id is what plan requests reference.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig(configPath)

		repoSvc := repo.NewService(cfg.App.Workspace)
		repoID, err := repoSvc.Ingest(args[0])
		if err != nil {
			log.Fatalf("ingest failed: %v", err)
		}

		files, err := repoSvc.Files(repoID)
		if err != nil {
			log.Fatalf("snapshot readback failed: %v", err)
		}
		fmt.Printf("Ingested %d files from %s\n", len(files), args[0])
		fmt.Printf("repo_id: %s\n", repoID)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
