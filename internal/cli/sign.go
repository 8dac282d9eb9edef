package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/varun/sleuth/internal/approval"
	"github.com/varun/sleuth/internal/store"
	"github.com/varun/sleuth/pkg/config"
)

var signCmd = &cobra.Command{
	Use:   "sign <plan-id>",
	Short: "Print the approval signature for a pending plan",
	Long: `Computes the HMAC-SHA256 approval signature over the stored steps of
the given plan, using orchestrator.secret_key from config. Paste the
output into POST /api/orchestrate/execute to approve the plan. Review
the plan's steps before signing: the signature is the approval.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig(configPath)
		if cfg.Orchestrator.SecretKey == "" {
			log.Fatal("orchestrator.secret_key is not set in config")
		}

		planStore, err := store.NewPlanStore(cfg.Storage.Path)
		if err != nil {
			log.Fatal(err)
		}
		defer planStore.Close()

		plan, err := planStore.Get(args[0])
		if err != nil {
			log.Fatalf("load plan: %v", err)
		}

		gate := approval.NewGate(cfg.Orchestrator.SecretKey)
		sig, err := gate.Sign(plan.Steps)
		if err != nil {
			log.Fatalf("sign plan: %v", err)
		}

		fmt.Printf("plan:      %s (%s, %d steps)\n", plan.ID, plan.Status, len(plan.Steps))
		for i, s := range plan.Steps {
			fmt.Printf("  step %d:  %s: %s\n", i+1, s.Tool, s.Purpose)
		}
		fmt.Printf("signature: %s\n", sig)
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
}
