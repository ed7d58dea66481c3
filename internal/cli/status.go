package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	appsession "github.com/devassist/proposal-analyzer/internal/application/session"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway reachability and session counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("gateway: %s\n", a.cfg.Backend.BaseURL)
		if err := a.backend.Health(cmd.Context()); err != nil {
			fmt.Printf("health:  unreachable (%v) — results will be kept locally\n", err)
		} else {
			fmt.Println("health:  ok")
		}
		fmt.Printf("storage: %s\n", a.cfg.StoragePath())

		for k, v := range appsession.Metrics() {
			fmt.Printf("%s: %v\n", k, v)
		}
		return nil
	},
}
