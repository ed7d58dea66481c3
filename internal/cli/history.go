package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	historydomain "github.com/devassist/proposal-analyzer/internal/domain/history"
	"github.com/devassist/proposal-analyzer/internal/validate"
)

var historyLimit int

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyFailuresCmd)
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "max records to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse persisted analysis results",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis records (remote when reachable, local otherwise)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.history.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No analyses yet — run 'devassist analyze' first")
			return nil
		}

		limit := validate.ValidateLimit(historyLimit)
		if len(recs) > limit {
			recs = recs[:limit]
		}
		fmt.Printf("%-22s %-20s %6s %-9s %s\n", "ID", "CREATED", "SCORE", "SYNC", "TITLE")
		fmt.Println("────────────────────────────────────────────────────────────────────────")
		for _, r := range recs {
			fmt.Printf("%-22s %-20s %6.0f %-9s %s\n",
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.OverallScore,
				r.SyncStatus,
				r.Title,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one analysis record, payload included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.history.Get(cmd.Context(), historydomain.RecordID(args[0]))
		if err != nil {
			return fmt.Errorf("record %q not found", args[0])
		}
		fmt.Printf("id:      %s\ntitle:   %s\ncreated: %s\nscore:   %.0f\nstatus:  %s\nsync:    %s\n",
			rec.ID, rec.Title, rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.OverallScore, rec.Status, rec.SyncStatus)
		if len(rec.SourceFiles) > 0 {
			fmt.Printf("sources: %v\n", rec.SourceFiles)
		}
		if rec.ArtifactURL != "" {
			fmt.Printf("archive: %s\n", rec.ArtifactURL)
		}
		if len(rec.Payload) > 0 {
			fmt.Printf("\n%s\n", rec.Payload)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an analysis record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.history.Delete(cmd.Context(), historydomain.RecordID(args[0])); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var historyFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List recent failed analysis attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.failures.Latest(cmd.Context(), validate.ValidateLimit(historyLimit))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No failures recorded")
			return nil
		}
		fmt.Printf("%-20s %-10s %-12s %s\n", "WHEN", "PHASE", "SESSION", "MESSAGE")
		for _, e := range entries {
			fmt.Printf("%-20s %-10s %-12s %s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Phase,
				e.SessionID,
				e.Message,
			)
		}
		return nil
	},
}
