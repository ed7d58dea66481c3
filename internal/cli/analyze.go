package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devassist/proposal-analyzer/internal/application"
	appai "github.com/devassist/proposal-analyzer/internal/application/ai"
	appsession "github.com/devassist/proposal-analyzer/internal/application/session"
	domain "github.com/devassist/proposal-analyzer/internal/domain/session"
	openaiClient "github.com/devassist/proposal-analyzer/internal/infra/ai/openai"
	"github.com/devassist/proposal-analyzer/internal/infra/ai/prompt"
	"github.com/devassist/proposal-analyzer/internal/infra/extract"
	"github.com/devassist/proposal-analyzer/internal/validate"
)

var (
	analyzeModel   string
	analyzeDirect  bool
	analyzeTimeout time.Duration
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "model identifier (defaults to config)")
	analyzeCmd.Flags().BoolVar(&analyzeDirect, "direct", false, "analyze via the AI provider directly, without the backend gateway")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "how long to wait for the analysis to finish")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <spec-file> <proposal-file> [proposal-file...]",
	Short: "Run one analysis of proposals against a technical specification",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range args {
			if err := validate.ValidateDocumentPath(p); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		model := analyzeModel
		if model == "" {
			model = a.cfg.AI.Model
		}
		if err := validate.ValidateModel(model); err != nil {
			return err
		}

		if analyzeDirect {
			return runDirect(ctx, a, model, args[0], args[1:])
		}
		return runGateway(ctx, a, model, args[0], args[1:])
	},
}

func runGateway(ctx context.Context, a *app, model, specPath string, proposals []string) error {
	svc := &appsession.Service{
		Submitter: a.backend,
		Transport: a.progress,
		History:   a.history,
		Failures:  a.failures,
		Extractor: extract.New(),
		Clock:     application.SystemClock{},
		Model:     model,
		OnChange: func(s domain.Session) {
			switch s.State {
			case domain.StateInProgress:
				fmt.Printf("[%3d%%] %-10s %s\n", s.Percent, s.Stage, s.Message)
			case domain.StateFailed:
				fmt.Printf("analysis failed: %s\n", s.Err)
			}
		},
	}

	if err := svc.Start(ctx, specPath, proposals); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()
	final, err := svc.Wait(waitCtx)
	if err != nil {
		svc.Cancel()
		return fmt.Errorf("analysis did not finish in %s", analyzeTimeout)
	}
	if final.State == domain.StateFailed {
		return fmt.Errorf("analysis failed: %s", final.Err)
	}

	fmt.Printf("analysis completed: session=%s\n", final.ID)
	printLatest(ctx, a)
	return nil
}

func runDirect(ctx context.Context, a *app, model, specPath string, proposals []string) error {
	if a.cfg.AI.APIKey == "" {
		return fmt.Errorf("direct mode requires an AI provider key (OPENAI_API_KEY or ai.apiKey)")
	}

	ex := extract.New()
	specText, err := ex.Extract(specPath)
	if err != nil {
		return err
	}
	docs := make([]prompt.Document, 0, len(proposals))
	for _, p := range proposals {
		text, err := ex.Extract(p)
		if err != nil {
			return err
		}
		docs = append(docs, prompt.Document{Name: filepath.Base(p), Text: text})
	}

	svc := appai.NewService(openaiClient.NewClient(a.cfg.AI.APIKey, model), a.history)
	title := fmt.Sprintf("Proposal analysis — %s", filepath.Base(specPath))
	sources := append([]string{specPath}, proposals...)

	rec, err := svc.AnalyzeAndStore(ctx, title, sources,
		prompt.GetUserPrompt(filepath.Base(specPath), specText, docs))
	if err != nil {
		return err
	}

	fmt.Printf("analysis completed: id=%s score=%.0f sync=%s\n", rec.ID, rec.OverallScore, rec.SyncStatus)
	fmt.Println(strings.TrimSpace(string(rec.Payload)))
	return nil
}

func printLatest(ctx context.Context, a *app) {
	recs, err := a.history.List(ctx)
	if err != nil || len(recs) == 0 {
		return
	}
	rec := recs[0]
	fmt.Printf("saved: id=%s score=%.0f sync=%s\n", rec.ID, rec.OverallScore, rec.SyncStatus)
}
