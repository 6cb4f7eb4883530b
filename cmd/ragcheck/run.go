package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/notebooklab/ragcheck/internal/api"
	"github.com/notebooklab/ragcheck/internal/config"
	"github.com/notebooklab/ragcheck/internal/logger"
	"github.com/notebooklab/ragcheck/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultPayload is submitted when no input file is given.
const defaultPayload = `This is a test document submitted by ragcheck.
It should be registered by the document service and show up in a
subsequent listing fetch with a processing status attached.
`

func newRunCmd() *cobra.Command {
	var (
		baseURL     string
		identifier  string
		secret      string
		filePath    string
		filename    string
		contentType string
		cleanup     bool
		noPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the upload verification workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Flags override configuration
			if baseURL != "" {
				cfg.Client.BaseURL = baseURL
			}
			if identifier != "" {
				cfg.Client.Identifier = identifier
			}
			if secret != "" {
				cfg.Client.Secret = secret
			}
			if filePath != "" {
				cfg.Workflow.FilePath = filePath
			}
			if filename != "" {
				cfg.Workflow.Filename = filename
			}
			if contentType != "" {
				cfg.Workflow.ContentType = contentType
			}
			if cmd.Flags().Changed("cleanup") {
				cfg.Workflow.Cleanup = cleanup
			}
			if noPreflight {
				cfg.Workflow.Preflight = false
			}

			log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			return runWorkflow(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of the document service")
	cmd.Flags().StringVar(&identifier, "identifier", "", "Login identifier")
	cmd.Flags().StringVar(&secret, "secret", "", "Login secret")
	cmd.Flags().StringVar(&filePath, "file", "", "Document to submit (default: generated text)")
	cmd.Flags().StringVar(&filename, "filename", "", "Declared filename of the submission")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Declared media type of the submission")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Delete the submitted document after a successful run")
	cmd.Flags().BoolVar(&noPreflight, "no-preflight", false, "Skip the service health preflight")

	return cmd
}

func runWorkflow(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	sub, err := buildSubmission(&cfg.Workflow)
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.Client.BaseURL, cfg.Client.TimeoutDuration(), log)

	if cfg.Workflow.Preflight {
		if report, err := client.Health(ctx); err != nil {
			if apiErr, ok := api.AsError(err); ok && apiErr.Transport {
				return fmt.Errorf("service unreachable at %s: %s", cfg.Client.BaseURL, apiErr.Reason)
			}
			log.Warn("health preflight returned an error, continuing", zap.Error(err))
		} else {
			log.Info("service healthy", zap.String("status", report.Status))
		}
	}

	creds := api.Credentials{
		Identifier: cfg.Client.Identifier,
		Secret:     cfg.Client.Secret,
	}

	runner := workflow.NewRunner(client, log)
	report := runner.Run(ctx, creds, sub)

	if jsonOutput {
		out, err := report.JSON()
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(report.Render())
	}

	if cfg.Workflow.Cleanup && report.Succeeded() && report.Submission.Document != nil {
		cleanupDocument(ctx, client, creds, report.Submission.Document.ID, log)
	}

	if !report.Succeeded() {
		return fmt.Errorf("workflow finished with errors")
	}
	return nil
}

// cleanupDocument removes the submitted document with a fresh session. It
// runs outside the workflow so the run itself stays a single submission
// with no compensating effects.
func cleanupDocument(ctx context.Context, client *api.Client, creds api.Credentials, id string, log *zap.Logger) {
	session, err := client.Login(ctx, creds)
	if err != nil {
		log.Warn("cleanup login failed", zap.Error(err), zap.String("document_id", id))
		return
	}
	if err := client.DeleteDocument(ctx, session, id); err != nil {
		log.Warn("cleanup delete failed", zap.Error(err), zap.String("document_id", id))
		return
	}
	log.Info("cleaned up submitted document", zap.String("document_id", id))
}

func buildSubmission(cfg *config.WorkflowConfig) (api.Submission, error) {
	if cfg.FilePath == "" {
		return api.Submission{
			Payload:     []byte(defaultPayload),
			ContentType: cfg.ContentType,
			Filename:    cfg.Filename,
		}, nil
	}

	payload, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return api.Submission{}, fmt.Errorf("failed to read submission file: %w", err)
	}

	name := cfg.Filename
	if name == "" {
		name = filepath.Base(cfg.FilePath)
	}

	return api.Submission{
		Payload:     payload,
		ContentType: cfg.ContentType,
		Filename:    name,
	}, nil
}
