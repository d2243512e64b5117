package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/usecase"
	"github.com/Yuichizx/devops-tools-hub/internal/validate"
)

var scanRequest domain.SubmitRequest

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan one repository in the foreground and print the task as JSON",
	RunE:  doScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanRequest.RepoURL, "repo", "", "GitHub repository URL")
	f.StringVar(&scanRequest.Branch, "branch", "main", "branch to scan")
	f.StringVar(&scanRequest.ProjectKey, "project-key", "", "SonarQube project key")
	f.StringVar(&scanRequest.Exclusions, "exclusions", "", "override sonar.exclusions")
	f.StringVar(&scanRequest.Inclusions, "inclusions", "", "sonar.inclusions")
	_ = scanCmd.MarkFlagRequired("repo")
	_ = scanCmd.MarkFlagRequired("project-key")
}

// inlineDispatcher runs the job on the caller's goroutine. Outcomes are
// recorded on the task, so job errors are only logged.
type inlineDispatcher struct {
	process *usecase.ProcessScanUsecase
	logger  *zap.Logger
}

func (d inlineDispatcher) Dispatch(ctx context.Context, job *domain.ScanJob) error {
	if err := d.process.Execute(ctx, job); err != nil {
		d.logger.Debug("Scan job returned error", zap.Error(err))
	}
	return nil
}

func doScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	req := scanRequest
	validate.Normalize(&req)
	if err := validate.Request(&req); err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	submit := usecase.NewSubmitScanUsecase(a.store, inlineDispatcher{process: a.process, logger: a.logger}, a.logger)
	resp, err := submit.Execute(ctx, &req)
	if err != nil {
		return err
	}

	view, err := usecase.NewGetTaskUsecase(a.store, a.cfg.Worker.MaxLogBytes, a.logger).Execute(ctx, resp.TaskID, true)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		return err
	}
	if view.Status != domain.StatusCompleted {
		return fmt.Errorf("scan finished with status %q", view.Status)
	}
	return nil
}
