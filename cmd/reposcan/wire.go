package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/config"
	"github.com/Yuichizx/devops-tools-hub/internal/logger"
	"github.com/Yuichizx/devops-tools-hub/internal/repository/memory"
	"github.com/Yuichizx/devops-tools-hub/internal/scanner"
	"github.com/Yuichizx/devops-tools-hub/internal/screenshot"
	"github.com/Yuichizx/devops-tools-hub/internal/usecase"
)

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *memory.TaskStore
	browser *screenshot.ChromeBrowser
	process *usecase.ProcessScanUsecase
}

// newApp loads configuration and builds the scan pipeline. The browser is
// bound to ctx; call close when done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	gin.SetMode(cfg.Server.GinMode)

	store := memory.NewTaskStore(cfg.Worker.MaxTaskHistory, log)

	orchestrator := scanner.NewOrchestrator(scanner.Config{
		GitPath:           cfg.Sonar.GitPath,
		ScannerPath:       cfg.Sonar.ScannerPath,
		HostURL:           cfg.Sonar.HostURL,
		Token:             cfg.Sonar.Token,
		DefaultExclusions: cfg.Sonar.Exclusions,
		HeapMin:           cfg.Sonar.HeapMin,
		HeapMax:           cfg.Sonar.HeapLimit,
		CacheRoot:         cfg.Sonar.UserHome,
		CPDMinimumTokens:  cfg.Sonar.CPDMinimumTokens,
		Debug:             cfg.Sonar.Debug,
		NiceAdjustment:    cfg.Sonar.NiceAdjustment,
		CPUAffinity:       cfg.Sonar.CPUAffinity,
		CloneTimeout:      cfg.Sonar.CloneTimeout,
		ScanTimeout:       cfg.Sonar.ScanTimeout,
	}, log.Named("scanner"))

	browser := screenshot.NewChromeBrowser(ctx, screenshot.ChromeOptions{
		ExecPath:  cfg.Screenshot.ChromePath,
		NoSandbox: cfg.Screenshot.ChromeNoSandbox,
	}, log.Named("chrome"))

	shots := screenshot.NewService(screenshot.Config{
		WebURL:   cfg.Screenshot.WebURL,
		Username: cfg.Screenshot.Username,
		Password: cfg.Screenshot.Password,
		Dir:      cfg.Screenshot.Dir,
		TTL:      cfg.Screenshot.TTL,
	}, browser, nil, log.Named("screenshot"))

	return &app{
		cfg:     cfg,
		logger:  log,
		store:   store,
		browser: browser,
		process: usecase.NewProcessScanUsecase(store, orchestrator, shots, log),
	}, nil
}

func (a *app) close() {
	a.browser.Close()
	_ = a.logger.Sync()
}
