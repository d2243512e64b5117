package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	regexp "github.com/wasilibs/go-re2"
	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/metrics"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultPollTimeout  = 60 * time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultSettleDelay  = 30 * time.Second

	loginTimeout     = 60 * time.Second
	loginWaitTimeout = 30 * time.Second
	dashboardTimeout = 90 * time.Second
	captureTimeout   = 60 * time.Second

	// URLPrefix is where saved screenshots are served from.
	URLPrefix = "/screenshots/"
)

const (
	loginField    = `input[name="login"]`
	passwordField = `input[name="password"]`
	submitButton  = `button[type="submit"]`
)

var _ repository.Screenshotter = (*Service)(nil)

// Config holds the SonarQube web login and screenshot storage settings.
type Config struct {
	WebURL   string
	Username string
	Password string

	Dir string
	// TTL is the age after which saved screenshots are purged. Zero or
	// negative disables purging.
	TTL time.Duration

	// Selector, when set and no clip is given, captures that element only.
	Selector string

	PollTimeout  time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration
}

// Service logs into the SonarQube web UI and captures a project dashboard.
type Service struct {
	cfg     Config
	browser Browser
	clock   Clock
	logger  *zap.Logger
}

// NewService returns a Service. A nil clock means the wall clock.
func NewService(cfg Config, browser Browser, clock Clock, logger *zap.Logger) *Service {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	cfg.WebURL = strings.TrimRight(strings.TrimSpace(cfg.WebURL), "/")
	if clock == nil {
		clock = RealClock{}
	}
	return &Service{cfg: cfg, browser: browser, clock: clock, logger: logger}
}

// Capture screenshots the dashboard of projectKey. It returns (nil, nil) when
// the web login is not configured, and a *domain.ScreenshotError when the
// browser session fails.
func (s *Service) Capture(ctx context.Context, projectKey string, clip *domain.ClipRect) (*domain.ScreenshotInfo, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, s.fail("prepare", fmt.Errorf("create %s: %w", s.cfg.Dir, err))
	}
	if n, err := purgeOld(s.cfg.Dir, s.cfg.TTL, time.Now()); err != nil {
		s.logger.Warn("Failed to clean old screenshots", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("Removed expired screenshots", zap.Int("count", n))
	}

	if s.cfg.WebURL == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		s.logger.Error("Config SONARQUBE_WEB_URL/SONAR_USERNAME/SONAR_PASSWORD missing")
		metrics.ScreenshotsTotal.WithLabelValues("unavailable").Inc()
		return nil, nil
	}

	s.logger.Info("Taking dashboard screenshot",
		zap.String("project_key", projectKey),
		zap.Duration("max_wait", s.cfg.PollTimeout),
		zap.Duration("interval", s.cfg.PollInterval),
		zap.Duration("fixed_delay", s.cfg.SettleDelay),
	)

	p, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, s.fail("launch", err)
	}
	defer p.Close()

	if err := s.login(ctx, p); err != nil {
		return nil, s.fail("login", err)
	}

	target := s.cfg.WebURL + "/dashboard?id=" + projectKey
	s.logger.Info("Opening SonarQube dashboard", zap.String("url", target))
	if err := withTimeout(ctx, dashboardTimeout, func(ctx context.Context) error {
		return p.Navigate(ctx, target)
	}); err != nil {
		return nil, s.fail("navigate", err)
	}

	if err := withTimeout(ctx, dashboardTimeout, func(ctx context.Context) error {
		return p.WaitVisible(ctx, qualityGatePanel)
	}); err != nil {
		s.logger.Warn("Dashboard panel not detected, continuing", zap.Error(err))
	}

	var poll pollResult
	if sel := s.findBadge(ctx, p); sel != "" {
		poll = s.waitForBadgeChange(ctx, p, sel)
	} else {
		s.logger.Info("Skipping badge polling")
	}

	s.logger.Info("Waiting fixed delay before capture", zap.Duration("delay", s.cfg.SettleDelay))
	if err := s.clock.Sleep(ctx, s.cfg.SettleDelay); err != nil {
		return nil, s.fail("settle", err)
	}

	png, err := s.capture(ctx, p, clip)
	if err != nil {
		return nil, s.fail("capture", err)
	}

	filename := fmt.Sprintf("%s-%s.png", safeName(projectKey), uuid.NewString())
	path := filepath.Join(s.cfg.Dir, filename)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return nil, s.fail("save", err)
	}
	s.logger.Info("Screenshot saved", zap.String("path", path))
	metrics.ScreenshotsTotal.WithLabelValues("ok").Inc()

	return &domain.ScreenshotInfo{
		Filename:           filename,
		DisplayURL:         URLPrefix + filename,
		QualityGateUpdated: poll.updated,
		QualityGateStatus:  poll.status,
		WaitedMs:           poll.waited.Milliseconds(),
		FixedDelayMs:       s.cfg.SettleDelay.Milliseconds(),
	}, nil
}

func (s *Service) login(ctx context.Context, p Page) error {
	err := withTimeout(ctx, loginTimeout, func(ctx context.Context) error {
		if err := p.Navigate(ctx, s.cfg.WebURL); err != nil {
			return err
		}
		if err := p.Fill(ctx, loginField, s.cfg.Username); err != nil {
			return err
		}
		if err := p.Fill(ctx, passwordField, s.cfg.Password); err != nil {
			return err
		}
		return p.Click(ctx, submitButton)
	})
	if err != nil {
		return err
	}
	err = withTimeout(ctx, loginWaitTimeout, func(ctx context.Context) error {
		return p.WaitURL(ctx, s.cfg.WebURL+"/projects")
	})
	if err != nil {
		return err
	}
	s.logger.Info("Login OK")
	return nil
}

// capture prefers the clip, then the configured element, then the full page.
func (s *Service) capture(ctx context.Context, p Page, clip *domain.ClipRect) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	switch {
	case clip != nil && clip.Width > 0 && clip.Height > 0:
		return p.CaptureClip(ctx, *clip)
	case s.cfg.Selector != "":
		png, err := p.CaptureElement(ctx, s.cfg.Selector)
		if err == nil {
			return png, nil
		}
		s.logger.Warn("Element capture failed, falling back to full page", zap.Error(err))
		return p.CaptureFull(ctx)
	default:
		return p.CaptureFull(ctx)
	}
}

func (s *Service) fail(stage string, err error) error {
	s.logger.Error("Screenshot failed", zap.String("stage", stage), zap.Error(err))
	metrics.ScreenshotsTotal.WithLabelValues("error").Inc()
	return &domain.ScreenshotError{Stage: stage, Err: err}
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

// purgeOld removes *.png files in dir last modified more than ttl before now.
func purgeOld(dir string, ttl time.Duration, now time.Time) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > ttl {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func safeName(projectKey string) string {
	name := unsafeNameChars.ReplaceAllString(projectKey, "_")
	if strings.Trim(name, ".") == "" {
		return "project"
	}
	return name
}
