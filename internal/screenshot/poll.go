package screenshot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const qualityGatePanel = "div[data-test='overview__quality-gate-panel']"

// badgeSelectors are tried in order; SonarQube versions render the quality
// gate badge differently.
var badgeSelectors = []string{
	"[data-test='quality-gate-status']",
	qualityGatePanel + " span",
	qualityGatePanel + " [class*='QualityGate']",
}

const readTimeout = 10 * time.Second

// findBadge returns the first badge selector present on the page, or "".
func (s *Service) findBadge(ctx context.Context, p Page) string {
	for _, sel := range badgeSelectors {
		readCtx, cancel := context.WithTimeout(ctx, readTimeout)
		n, err := p.Count(readCtx, sel)
		cancel()
		if err == nil && n > 0 {
			s.logger.Info("Using quality gate badge selector", zap.String("selector", sel))
			return sel
		}
	}
	s.logger.Warn("Quality gate badge selector not found")
	return ""
}

type pollResult struct {
	updated bool
	status  *string
	waited  time.Duration
}

// waitForBadgeChange re-reads the badge text until it differs from the first
// reading or the poll timeout elapses. Read errors after the first reading
// keep the last known text.
func (s *Service) waitForBadgeChange(ctx context.Context, p Page, sel string) pollResult {
	start := s.clock.Now()

	prev, err := s.readText(ctx, p, sel)
	if err != nil {
		s.logger.Warn("Failed to read initial badge text", zap.Error(err))
		return pollResult{}
	}
	latest := prev
	s.logger.Info("Initial badge text", zap.String("text", prev))

	for {
		elapsed := s.clock.Now().Sub(start)
		if elapsed >= s.cfg.PollTimeout {
			s.logger.Info("Badge polling timed out", zap.Duration("elapsed", elapsed), zap.String("latest", latest))
			return pollResult{status: &latest, waited: elapsed}
		}

		if text, err := s.readText(ctx, p, sel); err == nil {
			latest = text
		}
		if latest != prev {
			s.logger.Info("Badge updated",
				zap.String("from", prev),
				zap.String("to", latest),
				zap.Duration("elapsed", elapsed),
			)
			return pollResult{updated: true, status: &latest, waited: elapsed}
		}

		if err := s.clock.Sleep(ctx, s.cfg.PollInterval); err != nil {
			return pollResult{status: &latest, waited: elapsed}
		}
	}
}

func (s *Service) readText(ctx context.Context, p Page, sel string) (string, error) {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	text, err := p.Text(readCtx, sel)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
