package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
)

const (
	maxOutputBytes     = 4 << 20
	outputTruncatedMsg = "\n... [output truncated]"
	scannerWaitDelay   = 10 * time.Second
)

// runScanner starts the scanner, streams its combined output into the log
// and returns the exit code with the retained output. Failures to start and
// timeouts come back as *domain.ScannerError.
func (o *Orchestrator) runScanner(ctx context.Context, ec *ExecContext) (int, string, error) {
	scanCtx, cancel := context.WithTimeout(ctx, o.cfg.ScanTimeout)
	defer cancel()

	cmd := exec.CommandContext(scanCtx, ec.Path, ec.Args...)
	cmd.Dir = ec.Dir
	cmd.Env = ec.Env
	cmd.WaitDelay = scannerWaitDelay
	setProcessGroup(cmd)

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return -1, "", &domain.ScannerError{ExitCode: -1, Err: err}
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return -1, "", &domain.ScannerError{ExitCode: -1, Err: err}
	}

	if err := applyTuning(cmd.Process.Pid, ec.Tuning); err != nil {
		o.logger.Warn("Could not tune scanner process", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
	}

	out := limitedBuffer{limit: maxOutputBytes}
	o.streamOutput(pipe, &out)

	waitErr := cmd.Wait()
	output := truncateOutput(out.String(), out.truncated)

	if errors.Is(scanCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		o.logger.Error("sonar-scanner timed out", zap.Duration("timeout", o.cfg.ScanTimeout))
		return -1, output, &domain.ScannerError{
			ExitCode: -1,
			Output:   output,
			TimedOut: true,
			Hint:     "The scan exceeded SCAN_TIMEOUT (" + o.cfg.ScanTimeout.String() + ").",
			Err:      scanCtx.Err(),
		}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0 {
			return exitErr.ExitCode(), output, nil
		}
		return -1, output, &domain.ScannerError{ExitCode: -1, Output: output, Err: waitErr}
	}
	return 0, output, nil
}

// streamOutput copies scanner output line by line into the log and buf.
func (o *Orchestrator) streamOutput(r io.Reader, buf *limitedBuffer) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			buf.Write([]byte(line))
			if text := strings.TrimRight(line, "\r\n"); text != "" {
				if strings.Contains(text, "INFO:") || strings.Contains(text, "SUCCESS") {
					o.logger.Info("sonar-scanner", zap.String("line", text))
				} else {
					o.logger.Debug("sonar-scanner", zap.String("line", text))
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// limitedBuffer is a bytes.Buffer that stops accepting writes after a limit.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (lb *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if lb.truncated {
		return n, nil
	}

	remaining := lb.limit - lb.buf.Len()
	if remaining <= 0 {
		lb.truncated = true
		return n, nil
	}
	if len(p) > remaining {
		lb.truncated = true
		p = p[:remaining]
	}
	lb.buf.Write(p)
	return n, nil
}

func (lb *limitedBuffer) String() string {
	return lb.buf.String()
}

// truncateOutput appends a truncation notice if the output was cut off.
func truncateOutput(s string, wasTruncated bool) string {
	if wasTruncated {
		return s + outputTruncatedMsg
	}
	return s
}
