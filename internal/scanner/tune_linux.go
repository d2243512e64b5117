//go:build linux

package scanner

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// applyTuning sets the niceness and CPU affinity of a started process.
// The scanner runs in its own process group, so niceness is applied to
// the whole group.
func applyTuning(pid int, t Tuning) error {
	var errs []error
	if t.Nice != 0 {
		if err := unix.Setpriority(unix.PRIO_PGRP, pid, t.Nice); err != nil {
			errs = append(errs, fmt.Errorf("setpriority %d: %w", t.Nice, err))
		}
	}
	if len(t.CPUs) > 0 {
		var set unix.CPUSet
		set.Zero()
		for _, cpu := range t.CPUs {
			set.Set(cpu)
		}
		if err := unix.SchedSetaffinity(pid, &set); err != nil {
			errs = append(errs, fmt.Errorf("sched_setaffinity %v: %w", t.CPUs, err))
		}
	}
	return errors.Join(errs...)
}
