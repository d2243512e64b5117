//go:build !unix

package scanner

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
