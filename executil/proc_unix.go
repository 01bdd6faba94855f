//go:build unix

package executil

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the child in its own process group and makes
// context cancellation kill the whole group, so descendants of the subject
// do not outlive the invocation.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
