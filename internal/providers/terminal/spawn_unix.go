//go:build !windows

package terminal

import (
	"os/exec"
	"syscall"
)

// The shell leads its own session with the pty as controlling terminal.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true, Setctty: true}
}

// hangup sends SIGHUP to the shell's process group.
func hangup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGHUP)
}
