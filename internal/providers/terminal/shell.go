package terminal

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// DefaultShell returns $SHELL, falling back to /bin/bash (cmd.exe on Windows).
func DefaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	return "/bin/bash"
}

// shellEnv layers the terminal variables over the host environment.
func shellEnv(opts Options) []string {
	path := opts.Path
	if path == "" {
		path = os.Getenv("PATH")
	}

	overrides := map[string]string{
		"TERM": opts.Term,
		"PATH": path,
	}
	if opts.ForceColor {
		overrides["FORCE_COLOR"] = "1"
	}

	env := make([]string, 0, len(os.Environ())+len(overrides))
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, key := range []string{"TERM", "PATH", "FORCE_COLOR"} {
		if value, ok := overrides[key]; ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}

// spawnShell starts the configured shell on the subordinate side of pair.
func spawnShell(pair *Pair, opts Options) (*exec.Cmd, error) {
	cmd := exec.Command(opts.Shell)
	cmd.Dir = opts.WorkingDir
	cmd.Env = shellEnv(opts)
	cmd.Stdin = pair.Slave
	cmd.Stdout = pair.Slave
	cmd.Stderr = pair.Slave
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}
