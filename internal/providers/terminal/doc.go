// Package terminal manages interactive shell sessions on pseudo-terminals.
//
// Each session owns one pty and the shell spawned on its subordinate side.
// A dedicated goroutine pumps the shell's output to an EventSink while
// callers write input, resize the window and close sessions by id.
//
// Features:
//   - Bounded pty allocation with exponential backoff on resource exhaustion
//   - Session ceiling with an idle sweep before refusing new sessions
//   - Lossy UTF-8 decoding of output (invalid bytes become U+FFFD)
//   - Idle reaping on a fixed interval
//   - Remediation hints for exhausted pty or descriptor limits
//
// Architecture:
//   - Factory opens and sizes the pty, retrying per Options
//   - Manager is the registry; one mutex guards it, each session guards
//     its own activity timestamp (lock order: registry, then activity)
//   - Closing the master unblocks the pump, so Close and reaping stop it
//   - A shell that exits on its own removes its session and emits terminal-exit
//
// Example Usage:
//
//	manager := terminal.NewManager(terminal.DefaultOptions(), hub, logger)
//	go terminal.NewReaper(manager, 0, logger).Run(ctx)
//
//	id, err := manager.Create(ctx)
//	err = manager.Write(id, []byte("ls\n"))
//	err = manager.Resize(id, 40, 120)
//	snap := manager.Stats()
//	err = manager.Close(id)
//
// Tools:
//   - terminal.create_session: Spawn a shell in a new pty
//   - terminal.write: Send input to session
//   - terminal.resize: Resize terminal dimensions
//   - terminal.close: Terminate session and cleanup
//   - terminal.stats: Report live sessions
package terminal
