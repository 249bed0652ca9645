package runtime

import (
	"os"
	"sync"

	"github.com/moby/term"
)

// IsInteractive reports whether both stdin and stdout are terminals, i.e.
// whether the user can answer a prompt.
func IsInteractive() bool {
	_, inTerm := term.GetFdInfo(os.Stdin)
	_, outTerm := term.GetFdInfo(os.Stdout)
	return inTerm && outTerm
}

// TerminalGuard remembers the stdin terminal state so it can be put back
// after a prompt left it in raw mode (e.g. interrupted by a signal).
type TerminalGuard struct {
	mu       sync.Mutex
	inFd     uintptr
	oldState *term.State
}

// NewTerminalGuard creates an empty guard.
func NewTerminalGuard() *TerminalGuard {
	return &TerminalGuard{}
}

// Save records the current state of stdin if it is a TTY. Only the first
// call records anything.
func (g *TerminalGuard) Save() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.oldState != nil {
		return nil
	}

	inFd, isTerm := term.GetFdInfo(os.Stdin)
	if !isTerm {
		return nil
	}

	st, err := term.SaveState(inFd)
	if err != nil {
		return err
	}
	g.inFd = inFd
	g.oldState = st
	return nil
}

// Restore resets the terminal to the saved state.
// Safe to call multiple times.
func (g *TerminalGuard) Restore() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.oldState != nil {
		_ = term.RestoreTerminal(g.inFd, g.oldState)
		g.oldState = nil
	}
	g.inFd = 0
}
