package ui

import (
	"bytes"
	"fmt"
	"strings"
)

type tailState struct {
	name          string
	buf           []string
	pending       []byte
	lastBoxHeight int
}

// Tail streams a subprocess output (e.g. docker build) into the logger.
type Tail interface {
	Write([]byte) (int, error)
	Close()
}

type tailHandle struct {
	l     *Logger
	state *tailState
}

// NewTail starts a new tail box, finalizing the previous one if still open.
func (l *Logger) NewTail(name string) Tail {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tail != nil {
		l.finalizeTailLocked()
	}

	l.tail = &tailState{name: name, buf: make([]string, 0, l.tailLines)}
	l.writeFullLocked(fmt.Sprintf("[TAIL %s] start\n", name))

	return &tailHandle{l: l, state: l.tail}
}

func (t *tailHandle) Write(p []byte) (int, error) {
	l := t.l
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tail != t.state {
		// tail was finalized; keep the full log complete anyway
		l.writeFullLocked(string(p))
		return len(p), nil
	}

	t.state.pending = append(t.state.pending, p...)
	for {
		i := bytes.IndexByte(t.state.pending, '\n')
		if i == -1 {
			break
		}
		line := strings.TrimSuffix(string(t.state.pending[:i]), "\r")
		t.state.pending = t.state.pending[i+1:]
		l.appendTailLineLocked(line)
	}

	return len(p), nil
}

func (t *tailHandle) Close() {
	l := t.l
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tail != t.state {
		return
	}
	if len(t.state.pending) > 0 {
		l.appendTailLineLocked(string(t.state.pending))
		t.state.pending = nil
	}
	l.finalizeTailLocked()
}

// assumes l.mu is held.
func (l *Logger) appendTailLineLocked(line string) {
	l.writeFullLocked(fmt.Sprintf("[TAIL %s] %s\n", l.tail.name, line))

	if !l.enableTail {
		if l.logLevel >= LogLevelInfo {
			fmt.Fprintln(l.out, line)
		}
		return
	}

	l.tail.buf = append(l.tail.buf, line)
	if len(l.tail.buf) > l.tailLines {
		l.tail.buf = l.tail.buf[len(l.tail.buf)-l.tailLines:]
	}

	l.clearTailBoxLocked()
	l.drawTailBoxLocked()
}

func renderTailBox(title string, lines []string, s styles) string {
	inner := s.tailTitle.Render(title)
	if len(lines) > 0 {
		inner += "\n" + strings.Join(lines, "\n")
	}
	return s.tailBox.Render(inner)
}

// clearTailBoxLocked erases the live box from the terminal. assumes l.mu is held.
func (l *Logger) clearTailBoxLocked() {
	if l.tail == nil || l.tail.lastBoxHeight <= 0 {
		return
	}
	h := l.tail.lastBoxHeight

	fmt.Fprintf(l.out, "\x1b[%dF", h)
	for range h {
		fmt.Fprint(l.out, "\x1b[2K\r\n")
	}
	fmt.Fprintf(l.out, "\x1b[%dF", h)

	l.tail.lastBoxHeight = 0
}

// drawTailBoxLocked prints the live box at the cursor. assumes l.mu is held.
func (l *Logger) drawTailBoxLocked() {
	if !l.enableTail || l.tail == nil || len(l.tail.buf) == 0 {
		return
	}
	box := renderTailBox(l.tail.name, l.tail.buf, l.style)
	fmt.Fprintln(l.out, box)
	l.tail.lastBoxHeight = strings.Count(box, "\n") + 1
}

// finalizeTailLocked leaves a static copy of the last lines on screen and
// closes the tail. assumes l.mu is held.
func (l *Logger) finalizeTailLocked() {
	if l.tail == nil {
		return
	}

	l.clearTailBoxLocked()
	if l.enableTail && len(l.tail.buf) > 0 {
		fmt.Fprintln(l.out, renderTailBox(l.tail.name, l.tail.buf, l.style))
	}
	l.writeFullLocked(fmt.Sprintf("[TAIL %s] end\n", l.tail.name))

	l.tail = nil
}
