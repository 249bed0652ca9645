package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelDebug
	LogLevelDebugVerbose
)

const timestampLayout = "2006-01-02T15:04:05.000"

// Options configures the Logger.
type Options struct {
	// Out receives user-facing logs. Defaults to os.Stderr so rendered
	// Dockerfiles on stdout stay clean.
	Out io.Writer

	// FullLogWriter, if non-nil, receives every log line in plain text.
	FullLogWriter io.Writer

	// TailLines is how many lines the live tail box keeps. Defaults to 5.
	TailLines int

	// EnableTail draws tail lines inside a redrawn box instead of printing them.
	EnableTail bool

	// LogLevel controls what reaches Out:
	// error < info < warn < debug < debugVerbose.
	// Everything always reaches the full log.
	LogLevel LogLevel
}

// Logger prints leveled, styled lines and manages a single live tail box.
type Logger struct {
	out   io.Writer
	full  io.Writer
	mu    sync.Mutex
	style styles

	logLevel LogLevel

	// pending holds lines written before a full log writer is attached.
	pending []string

	tail       *tailState
	tailLines  int
	enableTail bool
}

type styles struct {
	logInfo   lipgloss.Style
	logWarn   lipgloss.Style
	logError  lipgloss.Style
	banner    lipgloss.Style
	tailBox   lipgloss.Style
	tailTitle lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		logInfo:   lipgloss.NewStyle(),
		logWarn:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		logError:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		banner:    lipgloss.NewStyle().Bold(true).Border(lipgloss.NormalBorder()).Padding(0, 1).Margin(1, 0),
		tailBox:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		tailTitle: lipgloss.NewStyle().Bold(true),
	}
}

// New creates a new Logger.
func New(opts Options) *Logger {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 5
	}

	return &Logger{
		out:        opts.Out,
		full:       opts.FullLogWriter,
		style:      defaultStyles(),
		tailLines:  opts.TailLines,
		enableTail: opts.EnableTail,
		logLevel:   opts.LogLevel,
	}
}

// SetFullLogWriter attaches the full log destination and flushes buffered
// lines into it. A second call is ignored.
func (l *Logger) SetFullLogWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full != nil {
		return
	}

	l.full = w
	for _, line := range l.pending {
		io.WriteString(l.full, line)
	}
	l.pending = nil
}

// Close finalizes any active tail and closes the full log if it's an io.Closer.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tail != nil {
		l.finalizeTailLocked()
	}

	if c, ok := l.full.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logLevel = logLevel
}

func (l *Logger) LogLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logLevel
}

func (l *Logger) Error(format string, args ...any) {
	l.printLog(LogLevelError, "ERR ", l.style.logError, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.printLog(LogLevelInfo, "INFO", l.style.logInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.printLog(LogLevelWarn, "WARN", l.style.logWarn, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.printLog(LogLevelDebug, "DEBG", l.style.logInfo, format, args...)
}

// Banner prints a boxed title.
func (l *Logger) Banner(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writeFullLocked(fmt.Sprintf("\n===== %s =====\n\n", title))

	l.clearTailBoxLocked()
	fmt.Fprintln(l.out, l.style.banner.Render(title))
	l.drawTailBoxLocked()
}

// withCaller prefixes msg with the log call site. Frames: withCaller,
// printLog, Logger method, logs facade, caller.
func withCaller(msg string) string {
	pc, file, line, ok := runtime.Caller(4)
	if !ok {
		return msg
	}
	fnName := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		fnName = strings.TrimPrefix(fn.Name(), "github.com/0xa1bed0/conda2docker/")
	}
	return fmt.Sprintf("[%s:%d %s] %s", filepath.Base(file), line, fnName, msg)
}

func (l *Logger) printLog(level LogLevel, tag string, style lipgloss.Style, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.logLevel >= LogLevelDebugVerbose {
		msg = withCaller(msg)
	}

	l.writeFullLocked(fmt.Sprintf("[%s] %s\n", tag, msg))

	if level > l.logLevel {
		return
	}

	stdoutLine := fmt.Sprintf("[%s] [%s] %s", time.Now().Format(timestampLayout), tag, msg)

	l.clearTailBoxLocked()
	fmt.Fprintln(l.out, style.Render(stdoutLine))
	l.drawTailBoxLocked()
}

// writeFullLocked writes to the full log or buffers until one is attached.
// Must be called with l.mu held.
func (l *Logger) writeFullLocked(line string) {
	if l.full != nil {
		io.WriteString(l.full, line)
		return
	}
	l.pending = append(l.pending, line)
}

// TimestampWriter prefixes every written chunk with a timestamp.
type TimestampWriter struct {
	w io.Writer
}

func NewTimestampWriter(w io.Writer) *TimestampWriter {
	return &TimestampWriter{w: w}
}

func (tw *TimestampWriter) Write(p []byte) (int, error) {
	prefix := "[" + time.Now().Format(timestampLayout) + "] "
	if _, err := io.WriteString(tw.w, prefix); err != nil {
		return 0, err
	}
	return tw.w.Write(p)
}

func (tw *TimestampWriter) Close() error {
	if c, ok := tw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
