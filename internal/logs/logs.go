package logs

import (
	"io"
	"os"
	"sync"

	"github.com/0xa1bed0/conda2docker/internal/ui"
)

var (
	initOnce sync.Once
	logger   *ui.Logger
)

func Init() {
	initOnce.Do(func() {
		opts := ui.Options{
			Out:        os.Stderr,
			TailLines:  12,
			EnableTail: false,
			LogLevel:   ui.LogLevelWarn,
		}
		logger = ui.New(opts)
		logger.Debug("logs initialized with opts %v", opts)
	})
}

func L() *ui.Logger {
	Init()
	return logger
}

func SetDebugVerbosity(cnt int) {
	switch {
	case cnt <= 0:
		L().SetLogLevel(ui.LogLevelWarn)
	case cnt == 1:
		L().SetLogLevel(ui.LogLevelDebug)
	default:
		L().SetLogLevel(ui.LogLevelDebugVerbose)
	}
}

func SetFullLogWriter(w io.Writer) {
	L().SetFullLogWriter(w)
}

func Banner(title string) {
	L().Banner(title)
}

func Infof(format string, args ...any) {
	L().Info(format, args...)
}

func Debugf(format string, args ...any) {
	L().Debug(format, args...)
}

func Warnf(format string, args ...any) {
	L().Warn(format, args...)
}

func Errorf(format string, args ...any) {
	L().Error(format, args...)
}

func NewTailBox(name string) ui.Tail {
	return L().NewTail(name)
}

func PromptConfirm(text string, defaultAnswer bool) (bool, error) {
	return L().Confirm(text, defaultAnswer)
}

// Close closes the underlying log file, if any.
func Close() error {
	if logger != nil {
		return logger.Close()
	}
	return nil
}

// DebugWriter adapts line oriented output (e.g. library loggers) to Debugf.
func DebugWriter() io.Writer {
	return L().DebugWriter()
}
