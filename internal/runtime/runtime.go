package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"syscall"
	"time"

	hostappconfig "github.com/0xa1bed0/conda2docker/internal/apps/conda2docker/config"
	"github.com/0xa1bed0/conda2docker/internal/logs"
	"github.com/0xa1bed0/conda2docker/internal/ui"
)

type Runtime struct {
	runID string

	ctx        context.Context    // global context
	cancelFunc context.CancelFunc // cancelFunc of global context

	stopSignals context.CancelFunc

	mu sync.Mutex

	wg              sync.WaitGroup
	shutdownTimeout time.Duration

	term *TerminalGuard

	firstFailErr error

	// logWriter is the full log destination, nil until AttachRunLog.
	logWriter io.WriteCloser
}

func (rt *Runtime) CancelCtx() {
	rt.cancelFunc()
}

func (rt *Runtime) Ctx() context.Context {
	return rt.ctx
}

func (rt *Runtime) RunID() string {
	return rt.runID
}

func (rt *Runtime) Term() *TerminalGuard {
	return rt.term
}

type runtimeKey struct{}

// NewHostRuntime creates the process runtime. Its context is cancelled on
// SIGINT / SIGTERM or when Finalize runs.
func NewHostRuntime() *Runtime {
	baseCtx, cancel := context.WithCancel(context.Background())
	signalsCtx, stopSignals := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	rt := &Runtime{
		runID:           strconv.FormatInt(time.Now().Unix(), 10),
		cancelFunc:      cancel,
		stopSignals:     stopSignals,
		term:            NewTerminalGuard(),
		shutdownTimeout: 5 * time.Second,
	}
	// The runtime travels in the context only to reach cobra handlers.
	// Nothing below the cmd layer reads it from there.
	rt.ctx = context.WithValue(signalsCtx, runtimeKey{}, rt)
	return rt
}

func FromContext(ctx context.Context) *Runtime {
	v := ctx.Value(runtimeKey{})
	if v == nil {
		return nil
	}
	rt, _ := v.(*Runtime)
	return rt
}

func FromContextOrPanic(ctx context.Context) *Runtime {
	rt := FromContext(ctx)
	if rt == nil {
		panic(errors.New("runtime not found in this context"))
	}
	return rt
}

// AttachRunLog mirrors every log line, timestamped, into the run log file.
// Failure is not fatal: the run continues with terminal output only.
func (rt *Runtime) AttachRunLog() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.logWriter != nil {
		return
	}
	f, err := hostappconfig.RunLogPathOpen(rt.runID)
	if err != nil {
		logs.Warnf("can't open run log: %v", err)
		return
	}
	rt.logWriter = ui.NewTimestampWriter(f)
	logs.SetFullLogWriter(rt.logWriter)
	logs.Debugf("run %s log: %s", rt.runID, f.Name())
}

// GoNamed runs fn in a new goroutine, with panic recovery.
//
// Contract:
//   - A panic in fn is recovered, recorded as the first failure, and the
//     runtime context is cancelled.
//   - Runtime.Wait() waits for all such goroutines and returns the first error.
func (rt *Runtime) GoNamed(name string, fn func()) {
	if name == "" {
		name = "anonymous"
	}
	rt.wg.Go(func() {
		logs.Debugf("%s goroutine start", name)
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic in %s: %v\n%s", name, r, debug.Stack())
				rt.fail(err)
			}
		}()

		fn()
		logs.Debugf("%s goroutine finish", name)
	})
}

func (rt *Runtime) fail(err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.firstFailErr == nil {
		rt.firstFailErr = err
		// cancel everyone on first failure
		rt.cancelFunc()
	}
}

func (rt *Runtime) Wait() error {
	rt.wg.Wait()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.firstFailErr
}

// OnShutdown runs fn once the runtime context is cancelled, with a fresh
// context bounded by the shutdown timeout.
func (rt *Runtime) OnShutdown(fn func(ctx context.Context)) {
	rt.GoNamed("OnShutdown", func() {
		<-rt.ctx.Done()

		cleanupCtx, cancel := context.WithTimeout(context.Background(), rt.shutdownTimeout)
		defer cancel()

		fn(cleanupCtx)
	})
}

// Finalize handles both panic and normal exit.
// Call it in a defer at the top of main.
func (rt *Runtime) Finalize(appName, helpHint string, execErr *error) {
	if r := recover(); r != nil {
		if rt.term != nil {
			rt.term.Restore()
		}

		fmt.Fprintf(os.Stderr, "%s panic: %v\n", appName, r)
		fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
		fmt.Fprintln(os.Stderr, "")
		if helpHint != "" {
			fmt.Fprintln(os.Stderr, helpHint)
		}

		// cancel & wait so OnShutdown hooks run
		rt.shutdown()
		_ = rt.Wait()

		logs.Close()
		os.Exit(1)
	}

	if rt.term != nil {
		rt.term.Restore()
	}

	rt.shutdown()
	waitErr := rt.Wait()

	exitCode := 0
	if execErr != nil && *execErr != nil {
		logs.Errorf("%s error: %v", appName, *execErr)
		if helpHint != "" {
			fmt.Fprintln(os.Stderr, helpHint)
		}
		exitCode = 1
	} else if waitErr != nil {
		logs.Errorf("%s fail reason: %v", appName, waitErr)
		exitCode = 1
	}

	logs.Close()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func (rt *Runtime) shutdown() {
	rt.stopSignals()
	rt.CancelCtx()
}
