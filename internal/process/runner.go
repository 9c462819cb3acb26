package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tunefetch/internal/services"
)

const (
	maxLineBytes    = 1 << 20
	stderrTailBytes = 16 << 10
	waitDelay       = 5 * time.Second
)

// Command describes one external process invocation.
type Command struct {
	Binary string
	Args   []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
}

// String renders the command line for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Binary)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Runner executes a command, feeding stdout lines to observers, and returns
// the exit code.
type Runner interface {
	Run(ctx context.Context, cmd Command, observers ...LineObserver) (int, error)
}

// ExitError reports a process that ran to completion with a non-zero status.
type ExitError struct {
	Binary string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Binary, e.Code)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + lastLine(tail)
	}
	return msg
}

// Unwrap classifies the failure as services.ErrNonZeroExit.
func (e *ExitError) Unwrap() error {
	return services.ErrNonZeroExit
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct{}

// NewExecRunner returns a Runner that spawns real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run spawns cmd and blocks until it exits or ctx is done. On cancellation the
// whole process group is killed and reaped before Run returns.
func (r *ExecRunner) Run(ctx context.Context, command Command, observers ...LineObserver) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	stage, _ := services.StageFromContext(ctx)
	op := "run " + command.Binary
	if err := ctx.Err(); err != nil {
		return -1, contextError(ctx, stage, op, err)
	}

	cmd := exec.CommandContext(ctx, command.Binary, command.Args...)
	cmd.Dir = command.Dir
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	configureProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, services.Wrap(services.ErrSpawnFailed, stage, op, "open stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, services.Wrap(services.ErrSpawnFailed, stage, op, "open stderr", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, services.Wrap(services.ErrSpawnFailed, stage, op, "start process", err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		// An observer panicked; do not leave the tool running.
		killProcessGroup(cmd)
		_ = cmd.Wait()
	}()

	tail := newTailBuffer(stderrTailBytes)
	var drain errgroup.Group
	drain.Go(func() error {
		_, err := io.Copy(tail, stderr)
		return err
	})

	scanErr := scanLines(stdout, observers)
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}
	_ = drain.Wait()
	waitErr := cmd.Wait()
	finished = true

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, contextError(ctx, stage, op, ctxErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			return code, &ExitError{Binary: command.Binary, Code: code, Stderr: tail.String()}
		}
		if !errors.Is(waitErr, exec.ErrWaitDelay) {
			return -1, services.Wrap(services.ErrExternalTool, stage, op, "wait for process", waitErr)
		}
	}
	if scanErr != nil {
		return cmd.ProcessState.ExitCode(), services.Wrap(services.ErrExternalTool, stage, op, "read stdout", scanErr)
	}
	return cmd.ProcessState.ExitCode(), nil
}

func scanLines(r io.Reader, observers []LineObserver) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		for _, observer := range observers {
			if observer != nil {
				observer.OnLine(line)
			}
		}
	}
	return scanner.Err()
}

func contextError(ctx context.Context, stage, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stage, op, "deadline exceeded", err)
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		err = cause
	}
	return services.Wrap(services.ErrCancelled, stage, op, "process killed", err)
}

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
