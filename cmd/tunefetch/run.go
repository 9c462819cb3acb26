package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tunefetch/internal/config"
	"tunefetch/internal/history"
	"tunefetch/internal/logging"
	"tunefetch/internal/notifications"
	"tunefetch/internal/queue"
	"tunefetch/internal/scratch"
	"tunefetch/internal/workflow"
)

// staleScratchAge is how old an earlier run's scratch files must be before a
// new run removes them.
const staleScratchAge = 24 * time.Hour

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Download web media into the library as tagged audio",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueue(cmd, ctx, queue.SourceRemote, args)
		},
	}
}

func newFilterCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <file>...",
		Short: "Tag and normalize local audio files in place",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				paths = append(paths, path)
			}
			return runQueue(cmd, ctx, queue.SourceLocal, paths)
		},
	}
}

// runQueue submits refs, processes them until the queue drains, and reports
// an error when any item failed.
func runQueue(cmd *cobra.Command, cc *commandContext, kind queue.SourceKind, refs []string) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	lock, err := acquireScratchLock(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	logger, logCloser, err := logging.NewRunLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	if swept := scratch.CleanStale(cmd.Context(), cfg.Paths.ScratchDir, staleScratchAge, logger); len(swept.Removed) > 0 {
		fmt.Fprintf(out, "Removed leftovers of %d earlier item(s) (%s)\n", len(swept.Removed), humanize.IBytes(uint64(swept.Freed)))
	}

	listeners := []workflow.Listener{newConsoleRenderer(out), workflow.NewLogListener(logger)}
	if store, err := history.Open(cfg.Paths.HistoryDB); err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
		)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: history disabled: %v\n", err)
	} else {
		defer store.Close()
		listeners = append(listeners, history.NewRecorder(store, logger))
	}
	notifier := notifications.NewQueueListener(cfg.Notifications, logger)
	listeners = append(listeners, notifier)
	defer notifier.Wait()

	mgr := workflow.NewManager(cfg, buildPipeline(cfg, logger), logger, workflow.WithListeners(listeners...))

	var items []*queue.Item
	for _, ref := range refs {
		item, err := mgr.Submit(ref, kind)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", ref, err)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return errors.New("nothing to process")
	}

	runCtx, stop := context.WithCancel(cmd.Context())
	defer stop()
	release := watchInterrupts(mgr, stop, out)
	defer release()

	if err := mgr.Start(runCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	waitErr := mgr.WaitIdle(runCtx)
	mgr.Stop()

	return queueOutcome(out, items, waitErr)
}

func queueOutcome(out io.Writer, items []*queue.Item, waitErr error) error {
	failed, unfinished := 0, 0
	for _, item := range items {
		switch item.Status() {
		case queue.StatusFailed:
			failed++
		case queue.StatusCompleted:
		default:
			unfinished++
		}
	}
	if unfinished > 0 {
		fmt.Fprintf(out, "Stopped with %d item(s) not processed\n", unfinished)
	}
	switch {
	case waitErr != nil && unfinished > 0:
		return context.Canceled
	case failed > 0:
		return fmt.Errorf("%d of %d item(s) failed", failed, len(items))
	}
	return nil
}

// canceller is the part of the manager the interrupt handler drives.
type canceller interface {
	CancelActive() bool
}

// watchInterrupts makes the first interrupt cancel the running item and the
// next one stop the whole run. The returned func detaches the handler.
func watchInterrupts(mgr canceller, stop context.CancelFunc, out io.Writer) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		interrupted := false
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				if !interrupted && sig == os.Interrupt && mgr.CancelActive() {
					interrupted = true
					fmt.Fprintln(out, "\nCancelling the current item; interrupt again to stop.")
					continue
				}
				fmt.Fprintln(out, "\nStopping.")
				stop()
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
