package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tunefetch/internal/config"
	"tunefetch/internal/download"
	"tunefetch/internal/logging"
	"tunefetch/internal/organizer"
	"tunefetch/internal/queue"
	"tunefetch/internal/tagging"
	"tunefetch/internal/workflow"
)

// QueueListener turns queue events into ntfy messages.
type QueueListener struct {
	workflow.NopListener

	sender  Sender
	cfg     config.Notifications
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewQueueListener builds a listener from the notifications config. The
// listener stays silent when no topic is configured.
func NewQueueListener(cfg config.Notifications, logger *slog.Logger) *QueueListener {
	var sender Sender
	if strings.TrimSpace(cfg.NtfyTopic) != "" {
		sender = NewNtfySender(cfg.NtfyTopic, time.Duration(cfg.RequestTimeout)*time.Second)
	}
	return NewQueueListenerWithSender(cfg, sender, logger)
}

// NewQueueListenerWithSender allows injecting a custom sender (used in tests).
func NewQueueListenerWithSender(cfg config.Notifications, sender Sender, logger *slog.Logger) *QueueListener {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QueueListener{
		sender:  sender,
		cfg:     cfg,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "notifications"),
	}
}

// OnEntryEnd reports finished items.
func (l *QueueListener) OnEntryEnd(item *queue.Item) {
	if item == nil {
		return
	}
	snap := item.Snapshot()
	switch snap.Status {
	case queue.StatusCompleted:
		if l.cfg.ItemComplete {
			l.dispatch(snap.ID, completedMessage(snap))
		}
	case queue.StatusFailed:
		if l.cfg.ItemFailed {
			l.dispatch(snap.ID, failedMessage(snap))
		}
	}
}

// OnQueueDrained reports the batch totals.
func (l *QueueListener) OnQueueDrained(summary workflow.DrainSummary) {
	if !l.cfg.QueueDrained || summary.Total == 0 {
		return
	}
	l.dispatch("", drainedMessage(summary))
}

// Wait blocks until in-flight messages are delivered or dropped.
func (l *QueueListener) Wait() {
	l.wg.Wait()
}

func (l *QueueListener) dispatch(itemID string, msg Message) {
	if l.sender == nil {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.sender.Send(ctx, msg); err != nil {
			logging.WarnWithContext(l.logger, "notification failed", "notification_failed",
				logging.String(logging.FieldItemID, itemID),
				logging.String("title", msg.Title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}

func completedMessage(snap queue.Snapshot) Message {
	body := fmt.Sprintf("Ready: %s", displayName(snap))
	if path, ok := snap.Results[queue.ResultKey(organizer.StageName, organizer.ResultPath)].(string); ok && path != "" {
		body = fmt.Sprintf("%s\nFile: %s", body, path)
	}
	return Message{
		Title: "tunefetch - Complete",
		Body:  body,
		Tags:  []string{"tunefetch", string(snap.Kind), "completed"},
	}
}

func failedMessage(snap queue.Snapshot) Message {
	reason := strings.TrimSpace(snap.ErrorMessage)
	if reason == "" {
		reason = "unknown"
	}
	return Message{
		Title:    "tunefetch - Failed",
		Body:     fmt.Sprintf("Failed: %s\n%s", displayName(snap), reason),
		Tags:     []string{"tunefetch", string(snap.Kind), "error"},
		Priority: "high",
	}
}

func drainedMessage(summary workflow.DrainSummary) Message {
	elapsed := summary.Elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	msg := Message{
		Title: "tunefetch - Queue Complete",
		Body:  fmt.Sprintf("%d items processed in %s", summary.Total, elapsed),
		Tags:  []string{"tunefetch", "queue", "completed"},
	}
	if summary.Failed > 0 {
		msg.Title = "tunefetch - Queue Complete (with errors)"
		msg.Body = fmt.Sprintf("%d succeeded, %d failed in %s", summary.Completed, summary.Failed, elapsed)
	}
	return msg
}

// displayName prefers the tagged name, then the page title, then the source.
func displayName(snap queue.Snapshot) string {
	artist, _ := snap.Results[queue.ResultKey(tagging.StageName, tagging.ResultArtist)].(string)
	title, _ := snap.Results[queue.ResultKey(tagging.StageName, tagging.ResultTitle)].(string)
	switch {
	case artist != "" && title != "":
		return artist + " - " + title
	case title != "":
		return title
	}
	if page, ok := snap.Results[queue.ResultKey(download.StageName, download.ResultTitle)].(string); ok && page != "" {
		return page
	}
	if snap.Kind == queue.SourceLocal {
		return filepath.Base(snap.Source)
	}
	return snap.Source
}
