// Package batch runs enrichment batches: one at a time process-wide, one
// worker subprocess per item, every output line forwarded to the live log
// channel in order.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"curio/internal/config"
	"curio/internal/joblock"
	"curio/internal/logging"
	"curio/internal/logstream"
	"curio/internal/resolve"
)

var (
	// ErrBatchActive is returned when a batch is already running, in this
	// process or any other sharing the lock file.
	ErrBatchActive = errors.New("a batch is already running")
	// ErrNoItems is returned when a submission contains nothing to process.
	ErrNoItems = errors.New("no items to process")
)

var commandContext = exec.CommandContext

// Orchestrator owns the batch lifecycle: lock acquisition, sequential item
// subprocesses, log forwarding, and cleanup.
type Orchestrator struct {
	cfg     *config.Config
	cfgPath string
	lock    *joblock.Lock
	channel *logstream.Channel
	logger  *slog.Logger

	mu     sync.Mutex
	active bool
	wg     sync.WaitGroup

	sleep func(time.Duration)
}

// New constructs an Orchestrator. cfgPath is forwarded to worker
// subprocesses so they load the same configuration.
func New(cfg *config.Config, cfgPath string, lock *joblock.Lock, channel *logstream.Channel, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		cfgPath: cfgPath,
		lock:    lock,
		channel: channel,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Channel exposes the live log channel for stream consumers.
func (o *Orchestrator) Channel() *logstream.Channel {
	return o.channel
}

// Active reports whether this process is currently running a batch.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Running reports whether any process holds the batch lock.
func (o *Orchestrator) Running() bool {
	if o.Active() {
		return true
	}
	held, err := o.lock.Probe()
	if err != nil {
		o.logger.Warn("lock probe failed", logging.Error(err))
		return false
	}
	return held
}

// Submit starts a batch over the supplied locators and returns its run ID.
// It fails fast with ErrBatchActive when another batch holds the lock, and
// with ErrNoItems when nothing remains after trimming blanks.
func (o *Orchestrator) Submit(ctx context.Context, items []string) (string, error) {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	if len(cleaned) == 0 {
		return "", ErrNoItems
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		return "", ErrBatchActive
	}
	acquired, err := o.lock.TryAcquire()
	if err != nil {
		return "", fmt.Errorf("acquire batch lock: %w", err)
	}
	if !acquired {
		return "", ErrBatchActive
	}

	runID := uuid.NewString()
	o.channel.Reset()
	o.active = true
	o.wg.Add(1)
	// The batch outlives the submitting request.
	go o.run(context.WithoutCancel(ctx), runID, cleaned)
	return runID, nil
}

// Wait blocks until the current batch, if any, finishes.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, runID string, items []string) {
	defer o.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("batch panicked", logging.String("run_id", runID), slog.Any("panic", r))
			o.channel.Publishf("Batch aborted: %v", r)
		}
		o.mu.Lock()
		o.active = false
		o.mu.Unlock()
		// Release before the terminal event so a submission made the
		// moment the stream ends is never bounced by a stale lock.
		o.lock.Release()
		o.channel.PublishTerminal()
	}()

	o.logger.Info("batch started", logging.String("run_id", runID), logging.Int("items", len(items)))
	o.channel.Publishf("Starting batch of %d item(s).", len(items))

	for i, item := range items {
		o.channel.Publishf("--- Processing item %d of %d: %s ---", i+1, len(items), resolve.DisplayName(item))
		if err := o.runItem(ctx, item); err != nil {
			o.logger.Error("item failed", logging.String("run_id", runID), logging.String("item", item), logging.Error(err))
			o.channel.Publishf("Item failed: %v", err)
		}
		if i < len(items)-1 {
			o.pause()
		}
	}

	o.channel.Publishf("Batch complete.")
	o.logger.Info("batch finished", logging.String("run_id", runID))
}

// runItem spawns one worker subprocess and forwards its merged output line
// by line.
func (o *Orchestrator) runItem(ctx context.Context, item string) error {
	cmd, err := o.workerCommand(ctx, item)
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		o.channel.Publish(logstream.Event{Text: scanner.Text()})
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("worker exited: %w", err)
	}
	if scanErr != nil {
		return fmt.Errorf("read worker output: %w", scanErr)
	}
	return nil
}

func (o *Orchestrator) workerCommand(ctx context.Context, item string) (*exec.Cmd, error) {
	binary := strings.TrimSpace(o.cfg.Enricher.WorkerBinary)
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate worker binary: %w", err)
		}
		binary = exe
	}
	args := []string{"worker", item}
	if o.cfgPath != "" {
		args = append(args, "--config", o.cfgPath)
	}
	if model := strings.TrimSpace(o.cfg.LLM.Model); model != "" {
		args = append(args, "--model", model)
	}
	return commandContext(ctx, binary, args...), nil //nolint:gosec
}

func (o *Orchestrator) pause() {
	delay := o.pauseDuration()
	if delay > 0 {
		o.sleep(delay)
	}
}

func (o *Orchestrator) pauseDuration() time.Duration {
	enricher := o.cfg.Enricher
	if enricher.PacingSeconds > 0 {
		return time.Duration(enricher.PacingSeconds) * time.Second
	}
	minSec, maxSec := enricher.PacingJitterMinSeconds, enricher.PacingJitterMaxSeconds
	if minSec <= 0 && maxSec <= 0 {
		return 0
	}
	if maxSec < minSec {
		maxSec = minSec
	}
	return time.Duration(minSec+rand.Intn(maxSec-minSec+1)) * time.Second
}
