package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder keeps the currently served model and a version number that changes
// on every swap.
type Holder struct {
	mu      sync.RWMutex
	model   Classifier
	version uint64
}

func NewHolder(model Classifier) *Holder {
	return &Holder{model: model, version: 1}
}

func (h *Holder) Current() (Classifier, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model, h.version
}

func (h *Holder) Swap(model Classifier) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.model = model
	h.version++
	return h.version
}

// Watcher reloads the model artifact into a Holder whenever the file changes.
type Watcher struct {
	holder    *Holder
	modelType string
	path      string
	logger    *zap.Logger

	// MaxRetry bounds how long a reload keeps retrying a file that is still
	// being written.
	MaxRetry time.Duration
}

func NewWatcher(holder *Holder, modelType, path string, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		holder:    holder,
		modelType: modelType,
		path:      path,
		logger:    logger,
		MaxRetry:  10 * time.Second,
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file so that atomic replace-by-rename is seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	w.logger.Info("watching model artifact", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.Reload(ctx); err != nil {
				w.logger.Error("model reload failed", zap.String("path", target), zap.Error(err))
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Reload(ctx context.Context) error {
	var model MLModel
	op := func() error {
		m, err := LoadModel(w.modelType, w.path)
		if err != nil {
			return err
		}
		model = m
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = w.MaxRetry
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return err
	}

	version := w.holder.Swap(model)
	w.logger.Info("model reloaded", zap.String("path", w.path), zap.Uint64("version", version))
	return nil
}
