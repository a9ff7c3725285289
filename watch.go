package halyard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// watchDebounce coalesces change bursts (editors often write several events
// per save) into a single reload.
const watchDebounce = 100 * time.Millisecond

// Watch monitors sources for changes and reloads configuration when they
// fire. Returns the snapshot channel, the error channel, and the initial
// load error. Sources that return ErrWatchNotSupported are skipped; if no
// source supports watching, the channels close after the initial snapshot.
func (l *Loader[T]) Watch(ctx context.Context) (<-chan Snapshot[T], <-chan error, error) {
	initialCfg, err := l.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initial load failed: %w", err)
	}

	snapshotCh := make(chan Snapshot[T])
	errorCh := make(chan error)

	go l.watchLoop(ctx, initialCfg, snapshotCh, errorCh)

	return snapshotCh, errorCh, nil
}

// watchLoop emits the initial snapshot, fans source change events into one
// stream, and reloads (debounced) on every change. A failed reload is
// reported on the error channel; the previous configuration stays current.
func (l *Loader[T]) watchLoop(ctx context.Context, initialCfg *T, snapshotCh chan<- Snapshot[T], errorCh chan<- error) {
	defer close(snapshotCh)
	defer close(errorCh)

	version := int64(1)
	select {
	case snapshotCh <- Snapshot[T]{Config: initialCfg, Version: version, LoadedAt: time.Now(), Source: "initial"}:
	case <-ctx.Done():
		return
	}

	changes := l.mergeChangeStreams(ctx, errorCh)
	if changes == nil {
		return
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-changes:
			if !ok {
				return
			}
			cause := event.Cause

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				newCfg, err := l.Load(ctx)
				if err != nil {
					select {
					case errorCh <- fmt.Errorf("reload failed: %w", err):
					case <-ctx.Done():
					}
					return
				}

				version++
				select {
				case snapshotCh <- Snapshot[T]{Config: newCfg, Version: version, LoadedAt: time.Now(), Source: cause}:
				case <-ctx.Done():
				}
			})
		}
	}
}

// mergeChangeStreams starts a watcher per source and fans their events into
// a single channel, closed once every watcher has stopped. Returns nil when
// no source supports watching.
func (l *Loader[T]) mergeChangeStreams(ctx context.Context, errorCh chan<- error) <-chan ChangeEvent {
	var wg sync.WaitGroup
	merged := make(chan ChangeEvent)
	started := 0

	for _, source := range l.sources {
		ch, err := source.Watch(ctx)
		if err != nil {
			if errors.Is(err, ErrWatchNotSupported) {
				continue
			}
			select {
			case errorCh <- fmt.Errorf("watch source %s: %w", source.Name(), err):
			case <-ctx.Done():
			}
			continue
		}

		started++
		wg.Add(1)
		go func(ch <-chan ChangeEvent) {
			defer wg.Done()
			for event := range ch {
				select {
				case merged <- event:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	if started == 0 {
		return nil
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged
}
