package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/fsnotify/fsnotify"
)

// ReloadFunc 配置文件变更后的回调，err 非 nil 表示重载失败（旧配置保留）
type ReloadFunc func(c *Config, err error)

// Watcher 监视配置文件并在变更后自动 Reload
type Watcher struct {
	cfg      *Config
	fs       *fsnotify.Watcher
	onReload ReloadFunc
	debounce time.Duration
	retry    *retry.Retrier

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	inflight sync.WaitGroup // 已调度或执行中的重载
}

// Watch 创建配置文件监视器，调用 Run 开始监视
//
// 监视的是文件所在目录而不是文件本身：编辑器和 ConfigMap 更新常以
// "写临时文件再 rename" 的方式保存，直接监视文件会丢失后续事件。
func (c *Config) Watch(onReload ReloadFunc, opts ...WatchOption) (*Watcher, error) {
	if c.path == "" {
		return nil, ErrNotFromFile
	}

	wo := watchOptions{
		debounce:      DefaultDebounce,
		retryAttempts: DefaultReloadAttempts,
		retryDelay:    DefaultReloadRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&wo)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", dir, err), fsw.Close())
	}

	w := &Watcher{
		cfg:      c,
		fs:       fsw,
		onReload: onReload,
		debounce: wo.debounce,
	}
	w.retry = retry.New(
		retry.Attempts(wo.retryAttempts),
		retry.Delay(wo.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return !w.isStopped() }),
	)
	return w, nil
}

// Run 阻塞处理文件事件，直到 ctx 取消或调用 Stop
func (w *Watcher) Run(ctx context.Context) error {
	name := filepath.Base(w.cfg.path)
	for {
		select {
		case <-ctx.Done():
			return w.Stop()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) == name &&
				ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.notify(fmt.Errorf("xconf: watch error: %w", err))
		}
	}
}

// schedule 重置防抖计时器
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.inflight.Done()
	}
	w.inflight.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()
		w.reload()
	})
}

// reload 重载配置，失败时按 WithReloadRetry 重试，Stop 后放弃
func (w *Watcher) reload() {
	if w.isStopped() {
		return
	}
	w.notify(w.retry.Do(w.cfg.Reload))
}

func (w *Watcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *Watcher) notify(err error) {
	if w.onReload != nil {
		w.onReload(w.cfg, err)
	}
}

// Stop 停止监视，可重复调用
//
// 返回前等待执行中的重载回调结束，之后不会再调用 onReload。
// 不能在 onReload 回调内调用。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.inflight.Wait()
		return nil
	}
	w.stopped = true
	if w.timer != nil && w.timer.Stop() {
		w.inflight.Done()
	}
	w.timer = nil
	w.mu.Unlock()

	err := w.fs.Close()
	w.inflight.Wait()
	return err
}
