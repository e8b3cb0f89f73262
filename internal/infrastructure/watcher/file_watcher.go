// Package watcher 提供仓库文件监听和事件分发功能
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/memtier/backend/internal/domain/events"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
)

// WatchConfig FileWatcher 配置
type WatchConfig struct {
	// Roots 受监听的仓库根目录
	Roots []string
	// DebounceDelay 防抖延迟
	DebounceDelay time.Duration
	// IgnoreDirs 跳过的目录名（VCS 元数据、依赖目录等）
	IgnoreDirs []string
}

// DefaultWatchConfig 返回默认配置
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		DebounceDelay: 500 * time.Millisecond,
		IgnoreDirs:    []string{".git", "node_modules", "vendor", ".idea", ".vscode"},
	}
}

// NewWatchConfig 从应用配置构建监听配置
func NewWatchConfig(cfg *config.SignalsConfig) WatchConfig {
	wc := DefaultWatchConfig()
	wc.Roots = cfg.WatchRoots
	return wc
}

// FileWatcher 仓库文件监听器
// 文件变化时发布 RepoFileEvent，信号服务订阅后使对应 key 的快照失效，
// 保证编辑之后不会再基于过期信号给出风险提示
type FileWatcher struct {
	config   WatchConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// rootOf 记录被监听路径归属的仓库根，用于换算相对路径
	// watchLoop 与防抖定时器 goroutine 并发访问，必须持 rootMu
	rootOf map[string]string
	rootMu sync.RWMutex

	// 防抖相关
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// 控制
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFileWatcher 创建文件监听器
func NewFileWatcher(config WatchConfig, eventBus events.EventBus) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "file_watcher"),
		rootOf:         make(map[string]string),
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动文件监听
func (fw *FileWatcher) Start() error {
	fw.logger.Info("Starting file watcher",
		"roots", fw.config.Roots,
	)

	// 添加监听目录
	for _, root := range fw.config.Roots {
		if err := fw.addRoot(root); err != nil {
			fw.logger.Warn("Failed to add watch root", "root", root, "error", err)
		}
	}

	// 启动事件处理循环
	fw.wg.Add(1)
	go fw.watchLoop()

	return nil
}

// Stop 停止文件监听
func (fw *FileWatcher) Stop() {
	fw.logger.Info("Stopping file watcher")

	close(fw.stopCh)
	fw.watcher.Close()
	fw.wg.Wait()

	// 取消所有防抖定时器
	fw.debounceMu.Lock()
	for _, timer := range fw.debounceTimers {
		timer.Stop()
	}
	fw.debounceMu.Unlock()

	fw.logger.Info("File watcher stopped")
}

// addRoot 递归添加仓库根目录及子目录监听
func (fw *FileWatcher) addRoot(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	return filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // 忽略无法访问的目录
		}

		if !info.IsDir() {
			return nil
		}

		if fw.shouldIgnore(info.Name()) && path != absRoot {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Debug("Failed to add directory to watch",
				"path", path,
				"error", err,
			)
			return nil
		}

		fw.rootMu.Lock()
		fw.rootOf[path] = absRoot
		fw.rootMu.Unlock()
		return nil
	})
}

// shouldIgnore 目录是否跳过
func (fw *FileWatcher) shouldIgnore(name string) bool {
	for _, ignored := range fw.config.IgnoreDirs {
		if name == ignored {
			return true
		}
	}
	return false
}

// watchLoop 事件监听循环
func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleFsEvent 处理文件系统事件（带防抖）
func (fw *FileWatcher) handleFsEvent(fsEvent fsnotify.Event) {
	// 新创建的子目录需要加入监听
	if fsEvent.Has(fsnotify.Create) {
		if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
			if !fw.shouldIgnore(filepath.Base(fsEvent.Name)) {
				if err := fw.watcher.Add(fsEvent.Name); err == nil {
					root := fw.resolveRoot(fsEvent.Name)
					fw.rootMu.Lock()
					fw.rootOf[fsEvent.Name] = root
					fw.rootMu.Unlock()
				}
			}
			return
		}
	}

	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	// 取消之前的定时器
	if timer, exists := fw.debounceTimers[fsEvent.Name]; exists {
		timer.Stop()
	}

	// 创建新的防抖定时器
	fw.debounceTimers[fsEvent.Name] = time.AfterFunc(fw.config.DebounceDelay, func() {
		fw.emitRepoFileEvent(fsEvent)

		// 清理定时器
		fw.debounceMu.Lock()
		delete(fw.debounceTimers, fsEvent.Name)
		fw.debounceMu.Unlock()
	})
}

// emitRepoFileEvent 发送仓库文件事件
func (fw *FileWatcher) emitRepoFileEvent(fsEvent fsnotify.Event) {
	// 确定事件类型
	var eventType events.EventType
	switch {
	case fsEvent.Has(fsnotify.Create):
		eventType = events.RepoFileCreated
	case fsEvent.Has(fsnotify.Write):
		eventType = events.RepoFileModified
	case fsEvent.Has(fsnotify.Remove), fsEvent.Has(fsnotify.Rename):
		eventType = events.RepoFileDeleted
	default:
		return
	}

	root := fw.resolveRoot(fsEvent.Name)
	relPath := fsEvent.Name
	if root != "" {
		if rel, err := filepath.Rel(root, fsEvent.Name); err == nil {
			relPath = filepath.ToSlash(rel)
		}
	}

	fw.eventBus.Publish(&events.RepoFileEvent{
		EventType: eventType,
		FilePath:  relPath,
		AbsPath:   fsEvent.Name,
		EventTime: time.Now(),
	})

	fw.logger.Debug("Repo file event emitted",
		"type", eventType,
		"path", relPath,
	)
}

// resolveRoot 找到路径归属的仓库根目录
func (fw *FileWatcher) resolveRoot(path string) string {
	fw.rootMu.RLock()
	defer fw.rootMu.RUnlock()

	dir := filepath.Dir(path)
	for {
		if root, ok := fw.rootOf[dir]; ok {
			return root
		}
		parent := filepath.Dir(dir)
		if parent == dir || !strings.Contains(dir, string(filepath.Separator)) {
			return ""
		}
		dir = parent
	}
}
