package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/memtier/backend/internal/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectEvents 收集指定类型的仓库文件事件
func collectEvents(bus events.EventBus, types ...events.EventType) (*sync.Mutex, *[]*events.RepoFileEvent) {
	var mu sync.Mutex
	collected := make([]*events.RepoFileEvent, 0)

	bus.SubscribeMultiple(types, events.HandlerFunc(func(event events.Event) error {
		if fe, ok := event.(*events.RepoFileEvent); ok {
			mu.Lock()
			collected = append(collected, fe)
			mu.Unlock()
		}
		return nil
	}))

	return &mu, &collected
}

func TestFileWatcher_EmitsModifiedEvent(t *testing.T) {
	root := t.TempDir()

	bus := NewEventBus()
	defer bus.Close()

	wc := DefaultWatchConfig()
	wc.Roots = []string{root}
	wc.DebounceDelay = 50 * time.Millisecond

	fw, err := NewFileWatcher(wc, bus)
	require.NoError(t, err)

	require.NoError(t, fw.Start())
	defer fw.Stop()

	mu, collected := collectEvents(bus, events.RepoFileCreated, events.RepoFileModified)

	target := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0644))

	// 等待防抖窗口结束和异步分发
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(*collected) >= 1
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// 事件路径是相对仓库根的
	assert.Equal(t, "main.go", (*collected)[0].FilePath)
}

func TestFileWatcher_DebounceCollapsesRapidWrites(t *testing.T) {
	root := t.TempDir()

	bus := NewEventBus()
	defer bus.Close()

	wc := DefaultWatchConfig()
	wc.Roots = []string{root}
	wc.DebounceDelay = 200 * time.Millisecond

	fw, err := NewFileWatcher(wc, bus)
	require.NoError(t, err)

	require.NoError(t, fw.Start())
	defer fw.Stop()

	mu, collected := collectEvents(bus, events.RepoFileCreated, events.RepoFileModified)

	target := filepath.Join(root, "rapid.go")

	// 连续快速写入同一文件
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("package rapid\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	// 防抖窗口内的多次写入合并为一次事件
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, len(*collected), "rapid writes within debounce window should collapse into one event")
}

func TestFileWatcher_ConcurrentDirCreateAndWrites(t *testing.T) {
	root := t.TempDir()

	bus := NewEventBus()
	defer bus.Close()

	wc := DefaultWatchConfig()
	wc.Roots = []string{root}
	wc.DebounceDelay = time.Millisecond

	fw, err := NewFileWatcher(wc, bus)
	require.NoError(t, err)

	require.NoError(t, fw.Start())
	defer fw.Stop()

	mu, collected := collectEvents(bus, events.RepoFileCreated, events.RepoFileModified)

	// 新建子目录会在监听循环里写根映射，防抖定时器 goroutine
	// 同时读它来换算相对路径，二者必须能安全并发
	for i := 0; i < 50; i++ {
		subdir := filepath.Join(root, "pkg"+string(rune('a'+i%26)), "deep")
		require.NoError(t, os.MkdirAll(subdir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "churn.go"), []byte("package churn\n"), 0644))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(*collected) >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFileWatcher_IgnoresVCSDirectories(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0755))

	bus := NewEventBus()
	defer bus.Close()

	wc := DefaultWatchConfig()
	wc.Roots = []string{root}
	wc.DebounceDelay = 50 * time.Millisecond

	fw, err := NewFileWatcher(wc, bus)
	require.NoError(t, err)

	require.NoError(t, fw.Start())
	defer fw.Stop()

	mu, collected := collectEvents(bus, events.RepoFileCreated, events.RepoFileModified)

	// .git 下的写入不产生事件
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0644))

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, *collected)
}
