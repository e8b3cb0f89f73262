package signals

import (
	"testing"
	"time"

	"github.com/memtier/backend/internal/domain/events"
	"github.com/memtier/backend/internal/domain/signal"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/signalcache"
	"github.com/memtier/backend/internal/infrastructure/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSignals(t *testing.T) (*Service, *signalcache.Cache, events.EventBus) {
	cache := signalcache.NewCache(&config.SignalsConfig{
		DefaultTTLSeconds: 3600,
		MaxEntries:        64,
	})
	bus := watcher.NewEventBus()
	t.Cleanup(bus.Close)

	svc := NewService(cache, bus)
	svc.Start()
	t.Cleanup(svc.Stop)

	return svc, cache, bus
}

func TestService_ReportAndGet(t *testing.T) {
	svc, _, _ := newTestSignals(t)

	svc.Report("internal/api/handler.go", map[string]interface{}{"churn_score": 0.9}, 60)

	snap, ok := svc.Get("internal/api/handler.go")
	require.True(t, ok)
	assert.Equal(t, 0.9, snap.ChurnScore())

	_, ok = svc.Get("missing")
	assert.False(t, ok)
}

func TestService_RepoFileEventInvalidates(t *testing.T) {
	svc, _, bus := newTestSignals(t)

	svc.Report("internal/api/handler.go", map[string]interface{}{"churn_score": 0.9}, 3600)
	svc.Report(signal.GlobalKey, map[string]interface{}{"build_ok": true}, 3600)
	svc.Report("internal/db/store.go", map[string]interface{}{"churn_score": 0.1}, 3600)

	// 文件修改事件到达后，对应 key 和全局 key 立即失效
	bus.Publish(&events.RepoFileEvent{
		EventType: events.RepoFileModified,
		FilePath:  "internal/api/handler.go",
		EventTime: time.Now(),
	})

	assert.Eventually(t, func() bool {
		_, ok := svc.Get("internal/api/handler.go")
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, ok := svc.Get(signal.GlobalKey)
	assert.False(t, ok, "global snapshot should be invalidated too")

	// 无关文件的快照不受影响
	_, ok = svc.Get("internal/db/store.go")
	assert.True(t, ok)
}

func TestService_SnapshotsSkipStale(t *testing.T) {
	svc, cache, _ := newTestSignals(t)

	now := time.Now()
	cache.SetNowFunc(func() time.Time { return now })

	svc.Report("fresh.go", map[string]interface{}{"v": 1}, 120)
	svc.Report("stale.go", map[string]interface{}{"v": 2}, 60)

	now = now.Add(61 * time.Second)

	snapshots := svc.Snapshots()
	require.Len(t, snapshots, 1)
	assert.Equal(t, "fresh.go", snapshots[0].Key)
	assert.Equal(t, 1, svc.Count())
}

func TestService_StateVersionAdvances(t *testing.T) {
	svc, _, _ := newTestSignals(t)

	v0 := svc.StateVersion()
	svc.Report("a.go", map[string]interface{}{"v": 1}, 60)
	v1 := svc.StateVersion()
	svc.Invalidate("a.go")
	v2 := svc.StateVersion()

	assert.Greater(t, v1, v0)
	assert.Greater(t, v2, v1)
}
