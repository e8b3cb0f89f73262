package watcher

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/memtier/backend/internal/domain/events"
	"github.com/stretchr/testify/assert"
)

func TestEventBus_Subscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var received atomic.Bool

	unsub := bus.Subscribe(events.RepoFileModified, events.HandlerFunc(func(event events.Event) error {
		received.Store(true)
		return nil
	}))
	defer unsub()

	// 发布事件
	bus.Publish(&events.RepoFileEvent{
		EventType: events.RepoFileModified,
		FilePath:  "internal/api/handler.go",
		EventTime: time.Now(),
	})

	// 等待异步处理
	time.Sleep(100 * time.Millisecond)

	assert.True(t, received.Load(), "handler should have received the event")
}

func TestEventBus_MultipleHandlers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var count atomic.Int32

	// 注册多个处理器
	for i := 0; i < 3; i++ {
		unsub := bus.Subscribe(events.RepoFileCreated, events.HandlerFunc(func(event events.Event) error {
			count.Add(1)
			return nil
		}))
		defer unsub()
	}

	bus.Publish(&events.RepoFileEvent{
		EventType: events.RepoFileCreated,
		FilePath:  "main.go",
		EventTime: time.Now(),
	})

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(3), count.Load(), "all handlers should have received the event")
}

func TestEventBus_SubscribeMultiple(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var count atomic.Int32

	unsub := bus.SubscribeMultiple(
		[]events.EventType{events.RepoFileCreated, events.RepoFileDeleted},
		events.HandlerFunc(func(event events.Event) error {
			count.Add(1)
			return nil
		}),
	)
	defer unsub()

	bus.Publish(&events.RepoFileEvent{EventType: events.RepoFileCreated, EventTime: time.Now()})
	bus.Publish(&events.RepoFileEvent{EventType: events.RepoFileDeleted, EventTime: time.Now()})
	// 未订阅的类型不触发
	bus.Publish(&events.RepoFileEvent{EventType: events.RepoFileModified, EventTime: time.Now()})

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(2), count.Load())
}

func TestEventBus_HandlerErrorDoesNotPanic(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var called atomic.Bool

	bus.Subscribe(events.SignalInvalidated, events.HandlerFunc(func(event events.Event) error {
		called.Store(true)
		return errors.New("handler failed")
	}))

	// 处理器返回错误只记录日志，不影响发布方
	bus.Publish(&events.RepoFileEvent{EventType: events.SignalInvalidated, EventTime: time.Now()})

	time.Sleep(100 * time.Millisecond)
	assert.True(t, called.Load())
}

func TestEventBus_CloseStopsDelivery(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	bus.Subscribe(events.RepoFileModified, events.HandlerFunc(func(event events.Event) error {
		count.Add(1)
		return nil
	}))

	bus.Close()

	// 关闭后发布被忽略
	bus.Publish(&events.RepoFileEvent{EventType: events.RepoFileModified, EventTime: time.Now()})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(0), count.Load())
}
