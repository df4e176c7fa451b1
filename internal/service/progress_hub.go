package service

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/invitebatch/internal/metrics"
	"github.com/d60-Lab/invitebatch/pkg/logger"
)

type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// ProgressEvent 批次聚合进度
type ProgressEvent struct {
	Type    EventType `json:"-"`
	Total   int       `json:"total"`
	Sent    int       `json:"sent"`
	Failed  int       `json:"failed"`
	Skipped int       `json:"skipped"`
	Message string    `json:"message,omitempty"`
}

// IsTerminal done/error 之后不会再有事件
func (e ProgressEvent) IsTerminal() bool { return e.Type == EventDone || e.Type == EventError }

// Frame 已编码的事件，同一次 Publish 的所有订阅者拿到同一份字节
type Frame struct {
	Event EventType
	Data  []byte
}

// EncodeFrame 编码一次
func EncodeFrame(ev ProgressEvent) Frame {
	data, _ := json.Marshal(ev)
	return Frame{Event: ev.Type, Data: data}
}

// Subscriber 单个实时连接
type Subscriber struct {
	id      string
	batchID string
	ch      chan Frame
	closed  bool
}

func (s *Subscriber) ID() string           { return s.id }
func (s *Subscriber) BatchID() string      { return s.batchID }
func (s *Subscriber) Frames() <-chan Frame { return s.ch }

// ProgressHub 按批次ID登记订阅者并扇出事件；不持久化、不回放
type ProgressHub struct {
	mu     sync.Mutex
	subs   map[string]map[string]*Subscriber
	buffer int
}

func NewProgressHub(buffer int) *ProgressHub {
	if buffer <= 0 {
		buffer = 64
	}
	return &ProgressHub{subs: make(map[string]map[string]*Subscriber), buffer: buffer}
}

// Subscribe 只会收到订阅之后发布的事件
func (h *ProgressHub) Subscribe(batchID string) *Subscriber {
	s := &Subscriber{id: uuid.New().String(), batchID: batchID, ch: make(chan Frame, h.buffer)}

	h.mu.Lock()
	set, ok := h.subs[batchID]
	if !ok {
		set = make(map[string]*Subscriber)
		h.subs[batchID] = set
	}
	set[s.id] = s
	h.mu.Unlock()

	metrics.StreamSubscribers.Inc()
	return s
}

// Unsubscribe 幂等；集合为空时删除整个批次条目
func (h *ProgressHub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	removed := h.removeLocked(s)
	h.mu.Unlock()
	if removed {
		metrics.StreamSubscribers.Dec()
	}
}

func (h *ProgressHub) removeLocked(s *Subscriber) bool {
	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	if set, ok := h.subs[s.batchID]; ok {
		delete(set, s.id)
		if len(set) == 0 {
			delete(h.subs, s.batchID)
		}
	}
	return true
}

// Publish 尽力投递；缓冲已满的订阅者被剔除，不影响其他订阅者。返回投递成功数
func (h *ProgressHub) Publish(batchID string, ev ProgressEvent) int {
	frame := EncodeFrame(ev)

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, s := range h.subs[batchID] {
		select {
		case s.ch <- frame:
			delivered++
		default:
			logger.Warn("progress subscriber too slow, evicting",
				zap.String("batch_id", batchID), zap.String("subscriber", s.id))
			if h.removeLocked(s) {
				metrics.StreamSubscribers.Dec()
			}
		}
	}
	return delivered
}

// SubscriberCount 当前订阅者数量
func (h *ProgressHub) SubscriberCount(batchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[batchID])
}

// BatchCount 登记中的批次数
func (h *ProgressHub) BatchCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
