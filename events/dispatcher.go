package events

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/sirupsen/logrus"
)

// Sink 事件的最终去向：本地 websocket hub，或者 redis/kafka 中继
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// Publisher 服务调用方只依赖这个接口
type Publisher interface {
	Publish(box Outbox)
}

const deliverTimeout = 5 * time.Second

// Dispatcher 有界队列 + 固定数量的 worker。同名事件总是落到同一个 worker，
// 保证同一类实体的事件按发布顺序投递
type Dispatcher struct {
	queues []chan Event
	sinks  []Sink
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(queueSize, workers int, sinks ...Sink) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}
	d := &Dispatcher{
		queues: make([]chan Event, workers),
		sinks:  sinks,
	}
	for i := range d.queues {
		d.queues[i] = make(chan Event, queueSize/workers)
		d.wg.Add(1)
		go d.worker(d.queues[i])
	}
	return d
}

// Publish 不阻塞调用方，队列满时丢弃并记录日志
func (d *Dispatcher) Publish(box Outbox) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.App().WithField("events", len(box)).Warn("dispatcher closed, dropping events")
		return
	}
	for _, e := range box {
		select {
		case d.queues[d.shard(e)] <- e:
		default:
			logger.App().WithFields(logrus.Fields{
				"event":  e.Name,
				"action": e.Action(),
			}).Error("event queue full, dropping event")
		}
	}
}

func (d *Dispatcher) shard(e Event) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(e.Name))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) worker(queue chan Event) {
	defer d.wg.Done()
	for e := range queue {
		for _, sink := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
			if err := sink.Deliver(ctx, e); err != nil {
				logger.App().WithError(err).WithFields(logrus.Fields{
					"event":  e.Name,
					"action": e.Action(),
				}).Error("failed to deliver event")
			}
			cancel()
		}
	}
}

// Close 停止接收新事件，等待已入队的事件投递完
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
