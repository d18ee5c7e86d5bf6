package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/park285/cheese-duel/internal/obslog"
	"go.uber.org/zap"
)

const applyTimeout = 2 * time.Second

type op struct {
	open  bool
	entry Entry
}

// Publisher forwards lobby changes to an Index from its own goroutine.
// Open and Close never block: when the queue is full the change is dropped
// and logged.
type Publisher struct {
	idx Index
	ch  chan op

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

func NewPublisher(idx Index, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Publisher{idx: idx, ch: make(chan op, queueSize), done: make(chan struct{})}
}

// Start runs the apply loop until Stop is called.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go func() {
		defer close(p.done)
		for o := range p.ch {
			p.apply(o)
		}
	}()
}

// Stop rejects further changes, drains the queue and waits for the loop.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.ch)
	if !p.started {
		close(p.done)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) Open(e Entry) {
	if err := p.enqueue(op{open: true, entry: e}); err != nil {
		obslog.L().Warn("lobby_publish_error", zap.String("session_id", e.SessionID), zap.Error(err))
	}
}

func (p *Publisher) Close(sessionID string) {
	if err := p.enqueue(op{entry: Entry{SessionID: sessionID}}); err != nil {
		obslog.L().Warn("lobby_publish_error", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (p *Publisher) enqueue(o op) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.ch <- o:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Publisher) apply(o op) {
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	var err error
	if o.open {
		err = p.idx.Open(ctx, o.entry)
	} else {
		err = p.idx.Close(ctx, o.entry.SessionID)
	}
	if err != nil {
		obslog.L().Warn("lobby_publish_error",
			zap.String("session_id", o.entry.SessionID),
			zap.Bool("open", o.open),
			zap.Error(err))
	}
}
