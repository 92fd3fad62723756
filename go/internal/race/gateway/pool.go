package gateway

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Pool tracks every open connection by id and delivers frames to them. It
// satisfies race.Sender so rooms can reply without knowing about sockets.
type Pool struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewPool creates an empty connection pool
func NewPool() *Pool {
	return &Pool{conns: make(map[string]*Connection)}
}

func (p *Pool) add(c *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[c.ID] = c

	log.Debug().
		Str("connection_id", c.ID).
		Int("total_connections", len(p.conns)).
		Msg("connection registered")
}

func (p *Pool) remove(c *Connection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, ok := p.conns[c.ID]; !ok || current != c {
		return false
	}
	delete(p.conns, c.ID)
	return true
}

// Get returns the connection with the given id
func (p *Pool) Get(connID string) (*Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[connID]
	return c, ok
}

// Len returns the number of open connections
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Send queues frame for connID. It never blocks: a connection whose buffer
// is full is closed, which in turn removes it from its room.
func (p *Pool) Send(connID string, frame []byte) {
	c, ok := p.Get(connID)
	if !ok {
		return
	}
	if c.enqueue(frame) {
		return
	}

	log.Warn().
		Str("connection_id", connID).
		Msg("connection send buffer full, closing connection")
	c.close()
}

// closeAll closes every open connection
func (p *Pool) closeAll() int {
	p.mu.RLock()
	conns := make([]*Connection, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
	return len(conns)
}
