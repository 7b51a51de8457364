// Package channel holds the outbound messaging adapters. Each adapter
// knows how to address a contact and deliver text through one provider.
package channel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/leadzap/leadzap-backend/internal/model"
)

// Adapter delivers one text message through a channel connection.
type Adapter interface {
	Send(ctx context.Context, conn *model.Connection, contact *model.Contact, text string) error
}

// Registry routes sends to the adapter matching the connection's
// channel, throttling per connection so a sweep cannot flood a
// provider.
type Registry struct {
	mu       sync.Mutex
	adapters map[string]Adapter
	limiters map[int]*rate.Limiter

	sendRate rate.Limit
	burst    int
}

// NewRegistry creates a registry with a per-connection rate limit.
func NewRegistry(perSecond float64, burst int) *Registry {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Registry{
		adapters: make(map[string]Adapter),
		limiters: make(map[int]*rate.Limiter),
		sendRate: rate.Limit(perSecond),
		burst:    burst,
	}
}

// Register installs an adapter for a channel name.
func (r *Registry) Register(channelName string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[channelName] = a
}

func (r *Registry) limiter(connectionID int) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[connectionID]
	if !ok {
		l = rate.NewLimiter(r.sendRate, r.burst)
		r.limiters[connectionID] = l
	}
	return l
}

// Send delivers text to the contact over the connection's channel.
func (r *Registry) Send(ctx context.Context, conn *model.Connection, contact *model.Contact, text string) error {
	r.mu.Lock()
	adapter, ok := r.adapters[conn.Channel]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no adapter registered for channel %q", conn.Channel)
	}

	if err := r.limiter(conn.ID).Wait(ctx); err != nil {
		return err
	}

	return adapter.Send(ctx, conn, contact, text)
}
