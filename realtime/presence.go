package realtime

import (
	"context"
	"sort"
	"sync"
)

// LocalPresence 未配置 Redis 时使用，只记录本实例的连接
type LocalPresence struct {
	mu    sync.RWMutex
	users map[uint]OnlineUser
}

func NewLocalPresence() *LocalPresence {
	return &LocalPresence{users: make(map[uint]OnlineUser)}
}

func (p *LocalPresence) Online(_ context.Context, user OnlineUser) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[user.UserID] = user
	return nil
}

func (p *LocalPresence) Offline(_ context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.users, userID)
	return nil
}

func (p *LocalPresence) OnlineUsers(_ context.Context) ([]OnlineUser, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]OnlineUser, 0, len(p.users))
	for _, u := range p.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out, nil
}
