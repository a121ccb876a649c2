package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/EzzalddeenAli/recticket/realtime"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKey = "recticket:online_agents"
	presenceTTL = 24 * time.Hour
)

// Presence 在线坐席列表，Hash 的 field 为 user id，value 为用户信息 JSON
type Presence struct {
	rdb *redis.Client
	key string
}

func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb, key: presenceKey}
}

func (p *Presence) Online(ctx context.Context, user realtime.OnlineUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	field := strconv.FormatUint(uint64(user.UserID), 10)
	pipe := p.rdb.TxPipeline()
	pipe.HSet(ctx, p.key, field, data)
	pipe.Expire(ctx, p.key, presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add user %d to presence: %w", user.UserID, err)
	}
	return nil
}

func (p *Presence) Offline(ctx context.Context, userID uint) error {
	field := strconv.FormatUint(uint64(userID), 10)
	if err := p.rdb.HDel(ctx, p.key, field).Err(); err != nil {
		return fmt.Errorf("failed to remove user %d from presence: %w", userID, err)
	}
	return nil
}

// OnlineUsers 按上线时间排序
func (p *Presence) OnlineUsers(ctx context.Context) ([]realtime.OnlineUser, error) {
	result, err := p.rdb.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch online users: %w", err)
	}
	return decodeOnline(result), nil
}

func decodeOnline(result map[string]string) []realtime.OnlineUser {
	users := make([]realtime.OnlineUser, 0, len(result))
	for _, data := range result {
		var u realtime.OnlineUser
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Since.Equal(users[j].Since) {
			return users[i].UserID < users[j].UserID
		}
		return users[i].Since.Before(users[j].Since)
	})
	return users
}
