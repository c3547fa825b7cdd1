package redis

import (
	"context"
	"fmt"
	"time"

	"canalyzer/internal/models"
	"canalyzer/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Expired tickets are kept around this long so a late click reports
// "expired" instead of "invalid".
const expiredRetention = 24 * time.Hour

const (
	ticketKeyPrefix = "verification:ticket:"
	userKeyPrefix   = "verification:user:"
)

const (
	consumeNotFound int64 = iota
	consumeOK
	consumeExpired
)

// consumeScript reads and deletes a ticket in one step.
// KEYS[1] ticket key, ARGV[1] unix now, ARGV[2] user set prefix.
var consumeScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'user_id', 'expires_at')
if not v[1] then
	return {0, ''}
end
if tonumber(v[2]) < tonumber(ARGV[1]) then
	return {2, ''}
end
redis.call('DEL', KEYS[1])
redis.call('SREM', ARGV[2] .. v[1], KEYS[1])
return {1, v[1]}
`)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, url string) (*RedisRepo, error) {
	const op = "storage.redis.New"

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{client: client}, nil
}

func NewWithClient(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func ticketKey(tokenHash string) string {
	return ticketKeyPrefix + tokenHash
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}

// SaveTicket stores the ticket hash and indexes it under its owner.
func (r *RedisRepo) SaveTicket(ctx context.Context, ticket models.VerificationTicket) error {
	const op = "storage.redis.SaveTicket"

	key := ticketKey(ticket.TokenHash)
	evictAt := ticket.ExpiresAt.Add(expiredRetention)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    ticket.UserID,
		"expires_at": ticket.ExpiresAt.Unix(),
	})
	pipe.ExpireAt(ctx, key, evictAt)
	pipe.SAdd(ctx, userKey(ticket.UserID), key)
	pipe.ExpireAt(ctx, userKey(ticket.UserID), evictAt)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) ConsumeTicket(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	const op = "storage.redis.ConsumeTicket"

	res, err := consumeScript.Run(ctx, r.client, []string{ticketKey(tokenHash)}, now.Unix(), userKeyPrefix).Slice()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if len(res) != 2 {
		return "", fmt.Errorf("%s: unexpected script reply %v", op, res)
	}

	status, _ := res[0].(int64)
	userID, _ := res[1].(string)

	switch status {
	case consumeOK:
		return userID, nil
	case consumeExpired:
		return "", storage.ErrTicketExpired
	default:
		return "", storage.ErrTicketNotFound
	}
}

func (r *RedisRepo) DeleteUserTickets(ctx context.Context, userID string) error {
	const op = "storage.redis.DeleteUserTickets"

	set := userKey(userID)

	keys, err := r.client.SMembers(ctx, set).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.client.Del(ctx, append(keys, set)...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
