package seq

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/webitel/im-chat-service/api/chatpb"
)

const (
	recvSeqKeyPrefix = "seq:"
	sendSeqKeyPrefix = "send_seq:"
	// seqLoadedKey lives outside the counter prefixes: "seq:" + a user id
	// literally named "loaded" must not land on the warm-up flag.
	seqLoadedKey = "seq_loaded"
)

// incrScript advances the live counter and, when it overtakes the cached
// max, pushes the max one step ahead. Running as a script keeps the
// read-modify-write atomic without any process-side locking.
//
// Returns {cur, max, updated}.
var incrScript = redis.NewScript(`
local cur = redis.call('HINCRBY', KEYS[1], 'cur_seq', 1)
local max = tonumber(redis.call('HGET', KEYS[1], 'max_seq') or '0')
local updated = 0
if cur > max then
  max = max + tonumber(ARGV[1])
  redis.call('HSET', KEYS[1], 'max_seq', max)
  updated = 1
end
return {cur, max, updated}
`)

// RedisCache implements Cache on a shared Redis instance.
type RedisCache struct {
	client *redis.Client
	step   int64
}

func NewRedisCache(client *redis.Client, step int64) *RedisCache {
	return &RedisCache{client: client, step: step}
}

func (c *RedisCache) IncrRecvSeq(ctx context.Context, userID string) (int64, int64, bool, error) {
	return c.incr(ctx, recvSeqKeyPrefix+userID)
}

func (c *RedisCache) IncrSendSeq(ctx context.Context, userID string) (int64, int64, bool, error) {
	return c.incr(ctx, sendSeqKeyPrefix+userID)
}

func (c *RedisCache) incr(ctx context.Context, key string) (int64, int64, bool, error) {
	res, err := incrScript.Run(ctx, c.client, []string{key}, c.step).Slice()
	if err != nil {
		return 0, 0, false, fmt.Errorf("seq cache: incr %s: %w", key, err)
	}
	cur, max, updated, err := parseIncrReply(res)
	if err != nil {
		return 0, 0, false, fmt.Errorf("seq cache: incr %s: %w", key, err)
	}
	return cur, max, updated, nil
}

func (c *RedisCache) GetSendSeq(ctx context.Context, userID string) (int64, int64, error) {
	vals, err := c.client.HMGet(ctx, sendSeqKeyPrefix+userID, "cur_seq", "max_seq").Result()
	if err != nil {
		return 0, 0, fmt.Errorf("seq cache: get send seq %s: %w", userID, err)
	}
	cur := toInt64(vals[0])
	max := toInt64(vals[1])
	return cur, max, nil
}

// IncrGroupSeq runs the incr script for every member inside one pipeline, so
// a fan-out to N members costs a single round-trip.
func (c *RedisCache) IncrGroupSeq(ctx context.Context, memberIDs []string) ([]*chatpb.GroupMemSeq, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.Cmd, len(memberIDs))
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range memberIDs {
			cmds[i] = incrScript.Eval(ctx, pipe, []string{recvSeqKeyPrefix + id}, c.step)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seq cache: group incr: %w", err)
	}

	out := make([]*chatpb.GroupMemSeq, len(memberIDs))
	for i, cmd := range cmds {
		res, err := cmd.Slice()
		if err != nil {
			return nil, fmt.Errorf("seq cache: group incr %s: %w", memberIDs[i], err)
		}
		cur, _, updated, err := parseIncrReply(res)
		if err != nil {
			return nil, fmt.Errorf("seq cache: group incr %s: %w", memberIDs[i], err)
		}
		out[i] = &chatpb.GroupMemSeq{
			MemID:      memberIDs[i],
			CurSeq:     cur,
			NeedUpdate: updated,
		}
	}
	return out, nil
}

func (c *RedisCache) Loaded(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, seqLoadedKey).Result()
	if err != nil {
		return false, fmt.Errorf("seq cache: loaded flag: %w", err)
	}
	return n > 0, nil
}

func (c *RedisCache) MarkLoaded(ctx context.Context) error {
	if err := c.client.Set(ctx, seqLoadedKey, "1", 0).Err(); err != nil {
		return fmt.Errorf("seq cache: mark loaded: %w", err)
	}
	return nil
}

// SetSeq seeds live counters from persisted marks. HSETNX leaves counters
// already advanced by concurrent traffic untouched.
func (c *RedisCache) SetSeq(ctx context.Context, rows []UserSeq) error {
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, row := range rows {
			recvKey := recvSeqKeyPrefix + row.UserID
			pipe.HSetNX(ctx, recvKey, "cur_seq", row.RecvMax)
			pipe.HSetNX(ctx, recvKey, "max_seq", row.RecvMax+c.step)

			sendKey := sendSeqKeyPrefix + row.UserID
			pipe.HSetNX(ctx, sendKey, "cur_seq", row.SendMax)
			pipe.HSetNX(ctx, sendKey, "max_seq", row.SendMax+c.step)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seq cache: warm: %w", err)
	}
	return nil
}

func parseIncrReply(res []any) (int64, int64, bool, error) {
	if len(res) != 3 {
		return 0, 0, false, fmt.Errorf("unexpected script reply of %d values", len(res))
	}
	cur := toInt64(res[0])
	max := toInt64(res[1])
	updated := toInt64(res[2]) == 1
	return cur, max, updated, nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
