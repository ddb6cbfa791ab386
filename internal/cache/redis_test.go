package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterent-backend/internal/domain"
)

func TestSiteBalanceKey(t *testing.T) {
	assert.Equal(t, "siterent:site:site-7:balance", SiteBalanceKey("site-7"))
}

func TestRedisCache_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()

	for name, c := range map[string]*RedisCache{
		"NilCache":  nil,
		"NilClient": NewWithClient(nil, 0),
	} {
		t.Run(name, func(t *testing.T) {
			c.SetSiteBalance(ctx, &domain.SiteBalance{SiteID: "s", DueAmountCents: 10})
			_, ok := c.GetSiteBalance(ctx, "s")
			assert.False(t, ok)

			c.SetStockList(ctx, []domain.StockEntry{{ItemTypeID: "x"}})
			_, ok = c.GetStockList(ctx)
			assert.False(t, ok)

			c.InvalidateSites(ctx, "s")
			c.InvalidateStock(ctx)
			assert.NoError(t, c.Close())
		})
	}
}

// recordingHook answers every command locally and remembers the command
// name, its keys and whether its context was already done.
type recordingHook struct {
	cmds     []string
	args     [][]interface{}
	ctxDone  []bool
	getValue string
}

func (h *recordingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *recordingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *recordingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.cmds = append(h.cmds, cmd.Name())
		h.args = append(h.args, cmd.Args())
		h.ctxDone = append(h.ctxDone, ctx.Err() != nil)
		switch c := cmd.(type) {
		case *redis.IntCmd:
			c.SetVal(1)
		case *redis.StringCmd:
			if h.getValue == "" {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(h.getValue)
		case *redis.StatusCmd:
			c.SetVal("OK")
		}
		return nil
	}
}

func newRecordingCache(t *testing.T) (*RedisCache, *recordingHook) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	hook := &recordingHook{}
	client.AddHook(hook)
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, time.Minute), hook
}

func TestRedisCache_InvalidateSurvivesCancelledRequest(t *testing.T) {
	c, hook := newRecordingCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.InvalidateSites(ctx, "site-1", "site-2")
	c.InvalidateStock(ctx)

	require.Equal(t, []string{"del", "del"}, hook.cmds)
	assert.Equal(t, []interface{}{"del", SiteBalanceKey("site-1"), SiteBalanceKey("site-2")}, hook.args[0])
	assert.Equal(t, []interface{}{"del", StockListKey}, hook.args[1])
	assert.Equal(t, []bool{false, false}, hook.ctxDone)
}

func TestRedisCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	c, hook := newRecordingCache(t)

	_, ok := c.GetSiteBalance(ctx, "site-1")
	assert.False(t, ok)

	c.SetSiteBalance(ctx, &domain.SiteBalance{SiteID: "site-1", DueAmountCents: 250})
	hook.getValue = `{"site_id":"site-1","due_amount_cents":250,"invoice_counter":3}`
	b, ok := c.GetSiteBalance(ctx, "site-1")
	require.True(t, ok)
	assert.Equal(t, int64(250), b.DueAmountCents)
	assert.Equal(t, int64(3), b.InvoiceCounter)

	assert.Equal(t, []string{"get", "set", "get"}, hook.cmds)
	assert.Equal(t, SiteBalanceKey("site-1"), hook.args[1][1])
}
