package policy

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func newTestRedisApprovals(t *testing.T) *RedisApprovals {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	return NewRedisApprovals(client, "test:approvals", corekit.NoOpLogger{})
}

func TestRedisApprovalsSessionGrantAndClear(t *testing.T) {
	store := newTestRedisApprovals(t)
	key := ApprovalKey{ChatId: "c1", IntegrationId: corekit.IntegrationS3, Capability: "storage.list"}

	assert.False(t, store.HasSessionApproval(key))
	store.GrantSessionApproval(key)
	assert.True(t, store.HasSessionApproval(key))

	store.ClearSessionApprovals("c1")
	assert.False(t, store.HasSessionApproval(key))
}

func TestRedisApprovalsOneTimeConsumedOnce(t *testing.T) {
	store := newTestRedisApprovals(t)
	key := ApprovalKey{ChatId: "c1", IntegrationId: corekit.IntegrationS3, Capability: "storage.list"}

	assert.False(t, store.ConsumeOneTimeApproval(key))
	store.GrantOneTimeApproval(key)

	require.True(t, store.ConsumeOneTimeApproval(key))
	assert.False(t, store.ConsumeOneTimeApproval(key), "a single grant must not be reusable")
}

func TestRedisApprovalsGrantSessionApprovalIgnoresBlankChatId(t *testing.T) {
	store := newTestRedisApprovals(t)
	blank := ApprovalKey{ChatId: "  ", IntegrationId: corekit.IntegrationS3, Capability: "storage.list"}
	store.GrantSessionApproval(blank)
	assert.False(t, store.HasSessionApproval(ApprovalKey{ChatId: GlobalChatId, IntegrationId: corekit.IntegrationS3, Capability: "storage.list"}),
		"a blank chatId grant must be a no-op, not fall back to the global approval slot")
}
