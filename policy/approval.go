package policy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/connectorcore/connectorcore/corekit"
)

// GlobalChatId is substituted for an empty chatId when granting or
// consuming a one-time approval, per spec §4.2's `(chatId ?? "__global__", …)`.
const GlobalChatId = "__global__"

// ApprovalKey identifies one (chat, integration, capability) approval slot.
type ApprovalKey struct {
	ChatId        string
	IntegrationId corekit.IntegrationId
	Capability    corekit.Capability
}

func (k ApprovalKey) normalized() ApprovalKey {
	chatId := strings.TrimSpace(k.ChatId)
	if chatId == "" {
		chatId = GlobalChatId
	}
	return ApprovalKey{ChatId: chatId, IntegrationId: k.IntegrationId, Capability: k.Capability}
}

func (k ApprovalKey) sessionField() string {
	return fmt.Sprintf("%s:%s:%s", k.ChatId, k.IntegrationId, k.Capability)
}

// ApprovalStore is the approval mutation/query contract. Evaluate consults
// it read-only; grantSessionApproval/grantOneTimeApproval/
// clearSessionApprovals (spec §4.2 "Approval mutations") are its writers.
type ApprovalStore interface {
	HasSessionApproval(key ApprovalKey) bool
	GrantSessionApproval(key ApprovalKey)
	ConsumeOneTimeApproval(key ApprovalKey) bool
	GrantOneTimeApproval(key ApprovalKey)
	ClearSessionApprovals(chatId string)
}

// MemoryApprovals is the default in-process ApprovalStore, grounded on
// gomind's core/memory_store.go sync.Map-over-typed-state idiom.
type MemoryApprovals struct {
	mu       sync.Mutex
	sessions map[string]bool
	oneTime  map[string]int
}

// NewMemoryApprovals builds an empty in-memory approval store.
func NewMemoryApprovals() *MemoryApprovals {
	return &MemoryApprovals{sessions: make(map[string]bool), oneTime: make(map[string]int)}
}

func (s *MemoryApprovals) HasSessionApproval(key ApprovalKey) bool {
	key = key.normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[key.sessionField()]
}

// GrantSessionApproval is a no-op when chatId is empty/whitespace, per
// spec §4.2 — a session approval with no chat to scope it to is meaningless.
func (s *MemoryApprovals) GrantSessionApproval(key ApprovalKey) {
	if strings.TrimSpace(key.ChatId) == "" {
		return
	}
	key = key.normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key.sessionField()] = true
}

func (s *MemoryApprovals) ConsumeOneTimeApproval(key ApprovalKey) bool {
	key = key.normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	field := key.sessionField()
	count := s.oneTime[field]
	if count <= 0 {
		return false
	}
	count--
	if count == 0 {
		delete(s.oneTime, field)
	} else {
		s.oneTime[field] = count
	}
	return true
}

func (s *MemoryApprovals) GrantOneTimeApproval(key ApprovalKey) {
	key = key.normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oneTime[key.sessionField()]++
}

// ClearSessionApprovals clears everything when chatId is empty; otherwise
// it removes only keys scoped to that chat.
func (s *MemoryApprovals) ClearSessionApprovals(chatId string) {
	chatId = strings.TrimSpace(chatId)
	s.mu.Lock()
	defer s.mu.Unlock()
	if chatId == "" {
		s.sessions = make(map[string]bool)
		s.oneTime = make(map[string]int)
		return
	}
	prefix := chatId + ":"
	for field := range s.sessions {
		if strings.HasPrefix(field, prefix) {
			delete(s.sessions, field)
		}
	}
	for field := range s.oneTime {
		if strings.HasPrefix(field, prefix) {
			delete(s.oneTime, field)
		}
	}
}

// RedisApprovals is the distributed ApprovalStore for multi-process
// deployments, per [ADD 4.2.2]. It stores session approvals as members of
// a Redis set and one-time counters as plain integer keys, both under a
// shared key prefix.
type RedisApprovals struct {
	client *redis.Client
	prefix string
	logger corekit.Logger
}

// NewRedisApprovals builds a RedisApprovals backed by client, namespacing
// keys under prefix (e.g. "connectorcore:approvals").
func NewRedisApprovals(client *redis.Client, prefix string, logger corekit.Logger) *RedisApprovals {
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}
	if prefix == "" {
		prefix = "connectorcore:approvals"
	}
	return &RedisApprovals{client: client, prefix: prefix, logger: logger}
}

func (s *RedisApprovals) sessionSetKey() string { return s.prefix + ":sessions" }
func (s *RedisApprovals) oneTimeKey(key ApprovalKey) string {
	return s.prefix + ":once:" + key.sessionField()
}

func (s *RedisApprovals) HasSessionApproval(key ApprovalKey) bool {
	key = key.normalized()
	ok, err := s.client.SIsMember(context.Background(), s.sessionSetKey(), key.sessionField()).Result()
	if err != nil {
		s.logger.Warn("redis approval lookup failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return ok
}

func (s *RedisApprovals) GrantSessionApproval(key ApprovalKey) {
	if strings.TrimSpace(key.ChatId) == "" {
		return
	}
	key = key.normalized()
	if err := s.client.SAdd(context.Background(), s.sessionSetKey(), key.sessionField()).Err(); err != nil {
		s.logger.Warn("redis approval grant failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *RedisApprovals) ConsumeOneTimeApproval(key ApprovalKey) bool {
	key = key.normalized()
	ctx := context.Background()
	k := s.oneTimeKey(key)
	val, err := s.client.Get(ctx, k).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		s.logger.Warn("redis one-time approval lookup failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	count, convErr := strconv.Atoi(val)
	if convErr != nil || count <= 0 {
		return false
	}
	remaining, err := s.client.Decr(ctx, k).Result()
	if err != nil {
		s.logger.Warn("redis one-time approval decrement failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	if remaining <= 0 {
		s.client.Del(ctx, k)
	}
	return true
}

func (s *RedisApprovals) GrantOneTimeApproval(key ApprovalKey) {
	key = key.normalized()
	if err := s.client.Incr(context.Background(), s.oneTimeKey(key)).Err(); err != nil {
		s.logger.Warn("redis one-time approval grant failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *RedisApprovals) ClearSessionApprovals(chatId string) {
	chatId = strings.TrimSpace(chatId)
	ctx := context.Background()
	if chatId == "" {
		s.client.Del(ctx, s.sessionSetKey())
		s.clearAllOneTime(ctx)
		return
	}
	members, err := s.client.SMembers(ctx, s.sessionSetKey()).Result()
	if err != nil {
		s.logger.Warn("redis clear approvals failed", map[string]interface{}{"error": err.Error()})
		return
	}
	prefix := chatId + ":"
	for _, m := range members {
		if strings.HasPrefix(m, prefix) {
			s.client.SRem(ctx, s.sessionSetKey(), m)
		}
	}
	s.clearOneTimeForChat(ctx, chatId)
}

func (s *RedisApprovals) clearAllOneTime(ctx context.Context) {
	keys, err := s.client.Keys(ctx, s.prefix+":once:*").Result()
	if err != nil {
		s.logger.Warn("redis clear one-time approvals failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(keys) > 0 {
		s.client.Del(ctx, keys...)
	}
}

func (s *RedisApprovals) clearOneTimeForChat(ctx context.Context, chatId string) {
	keys, err := s.client.Keys(ctx, s.prefix+":once:"+chatId+":*").Result()
	if err != nil {
		s.logger.Warn("redis clear one-time approvals for chat failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(keys) > 0 {
		s.client.Del(ctx, keys...)
	}
}

// Grant/Clear free functions wrap the ApprovalStore methods with the same
// names spec §4.2 uses, so callers in execution read as close to the spec
// prose as Go naming allows.

// GrantSessionApproval grants a standing approval for key, scoped to
// key.ChatId. No-op if ChatId is blank.
func GrantSessionApproval(store ApprovalStore, key ApprovalKey) { store.GrantSessionApproval(key) }

// GrantOneTimeApproval increments the one-shot counter for key.
func GrantOneTimeApproval(store ApprovalStore, key ApprovalKey) { store.GrantOneTimeApproval(key) }

// ClearSessionApprovals clears session and one-shot approvals for chatId,
// or everything when chatId is empty.
func ClearSessionApprovals(store ApprovalStore, chatId string) { store.ClearSessionApprovals(chatId) }
