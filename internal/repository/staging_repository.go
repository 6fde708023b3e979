package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

// stagingGrace keeps the Redis key alive slightly past the logical TTL so that
// expiry is observed by the service and reported instead of surfacing as a miss.
const stagingGrace = time.Minute

func stagingKey(session string, kind models.StagedKind) string {
	switch kind {
	case models.StagedKindGuardian:
		return "staging:" + session + ":guardian"
	default:
		return "staging:" + session + ":enrollment"
	}
}

// StagingRepository holds staged registration records in Redis, keyed by session.
type StagingRepository struct {
	client *redis.Client
}

// NewStagingRepository constructs a Redis backed staging store.
func NewStagingRepository(client *redis.Client) *StagingRepository {
	return &StagingRepository{client: client}
}

// Save stores a record for the session, replacing any previous record of the same kind.
func (r *StagingRepository) Save(ctx context.Context, session string, record models.StagedRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal staged %s: %w", record.Kind, err)
	}
	key := stagingKey(session, record.Kind)
	if err := r.client.Set(ctx, key, payload, record.TTL+stagingGrace).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Load returns the staged record of the given kind or nil when none is held.
func (r *StagingRepository) Load(ctx context.Context, session string, kind models.StagedKind) (*models.StagedRecord, error) {
	key := stagingKey(session, kind)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var record models.StagedRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal staged record %s: %w", key, err)
	}
	return &record, nil
}

// Delete removes every staged record held for the session.
func (r *StagingRepository) Delete(ctx context.Context, session string) error {
	keys := []string{
		stagingKey(session, models.StagedKindEnrollment),
		stagingKey(session, models.StagedKindGuardian),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete staging %s: %w", session, err)
	}
	return nil
}

// MemoryStagingRepository keeps staged records in process memory. It is used
// when Redis is not configured and in tests.
type MemoryStagingRepository struct {
	mu      sync.Mutex
	records map[string]models.StagedRecord
}

// NewMemoryStagingRepository constructs an empty in-memory staging store.
func NewMemoryStagingRepository() *MemoryStagingRepository {
	return &MemoryStagingRepository{records: make(map[string]models.StagedRecord)}
}

// Save stores a copy of the record.
func (r *MemoryStagingRepository) Save(_ context.Context, session string, record models.StagedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[stagingKey(session, record.Kind)] = record
	return nil
}

// Load returns a copy of the held record or nil.
func (r *MemoryStagingRepository) Load(_ context.Context, session string, kind models.StagedKind) (*models.StagedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[stagingKey(session, kind)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Delete drops both records of the session.
func (r *MemoryStagingRepository) Delete(_ context.Context, session string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, stagingKey(session, models.StagedKindEnrollment))
	delete(r.records, stagingKey(session, models.StagedKindGuardian))
	return nil
}
