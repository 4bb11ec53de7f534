package store

import (
	"context"
	"encoding/json"
	"sync"

	"deskrag/internal/config"
	"deskrag/internal/data/redisStore"
	"deskrag/internal/domain/jobmodel"
	"deskrag/pkg/logger_i"
)

// RedisJobStore keeps ingestion job state in redis with a TTL; ingestion
// status is operational data, not part of the document corpus.
type RedisJobStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisJobStore returns nil when redis is unavailable; main falls back
// to the in-memory store.
func GetRedisJobStore(ctx context.Context) *RedisJobStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisJobStoreDB)
	if inner == nil {
		return nil
	}
	return &RedisJobStore{
		store:  inner,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobmodel.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, job.Id, data, config.RedisJobStoreTTL)
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobmodel.Job, bool) {
	var job jobmodel.Job
	val, err := s.store.Get(ctx, jobId)
	if s.store.IsNil(err) {
		return job, false
	}
	if err != nil {
		s.logger.Error("failed to read job", "jobId", jobId, "error", err)
		return job, false
	}
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		s.logger.Error("corrupt job record", "jobId", jobId, "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobID); err != nil {
		s.logger.Error("error deleting job", "jobId", jobID, "error", err)
	}
}

// TestJobStore builds a job store over an injected redis wrapper.
func TestJobStore(inner *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  inner,
		logger: logger_i.NewLogger("test jobstore"),
	}
}

// InMemoryJobStore is the fallback when redis is offline.
type InMemoryJobStore struct {
	mu     sync.RWMutex
	jobMap map[string]jobmodel.Job
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{jobMap: make(map[string]jobmodel.Job)}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, job jobmodel.Job) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.jobMap[job.Id] = job
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobmodel.Job, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	result, found := store.jobMap[jobId]
	return result, found
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.jobMap, jobID)
}
