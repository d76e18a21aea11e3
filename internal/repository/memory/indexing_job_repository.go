package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

type IndexingJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.IndexingJob
}

var _ contract.IndexingJobRepository = (*IndexingJobRepository)(nil)

func NewIndexingJobRepository() *IndexingJobRepository {
	return &IndexingJobRepository{jobs: make(map[uuid.UUID]*entity.IndexingJob)}
}

// CreateClaim inserts the job only when the user has no pending or running
// job, both checked under the same lock so concurrent claims cannot race.
func (r *IndexingJobRepository) CreateClaim(_ context.Context, job *entity.IndexingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.jobs {
		if existing.UserId == job.UserId && existing.Status.IsActive() {
			return apperror.Conflict("an indexing job is already active for this user")
		}
	}

	if job.Id == uuid.Nil {
		job.Id = uuid.New()
	}
	copied := *job
	r.jobs[job.Id] = &copied
	return nil
}

// MarkRunning only succeeds for a job still in Pending; the status check and
// the write share the lock, so a concurrent cancel wins cleanly.
func (r *IndexingJobRepository) MarkRunning(_ context.Context, id uuid.UUID, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != entity.JobStatusPending {
		return false, nil
	}
	job.Status = entity.JobStatusRunning
	started := startedAt
	job.StartedAt = &started
	return true, nil
}

func (r *IndexingJobRepository) Update(_ context.Context, job *entity.IndexingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Id]; !ok {
		return apperror.NotFound("indexing job not found")
	}
	copied := *job
	r.jobs[job.Id] = &copied
	return nil
}

func (r *IndexingJobRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func (r *IndexingJobRepository) GetById(_ context.Context, id uuid.UUID) (*entity.IndexingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (r *IndexingJobRepository) GetLatestByUser(_ context.Context, userId uuid.UUID) (*entity.IndexingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.IndexingJob
	for _, job := range r.jobs {
		if job.UserId != userId {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *IndexingJobRepository) GetActiveByUser(_ context.Context, userId uuid.UUID) (*entity.IndexingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.UserId == userId && job.Status.IsActive() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *IndexingJobRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.IndexingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*entity.IndexingJob
	for _, job := range r.jobs {
		if matchesJob(job, specs) {
			copied := *job
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func matchesJob(job *entity.IndexingJob, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if job.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if job.UserId != s.UserID {
				return false
			}
		case specification.ByStatus:
			if string(job.Status) != s.Status {
				return false
			}
		case specification.ByStatusIn:
			found := false
			for _, st := range s.Statuses {
				if string(job.Status) == st {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
