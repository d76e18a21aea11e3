package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/repository/contract"
)

func seedLog(t *testing.T, repo contract.RagQueryLogRepository, userId uuid.UUID) *entity.RagQueryLog {
	t.Helper()
	log := &entity.RagQueryLog{
		UserId:    userId,
		Query:     "where are my tomato notes",
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), log))
	return log
}

func TestQueryLogCreateAssignsSortableId(t *testing.T) {
	var repo contract.RagQueryLogRepository = NewRagQueryLogRepository()
	log := seedLog(t, repo, uuid.New())

	assert.NotEqual(t, uuid.Nil, log.Id)
	assert.Equal(t, uuid.Version(7), log.Id.Version())
}

func TestQueryLogAttachFeedback(t *testing.T) {
	ctx := context.Background()
	userId := uuid.New()
	var repo contract.RagQueryLogRepository = NewRagQueryLogRepository()
	log := seedLog(t, repo, userId)

	feedback := &entity.QueryFeedback{Tag: "up", Category: "relevance", Comment: "spot on"}
	require.NoError(t, repo.AttachFeedback(ctx, log.Id, userId, feedback))

	stored, err := repo.GetById(ctx, log.Id)
	require.NoError(t, err)
	require.NotNil(t, stored.Feedback)
	assert.Equal(t, "up", stored.Feedback.Tag)
	assert.Equal(t, "relevance", stored.Feedback.Category)
	assert.NotNil(t, stored.FeedbackAt)
}

func TestQueryLogAttachFeedbackUnknownOrForeign(t *testing.T) {
	ctx := context.Background()
	userId := uuid.New()
	var repo contract.RagQueryLogRepository = NewRagQueryLogRepository()
	log := seedLog(t, repo, userId)
	feedback := &entity.QueryFeedback{Tag: "down"}

	err := repo.AttachFeedback(ctx, uuid.New(), userId, feedback)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	err = repo.AttachFeedback(ctx, log.Id, uuid.New(), feedback)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	stored, err := repo.GetById(ctx, log.Id)
	require.NoError(t, err)
	assert.Nil(t, stored.Feedback)
}
