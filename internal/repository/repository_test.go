package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/climajusto/iacolhe/internal/db"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/jmoiron/sqlx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func newRequest(id, userID, protocol string, created time.Time) *models.BenefitRequest {
	return &models.BenefitRequest{
		ID:          id,
		UserID:      userID,
		UserName:    "maria",
		Protocol:    protocol,
		BenefitType: models.BenefitTypeReconstruction,
		Status:      models.StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestBenefitRepositoryCreateAndLatest(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	benefits := NewBenefitRepository(database)
	transcripts := NewTranscriptRepository(database)

	base := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	greeting := []models.Message{{Role: "assistant", Content: "Olá!"}}

	require.NoError(t, benefits.Create(ctx, newRequest("r1", "u1", "CJ-00000001", base), greeting))
	require.NoError(t, benefits.Create(ctx, newRequest("r2", "u1", "CJ-00000002", base.Add(time.Minute)), greeting))
	require.NoError(t, benefits.Create(ctx, newRequest("r3", "u2", "CJ-00000003", base.Add(2*time.Minute)), nil))

	latest, err := benefits.LatestForUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "r2", latest.ID)
	assert.Equal(t, models.StatusPending, latest.Status)
	assert.True(t, latest.CreatedAt.Equal(base.Add(time.Minute)))

	none, err := benefits.LatestForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)

	byProtocol, err := benefits.GetByProtocol(ctx, "CJ-00000003")
	require.NoError(t, err)
	require.NotNil(t, byProtocol)
	assert.Equal(t, "r3", byProtocol.ID)

	all, err := benefits.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	msgs, err := transcripts.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, greeting, msgs)
}

func TestBenefitRepositoryDuplicateProtocol(t *testing.T) {
	ctx := context.Background()
	benefits := NewBenefitRepository(openTestDB(t))

	now := time.Now()
	require.NoError(t, benefits.Create(ctx, newRequest("r1", "u1", "CJ-12345678", now), nil))
	err := benefits.Create(ctx, newRequest("r2", "u2", "CJ-12345678", now), nil)
	assert.ErrorIs(t, err, ErrDuplicateProtocol)
}

func TestBenefitRepositoryDecide(t *testing.T) {
	ctx := context.Background()
	benefits := NewBenefitRepository(openTestDB(t))
	require.NoError(t, benefits.Create(ctx, newRequest("r1", "u1", "CJ-1", time.Now()), nil))

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, benefits.Decide(ctx, "r1", models.StatusApproved, "Documentação completa", at))

	got, err := benefits.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.DecisionNotes)
	assert.Equal(t, "Documentação completa", *got.DecisionNotes)
	require.NotNil(t, got.DecisionDate)
	assert.True(t, got.DecisionDate.Equal(at))

	assert.ErrorIs(t, benefits.Decide(ctx, "r1", models.StatusRejected, "", at), ErrNotPending)

	counts, err := benefits.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusApproved])
	assert.Zero(t, counts[models.StatusPending])
}

func TestTranscriptAppendKeepsConcurrentTurns(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	benefits := NewBenefitRepository(database)
	transcripts := NewTranscriptRepository(database)

	require.NoError(t, benefits.Create(ctx, newRequest("r1", "u1", "CJ-1", time.Now()), []models.Message{
		{Role: "assistant", Content: "Olá!"},
	}))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := transcripts.Append(ctx, "r1",
				models.Message{Role: "user", Content: "pergunta"},
				models.Message{Role: "assistant", Content: "resposta"},
			)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := transcripts.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, msgs, 5)

	n, err := transcripts.Append(ctx, "r1", models.Message{Role: "user", Content: "mais uma"})
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	benefits := NewBenefitRepository(database)
	docs := NewDocumentRepository(database)
	require.NoError(t, benefits.Create(ctx, newRequest("r1", "u1", "CJ-1", time.Now()), nil))

	valid, invalid := true, false
	key := "documents/r1/a1/rg.jpg"
	require.NoError(t, docs.Create(ctx, &models.DocumentAnalysis{
		ID: "a1", RequestID: "r1", DocumentName: "rg.jpg", ContentType: "image/jpeg",
		StorageKey: &key, AnalysisResult: models.JSONDocument(`{"nome":"Maria"}`), IsValid: &valid,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, docs.Create(ctx, &models.DocumentAnalysis{
		ID: "a2", RequestID: "r1", DocumentName: "conta.png", ContentType: "image/png",
		AnalysisResult: models.JSONDocument(`{"raw_text":"ilegível"}`), IsValid: &invalid,
		CreatedAt: time.Now().Add(time.Second),
	}))

	list, err := docs.ListByRequest(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a1", list[0].ID)
	assert.JSONEq(t, `{"nome":"Maria"}`, string(list[0].AnalysisResult))
	require.NotNil(t, list[0].StorageKey)
	assert.Equal(t, key, *list[0].StorageKey)
	require.NotNil(t, list[1].IsValid)
	assert.False(t, *list[1].IsValid)
	assert.Nil(t, list[1].StorageKey)

	one, err := docs.GetByID(ctx, "a2")
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "conta.png", one.DocumentName)

	missing, err := docs.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	stats, err := docs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DocumentCounts{Total: 2, Valid: 1, Invalid: 1}, stats)

	empty, err := docs.ListByRequest(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRoleRepository(t *testing.T) {
	ctx := context.Background()
	roles := NewRoleRepository(openTestDB(t))

	ok, err := roles.HasRole(ctx, "u1", models.RoleAgent)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, roles.Grant(ctx, "u1", models.RoleAgent))
	require.NoError(t, roles.Grant(ctx, "u1", models.RoleAgent))

	ok, err = roles.HasRole(ctx, "u1", models.RoleAgent)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := roles.Revoke(ctx, "u1", models.RoleAgent)
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err = roles.HasRole(ctx, "u1", models.RoleAgent)
	require.NoError(t, err)
	assert.False(t, ok)
}
