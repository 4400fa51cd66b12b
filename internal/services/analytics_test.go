package services

import (
	"context"
	"testing"
	"time"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	svc := NewAnalyticsService(r.benefits, r.documents)

	docs, err := svc.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStats{}, *docs)

	req := seedRequest(t, r.benefits, maria)
	other := seedRequest(t, r.benefits, auth.Identity{ID: "joao"})
	require.NoError(t, r.benefits.Decide(ctx, other.ID, models.StatusRejected, "", time.Now()))

	valid, invalid := true, false
	for i, v := range []*bool{&valid, &valid, &invalid} {
		require.NoError(t, r.documents.Create(ctx, &models.DocumentAnalysis{
			ID: string(rune('a' + i)), RequestID: req.ID, DocumentName: "doc", ContentType: "image/png",
			AnalysisResult: models.JSONDocument(`{}`), IsValid: v, CreatedAt: time.Now(),
		}))
	}

	docs, err = svc.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, docs.Processed)
	assert.Equal(t, 2, docs.Valid)
	assert.Equal(t, 1, docs.WithProblems)
	assert.Equal(t, 66.7, docs.ValidationRate)

	reqs, err := svc.Requests(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStats{Total: 2, Pending: 1, Rejected: 1}, *reqs)
}
