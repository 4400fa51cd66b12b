package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProtocol(t *testing.T) {
	assert.Equal(t, "CJ-34567890", GenerateProtocol(time.UnixMilli(1234567890)))
	assert.Equal(t, "CJ-00000042", GenerateProtocol(time.UnixMilli(1700000000000+42)))
}

func TestIssueRegeneratesOnCollision(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	svc := NewProtocolService(r.benefits, utils.NopLogger()).(*protocolService)
	fixed := time.UnixMilli(1700000000123)
	svc.clock = func() time.Time { return fixed }

	first := &models.BenefitRequest{ID: "r1", UserID: "u1", Status: models.StatusPending, CreatedAt: fixed, UpdatedAt: fixed}
	second := &models.BenefitRequest{ID: "r2", UserID: "u2", Status: models.StatusPending, CreatedAt: fixed, UpdatedAt: fixed}

	require.NoError(t, svc.Issue(ctx, first, nil))
	require.NoError(t, svc.Issue(ctx, second, nil))
	assert.Equal(t, "CJ-00000123", first.Protocol)
	assert.Equal(t, "CJ-00000124", second.Protocol)
}

func TestSimulate(t *testing.T) {
	svc := NewProtocolService(newRepos(t).benefits, utils.NopLogger())

	receipt, err := svc.Simulate(context.Background(), models.ProtocolForm{
		Name: "Maria da Silva", CPF: "123.456.789-09", Address: "Rua A, 1", AffectedArea: "Canoas",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^CJ-\d{8}$`, receipt.Protocol)
	assert.Len(t, receipt.NextSteps, 3)

	_, err = svc.Simulate(context.Background(), models.ProtocolForm{Name: "Maria", CPF: "123", Address: "Rua A", AffectedArea: "Canoas"})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Simulate(context.Background(), models.ProtocolForm{Name: "Maria", CPF: "12345678909"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	svc := NewProtocolService(r.benefits, utils.NopLogger())
	req := seedRequest(t, r.benefits, maria)

	status, err := svc.Lookup(ctx, " "+req.Protocol+" ")
	require.NoError(t, err)
	assert.Equal(t, req.Protocol, status.Protocol)
	assert.Equal(t, models.StatusPending, status.Status)
	assert.Nil(t, status.DecisionDate)

	_, err = svc.Lookup(ctx, "CJ-99999999")
	requireAppError(t, err, http.StatusNotFound)
}
