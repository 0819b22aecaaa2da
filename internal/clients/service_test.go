package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoserv/ecoserv/internal/shared"
)

type recordingAuditor struct {
	logs []shared.AuditLog
	err  error
}

func (a *recordingAuditor) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func newTestService() (*Service, *mockRepository, *recordingAuditor) {
	repo := newMockRepository()
	audit := &recordingAuditor{}
	return NewService(repo, audit, nil), repo, audit
}

func TestCreateClient(t *testing.T) {
	svc, _, audit := newTestService()

	c, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, "20512345678", c.TaxID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.ActionCreate, audit.logs[0].Action)
	assert.Equal(t, "1", audit.logs[0].EntityID)
}

func TestCreateClientDuplicateTaxID(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Create(ctx, validCreateRequest())
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateClientPartial(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateRequest{Phone: ptr("+51 999 888 777"), CreditDays: ptr(60)})
	require.NoError(t, err)
	assert.Equal(t, "+51 999 888 777", updated.Phone)
	assert.Equal(t, 60, updated.CreditDays)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Email, updated.Email)
}

func TestUpdateClientFailureLeavesRecord(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	repo.updateError = errors.New("connection lost")
	_, err = svc.Update(ctx, created.ID, UpdateRequest{Name: ptr("Otro")})
	require.Error(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
}

func TestDeleteClientTwice(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), shared.ErrNotFound)

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Exists(ctx, created.ID), shared.ErrNotFound)

	_, err = svc.Update(ctx, created.ID, UpdateRequest{Name: ptr("x")})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	list, total, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
}

func TestAuditFailureDoesNotFailWrite(t *testing.T) {
	svc, _, audit := newTestService()
	audit.err = errors.New("audit table locked")

	c, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
}
