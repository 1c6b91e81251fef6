package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"settlement-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepo(mock)

	entry := &domain.AuditLog{
		ID:           uuid.New(),
		AccountID:    strPtr("acct-1"),
		Action:       domain.AuditActionSettlement,
		ResourceType: "settlement",
		ResourceID:   "pi_1",
		Details:      `{"status":200}`,
		IPAddress:    "10.0.0.1",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.AccountID, "SETTLEMENT", "settlement", "pi_1", entry.Details, "10.0.0.1", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_Error(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepo(mock)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("disk full"))

	err := repo.Create(context.Background(), &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionCODOrder})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert audit log")
}
