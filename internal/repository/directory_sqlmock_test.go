package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

func newMockDirectory(t *testing.T) (*repository.DirectoryRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewDirectoryRepo(db), mock
}

func TestCreateTenantMySQLDuplicate(t *testing.T) {
	repo, mock := newMockDirectory(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenants")).
		WithArgs("BISTRO", "Bistro", "owner", "hash", "inactive", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'BISTRO' for key 'code'"})

	err := repo.CreateTenant(context.Background(), &model.Tenant{
		Code: " bistro ", RestaurantName: "Bistro", OwnerUsername: "owner", OwnerPassword: "hash",
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTenantOtherMySQLErrorPassesThrough(t *testing.T) {
	repo, mock := newMockDirectory(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenants")).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})

	err := repo.CreateTenant(context.Background(), &model.Tenant{Code: "BISTRO"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicate)
}

func TestActivateOnFirstLoginNoRowMatched(t *testing.T) {
	repo, mock := newMockDirectory(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tenants SET status='active', activated_at=?")).
		WithArgs(sqlmock.AnyArg(), "BISTRO").
		WillReturnResult(sqlmock.NewResult(0, 0))

	fired, err := repo.ActivateOnFirstLogin(context.Background(), "bistro", time.Now())
	require.NoError(t, err)
	assert.False(t, fired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsActiveStatuses(t *testing.T) {
	repo, mock := newMockDirectory(t)
	q := regexp.QuoteMeta("SELECT status FROM tenants WHERE code=?")
	mock.ExpectQuery(q).WithArgs("A").WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectQuery(q).WithArgs("B").WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("inactive"))
	mock.ExpectQuery(q).WithArgs("C").WillReturnRows(sqlmock.NewRows([]string{"status"}))

	ctx := context.Background()
	assert.NoError(t, repo.IsActive(ctx, "a"))
	assert.ErrorIs(t, repo.IsActive(ctx, "b"), repository.ErrTenantInactive)
	assert.ErrorIs(t, repo.IsActive(ctx, "c"), repository.ErrTenantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
