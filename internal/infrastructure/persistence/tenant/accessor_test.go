package tenant

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type widget struct {
	ID        string `gorm:"primaryKey"`
	TenantID  string
	Name      string
	DeletedAt *time.Time
}

func (widget) TableName() string { return "widgets" }

func (w *widget) SetTenantID(tenantID string) { w.TenantID = tenantID }

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestNew_RequiresTenant(t *testing.T) {
	db, _, mockDB := setupMockDB(t)
	defer mockDB.Close()

	_, err := New(db, "")
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	_, err = New(db, "   ")
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	acc, err := New(db, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", acc.TenantID())
}

func TestAccessor_QueryFiltersTenantAndDeleted(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	acc, err := New(db, "t1")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "widgets" WHERE name = $1 AND tenant_id = $2 AND deleted_at IS NULL`)).
		WithArgs("blue", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}).AddRow("w1", "t1", "blue"))

	var rows []widget
	err = acc.Query(context.Background(), &widget{}).Where("name = ?", "blue").Find(&rows).Error
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "w1", rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessor_CreateStampsTenant(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	acc, err := New(db, "t1")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "widgets"`)).
		WithArgs("w1", "t1", "blue", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	row := &widget{ID: "w1", TenantID: "t2", Name: "blue"}
	require.NoError(t, acc.Create(context.Background(), row))
	assert.Equal(t, "t1", row.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessor_UpdateOtherTenantMatchesNothing(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	acc, err := New(db, "t1")
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE "widgets" SET "name"=\$1 WHERE id = \$2 AND tenant_id = \$3 AND deleted_at IS NULL`).
		WithArgs("red", "w-other", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := acc.Update(context.Background(), &widget{}, "w-other", map[string]any{"name": "red"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessor_SoftDelete(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	acc, err := New(db, "t1")
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`UPDATE "widgets" SET "deleted_at"=\$1 WHERE id = \$2 AND tenant_id = \$3 AND deleted_at IS NULL`).
		WithArgs(now, "w1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := acc.SoftDelete(context.Background(), &widget{}, "w1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessor_TransactionKeepsTenant(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	acc, err := New(db, "t1")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "widgets" SET "name"=\$1 WHERE id = \$2 AND tenant_id = \$3 AND deleted_at IS NULL`).
		WithArgs("red", "w1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = acc.Transaction(context.Background(), func(tx *Accessor) error {
		assert.Equal(t, "t1", tx.TenantID())
		_, err := tx.Update(context.Background(), &widget{}, "w1", map[string]any{"name": "red"})
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
