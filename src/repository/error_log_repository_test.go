package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tradeengine/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestErrorLogRepositoryCreateIssuesInsert(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewErrorLogRepository().WithDB(gdb)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "error_log"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), "ord-1", model.ErrorTypeTransport,
		"connection reset", map[string]interface{}{"attempt": 2})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorLogRepositoryFindLatestNewestFirst(t *testing.T) {
	repo := NewErrorLogRepository().WithDB(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "ord-1", model.ErrorTypeTransport, "connection reset", nil))
	require.NoError(t, repo.Create(ctx, "", model.ErrorTypeStatusTimeout, "poll budget exhausted",
		map[string]interface{}{"order_id": "ord-1"}))

	entries, err := repo.FindLatest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, model.ErrorTypeStatusTimeout, entries[0].ErrorType)
	require.Contains(t, entries[0].AdditionalInfo, "ord-1")
	require.Equal(t, model.ErrorTypeTransport, entries[1].ErrorType)
}
