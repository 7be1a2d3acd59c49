package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/shared"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormBillRepository_FindByID(t *testing.T) {
	t.Run("loads bill with embedded arrays", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBillRepository(gormDB)

		billID := uuid.New()
		retailerID := uuid.New()
		customerID := uuid.New()
		billDate := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

		billRows := sqlmock.NewRows([]string{"id", "retailer_id", "customer_id", "customer_name", "bill_date", "final_result", "created_at"}).
			AddRow(billID, retailerID, customerID, "Nguyen", billDate, decimal.NewFromInt(70), billDate)

		mock.ExpectQuery(`SELECT \* FROM "bills" WHERE retailer_id = \$1 AND id = \$2 AND deleted_at IS NULL ORDER BY .* LIMIT .*`).
			WithArgs(retailerID, billID, 1).
			WillReturnRows(billRows)

		itemRows := sqlmock.NewRows([]string{"id", "bill_id", "position", "name", "quantity", "price", "total"}).
			AddRow(uuid.New(), billID, 0, "Paracetamol", decimal.NewFromInt(2), decimal.NewFromInt(50), decimal.NewFromInt(100))
		mock.ExpectQuery(`SELECT \* FROM "bill_line_items" WHERE "bill_line_items"\."bill_id" = \$1 ORDER BY position ASC`).
			WithArgs(billID).
			WillReturnRows(itemRows)

		adjRows := sqlmock.NewRows([]string{"id", "bill_id", "position", "name", "direction", "kind", "amount"}).
			AddRow(uuid.New(), billID, 0, "Gởi", "subtract", "payment", decimal.NewFromInt(30))
		mock.ExpectQuery(`SELECT \* FROM "bill_adjustments" WHERE "bill_adjustments"\."bill_id" = \$1 ORDER BY position ASC`).
			WithArgs(billID).
			WillReturnRows(adjRows)

		bill, err := repo.FindByID(context.Background(), retailerID, billID)

		require.NoError(t, err)
		assert.Equal(t, billID, bill.ID)
		assert.Len(t, bill.Items, 1)
		assert.Len(t, bill.Adjustments, 1)
		assert.True(t, bill.FinalResult.Equal(decimal.NewFromInt(70)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown bill", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBillRepository(gormDB)

		billID := uuid.New()
		retailerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "bills" WHERE retailer_id = \$1 AND id = \$2 AND deleted_at IS NULL ORDER BY .* LIMIT .*`).
			WithArgs(retailerID, billID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		bill, err := repo.FindByID(context.Background(), retailerID, billID)

		assert.Nil(t, bill)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBillRepository_SoftDelete(t *testing.T) {
	t.Run("marks bill deleted", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBillRepository(gormDB)

		billID := uuid.New()
		retailerID := uuid.New()

		mock.ExpectExec(`UPDATE "bills" SET "deleted_at"=\$1 WHERE retailer_id = \$2 AND id = \$3 AND deleted_at IS NULL`).
			WithArgs(sqlmock.AnyArg(), retailerID, billID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SoftDelete(context.Background(), retailerID, billID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when nothing matched", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBillRepository(gormDB)

		billID := uuid.New()
		retailerID := uuid.New()

		mock.ExpectExec(`UPDATE "bills" SET "deleted_at"=\$1 WHERE retailer_id = \$2 AND id = \$3 AND deleted_at IS NULL`).
			WithArgs(sqlmock.AnyArg(), retailerID, billID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SoftDelete(context.Background(), retailerID, billID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMapStoreError(t *testing.T) {
	assert.NoError(t, mapStoreError(nil))
	assert.Equal(t, shared.ErrNotFound, mapStoreError(gorm.ErrRecordNotFound))

	err := mapStoreError(sql.ErrConnDone)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.ErrStoreUnavailable.Code, domainErr.Code)
}
