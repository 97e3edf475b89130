package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ferkcore/topadel/internal/order/domain"
	"github.com/ferkcore/topadel/internal/order/repository"
)

var testDBSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_orders_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			order_key TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			currency TEXT NOT NULL,
			total REAL NOT NULL,
			discount_total REAL,
			shipping_total REAL,
			tax_total REAL,
			customer_id INTEGER,
			email TEXT NOT NULL,
			first_name TEXT,
			last_name TEXT,
			phone TEXT,
			phone_prefix TEXT,
			document_type TEXT,
			document_number TEXT,
			birth_date TEXT,
			address TEXT,
			customer_ip TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE order_lines (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			sku TEXT,
			name TEXT,
			quantity INTEGER NOT NULL,
			unit_price REAL,
			total REAL,
			remote_product_id INTEGER,
			chosen_term_ids TEXT,
			chosen_terms_text TEXT
		)`,
		`CREATE INDEX ix_order_lines_order ON order_lines (order_id)`,
		`CREATE TABLE order_payment_meta (
			order_id INTEGER PRIMARY KEY,
			remote_customer_id INTEGER,
			remote_cart_id INTEGER,
			payment_token TEXT,
			payment_redirect_url TEXT,
			payment_expiration_utc INTEGER,
			payment_acquirer_id INTEGER,
			payment_status TEXT,
			last_remote_status TEXT,
			last_remote_status_at DATETIME,
			missing_products TEXT,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE order_notes (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			note TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	return node
}

func sampleOrder(node *snowflake.Node, id int64) *domain.Order {
	return &domain.Order{
		ID:        id,
		OrderKey:  fmt.Sprintf("wc_order_%d", id),
		Status:    domain.StatusPending,
		Currency:  "UYU",
		Total:     1500,
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Lines: []domain.Line{
			{
				ID:        node.Generate(),
				ProductID: 10,
				SKU:       "PAD-001",
				Name:      "Padel racket",
				Quantity:  1,
				UnitPrice: 1500,
				Total:     1500,
			},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.Provide()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, db, sampleOrder(testNode(t), 1001)))

	got, err := repo.Get(ctx, db, 1001)
	require.NoError(t, err)
	assert.Equal(t, "wc_order_1001", got.OrderKey)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "PAD-001", got.Lines[0].SKU)
	assert.Zero(t, got.Payment.RemoteCartID)
}

func TestGetMissReturnsNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.Provide()

	_, err := repo.Get(context.Background(), db, 404)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFindByPaymentIdentifiers(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.Provide()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, db, sampleOrder(testNode(t), 1001)))
	require.NoError(t, repo.SavePaymentMeta(ctx, db, &domain.PaymentMeta{
		OrderID:           1001,
		RemoteCustomerID:  777,
		RemoteCartID:      555,
		PaymentToken:      "tok_abc",
		PaymentAcquirerID: 9001,
	}))

	byToken, err := repo.FindByPaymentToken(ctx, db, "tok_abc")
	require.NoError(t, err)
	assert.EqualValues(t, 1001, byToken.ID)
	assert.EqualValues(t, 777, byToken.Payment.RemoteCustomerID)

	byAcquirer, err := repo.FindByAcquirerID(ctx, db, 9001)
	require.NoError(t, err)
	assert.EqualValues(t, 1001, byAcquirer.ID)

	byCart, err := repo.FindByCartID(ctx, db, 555)
	require.NoError(t, err)
	assert.EqualValues(t, 1001, byCart.ID)

	_, err = repo.FindByPaymentToken(ctx, db, "tok_missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSavePaymentMetaReplacesRow(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.Provide()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, db, sampleOrder(testNode(t), 1001)))
	require.NoError(t, repo.SavePaymentMeta(ctx, db, &domain.PaymentMeta{
		OrderID:      1001,
		RemoteCartID: 555,
		PaymentToken: "tok_old",
	}))

	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SavePaymentMeta(ctx, db, &domain.PaymentMeta{
		OrderID:            1001,
		RemoteCartID:       555,
		PaymentToken:       "tok_new",
		PaymentStatus:      "paid",
		LastRemoteStatus:   "approved",
		LastRemoteStatusAt: &at,
	}))

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM order_payment_meta WHERE order_id = ?`, 1001).Scan(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := repo.Get(ctx, db, 1001)
	require.NoError(t, err)
	assert.Equal(t, "tok_new", got.Payment.PaymentToken)
	assert.Equal(t, "approved", got.Payment.LastRemoteStatus)
}

func TestUpdateStatusAndNotes(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.Provide()
	ctx := context.Background()
	node := testNode(t)

	require.NoError(t, repo.Create(ctx, db, sampleOrder(node, 1001)))
	require.NoError(t, repo.UpdateStatus(ctx, db, 1001, domain.StatusPaid))
	require.NoError(t, repo.AddNote(ctx, db, &domain.Note{
		ID:      node.Generate(),
		OrderID: 1001,
		Note:    "Payment confirmed (status: approved)",
	}))

	got, err := repo.Get(ctx, db, 1001)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)

	notes, err := repo.Notes(ctx, db, 1001)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Note, "approved")
}
