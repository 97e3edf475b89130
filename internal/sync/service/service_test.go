package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	catalogservice "github.com/ferkcore/topadel/internal/catalog/service"
	"github.com/ferkcore/topadel/internal/config"
	identitydomain "github.com/ferkcore/topadel/internal/identity/domain"
	identityrepo "github.com/ferkcore/topadel/internal/identity/repository"
	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
	orderrepo "github.com/ferkcore/topadel/internal/order/repository"
	"github.com/ferkcore/topadel/internal/sync/service"
	"github.com/ferkcore/topadel/internal/topten"
)

var testDBSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_sync_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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
		`CREATE TABLE identity_mappings (
			id INTEGER PRIMARY KEY,
			entity_type TEXT NOT NULL,
			local_id INTEGER NOT NULL,
			external_id TEXT NOT NULL,
			natural_key_hash TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_identity_mappings_entity_local ON identity_mappings (entity_type, local_id)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// remoteRecorder fakes the commerce platform and records what it saw.
type remoteRecorder struct {
	registerCalls atomic.Int64
	cartCalls     atomic.Int64
	paymentCalls  atomic.Int64

	cartBody    atomic.Value // json.RawMessage
	paymentBody atomic.Value // json.RawMessage

	rejectPayment bool
}

func (r *remoteRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		w.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case "/api/CommonWeb/NewRegister":
			r.registerCalls.Add(1)
			fmt.Fprint(w, `777`)
		case "/api/Cart/AddCartProductExternal":
			r.cartCalls.Add(1)
			r.cartBody.Store(json.RawMessage(body))
			fmt.Fprint(w, `"555"`)
		case "/api/CommonWeb/PaymentPlacetopay":
			r.paymentCalls.Add(1)
			r.paymentBody.Store(json.RawMessage(body))
			if r.rejectPayment {
				fmt.Fprint(w, `{"Token":"","UrlExternal":"","SuccessInfo":{"Success":false,"Message":"saldo insuficiente"}}`)
				return
			}
			fmt.Fprint(w, `{"Token":"tok_abc","UrlExternal":"https://pay.example/session/tok_abc","ExpirationUTC":1767225600,"IdAdquiria":9001,"SuccessInfo":{"Success":true,"Message":"ok"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newSyncService(t *testing.T, db *gorm.DB, baseURL string) (*service.Service, orderdomain.Repository) {
	t.Helper()

	cfg := config.Config{SettingsFile: "/nonexistent/topadel-test.yml"}
	cfg.TopTen.Sandbox = true
	cfg.TopTen.BaseURLSandbox = baseURL
	cfg.TopTen.APIKey = "test-api-key"
	cfg.TopTen.EntityID = 51
	cfg.TopTen.TimeoutSeconds = 5
	cfg.Checkout = config.CheckoutConfig{
		PaymentConceptID: 27,
		PaymentMethodID:  1,
		BranchID:         78,
		CountryID:        186,
		PhonePrefix:      "+598",
		OriginLabel:      "Top padel",
		ReturnBaseURL:    "https://shop.example/topadel",
	}

	settings, err := config.NewSettingsHolder(cfg, zap.NewNop())
	require.NoError(t, err)

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	identity := identityrepo.Provide()
	orders := orderrepo.Provide()
	client := topten.New(topten.Params{Cfg: cfg, Settings: settings, Log: zap.NewNop()})

	svc := service.New(service.Params{
		Cfg:      cfg,
		Settings: settings,
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Client:   client,
		Orders:   orders,
		Identity: identity,
		Resolver: catalogservice.NewResolver(identity),
	})
	return svc, orders
}

func seedOrder(t *testing.T, db *gorm.DB, orders orderdomain.Repository, customerID int64) *orderdomain.Order {
	t.Helper()

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	order := &orderdomain.Order{
		ID:             1001,
		OrderKey:       "wc_order_k3y1001",
		Status:         orderdomain.StatusPending,
		Currency:       "UYU",
		Total:          1500,
		CustomerID:     customerID,
		Email:          "ada@example.com",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Phone:          "099 123 456",
		DocumentNumber: "41234567",
		Address:        "18 de Julio 1234, Montevideo, UY",
		CustomerIP:     "203.0.113.9",
		Lines: []orderdomain.Line{
			{
				ID:        node.Generate(),
				ProductID: 10,
				SKU:       "SKU1",
				Name:      "Padel racket",
				Quantity:  2,
				UnitPrice: 750,
				Total:     1500,
			},
		},
	}
	require.NoError(t, orders.Create(context.Background(), db, order))
	return order
}

func seedProductMapping(t *testing.T, db *gorm.DB, localID int64, remoteID string) {
	t.Helper()

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	require.NoError(t, identityrepo.Provide().Upsert(context.Background(), db, &identitydomain.Mapping{
		ID:         node.Generate(),
		EntityType: identitydomain.EntityProduct,
		LocalID:    localID,
		ExternalID: remoteID,
	}))
}

func TestCreatePaymentSessionEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	recorder := &remoteRecorder{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	svc, orders := newSyncService(t, db, srv.URL)
	seedProductMapping(t, db, 10, "42")
	order := seedOrder(t, db, orders, 12)

	session, err := svc.CreatePaymentSession(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "tok_abc", session.Token)
	assert.Equal(t, "https://pay.example/session/tok_abc", session.RedirectURL)
	assert.EqualValues(t, 9001, session.AcquirerID)

	assert.EqualValues(t, 1, recorder.registerCalls.Load())
	assert.EqualValues(t, 1, recorder.cartCalls.Load())
	assert.EqualValues(t, 1, recorder.paymentCalls.Load())

	var cartReq struct {
		UserID   int64 `json:"Usua_Cod"`
		Products []struct {
			ProductID int64 `json:"Prod_Id"`
			Quantity  int   `json:"Quantity"`
		} `json:"CartProducts"`
	}
	require.NoError(t, json.Unmarshal(recorder.cartBody.Load().(json.RawMessage), &cartReq))
	assert.EqualValues(t, 777, cartReq.UserID)
	require.Len(t, cartReq.Products, 1)
	assert.EqualValues(t, 42, cartReq.Products[0].ProductID)
	assert.Equal(t, 2, cartReq.Products[0].Quantity)

	var paymentReq struct {
		CartID      int64  `json:"Carr_Id"`
		ConceptID   int64  `json:"Coge_Id_Pago"`
		MethodID    int64  `json:"Mepa_Id"`
		OrderJSON   string `json:"JsonPedido"`
		RedirectURL string `json:"UrlRedirect"`
	}
	require.NoError(t, json.Unmarshal(recorder.paymentBody.Load().(json.RawMessage), &paymentReq))
	assert.EqualValues(t, 555, paymentReq.CartID)
	assert.EqualValues(t, 27, paymentReq.ConceptID)
	assert.EqualValues(t, 1, paymentReq.MethodID)
	assert.Contains(t, paymentReq.RedirectURL, "order_id=1001")
	assert.Contains(t, paymentReq.RedirectURL, "key=wc_order_k3y1001")

	var orderJSON struct {
		Request struct {
			Payment struct {
				CurrencyID   int64  `json:"mone_Id"`
				FullName     string `json:"nombreCompletoPago"`
				Document     string `json:"documento"`
				DocumentType string `json:"tipoDocumento"`
				Email        string `json:"email"`
				ConceptID    int64  `json:"coge_Id_Pago"`
				Valid        bool   `json:"valid"`
			} `json:"infoPago"`
			Delivery struct {
				BranchID     int64  `json:"sucu_Id"`
				PickupPerson string `json:"personaRetiro"`
			} `json:"entregaUsuario"`
			UserID   int64  `json:"usua_Cod"`
			Origin   string `json:"origen"`
			Products []struct {
				ProductID int64 `json:"idProducto"`
				Quantity  int   `json:"cantidad"`
			} `json:"productosPedido"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal([]byte(paymentReq.OrderJSON), &orderJSON))
	assert.EqualValues(t, 2, orderJSON.Request.Payment.CurrencyID)
	assert.Equal(t, "Ada Lovelace", orderJSON.Request.Payment.FullName)
	assert.Equal(t, "41234567", orderJSON.Request.Payment.Document)
	assert.Equal(t, "Cédula de identidad", orderJSON.Request.Payment.DocumentType)
	assert.Equal(t, "ada@example.com", orderJSON.Request.Payment.Email)
	assert.EqualValues(t, 27, orderJSON.Request.Payment.ConceptID)
	assert.True(t, orderJSON.Request.Payment.Valid)
	assert.EqualValues(t, 78, orderJSON.Request.Delivery.BranchID)
	assert.Equal(t, "ADA LOVELACE", orderJSON.Request.Delivery.PickupPerson)
	assert.EqualValues(t, 777, orderJSON.Request.UserID)
	assert.Equal(t, "Top padel", orderJSON.Request.Origin)
	require.Len(t, orderJSON.Request.Products, 1)
	assert.EqualValues(t, 42, orderJSON.Request.Products[0].ProductID)

	stored, err := orders.Get(context.Background(), db, 1001)
	require.NoError(t, err)
	assert.EqualValues(t, 777, stored.Payment.RemoteCustomerID)
	assert.EqualValues(t, 555, stored.Payment.RemoteCartID)
	assert.Equal(t, "tok_abc", stored.Payment.PaymentToken)
	assert.EqualValues(t, 9001, stored.Payment.PaymentAcquirerID)
	assert.Equal(t, "pending", stored.Payment.PaymentStatus)

	notes, err := orders.Notes(context.Background(), db, 1001)
	require.NoError(t, err)
	require.NotEmpty(t, notes)
	assert.Contains(t, notes[0].Note, "tok...abc")
}

func TestSyncCustomerReusesMapping(t *testing.T) {
	db := setupTestDB(t)
	recorder := &remoteRecorder{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	svc, orders := newSyncService(t, db, srv.URL)
	order := seedOrder(t, db, orders, 12)

	node, err := snowflake.NewNode(10)
	require.NoError(t, err)
	require.NoError(t, identityrepo.Provide().Upsert(context.Background(), db, &identitydomain.Mapping{
		ID:          node.Generate(),
		EntityType:  identitydomain.EntityCustomer,
		LocalID:     12,
		ExternalID:  "888",
		NaturalHash: identitydomain.HashIdentity(order.Email),
	}))

	id, err := svc.SyncCustomer(context.Background(), order)
	require.NoError(t, err)
	assert.EqualValues(t, 888, id)
	assert.Zero(t, recorder.registerCalls.Load())
}

func TestSyncCustomerGuestIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	recorder := &remoteRecorder{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	svc, orders := newSyncService(t, db, srv.URL)
	order := seedOrder(t, db, orders, 0)

	first, err := svc.SyncCustomer(context.Background(), order)
	require.NoError(t, err)
	assert.EqualValues(t, 777, first)

	second, err := svc.SyncCustomer(context.Background(), order)
	require.NoError(t, err)
	assert.EqualValues(t, 777, second)
	assert.EqualValues(t, 1, recorder.registerCalls.Load(), "second checkout reuses the guest mapping")
}

func TestSyncCustomerRejectsInvalidEmail(t *testing.T) {
	db := setupTestDB(t)
	svc, orders := newSyncService(t, db, "http://127.0.0.1:0")
	order := seedOrder(t, db, orders, 12)
	order.Email = "not-an-email"

	_, err := svc.SyncCustomer(context.Background(), order)
	assert.Error(t, err)
}

func TestCreatePaymentSessionAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	recorder := &remoteRecorder{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	svc, orders := newSyncService(t, db, srv.URL)
	order := seedOrder(t, db, orders, 12)

	_, err := svc.CreatePaymentSession(context.Background(), order)
	var mappingErr *service.MappingError
	require.True(t, errors.As(err, &mappingErr))
	assert.Contains(t, mappingErr.Missing, "SKU1")
	assert.Zero(t, recorder.cartCalls.Load(), "cart is never created partially")

	stored, err := orders.Get(context.Background(), db, 1001)
	require.NoError(t, err)
	assert.Contains(t, stored.Payment.MissingProducts, "SKU1")
}

func TestCreatePaymentSessionRejectedByRemote(t *testing.T) {
	db := setupTestDB(t)
	recorder := &remoteRecorder{rejectPayment: true}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	svc, orders := newSyncService(t, db, srv.URL)
	seedProductMapping(t, db, 10, "42")
	order := seedOrder(t, db, orders, 12)

	_, err := svc.CreatePaymentSession(context.Background(), order)
	var rejected *topten.SessionRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Contains(t, rejected.Message, "saldo insuficiente")

	stored, err := orders.Get(context.Background(), db, 1001)
	require.NoError(t, err)
	assert.Empty(t, stored.Payment.PaymentToken)
}

func TestSyncCartClearsStaleUnmappedFlag(t *testing.T) {
	db := setupTestDB(t)
	recorder := &remoteRecorder{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	svc, orders := newSyncService(t, db, srv.URL)
	seedProductMapping(t, db, 10, "42")
	order := seedOrder(t, db, orders, 12)

	require.NoError(t, orders.SavePaymentMeta(context.Background(), db, &orderdomain.PaymentMeta{
		OrderID:          order.ID,
		RemoteCartID:     555,
		MissingProducts:  `["SKU9"]`,
		RemoteCustomerID: 777,
	}))
	reloaded, err := orders.Get(context.Background(), db, order.ID)
	require.NoError(t, err)

	cartID, err := svc.SyncCart(context.Background(), reloaded, 777, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 555, cartID)
	assert.EqualValues(t, 0, recorder.cartCalls.Load(), "existing cart is reused")

	stored, err := orders.Get(context.Background(), db, order.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Payment.MissingProducts)
	assert.EqualValues(t, 555, stored.Payment.RemoteCartID)
}

func TestRecreatePaymentReusesCart(t *testing.T) {
	db := setupTestDB(t)
	recorder := &remoteRecorder{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	svc, orders := newSyncService(t, db, srv.URL)
	seedProductMapping(t, db, 10, "42")
	order := seedOrder(t, db, orders, 12)

	_, err := svc.CreatePaymentSession(context.Background(), order)
	require.NoError(t, err)

	_, err = svc.RecreatePayment(context.Background(), 1001)
	require.NoError(t, err)

	assert.EqualValues(t, 1, recorder.registerCalls.Load())
	assert.EqualValues(t, 1, recorder.cartCalls.Load(), "existing remote cart is reused")
	assert.EqualValues(t, 2, recorder.paymentCalls.Load())
}
