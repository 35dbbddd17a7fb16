package usecase_test

import (
	"context"
	"testing"

	"app/internal/apperr"
	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListAvailable(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id string) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByIDsForUpdate(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) ReplaceMedia(ctx context.Context, productID string, media []model.ProductMedia) error {
	args := m.Called(ctx, productID, media)
	return args.Error(0)
}

func (m *ProductRepoMock) UpdateStock(ctx context.Context, productID string, stock int64) error {
	args := m.Called(ctx, productID, stock)
	return args.Error(0)
}

func (m *ProductRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	created, _ := args.Get(0).(model.Order)
	if created.ID == "" {
		created = order
		created.ID = "order-1"
	}
	return created, args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByCustomerID(ctx context.Context, customerID string) ([]model.Order, error) {
	args := m.Called(ctx, customerID)
	items, _ := args.Get(0).([]model.Order)
	return items, args.Error(1)
}

func (m *OrderRepoMock) SetPaymentResult(ctx context.Context, orderID, paymentID, paymentStatus, statusDetail string) error {
	args := m.Called(ctx, orderID, paymentID, paymentStatus, statusDetail)
	return args.Error(0)
}

func (m *OrderRepoMock) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) MarkRejected(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

type CustomerRepoMock struct{ mock.Mock }

func (m *CustomerRepoMock) FindByID(ctx context.Context, id string) (model.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Customer)
	return c, args.Error(1)
}

func (m *CustomerRepoMock) FindByIDWithMethods(ctx context.Context, id string) (model.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Customer)
	return c, args.Error(1)
}

func (m *CustomerRepoMock) FindByEmail(ctx context.Context, email string) (model.Customer, error) {
	args := m.Called(ctx, email)
	c, _ := args.Get(0).(model.Customer)
	return c, args.Error(1)
}

func (m *CustomerRepoMock) UpsertByEmail(ctx context.Context, email string, firstName, lastName *string) (model.Customer, bool, error) {
	args := m.Called(ctx, email, firstName, lastName)
	c, _ := args.Get(0).(model.Customer)
	return c, args.Bool(1), args.Error(2)
}

func (m *CustomerRepoMock) UpdateProfile(ctx context.Context, id string, p repo.CustomerProfile) (model.Customer, error) {
	args := m.Called(ctx, id, p)
	c, _ := args.Get(0).(model.Customer)
	return c, args.Error(1)
}

type SavedMethodRepoMock struct{ mock.Mock }

func (m *SavedMethodRepoMock) ListByCustomerID(ctx context.Context, customerID string) ([]model.SavedPaymentMethod, error) {
	args := m.Called(ctx, customerID)
	items, _ := args.Get(0).([]model.SavedPaymentMethod)
	return items, args.Error(1)
}

func (m *SavedMethodRepoMock) FindByID(ctx context.Context, id string) (model.SavedPaymentMethod, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(model.SavedPaymentMethod)
	return v, args.Error(1)
}

func (m *SavedMethodRepoMock) Create(ctx context.Context, v model.SavedPaymentMethod) (model.SavedPaymentMethod, error) {
	args := m.Called(ctx, v)
	created, _ := args.Get(0).(model.SavedPaymentMethod)
	return created, args.Error(1)
}

func (m *SavedMethodRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type AdminRepoMock struct{ mock.Mock }

func (m *AdminRepoMock) FindByUsername(ctx context.Context, username string) (model.Admin, error) {
	args := m.Called(ctx, username)
	a, _ := args.Get(0).(model.Admin)
	return a, args.Error(1)
}

func (m *AdminRepoMock) Create(ctx context.Context, a model.Admin) (model.Admin, error) {
	args := m.Called(ctx, a)
	created, _ := args.Get(0).(model.Admin)
	return created, args.Error(1)
}

// txの開始/終了を省いてfnへそのまま渡すスタブ。
type txReposStub struct {
	products *ProductRepoMock
	orders   *OrderRepoMock
	cust     *CustomerRepoMock
	saved    *SavedMethodRepoMock
}

func (s *txReposStub) Products() repo.ProductRepository                     { return s.products }
func (s *txReposStub) Orders() repo.OrderRepository                         { return s.orders }
func (s *txReposStub) Customers() repo.CustomerRepository                   { return s.cust }
func (s *txReposStub) SavedPaymentMethods() repo.SavedPaymentMethodRepository { return s.saved }

type txManagerStub struct {
	repos *txReposStub
}

func (t *txManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(t.repos)
}

func newTxStub() (*txManagerStub, *txReposStub) {
	r := &txReposStub{
		products: new(ProductRepoMock),
		orders:   new(OrderRepoMock),
		cust:     new(CustomerRepoMock),
		saved:    new(SavedMethodRepoMock),
	}
	return &txManagerStub{repos: r}, r
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Charge(ctx context.Context, req mercadopago.ChargeRequest) (mercadopago.Payment, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(mercadopago.Payment)
	return p, args.Error(1)
}

func (m *GatewayMock) FetchByID(ctx context.Context, id string) (mercadopago.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(mercadopago.Payment)
	return p, args.Error(1)
}

type VerifierMock struct{ mock.Mock }

func (m *VerifierMock) Verify(ctx context.Context, rawToken string) (usecase.GoogleIdentity, error) {
	args := m.Called(ctx, rawToken)
	id, _ := args.Get(0).(usecase.GoogleIdentity)
	return id, args.Error(1)
}

// =====================
// Helpers
// =====================

func assertKind(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	assert.Error(t, err)
	e, ok := apperr.As(err)
	if assert.True(t, ok, "expected *apperr.Error, got %v", err) {
		assert.Equal(t, kind, e.Kind)
		assert.Equal(t, code, e.Code)
	}
}
