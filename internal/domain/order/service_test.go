package order

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// --- Mock repository ---

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*Order

	createErr error
}

func newMockRepo(orders ...*Order) *mockOrderRepo {
	m := &mockOrderRepo{orders: make(map[string]*Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *o
	m.orders[o.ID] = &clone
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]AdminOrder, error) {
	return nil, nil
}

func (m *mockOrderRepo) RevenueStats(_ context.Context) (*RevenueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &RevenueStats{TotalRevenue: decimal.Zero, PotentialRevenue: decimal.Zero}
	for _, o := range m.orders {
		switch o.Status {
		case StatusCompleted:
			stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		case StatusCanceled:
		default:
			stats.PotentialRevenue = stats.PotentialRevenue.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

// Transition mirrors the real repository: missing orders fail with ErrNotFound,
// a guard error from fn leaves the stored order untouched.
func (m *mockOrderRepo) Transition(_ context.Context, id string, fn func(o *Order) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	clone := *stored
	if err := fn(&clone); err != nil {
		return err
	}
	m.orders[id] = &clone
	return nil
}

// --- Helpers ---

func validRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		CustomerID:  "cust-1",
		TotalAmount: decimal.RequireFromString("12.50"),
		Items: []OrderItem{
			{ProductID: "espresso", Quantity: 2, Price: decimal.RequireFromString("2.50")},
			{ProductID: "latte", Quantity: 1, Price: decimal.RequireFromString("7.50")},
		},
		Location: "21 Bean St",
		Contact:  "555-0100",
	}
}

func canceledOrder(id string, by ActorKind) *Order {
	reason := "changed my mind"
	return &Order{
		ID:           id,
		CustomerID:   "cust-1",
		TotalAmount:  decimal.RequireFromString("10.00"),
		Status:       StatusCanceled,
		CancelReason: &reason,
		CanceledBy:   &by,
	}
}

// --- PlaceOrder ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := NewService(newMockRepo())

	req := validRequest()
	req.Items = nil

	_, err := svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	svc := NewService(newMockRepo())

	req := validRequest()
	req.Items[1].Quantity = 0

	_, err := svc.PlaceOrder(context.Background(), req)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "latte", iqErr.ProductID)
}

func TestPlaceOrder_NegativeTotal(t *testing.T) {
	svc := NewService(newMockRepo())

	req := validRequest()
	req.TotalAmount = decimal.RequireFromString("-1")

	_, err := svc.PlaceOrder(context.Background(), req)
	require.Error(t, err)
}

func TestPlaceOrder_Success(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	id, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	o, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.True(t, decimal.RequireFromString("12.50").Equal(o.TotalAmount))
	assert.Len(t, o.Items, 2)
	assert.Nil(t, o.CancelReason)
	assert.Nil(t, o.CanceledBy)
}

func TestPlaceOrder_ValidationBeforeWrite(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = errors.New("db write failed")
	svc := NewService(repo)

	req := validRequest()
	req.Items = nil

	// Validation failure must win over any persistence failure.
	_, err := svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_CreateError(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = errors.New("db write failed")
	svc := NewService(repo)

	_, err := svc.PlaceOrder(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestPlaceOrder_ConcurrentPlacements(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	const n = 16
	ids := make([]string, n)

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			id, err := svc.PlaceOrder(context.Background(), validRequest())
			ids[i] = id
			return err
		})
	}
	require.NoError(t, g.Wait())

	unique := make(map[string]bool, n)
	for _, id := range ids {
		require.NotEmpty(t, id)
		unique[id] = true
	}
	assert.Len(t, unique, n)

	orders, err := svc.ListForCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Len(t, orders, n)
}

// --- SetStatus ---

func TestSetStatus_Success(t *testing.T) {
	repo := newMockRepo(&Order{ID: "o1", Status: StatusPending})
	svc := NewService(repo)

	require.NoError(t, svc.SetStatus(context.Background(), "o1", StatusProcessing))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)
}

func TestSetStatus_ForbiddenWhenCustomerCanceled(t *testing.T) {
	repo := newMockRepo(canceledOrder("o1", ActorCustomer))
	svc := NewService(repo)

	err := svc.SetStatus(context.Background(), "o1", StatusProcessing)

	var ftErr *ForbiddenTransitionError
	require.ErrorAs(t, err, &ftErr)
	assert.Equal(t, "o1", ftErr.OrderID)

	// Guard failure leaves the order untouched.
	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, o.Status)
	require.NotNil(t, o.CanceledBy)
	assert.Equal(t, ActorCustomer, *o.CanceledBy)
}

func TestSetStatus_AllowedWhenStaffCanceled(t *testing.T) {
	repo := newMockRepo(canceledOrder("o1", ActorStaff))
	svc := NewService(repo)

	require.NoError(t, svc.SetStatus(context.Background(), "o1", StatusProcessing))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)
}

func TestSetStatus_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.SetStatus(context.Background(), "missing", StatusProcessing)
	require.ErrorIs(t, err, ErrNotFound)

	var ftErr *ForbiddenTransitionError
	assert.False(t, errors.As(err, &ftErr))
}

// --- Cancel ---

func TestCancel_RecordsReasonAndActor(t *testing.T) {
	repo := newMockRepo(&Order{ID: "o1", Status: StatusProcessing})
	svc := NewService(repo)

	require.NoError(t, svc.Cancel(context.Background(), "o1", "out of beans", ActorStaff))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, o.Status)
	require.NotNil(t, o.CancelReason)
	assert.Equal(t, "out of beans", *o.CancelReason)
	require.NotNil(t, o.CanceledBy)
	assert.Equal(t, ActorStaff, *o.CanceledBy)
}

func TestCancel_UnconditionalOnCompletedOrder(t *testing.T) {
	repo := newMockRepo(&Order{ID: "o1", Status: StatusCompleted})
	svc := NewService(repo)

	require.NoError(t, svc.Cancel(context.Background(), "o1", "refund", ActorCustomer))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, o.Status)
}

func TestCancel_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.Cancel(context.Background(), "missing", "reason", ActorCustomer)
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Reactivate ---

func TestReactivate_Success(t *testing.T) {
	repo := newMockRepo(canceledOrder("o1", ActorCustomer))
	svc := NewService(repo)

	require.NoError(t, svc.Reactivate(context.Background(), "o1"))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.CancelReason)
	assert.Nil(t, o.CanceledBy)
}

func TestReactivate_ForbiddenWhenStaffCanceled(t *testing.T) {
	repo := newMockRepo(canceledOrder("o1", ActorStaff))
	svc := NewService(repo)

	err := svc.Reactivate(context.Background(), "o1")

	var ftErr *ForbiddenTransitionError
	require.ErrorAs(t, err, &ftErr)

	o, getErr := repo.GetByID(context.Background(), "o1")
	require.NoError(t, getErr)
	assert.Equal(t, StatusCanceled, o.Status)
}

func TestReactivate_ForbiddenWhenNotCanceled(t *testing.T) {
	repo := newMockRepo(&Order{ID: "o1", Status: StatusPending})
	svc := NewService(repo)

	err := svc.Reactivate(context.Background(), "o1")

	var ftErr *ForbiddenTransitionError
	require.ErrorAs(t, err, &ftErr)
}

func TestReactivate_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.Reactivate(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Revenue ---

func TestRevenueStats_ExcludesCanceled(t *testing.T) {
	by := ActorCustomer
	repo := newMockRepo(
		&Order{ID: "o1", TotalAmount: decimal.RequireFromString("10"), Status: StatusCompleted},
		&Order{ID: "o2", TotalAmount: decimal.RequireFromString("20"), Status: StatusPending},
		&Order{ID: "o3", TotalAmount: decimal.RequireFromString("30"), Status: StatusCanceled, CanceledBy: &by},
	)
	svc := NewService(repo)

	stats, err := svc.RevenueStats(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10").Equal(stats.TotalRevenue))
	assert.True(t, decimal.RequireFromString("20").Equal(stats.PotentialRevenue))
}
