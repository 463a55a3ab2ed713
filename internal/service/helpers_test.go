package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/queue"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
)

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu          sync.Mutex
	sales       []queue.SaleCommittedEvent
	settlements []queue.DeliverySettledEvent
	err         error
}

func (r *recordingPublisher) PublishSaleCommitted(_ context.Context, ev queue.SaleCommittedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, ev)
	return r.err
}

func (r *recordingPublisher) PublishDeliverySettled(_ context.Context, ev queue.DeliverySettledEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settlements = append(r.settlements, ev)
	return r.err
}

func (r *recordingPublisher) saleEvents() []queue.SaleCommittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.SaleCommittedEvent(nil), r.sales...)
}

func (r *recordingPublisher) settlementEvents() []queue.DeliverySettledEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.DeliverySettledEvent(nil), r.settlements...)
}

// openStore provisions a fresh tenant store under t.TempDir and releases it
// when the test ends.
func openStore(t *testing.T, code string) (*tenant.Pool, *repository.Store) {
	t.Helper()
	pool := tenant.NewPool(t.TempDir(), time.Minute, nil)
	t.Cleanup(func() { _ = pool.Close() })
	lease, err := pool.Provision(context.Background(), code, "Test Bistro")
	require.NoError(t, err)
	t.Cleanup(lease.Release)
	return pool, lease.Store()
}

func cashier() model.Principal {
	return model.Principal{ID: 7, Username: "cashier1", Role: model.RoleCashier, TenantCode: "BISTRO"}
}

func createProduct(t *testing.T, store *repository.Store, name string, price float64, track bool, stock float64) model.Product {
	t.Helper()
	p := model.Product{Name: name, Price: price, TrackStock: track, StockQuantity: stock}
	require.NoError(t, store.Products.Create(context.Background(), &p))
	return p
}

func createDeliveryBoy(t *testing.T, store *repository.Store, name string) model.DeliveryBoy {
	t.Helper()
	d := model.DeliveryBoy{Name: name}
	require.NoError(t, store.DeliveryBoys.Create(context.Background(), &d))
	return d
}

func stockOf(t *testing.T, store *repository.Store, id int64) float64 {
	t.Helper()
	p, err := store.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func line(p model.Product, qty float64) model.CartLine {
	return model.CartLine{
		ProductID:  p.ID,
		Quantity:   qty,
		UnitPrice:  p.Price,
		TotalPrice: p.Price * qty,
	}
}

// cashSale builds a consistent cash request with no discount or VAT.
func cashSale(total, paid float64, lines ...model.CartLine) CommitSaleRequest {
	return CommitSaleRequest{
		Items:         lines,
		Subtotal:      total,
		Total:         total,
		PaymentMethod: model.PayCash,
		PaymentAmount: paid,
		ChangeAmount:  paid - total,
	}
}

// deliveryOrder builds a pay-after-delivery request.
func deliveryOrder(total float64, boyID *int64, lines ...model.CartLine) CommitSaleRequest {
	return CommitSaleRequest{
		Items:         lines,
		Subtotal:      total,
		Total:         total,
		PaymentMethod: model.PayAfterDelivery,
		OrderType:     model.OrderDelivery,
		DeliveryBoyID: boyID,
	}
}

// stallingPublisher never finishes a publish before its context ends, like
// a broker that accepts the connection and then goes quiet.
type stallingPublisher struct {
	deadlines chan bool
}

func (p *stallingPublisher) stall(ctx context.Context) error {
	_, ok := ctx.Deadline()
	select {
	case p.deadlines <- ok:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *stallingPublisher) PublishSaleCommitted(ctx context.Context, _ queue.SaleCommittedEvent) error {
	return p.stall(ctx)
}

func (p *stallingPublisher) PublishDeliverySettled(ctx context.Context, _ queue.DeliverySettledEvent) error {
	return p.stall(ctx)
}
