package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

type SaleServiceTestSuite struct {
	suite.Suite
	store  *repository.Store
	events *recordingPublisher
	svc    *SaleService
	ctx    context.Context
}

func (s *SaleServiceTestSuite) SetupTest() {
	_, s.store = openStore(s.T(), "BISTRO")
	s.events = &recordingPublisher{}
	s.svc = NewSaleService(s.events, nil, nil, time.UTC)
	s.ctx = context.Background()
}

func TestSaleService(t *testing.T) {
	suite.Run(t, new(SaleServiceTestSuite))
}

func (s *SaleServiceTestSuite) TestCommitTwoLinesCash() {
	tea := createProduct(s.T(), s.store, "Mint tea", 3.50, false, 0)
	tagine := createProduct(s.T(), s.store, "Tagine", 9.99, false, 0)

	sale, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(16.99, 20, line(tea, 2), line(tagine, 1)))
	s.Require().NoError(err)

	s.InDelta(16.99, sale.Total, 1e-9)
	s.InDelta(16.99, sale.Subtotal, 1e-9)
	s.InDelta(3.01, sale.ChangeAmount, 1e-9)
	s.Equal(model.PayCash, sale.PaymentMethod)
	s.Nil(sale.DeliveryStatus)
	s.Equal("cashier1", sale.OperatorName)
	s.Regexp(`^S-\d{8}-\d{6}-[0-9A-F]{6}$`, sale.SaleNumber)

	s.Require().Len(sale.Items, 2)
	s.Equal("Mint tea", sale.Items[0].ProductName)
	s.InDelta(2, sale.Items[0].Quantity, 1e-9)
	s.InDelta(7.00, sale.Items[0].TotalPrice, 1e-9)
	s.Equal("Tagine", sale.Items[1].ProductName)

	ev := s.events.saleEvents()
	s.Require().Len(ev, 1)
	s.Equal("BISTRO", ev[0].TenantCode)
	s.Equal(sale.SaleNumber, ev[0].SaleNumber)
	s.Equal(2, ev[0].ItemCount)
}

func (s *SaleServiceTestSuite) TestCommitPayAfterDeliveryWithoutPersonIsPending() {
	pizza := createProduct(s.T(), s.store, "Pizza", 12, false, 0)

	sale, err := s.svc.Commit(s.ctx, s.store, cashier(), deliveryOrder(12, nil, line(pizza, 1)))
	s.Require().NoError(err)
	s.Require().NotNil(sale.DeliveryStatus)
	s.Equal(model.DeliveryPending, *sale.DeliveryStatus)
	s.Nil(sale.DeliveryBoyID)
	s.Nil(sale.DeliveryAssignedAt)
}

func (s *SaleServiceTestSuite) TestCommitPayAfterDeliveryWithPersonIsAssigned() {
	pizza := createProduct(s.T(), s.store, "Pizza", 12, false, 0)
	boy := createDeliveryBoy(s.T(), s.store, "Karim")

	sale, err := s.svc.Commit(s.ctx, s.store, cashier(), deliveryOrder(12, &boy.ID, line(pizza, 1)))
	s.Require().NoError(err)
	s.Equal(model.DeliveryAssigned, *sale.DeliveryStatus)
	s.Equal(boy.ID, *sale.DeliveryBoyID)
	s.NotNil(sale.DeliveryAssignedAt)
	s.Require().NotNil(sale.DeliveryBoyName)
	s.Equal("Karim", *sale.DeliveryBoyName)
}

func (s *SaleServiceTestSuite) TestDeliveryPersonRejectedForImmediatePayment() {
	pizza := createProduct(s.T(), s.store, "Pizza", 12, false, 0)
	boy := createDeliveryBoy(s.T(), s.store, "Karim")
	req := cashSale(12, 12, line(pizza, 1))
	req.DeliveryBoyID = &boy.ID

	_, err := s.svc.Commit(s.ctx, s.store, cashier(), req)
	s.True(repository.IsValidation(err))
}

func (s *SaleServiceTestSuite) TestEmptyCartRejected() {
	_, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(0, 0))
	s.True(repository.IsValidation(err))
	s.Empty(s.events.saleEvents())
}

func (s *SaleServiceTestSuite) TestTamperedTotalRejectedWithoutWrites() {
	burger := createProduct(s.T(), s.store, "Burger", 8, true, 10)
	req := cashSale(8, 10, line(burger, 1))
	req.Total = 5
	req.ChangeAmount = 5

	_, err := s.svc.Commit(s.ctx, s.store, cashier(), req)
	s.Require().Error(err)
	var ve *repository.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("total", ve.Field)

	s.InDelta(10, stockOf(s.T(), s.store, burger.ID), 1e-9)
	list, err := s.svc.List(s.ctx, s.store, repository.SaleFilter{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *SaleServiceTestSuite) TestUnknownProductRejected() {
	req := cashSale(5, 5, model.CartLine{ProductID: 999, Quantity: 1, UnitPrice: 5, TotalPrice: 5})
	_, err := s.svc.Commit(s.ctx, s.store, cashier(), req)
	s.True(repository.IsValidation(err))
}

func (s *SaleServiceTestSuite) TestUntrackedStockUnchanged() {
	soup := createProduct(s.T(), s.store, "Soup", 4, false, 25)

	_, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(12, 12, line(soup, 3)))
	s.Require().NoError(err)
	s.InDelta(25, stockOf(s.T(), s.store, soup.ID), 1e-9)
}

func (s *SaleServiceTestSuite) TestDeleteRestoresTrackedStock() {
	cola := createProduct(s.T(), s.store, "Cola", 1.5, true, 10)

	sale, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(4.5, 5, line(cola, 3)))
	s.Require().NoError(err)
	s.InDelta(7, stockOf(s.T(), s.store, cola.ID), 1e-9)

	removed, err := s.svc.Delete(s.ctx, s.store, sale.ID)
	s.Require().NoError(err)
	s.Equal(sale.SaleNumber, removed.SaleNumber)
	s.InDelta(10, stockOf(s.T(), s.store, cola.ID), 1e-9)

	_, err = s.svc.Get(s.ctx, s.store, sale.ID)
	s.ErrorIs(err, repository.ErrNotFound)
	_, err = s.svc.Delete(s.ctx, s.store, sale.ID)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *SaleServiceTestSuite) TestStockMayGoNegative() {
	cola := createProduct(s.T(), s.store, "Cola", 1, true, 1)

	_, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(3, 3, line(cola, 3)))
	s.Require().NoError(err)
	s.InDelta(-2, stockOf(s.T(), s.store, cola.ID), 1e-9)
}

func (s *SaleServiceTestSuite) TestConcurrentCommitsGetDistinctNumbers() {
	water := createProduct(s.T(), s.store, "Water", 1, true, 100)

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(1, 1, line(water, 1)))
			if err != nil {
				errs <- err
				return
			}
			numbers <- sale.SaleNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}
	seen := map[string]bool{}
	for num := range numbers {
		s.False(seen[num], "duplicate sale number %s", num)
		seen[num] = true
	}
	s.Len(seen, n)
	s.InDelta(100-n, stockOf(s.T(), s.store, water.ID), 1e-9)
}

func (s *SaleServiceTestSuite) TestListFilters() {
	pizza := createProduct(s.T(), s.store, "Pizza", 10, false, 0)
	_, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(10, 10, line(pizza, 1)))
	s.Require().NoError(err)
	_, err = s.svc.Commit(s.ctx, s.store, cashier(), deliveryOrder(10, nil, line(pizza, 1)))
	s.Require().NoError(err)

	list, err := s.svc.List(s.ctx, s.store, repository.SaleFilter{PaymentMethod: model.PayAfterDelivery})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(model.PayAfterDelivery, list[0].PaymentMethod)

	list, err = s.svc.List(s.ctx, s.store, repository.SaleFilter{DeliveryStatus: model.DeliveryPending})
	s.Require().NoError(err)
	s.Len(list, 1)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	list, err = s.svc.List(s.ctx, s.store, repository.SaleFilter{From: &tomorrow})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *SaleServiceTestSuite) TestPublishFailureDoesNotFailCommit() {
	s.events.err = context.DeadlineExceeded
	pizza := createProduct(s.T(), s.store, "Pizza", 10, false, 0)

	_, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(10, 10, line(pizza, 1)))
	s.NoError(err)
	s.Len(s.events.saleEvents(), 1)
}

func (s *SaleServiceTestSuite) TestSlowBrokerDoesNotHoldCommit() {
	pub := &stallingPublisher{deadlines: make(chan bool, 1)}
	svc := NewSaleService(pub, nil, nil, time.UTC)
	svc.PublishTimeout = 50 * time.Millisecond
	pizza := createProduct(s.T(), s.store, "Pizza", 10, false, 0)

	start := time.Now()
	_, err := svc.Commit(s.ctx, s.store, cashier(), cashSale(10, 10, line(pizza, 1)))
	s.Require().NoError(err)
	s.Less(time.Since(start), 2*time.Second)
	s.True(<-pub.deadlines, "publish context carries a deadline")
}

func (s *SaleServiceTestSuite) TestFailureMidCommitRollsBackEverything() {
	wrap := createProduct(s.T(), s.store, "Wrap", 6, true, 10)
	juice := createProduct(s.T(), s.store, "Juice", 4, true, 5)
	_, err := s.store.DB().ExecContext(s.ctx, `CREATE TRIGGER fail_second_line BEFORE INSERT ON sale_items
		WHEN (SELECT COUNT(*) FROM sale_items WHERE sale_id = NEW.sale_id) >= 1
		BEGIN SELECT RAISE(ABORT, 'second line refused'); END`)
	s.Require().NoError(err)

	_, err = s.svc.Commit(s.ctx, s.store, cashier(), cashSale(10, 10, line(wrap, 1), line(juice, 1)))
	s.Require().Error(err)

	var n int
	s.Require().NoError(s.store.DB().QueryRowContext(s.ctx, "SELECT COUNT(*) FROM sales").Scan(&n))
	s.Zero(n)
	s.Require().NoError(s.store.DB().QueryRowContext(s.ctx, "SELECT COUNT(*) FROM sale_items").Scan(&n))
	s.Zero(n)
	s.InDelta(10, stockOf(s.T(), s.store, wrap.ID), 1e-9)
	s.InDelta(5, stockOf(s.T(), s.store, juice.ID), 1e-9)
	s.Empty(s.events.saleEvents())
}

func (s *SaleServiceTestSuite) TestVATRateMustMatchSetting() {
	s.Require().NoError(s.store.Settings.Upsert(s.ctx, map[string]string{"vat_percentage": "10"}))
	tea := createProduct(s.T(), s.store, "Tea", 10, false, 0)

	_, err := s.svc.Commit(s.ctx, s.store, cashier(), cashSale(10, 10, line(tea, 1)))
	var ve *repository.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("vat_percentage", ve.Field)

	req := cashSale(11, 20, line(tea, 1))
	req.Subtotal = 10
	req.VATPercentage = 10
	req.VATAmount = 1
	req.ChangeAmount = 9
	sale, err := s.svc.Commit(s.ctx, s.store, cashier(), req)
	s.Require().NoError(err)
	s.InDelta(11, sale.Total, 1e-9)
	s.InDelta(10, sale.VATPercentage, 1e-9)
}
