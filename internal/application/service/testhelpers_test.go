package service

import (
	"context"
	"sync"
	"time"

	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/internal/infrastructure/qpay"
	"github.com/badrakh/monshop-api/pkg/email"
	"github.com/google/uuid"
)

func testQPayServiceConfig() *config.QPayConfig {
	return &config.QPayConfig{
		BaseURL:            "https://gateway.test/v2",
		InvoiceCode:        "TEST_INVOICE",
		CallbackURL:        "https://shop.test/api/v1/payments/callback",
		RequestTimeout:     5 * time.Second,
		TokenMargin:        60 * time.Second,
		ReceiptTokenMargin: 2 * time.Minute,
		StatusCacheTTL:     15 * time.Second,
		CheckInterval:      15 * time.Second,
		VATRate:            0.1,
	}
}

// fakeGateway is an in-memory PaymentGateway with canned responses and call
// counters.
type fakeGateway struct {
	mu sync.Mutex

	invoiceResp    *qpay.InvoiceResponse
	invoiceErr     error
	invoiceDelay   time.Duration
	invoiceCalls   int
	lastInvoiceReq *qpay.InvoiceRequest

	checkRecords []qpay.PaymentRecord
	checkErr     error
	checkCalls   int

	ebarimtResp    *qpay.EbarimtResponse
	ebarimtErr     error
	ebarimtCalls   int
	lastEbarimtReq *qpay.EbarimtRequest

	cancelInvoiceCalls int
	cancelPaymentCalls int
	refundCalls        int

	token        string
	tokenExpires time.Time
	tokenOK      bool
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, req *qpay.InvoiceRequest) (*qpay.InvoiceResponse, error) {
	g.mu.Lock()
	g.invoiceCalls++
	g.lastInvoiceReq = req
	delay := g.invoiceDelay
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if g.invoiceErr != nil {
		return nil, g.invoiceErr
	}
	if g.invoiceResp != nil {
		return g.invoiceResp, nil
	}
	return &qpay.InvoiceResponse{InvoiceID: "inv-1", QRText: "qr-payload"}, nil
}

func (g *fakeGateway) CheckPayment(ctx context.Context, invoiceID string) ([]qpay.PaymentRecord, error) {
	g.mu.Lock()
	g.checkCalls++
	g.mu.Unlock()

	if g.checkErr != nil {
		return nil, g.checkErr
	}
	return g.checkRecords, nil
}

func (g *fakeGateway) CancelInvoice(ctx context.Context, invoiceID string) error {
	g.mu.Lock()
	g.cancelInvoiceCalls++
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) CancelPayment(ctx context.Context, paymentID string) error {
	g.mu.Lock()
	g.cancelPaymentCalls++
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) RefundPayment(ctx context.Context, paymentID string) error {
	g.mu.Lock()
	g.refundCalls++
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) CreateEbarimt(ctx context.Context, req *qpay.EbarimtRequest) (*qpay.EbarimtResponse, error) {
	g.mu.Lock()
	g.ebarimtCalls++
	g.lastEbarimtReq = req
	g.mu.Unlock()

	if g.ebarimtErr != nil {
		return nil, g.ebarimtErr
	}
	if g.ebarimtResp != nil {
		return g.ebarimtResp, nil
	}
	return &qpay.EbarimtResponse{ID: "ebarimt-1", Status: "SUCCESS"}, nil
}

func (g *fakeGateway) ActiveToken() (string, time.Time, bool) {
	return g.token, g.tokenExpires, g.tokenOK
}

// fakeOrderRepo is an in-memory OrderRepository applying the same guarded
// update semantics as the SQL implementation.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*entity.Order

	setInvoiceCalls int
	markPaidCalls   int

	// orderNoCollisions forces that many OrderNoExists hits before numbers
	// come back free again.
	orderNoCollisions int
	orderNoChecks     int
}

func newFakeOrderRepo(orders ...*entity.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: make(map[uuid.UUID]*entity.Order)}
	for _, o := range orders {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) get(id uuid.UUID) *entity.Order {
	o, ok := r.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id), nil
}

func (r *fakeOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) GetWithLines(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeOrderRepo) OrderNoExists(ctx context.Context, orderNo string) (bool, error) {
	r.mu.Lock()
	r.orderNoChecks++
	if r.orderNoCollisions > 0 {
		r.orderNoCollisions--
		r.mu.Unlock()
		return true, nil
	}
	r.mu.Unlock()

	o, _ := r.GetByOrderNo(ctx, orderNo)
	return o != nil, nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, userID uuid.UUID, params *repository.OrderFilterParams) ([]entity.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Order
	for _, o := range r.orders {
		if params != nil && !params.SkipUserFilter && o.UserID != userID {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) SetInvoice(ctx context.Context, id uuid.UUID, fields *repository.InvoiceFields) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setInvoiceCalls++

	o, ok := r.orders[id]
	if !ok || o.QPayInvoiceID != nil {
		return false, nil
	}
	o.QPayInvoiceID = &fields.InvoiceID
	o.QPayQRText = &fields.QRText
	o.QPayQRImage = fields.QRImage
	if fields.Token != "" {
		tok := fields.Token
		exp := fields.TokenExpires
		o.QPayToken = &tok
		o.QPayTokenExpiresAt = &exp
	}
	return true, nil
}

func (r *fakeOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, fields *repository.PaidFields) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markPaidCalls++

	o, ok := r.orders[id]
	if !ok || o.PaymentStatus != enum.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = enum.PaymentStatusPaid
	o.Status = enum.OrderStatusPaid
	o.QPayPaymentID = &fields.PaymentID
	o.PaymentMethod = &fields.PaymentMethod
	paidAt := fields.PaidAt
	o.PaidAt = &paidAt
	return true, nil
}

func (r *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, payment enum.PaymentStatus, status enum.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		o.PaymentStatus = payment
		o.Status = status
	}
	return nil
}

func (r *fakeOrderRepo) SetEbarimtID(ctx context.Context, id uuid.UUID, ebarimtID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		o.EbarimtID = &ebarimtID
	}
	return nil
}

// fakeReceiptRepo is an in-memory ReceiptRepository.
type fakeReceiptRepo struct {
	mu          sync.Mutex
	receipts    map[uuid.UUID]*entity.EbarimtReceipt
	createCalls int
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: make(map[uuid.UUID]*entity.EbarimtReceipt)}
}

func (r *fakeReceiptRepo) Create(ctx context.Context, receipt *entity.EbarimtReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	r.receipts[receipt.OrderID] = receipt
	return nil
}

func (r *fakeReceiptRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.EbarimtReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.receipts[orderID], nil
}

// fakeProductRepo holds a static product catalog with stock tracking.
type fakeProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*entity.Product
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[uuid.UUID]*entity.Product)}
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(ctx context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) AtomicDecrementBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []uuid.UUID
	for id, qty := range decrements {
		p, ok := r.products[id]
		if !ok || p.Quantity < qty {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}
	for id, qty := range decrements {
		r.products[id].Quantity -= qty
	}
	return nil, nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

// recordingMailer captures sent confirmations.
type recordingMailer struct {
	mu   sync.Mutex
	sent []email.PaymentConfirmation
}

func (m *recordingMailer) SendPaymentConfirmedEmail(toEmail string, data email.PaymentConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

func pendingOrder(total int64) *entity.Order {
	return &entity.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		OrderNo:       "SO-20260828-TEST",
		OrderDate:     time.Now(),
		Status:        enum.OrderStatusPending,
		PaymentStatus: enum.PaymentStatusPending,
		SubTotal:      total,
		Total:         total,
	}
}

func withInvoice(order *entity.Order, invoiceID string) *entity.Order {
	qrText := "qr-" + invoiceID
	order.QPayInvoiceID = &invoiceID
	order.QPayQRText = &qrText
	return order
}
