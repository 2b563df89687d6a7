package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/event"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory implementation of the list, item and export
// repositories with the same observable semantics as the Postgres ones.
type memStore struct {
	mu    sync.Mutex
	lists []*domain.List
	items []*domain.Item
	now   func() time.Time
}

func newMemStore() *memStore {
	return &memStore{now: func() time.Time { return testNow }}
}

func (m *memStore) findList(id string) (int, *domain.List) {
	for i, l := range m.lists {
		if l.ID == id {
			return i, l
		}
	}
	return -1, nil
}

func (m *memStore) Create(_ context.Context, owner domain.Owner, name string) (*domain.List, error) {
	if owner.IsZero() {
		return nil, apperrors.InvalidInput("list owner is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	isDefault := true
	for _, l := range m.lists {
		if l.Owner == owner && l.IsDefault {
			isDefault = false
		}
	}
	l := &domain.List{
		ID:        uuid.NewString(),
		Owner:     owner,
		Name:      name,
		IsDefault: isDefault,
		CreatedAt: m.now(),
		UpdatedAt: m.now(),
	}
	m.lists = append(m.lists, l)
	cp := *l
	return &cp, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, l := m.findList(id)
	if l == nil {
		return nil, apperrors.NotFound("wishlist", id)
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) GetDefault(_ context.Context, owner domain.Owner) (*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lists {
		if l.Owner == owner && l.IsDefault {
			cp := *l
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("default wishlist", owner.String())
}

func (m *memStore) EnsureDefault(ctx context.Context, owner domain.Owner, name string) (*domain.List, error) {
	if l, err := m.GetDefault(ctx, owner); err == nil {
		return l, nil
	}
	return m.Create(ctx, owner, name)
}

func (m *memStore) ListByOwner(_ context.Context, owner domain.Owner) ([]domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.List{}
	for _, l := range m.lists {
		if l.Owner == owner {
			out = append(out, *l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) Rename(_ context.Context, id, name string) (*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, l := m.findList(id)
	if l == nil {
		return nil, apperrors.NotFound("wishlist", id)
	}
	l.Name = name
	l.UpdatedAt = m.now()
	cp := *l
	return &cp, nil
}

func (m *memStore) deleteLocked(id string) bool {
	idx, l := m.findList(id)
	if l == nil {
		return false
	}
	kept := m.items[:0]
	for _, it := range m.items {
		if it.ListID != id {
			kept = append(kept, it)
		}
	}
	m.items = kept
	m.lists = append(m.lists[:idx], m.lists[idx+1:]...)
	if l.IsDefault {
		for _, other := range m.lists {
			if other.Owner == l.Owner {
				other.IsDefault = true
				break
			}
		}
	}
	return true
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.deleteLocked(id) {
		return apperrors.NotFound("wishlist", id)
	}
	return nil
}

func (m *memStore) DeleteExpiredAnonymous(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []string
	for _, l := range m.lists {
		if l.Owner.IsSession() && l.CreatedAt.Before(cutoff) {
			expired = append(expired, l.ID)
		}
	}
	for _, id := range expired {
		m.deleteLocked(id)
	}
	return len(expired), nil
}

func (m *memStore) backdate(listID string, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, l := m.findList(listID); l != nil {
		l.CreatedAt = createdAt
	}
}

func (m *memStore) Exists(_ context.Context, listID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ListID == listID && it.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Add(_ context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, l := m.findList(item.ListID); l == nil {
		return apperrors.NotFound("wishlist", item.ListID)
	}
	for _, it := range m.items {
		if it.ListID == item.ListID && it.ProductID == item.ProductID {
			return apperrors.AlreadyExists(domain.DuplicateItemMessage)
		}
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	cp := *item
	m.items = append(m.items, &cp)
	return nil
}

func (m *memStore) Remove(_ context.Context, listID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.ListID == listID && it.ProductID == productID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListByList(_ context.Context, listID string) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Item{}
	for _, it := range m.items {
		if it.ListID == listID {
			out = append(out, *it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (m *memStore) Popular(_ context.Context, limit int) ([]domain.PopularProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, it := range m.items {
		counts[it.ProductID]++
	}
	out := make([]domain.PopularProduct, 0, len(counts))
	for id, n := range counts {
		out = append(out, domain.PopularProduct{ProductID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountByProduct(_ context.Context, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		if it.ProductID == productID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListPriced(_ context.Context, afterID string, limit int) ([]domain.OwnedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OwnedItem
	for _, it := range m.items {
		if !it.PriceSnapshot.Valid || !it.PriceSnapshot.Decimal.IsPositive() || it.ID <= afterID {
			continue
		}
		_, l := m.findList(it.ListID)
		out = append(out, domain.OwnedItem{Item: *it, Owner: l.Owner})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SetNotifiedPrice(_ context.Context, itemID string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == itemID {
			it.NotifiedPrice = decimal.NewNullDecimal(price)
			return nil
		}
	}
	return apperrors.NotFound("wishlist item", itemID)
}

func (m *memStore) Export(_ context.Context, fn func(domain.ExportRow) error) error {
	m.mu.Lock()
	rows := []domain.ExportRow{}
	for _, l := range m.lists {
		for _, it := range m.items {
			if it.ListID != l.ID {
				continue
			}
			rows = append(rows, domain.ExportRow{
				ListID:        l.ID,
				ListName:      l.Name,
				OwnerType:     l.Owner.Kind(),
				OwnerID:       l.Owner.ID(),
				ProductID:     it.ProductID,
				PriceSnapshot: it.PriceSnapshot,
				AddedAt:       it.AddedAt,
			})
		}
	}
	m.mu.Unlock()
	for _, r := range rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) itemCount(listID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		if it.ListID == listID {
			n++
		}
	}
	return n
}

// fakeCatalog serves products from a map. Unknown ids are reported as
// missing; ids in failing return an error.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
	failing  map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]domain.Product{}, failing: map[string]error{}}
}

func (c *fakeCatalog) put(id, price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := domain.Product{
		ID:               id,
		Exists:           true,
		Visible:          true,
		Purchasable:      true,
		Name:             "Product " + id,
		Permalink:        "https://shop.example.com/products/" + id,
		DefaultVariantID: "variant-" + id,
	}
	if price != "" {
		p.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	c.products[id] = p
}

func (c *fakeCatalog) hide(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Visible = false
	p.Purchasable = false
	c.products[id] = p
}

func (c *fakeCatalog) fail(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing[id] = err
}

func (c *fakeCatalog) GetProduct(_ context.Context, id string) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failing[id]; ok {
		return domain.Product{}, err
	}
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return domain.Product{ID: id}, nil
}

type fakeStock struct {
	inStock bool
	err     error
}

func (f *fakeStock) InStock(context.Context, string, string, int) (bool, error) {
	return f.inStock, f.err
}

type cartCall struct {
	owner     domain.Owner
	productID string
	qty       int
}

type fakeCart struct {
	calls []cartCall
	err   error
}

func (f *fakeCart) AddToCart(_ context.Context, owner domain.Owner, p domain.Product, qty int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, cartCall{owner: owner, productID: p.ID, qty: qty})
	return nil
}

type memNotices struct {
	mu      sync.Mutex
	pending map[string][]domain.Notice
	err     error
}

func newMemNotices() *memNotices {
	return &memNotices{pending: map[string][]domain.Notice{}}
}

func (n *memNotices) Push(_ context.Context, accountID string, notice domain.Notice) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending[accountID] = append(n.pending[accountID], notice)
	return nil
}

func (n *memNotices) Pop(_ context.Context, accountID string) ([]domain.Notice, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending[accountID]
	delete(n.pending, accountID)
	if out == nil {
		out = []domain.Notice{}
	}
	return out, nil
}

type memContacts map[string]string

func (c memContacts) Remember(_ context.Context, accountID, email string) error {
	c[accountID] = email
	return nil
}

func (c memContacts) Lookup(_ context.Context, accountID string) (string, error) {
	return c[accountID], nil
}

type sentMail struct {
	to    string
	drops []domain.PriceDrop
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (s *fakeSender) SendPriceDrops(_ context.Context, to string, drops []domain.PriceDrop) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, drops: drops})
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

// harness wires every service over the in-memory fakes.
type harness struct {
	store     *memStore
	catalog   *fakeCatalog
	stock     *fakeStock
	cart      *fakeCart
	notices   *memNotices
	contacts  memContacts
	sender    *fakeSender
	publisher *recordingPublisher

	lists     *ListService
	items     *ItemService
	merge     *MergeService
	priceDrop *PriceDropService
	sweep     *SweepService
	export    *ExportService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	mergeEnabled bool
	moveRemoves  bool
	priceDrop    PriceDropConfig
}

func withMergeDisabled() harnessOption {
	return func(c *harnessConfig) { c.mergeEnabled = false }
}

func withPriceDrop(cfg PriceDropConfig) harnessOption {
	return func(c *harnessConfig) { c.priceDrop = cfg }
}

func withMoveKeepsItem() harnessOption {
	return func(c *harnessConfig) { c.moveRemoves = false }
}

func newHarness(opts ...harnessOption) *harness {
	cfg := harnessConfig{
		mergeEnabled: true,
		moveRemoves:  true,
		priceDrop: PriceDropConfig{
			Threshold:     decimal.NewFromInt(5),
			EmailEnabled:  true,
			NoticeEnabled: true,
		},
	}
	for _, o := range opts {
		o(&cfg)
	}

	logger := newTestLogger()
	h := &harness{
		store:     newMemStore(),
		catalog:   newFakeCatalog(),
		stock:     &fakeStock{inStock: true},
		cart:      &fakeCart{},
		notices:   newMemNotices(),
		contacts:  memContacts{},
		sender:    &fakeSender{},
		publisher: &recordingPublisher{},
	}
	producer := event.NewProducer(h.publisher, logger)

	h.lists = NewListService(h.store, logger, domain.DefaultListName, 100)
	h.items = NewItemService(h.lists, h.store, h.catalog, h.stock, h.cart, producer, logger, cfg.moveRemoves)
	h.items.now = func() time.Time { return testNow }
	h.merge = NewMergeService(h.store, h.store, h.catalog, h.notices, producer, logger, cfg.mergeEnabled, domain.DefaultListName)
	h.merge.now = func() time.Time { return testNow }
	h.priceDrop = NewPriceDropService(h.store, h.catalog, h.contacts, h.notices, h.sender, producer, logger, cfg.priceDrop)
	h.priceDrop.now = func() time.Time { return testNow }
	h.sweep = NewSweepService(h.store, logger, 30)
	h.sweep.now = func() time.Time { return testNow }
	h.export = NewExportService(h.store)
	return h
}
