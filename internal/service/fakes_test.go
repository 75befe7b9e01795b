package service

import (
	"context"
	"sort"
	"time"

	"pms-backend/internal/model"

	"gorm.io/gorm"
)

// In-memory repository fakes. They mimic the persistence layer closely
// enough for service tests: missing rows surface gorm.ErrRecordNotFound and
// reads hand out copies so held pointers never alias the store.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- purchase requests ---

type fakePRRepo struct {
	rows   map[uint]model.PurchaseRequest
	nextID uint
}

func newFakePRRepo() *fakePRRepo {
	return &fakePRRepo{rows: make(map[uint]model.PurchaseRequest), nextID: 1}
}

func (r *fakePRRepo) Create(_ context.Context, pr *model.PurchaseRequest) error {
	pr.ID = r.nextID
	r.nextID++
	pr.CreatedAt = time.Now()
	r.rows[pr.ID] = *pr
	return nil
}

func (r *fakePRRepo) GetByID(_ context.Context, id uint) (*model.PurchaseRequest, error) {
	pr, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &pr, nil
}

func (r *fakePRRepo) GetByIDForUpdate(ctx context.Context, id uint) (*model.PurchaseRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *fakePRRepo) sorted() []model.PurchaseRequest {
	prs := make([]model.PurchaseRequest, 0, len(r.rows))
	for _, pr := range r.rows {
		prs = append(prs, pr)
	}
	sort.Slice(prs, func(i, j int) bool { return prs[i].ID < prs[j].ID })
	return prs
}

func page(prs []model.PurchaseRequest, pageNum, limit int) []model.PurchaseRequest {
	offset := (pageNum - 1) * limit
	if offset >= len(prs) {
		return nil
	}
	end := offset + limit
	if end > len(prs) {
		end = len(prs)
	}
	return prs[offset:end]
}

func (r *fakePRRepo) ListAll(_ context.Context, pageNum, limit int) ([]model.PurchaseRequest, int64, error) {
	prs := r.sorted()
	return page(prs, pageNum, limit), int64(len(prs)), nil
}

func (r *fakePRRepo) ListByCreator(_ context.Context, userID uint, pageNum, limit int) ([]model.PurchaseRequest, int64, error) {
	var prs []model.PurchaseRequest
	for _, pr := range r.sorted() {
		if pr.CreatedBy == userID {
			prs = append(prs, pr)
		}
	}
	return page(prs, pageNum, limit), int64(len(prs)), nil
}

func (r *fakePRRepo) ListIDs(_ context.Context) ([]uint, error) {
	ids := make([]uint, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakePRRepo) Update(_ context.Context, pr *model.PurchaseRequest) error {
	if _, ok := r.rows[pr.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.rows[pr.ID] = *pr
	return nil
}

func (r *fakePRRepo) Delete(_ context.Context, id uint) error {
	delete(r.rows, id)
	return nil
}

// --- line items ---

type fakeLineItemRepo struct {
	rows   map[uint]model.LineItem
	nextID uint
}

func newFakeLineItemRepo() *fakeLineItemRepo {
	return &fakeLineItemRepo{rows: make(map[uint]model.LineItem), nextID: 1}
}

func (r *fakeLineItemRepo) GetByID(_ context.Context, id uint) (*model.LineItem, error) {
	li, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &li, nil
}

func (r *fakeLineItemRepo) ListByPR(_ context.Context, prID uint) ([]model.LineItem, error) {
	var items []model.LineItem
	for _, li := range r.rows {
		if li.PRID == prID {
			items = append(items, li)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *fakeLineItemRepo) ReplaceForPR(ctx context.Context, prID uint, items []model.LineItem) error {
	if err := r.DeleteByPR(ctx, prID); err != nil {
		return err
	}
	for _, li := range items {
		li.ID = r.nextID
		r.nextID++
		li.PRID = prID
		r.rows[li.ID] = li
	}
	return nil
}

func (r *fakeLineItemRepo) DeleteByPR(_ context.Context, prID uint) error {
	for id, li := range r.rows {
		if li.PRID == prID {
			delete(r.rows, id)
		}
	}
	return nil
}

// --- purchase orders ---

type fakePORepo struct {
	rows     map[uint]model.PurchaseOrder
	nextID   uint
	lineRepo *fakeLineItemRepo
	prRepo   *fakePRRepo
}

func newFakePORepo(lineRepo *fakeLineItemRepo, prRepo *fakePRRepo) *fakePORepo {
	return &fakePORepo{
		rows:     make(map[uint]model.PurchaseOrder),
		nextID:   1,
		lineRepo: lineRepo,
		prRepo:   prRepo,
	}
}

// preload mirrors the gorm Preload("LineItem") the real repository does. A
// deleted line item leaves the pointer nil.
func (r *fakePORepo) preload(po model.PurchaseOrder) model.PurchaseOrder {
	if li, ok := r.lineRepo.rows[po.LineItemID]; ok {
		item := li
		po.LineItem = &item
	} else {
		po.LineItem = nil
	}
	return po
}

func (r *fakePORepo) CreateBatch(_ context.Context, pos []model.PurchaseOrder) error {
	for i := range pos {
		pos[i].ID = r.nextID
		r.nextID++
		pos[i].CreatedAt = time.Now()
		r.rows[pos[i].ID] = pos[i]
	}
	return nil
}

func (r *fakePORepo) GetByID(_ context.Context, id uint) (*model.PurchaseOrder, error) {
	po, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	po = r.preload(po)
	return &po, nil
}

func (r *fakePORepo) ListByPR(_ context.Context, prID uint) ([]model.PurchaseOrder, error) {
	var pos []model.PurchaseOrder
	for _, po := range r.rows {
		if po.PRID == prID {
			pos = append(pos, r.preload(po))
		}
	}
	sort.Slice(pos, func(i, j int) bool { return pos[i].ID < pos[j].ID })
	return pos, nil
}

func (r *fakePORepo) CountByPR(_ context.Context, prID uint) (int64, error) {
	var n int64
	for _, po := range r.rows {
		if po.PRID == prID {
			n++
		}
	}
	return n, nil
}

func (r *fakePORepo) ListPRIDsWithPOs(_ context.Context, createdBy *uint) ([]uint, error) {
	seen := make(map[uint]bool)
	for _, po := range r.rows {
		if createdBy != nil {
			pr, ok := r.prRepo.rows[po.PRID]
			if !ok || pr.CreatedBy != *createdBy {
				continue
			}
		}
		seen[po.PRID] = true
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakePORepo) Update(_ context.Context, po *model.PurchaseOrder) error {
	if _, ok := r.rows[po.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *po
	stored.LineItem = nil
	r.rows[po.ID] = stored
	return nil
}

func (r *fakePORepo) Delete(_ context.Context, id uint) error {
	delete(r.rows, id)
	return nil
}

// --- approval logs ---

type fakeLogRepo struct {
	rows   []model.ApprovalLog
	nextID uint
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{nextID: 1}
}

func (r *fakeLogRepo) Create(_ context.Context, entry *model.ApprovalLog) error {
	entry.ID = r.nextID
	r.nextID++
	entry.Timestamp = time.Now()
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *fakeLogRepo) ListByPR(_ context.Context, prID uint) ([]model.ApprovalLog, error) {
	var logs []model.ApprovalLog
	for _, l := range r.rows {
		if l.PRID == prID {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

// --- balances ---

type fakeBalanceRepo struct {
	rows map[uint]model.Balance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{rows: make(map[uint]model.Balance)}
}

func (r *fakeBalanceRepo) Upsert(_ context.Context, balance *model.Balance) error {
	if existing, ok := r.rows[balance.PRID]; ok {
		// Conflict update touches amounts only; creation-time fields stay.
		existing.PRTotalAmount = balance.PRTotalAmount
		existing.POTotalAmount = balance.POTotalAmount
		existing.BalanceAmount = balance.BalanceAmount
		r.rows[balance.PRID] = existing
		return nil
	}
	r.rows[balance.PRID] = *balance
	return nil
}

func (r *fakeBalanceRepo) GetByPR(_ context.Context, prID uint) (*model.Balance, error) {
	b, ok := r.rows[prID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r *fakeBalanceRepo) ListByUser(_ context.Context, userID uint) ([]model.Balance, error) {
	var balances []model.Balance
	for _, b := range r.rows {
		if b.UserID == userID {
			balances = append(balances, b)
		}
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].PRID < balances[j].PRID })
	return balances, nil
}

func (r *fakeBalanceRepo) DeleteByPR(_ context.Context, prID uint) error {
	delete(r.rows, prID)
	return nil
}

// --- suppliers ---

type fakeSupplierRepo struct {
	rows   map[uint]model.Supplier
	nextID uint
}

func newFakeSupplierRepo() *fakeSupplierRepo {
	return &fakeSupplierRepo{rows: make(map[uint]model.Supplier), nextID: 1}
}

func (r *fakeSupplierRepo) Create(_ context.Context, supplier *model.Supplier) error {
	supplier.ID = r.nextID
	r.nextID++
	supplier.CreatedAt = time.Now()
	r.rows[supplier.ID] = *supplier
	return nil
}

func (r *fakeSupplierRepo) GetByID(_ context.Context, id uint) (*model.Supplier, error) {
	s, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *fakeSupplierRepo) GetByName(_ context.Context, name string) (*model.Supplier, error) {
	var match *model.Supplier
	for id := uint(1); id < r.nextID; id++ {
		if s, ok := r.rows[id]; ok && s.Name == name {
			match = &s
			break
		}
	}
	if match == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return match, nil
}

func (r *fakeSupplierRepo) List(_ context.Context, pageNum, limit int) ([]model.Supplier, int64, error) {
	suppliers := make([]model.Supplier, 0, len(r.rows))
	for _, s := range r.rows {
		suppliers = append(suppliers, s)
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].ID < suppliers[j].ID })
	return suppliers, int64(len(suppliers)), nil
}

func (r *fakeSupplierRepo) Update(_ context.Context, supplier *model.Supplier) error {
	if _, ok := r.rows[supplier.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.rows[supplier.ID] = *supplier
	return nil
}

func (r *fakeSupplierRepo) Delete(_ context.Context, id uint) error {
	delete(r.rows, id)
	return nil
}

// --- fixture wiring ---

type fixture struct {
	prRepo       *fakePRRepo
	lineRepo     *fakeLineItemRepo
	poRepo       *fakePORepo
	logRepo      *fakeLogRepo
	balanceRepo  *fakeBalanceRepo
	supplierRepo *fakeSupplierRepo

	balances BalanceService
	prs      PurchaseRequestService
	pos      PurchaseOrderService
}

func newFixture() *fixture {
	f := &fixture{
		prRepo:       newFakePRRepo(),
		lineRepo:     newFakeLineItemRepo(),
		logRepo:      newFakeLogRepo(),
		balanceRepo:  newFakeBalanceRepo(),
		supplierRepo: newFakeSupplierRepo(),
	}
	f.poRepo = newFakePORepo(f.lineRepo, f.prRepo)

	tx := fakeTxManager{}
	f.balances = NewBalanceService(f.prRepo, f.lineRepo, f.poRepo, f.balanceRepo, tx)
	f.prs = NewPurchaseRequestService(f.prRepo, f.lineRepo, f.poRepo, f.logRepo, f.balanceRepo, f.balances, tx, nil)
	f.pos = NewPurchaseOrderService(f.prRepo, f.lineRepo, f.poRepo, f.supplierRepo, f.balances, tx)
	return f
}

// createPR seeds a PR through the real service path and returns its detail.
func (f *fixture) createPR(t interface{ Fatalf(string, ...interface{}) }, actor Actor, title string, items []LineItemPayload) PurchaseRequestDetailResponse {
	detail, err := f.prs.Create(context.Background(), actor, CreatePurchaseRequestRequest{
		Title:     title,
		LineItems: items,
	})
	if err != nil {
		t.Fatalf("create purchase request: %v", err)
	}
	return detail
}
