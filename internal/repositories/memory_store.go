package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fraudshield/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps every table in process memory. It is used by tests and by local runs
// without postgres. Writes made through ExecuteInTransaction are buffered and applied
// atomically on commit; row locks are per-key channel locks held until the unit of work ends.
type MemoryStore struct {
	mu sync.RWMutex

	nextAccountID uint
	nextAttemptID uint
	nextFundingID uint

	accounts     map[uint]*models.Account
	emails       map[string]uint
	transactions map[string]*models.Transaction
	idempotency  map[string]string
	cases        map[string]*models.FraudCase
	fundings     map[string]*models.Funding
	attempts     []models.FailedAttempt

	locksMu sync.Mutex
	locks   map[string]*rowLock

	now func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[uint]*models.Account),
		emails:       make(map[string]uint),
		transactions: make(map[string]*models.Transaction),
		idempotency:  make(map[string]string),
		cases:        make(map[string]*models.FraudCase),
		fundings:     make(map[string]*models.Funding),
		locks:        make(map[string]*rowLock),
		now:          time.Now,
	}
}

// SetClock overrides the time source used for timestamps.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

// Accounts returns the AccountRepository view of the store.
func (s *MemoryStore) Accounts() AccountRepository { return &memoryAccounts{s: s} }

// Ledger returns the LedgerRepository view of the store.
func (s *MemoryStore) Ledger() LedgerRepository { return &memoryLedger{s: s} }

// Transactions returns the TransactionRepository view of the store.
func (s *MemoryStore) Transactions() TransactionRepository { return &memoryTransactions{s: s} }

// Cases returns the CaseRepository view of the store.
func (s *MemoryStore) Cases() CaseRepository { return &memoryCases{s: s} }

func idempotencyIndex(senderID uint, key string) string {
	return fmt.Sprintf("%d:%s", senderID, key)
}

// rowLock is a one-slot channel so waiters can give up when their context ends.
// refs counts holders and waiters; the entry is dropped when it reaches zero.
type rowLock struct {
	ch   chan struct{}
	refs int
}

// lockRow blocks until key is free or ctx is done and returns the unlock func.
func (s *MemoryStore) lockRow(ctx context.Context, key string) (func(), error) {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			s.unref(key, l)
		}, nil
	case <-ctx.Done():
		s.unref(key, l)
		return nil, ctx.Err()
	}
}

func (s *MemoryStore) unref(key string, l *rowLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

func (s *MemoryStore) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// --- unit of work ---

type txnStatusUpdate struct {
	status        string
	disputeReason *string
}

type memoryTx struct {
	s *MemoryStore

	held  map[string]func()
	order []string

	balances     map[uint]decimal.Decimal
	transactions []*models.Transaction
	fundings     []*models.Funding
	cases        map[string]*models.FraudCase
	statuses     map[string]txnStatusUpdate
}

func (s *MemoryStore) begin() *memoryTx {
	return &memoryTx{
		s:        s,
		held:     make(map[string]func()),
		balances: make(map[uint]decimal.Decimal),
		cases:    make(map[string]*models.FraudCase),
		statuses: make(map[string]txnStatusUpdate),
	}
}

func (t *memoryTx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock, err := t.s.lockRow(ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = unlock
	t.order = append(t.order, key)
	return nil
}

func (t *memoryTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]]()
	}
	t.held = nil
	t.order = nil
}

func (t *memoryTx) run(ctx context.Context, fn func() error) error {
	defer t.release()
	if err := fn(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

func (t *memoryTx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, balance := range t.balances {
		if _, ok := s.accounts[id]; !ok {
			return ErrNotFound
		}
		if balance.IsNegative() {
			return fmt.Errorf("%w: chk_accounts_balance_non_negative", ErrConstraint)
		}
	}
	for _, txn := range t.transactions {
		if _, ok := s.idempotency[idempotencyIndex(txn.SenderID, txn.IdempotencyKey)]; ok {
			return fmt.Errorf("%w: idempotency key %q already recorded", ErrConflict, txn.IdempotencyKey)
		}
	}
	for _, f := range t.fundings {
		if _, ok := s.fundings[f.Reference]; ok {
			return fmt.Errorf("%w: funding reference %q already recorded", ErrConflict, f.Reference)
		}
	}
	for id := range t.statuses {
		if _, ok := s.transactions[id]; !ok {
			if !t.hasPendingTransaction(id) {
				return ErrNotFound
			}
		}
	}

	now := s.now()
	for id, balance := range t.balances {
		s.accounts[id].Balance = balance
		s.accounts[id].UpdatedAt = now
	}
	for _, txn := range t.transactions {
		s.transactions[txn.ID] = txn
		s.idempotency[idempotencyIndex(txn.SenderID, txn.IdempotencyKey)] = txn.ID
	}
	for _, f := range t.fundings {
		s.nextFundingID++
		f.ID = s.nextFundingID
		s.fundings[f.Reference] = f
	}
	for id, c := range t.cases {
		s.cases[id] = c
	}
	for id, u := range t.statuses {
		txn := s.transactions[id]
		txn.Status = u.status
		if u.disputeReason != nil {
			reason := *u.disputeReason
			txn.DisputeReason = &reason
		}
		txn.UpdatedAt = now
	}
	return nil
}

func (t *memoryTx) hasPendingTransaction(id string) bool {
	for _, txn := range t.transactions {
		if txn.ID == id {
			return true
		}
	}
	return false
}

func (t *memoryTx) transaction(id string) (*models.Transaction, bool) {
	for _, txn := range t.transactions {
		if txn.ID == id {
			cp := *txn
			return &cp, true
		}
	}
	t.s.mu.RLock()
	txn, ok := t.s.transactions[id]
	var cp models.Transaction
	if ok {
		cp = *txn
	}
	t.s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if u, pending := t.statuses[id]; pending {
		cp.Status = u.status
		if u.disputeReason != nil {
			cp.DisputeReason = u.disputeReason
		}
	}
	return &cp, true
}

// --- accounts ---

type memoryAccounts struct {
	s *MemoryStore
}

func (r *memoryAccounts) Create(_ context.Context, account *models.Account) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account.Email = NormalizeEmail(account.Email)
	if _, taken := s.emails[account.Email]; taken {
		return fmt.Errorf("%w: email %s", ErrDuplicateKey, account.Email)
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("%w: chk_accounts_balance_non_negative", ErrConstraint)
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	if account.TokenVersion == 0 {
		account.TokenVersion = 1
	}

	s.nextAccountID++
	account.ID = s.nextAccountID
	now := s.now()
	account.CreatedAt, account.UpdatedAt = now, now

	cp := *account
	s.accounts[account.ID] = &cp
	s.emails[account.Email] = account.ID
	return nil
}

func (r *memoryAccounts) GetByID(_ context.Context, id uint) (*models.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (r *memoryAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.s.mu.RLock()
	id, ok := r.s.emails[NormalizeEmail(email)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryAccounts) IncrementTokenVersion(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.TokenVersion++
	return nil
}

// --- ledger ---

// memoryLedger serves LedgerRepository outside a unit of work; tx is set inside one.
type memoryLedger struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r *memoryLedger) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx := r.s.begin()
	return tx.run(ctx, func() error {
		return fn(&memoryLedger{s: r.s, tx: tx})
	})
}

func (r *memoryLedger) LockAccounts(ctx context.Context, ids ...uint) (map[uint]*models.Account, error) {
	accounts := make(map[uint]*models.Account, len(ids))
	for _, id := range SortedIDs(ids) {
		if r.tx != nil {
			if err := r.tx.lock(ctx, fmt.Sprintf("account:%d", id)); err != nil {
				return nil, err
			}
		}

		r.s.mu.RLock()
		account, ok := r.s.accounts[id]
		var cp models.Account
		if ok {
			cp = *account
		}
		r.s.mu.RUnlock()
		if !ok {
			continue
		}
		if r.tx != nil {
			if balance, pending := r.tx.balances[id]; pending {
				cp.Balance = balance
			}
		}
		accounts[id] = &cp
	}
	return accounts, nil
}

func (r *memoryLedger) UpdateBalance(_ context.Context, accountID uint, balance decimal.Decimal) error {
	if r.tx != nil {
		r.tx.balances[accountID] = balance
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	if balance.IsNegative() {
		return fmt.Errorf("%w: chk_accounts_balance_non_negative", ErrConstraint)
	}
	account.Balance = balance
	account.UpdatedAt = r.s.now()
	return nil
}

func (r *memoryLedger) FindByIdempotencyKey(_ context.Context, senderID uint, key string) (*models.Transaction, error) {
	if r.tx != nil {
		for _, txn := range r.tx.transactions {
			if txn.SenderID == senderID && txn.IdempotencyKey == key {
				cp := *txn
				return &cp, nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.idempotency[idempotencyIndex(senderID, key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.s.transactions[id]
	return &cp, nil
}

func (r *memoryLedger) CreateTransaction(_ context.Context, txn *models.Transaction) error {
	now := r.s.now()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	cp := *txn

	if r.tx != nil {
		for _, pending := range r.tx.transactions {
			if pending.SenderID == txn.SenderID && pending.IdempotencyKey == txn.IdempotencyKey {
				return fmt.Errorf("%w: idempotency key %q already recorded", ErrConflict, txn.IdempotencyKey)
			}
		}
		r.tx.transactions = append(r.tx.transactions, &cp)
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	index := idempotencyIndex(txn.SenderID, txn.IdempotencyKey)
	if _, ok := r.s.idempotency[index]; ok {
		return fmt.Errorf("%w: idempotency key %q already recorded", ErrConflict, txn.IdempotencyKey)
	}
	r.s.transactions[txn.ID] = &cp
	r.s.idempotency[index] = txn.ID
	return nil
}

func (r *memoryLedger) FindFunding(_ context.Context, reference string) (*models.Funding, error) {
	if r.tx != nil {
		for _, f := range r.tx.fundings {
			if f.Reference == reference {
				cp := *f
				return &cp, nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.fundings[reference]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memoryLedger) CreateFunding(_ context.Context, funding *models.Funding) error {
	if funding.CreatedAt.IsZero() {
		funding.CreatedAt = r.s.now()
	}
	cp := *funding
	if r.tx != nil {
		r.tx.fundings = append(r.tx.fundings, &cp)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.fundings[funding.Reference]; ok {
		return fmt.Errorf("%w: funding reference %q already recorded", ErrConflict, funding.Reference)
	}
	r.s.nextFundingID++
	cp.ID = r.s.nextFundingID
	funding.ID = cp.ID
	r.s.fundings[funding.Reference] = &cp
	return nil
}

// --- transactions ---

type memoryTransactions struct {
	s *MemoryStore
}

func (r *memoryTransactions) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	txn, ok := r.s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (r *memoryTransactions) sorted(match func(*models.Transaction) bool) []models.Transaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Transaction
	for _, txn := range r.s.transactions {
		if match(txn) {
			out = append(out, *txn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *memoryTransactions) ListByAccount(_ context.Context, accountID uint, limit, offset int) ([]models.Transaction, int64, error) {
	all := r.sorted(func(t *models.Transaction) bool { return t.Involves(accountID) })
	return pageOf(all, limit, offset), int64(len(all)), nil
}

func (r *memoryTransactions) GetStats(_ context.Context, senderID uint) (*TransactionStats, error) {
	var stats TransactionStats
	for _, txn := range r.sorted(func(t *models.Transaction) bool { return t.SenderID == senderID }) {
		stats.Total++
		if txn.IsFraudulent {
			stats.Fraudulent++
		}
	}
	return &stats, nil
}

func (r *memoryTransactions) GetBeneficiaries(_ context.Context, senderID uint) ([]models.Beneficiary, error) {
	sent := r.sorted(func(t *models.Transaction) bool {
		return t.SenderID == senderID && t.TransferKind == models.TransferKindP2PTransfer && t.RecipientID != nil
	})

	byRecipient := make(map[uint]*models.Beneficiary)
	var order []uint
	for _, txn := range sent {
		b, ok := byRecipient[*txn.RecipientID]
		if !ok {
			b = &models.Beneficiary{AccountID: *txn.RecipientID}
			byRecipient[*txn.RecipientID] = b
			order = append(order, *txn.RecipientID)
		}
		b.TotalSent = b.TotalSent.Add(txn.Amount)
		b.TransferCount++
		if txn.CreatedAt.After(b.LastTransferDate) {
			b.LastTransferDate = txn.CreatedAt
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Beneficiary, 0, len(order))
	for _, id := range order {
		b := byRecipient[id]
		if account, ok := r.s.accounts[id]; ok {
			b.Email = account.Email
		}
		out = append(out, *b)
	}
	return out, nil
}

func (r *memoryTransactions) GetMonthlySpending(_ context.Context, senderID uint, since time.Time) ([]models.MonthlySpending, error) {
	totals := make(map[string]decimal.Decimal)
	for _, txn := range r.sorted(func(t *models.Transaction) bool {
		return t.SenderID == senderID && !t.CreatedAt.Before(since)
	}) {
		month := txn.CreatedAt.UTC().Format("2006-01")
		totals[month] = totals[month].Add(txn.Amount)
	}

	out := make([]models.MonthlySpending, 0, len(totals))
	for month, amount := range totals {
		out = append(out, models.MonthlySpending{Month: month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r *memoryTransactions) CreateFailedAttempt(_ context.Context, attempt *models.FailedAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextAttemptID++
	attempt.ID = r.s.nextAttemptID
	if attempt.Status == "" {
		attempt.Status = models.TransactionStatusFailed
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = r.s.now()
	}
	r.s.attempts = append(r.s.attempts, *attempt)
	return nil
}

func (r *memoryTransactions) ListFailedAttempts(_ context.Context, senderID uint, limit int) ([]models.FailedAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.FailedAttempt
	for i := len(r.s.attempts) - 1; i >= 0; i-- {
		if r.s.attempts[i].SenderID == senderID {
			out = append(out, r.s.attempts[i])
		}
	}
	return pageOf(out, limit, 0), nil
}

// --- cases ---

type memoryCases struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r *memoryCases) ExecuteInTransaction(ctx context.Context, fn func(CaseRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx := r.s.begin()
	return tx.run(ctx, func() error {
		return fn(&memoryCases{s: r.s, tx: tx})
	})
}

func (r *memoryCases) Create(_ context.Context, fraudCase *models.FraudCase) error {
	now := r.s.now()
	fraudCase.CreatedAt, fraudCase.UpdatedAt = now, now
	if fraudCase.Status == "" {
		fraudCase.Status = models.CaseStatusOpen
	}
	cp := *fraudCase
	if r.tx != nil {
		r.tx.cases[cp.ID] = &cp
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.cases[cp.ID]; exists {
		return fmt.Errorf("%w: case %s", ErrDuplicateKey, cp.ID)
	}
	r.s.cases[cp.ID] = &cp
	return nil
}

func (r *memoryCases) GetByID(_ context.Context, id string) (*models.FraudCase, error) {
	if r.tx != nil {
		if c, ok := r.tx.cases[id]; ok {
			cp := *c
			return &cp, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryCases) GetForUpdate(ctx context.Context, id string) (*models.FraudCase, error) {
	if r.tx != nil {
		if err := r.tx.lock(ctx, "case:"+id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *memoryCases) Update(_ context.Context, fraudCase *models.FraudCase) error {
	fraudCase.UpdatedAt = r.s.now()
	cp := *fraudCase
	if r.tx != nil {
		r.tx.cases[cp.ID] = &cp
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cases[cp.ID]; !ok {
		return ErrNotFound
	}
	r.s.cases[cp.ID] = &cp
	return nil
}

func (r *memoryCases) filter(match func(*models.FraudCase) bool, newestFirst bool) []models.FraudCase {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.FraudCase
	for _, c := range r.s.cases {
		if match(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memoryCases) ListByTransaction(_ context.Context, transactionID string) ([]models.FraudCase, error) {
	return r.filter(func(c *models.FraudCase) bool { return c.TransactionID == transactionID }, false), nil
}

func (r *memoryCases) ListByReporter(_ context.Context, reporterID uint, limit, offset int) ([]models.FraudCase, int64, error) {
	all := r.filter(func(c *models.FraudCase) bool { return c.ReporterID == reporterID }, true)
	return pageOf(all, limit, offset), int64(len(all)), nil
}

func (r *memoryCases) ListByStatus(_ context.Context, status string, limit, offset int) ([]models.FraudCase, int64, error) {
	all := r.filter(func(c *models.FraudCase) bool {
		return status == "" || strings.EqualFold(c.Status, status)
	}, false)
	return pageOf(all, limit, offset), int64(len(all)), nil
}

func (r *memoryCases) CountOpenByReporter(_ context.Context, reporterID uint) (int64, error) {
	all := r.filter(func(c *models.FraudCase) bool {
		return c.ReporterID == reporterID &&
			c.Status != models.CaseStatusResolved && c.Status != models.CaseStatusClosed
	}, false)
	return int64(len(all)), nil
}

func (r *memoryCases) GetTransactionForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if r.tx == nil {
		return (&memoryTransactions{s: r.s}).GetByID(ctx, transactionID)
	}
	if err := r.tx.lock(ctx, "transaction:"+transactionID); err != nil {
		return nil, err
	}
	txn, ok := r.tx.transaction(transactionID)
	if !ok {
		return nil, ErrNotFound
	}
	return txn, nil
}

func (r *memoryCases) UpdateTransactionStatus(_ context.Context, transactionID, status string, disputeReason *string) error {
	if r.tx != nil {
		r.tx.statuses[transactionID] = txnStatusUpdate{status: status, disputeReason: disputeReason}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.transactions[transactionID]
	if !ok {
		return ErrNotFound
	}
	txn.Status = status
	if disputeReason != nil {
		reason := *disputeReason
		txn.DisputeReason = &reason
	}
	txn.UpdatedAt = r.s.now()
	return nil
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
