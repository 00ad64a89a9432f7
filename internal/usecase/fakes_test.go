package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// fakeTx satisfies pgx.Tx for usecases that own a transaction. The fake
// store applies writes immediately, so commit and rollback are no-ops.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

// memStore is the in-memory backing for all fake repositories. One store
// per test; the fakes share it so cross-repo flows stay consistent.
type memStore struct {
	// mu serializes the store for tests that drive concurrent
	// goroutines; single-goroutine tests pay nothing for it.
	mu sync.Mutex

	nextID int64

	accountsByName map[string]*domain.Account
	accountsByID   map[int64]*domain.Account

	assetsByID  map[int64]*domain.Asset
	assetsByKey map[string]*domain.Asset // guild + normalized symbol

	balances map[domain.BalanceKey]decimal.Decimal

	txns      []*domain.Transaction
	txnsByKey map[string]*domain.Transaction
	postings  []*domain.Posting

	refills int

	bankBalances map[[2]int64]decimal.Decimal
	bankHistory  []*domain.BankTransaction

	rewardConfigs map[string]*domain.AutoRewardConfig // guild + channel
	rewardClaims  map[[2]int64]bool

	panels    map[int64]*domain.RolePanel
	plans     map[int64]*domain.RolePlan
	purchases map[int64]*domain.RolePurchase

	allowances       map[string]*domain.MonthlyAllowance // guild + role
	allowanceHistory map[string]bool                     // 5-tuple key

	events map[int64]*domain.BettingEvent
	bets   []*domain.Bet

	vcRates    map[string]*domain.VCEarningRate // guild + channel
	vcSessions map[string]*domain.VCSession     // guild + user
	vcDaily    map[string]decimal.Decimal       // guild + user + asset + day
}

func newMemStore() *memStore {
	return &memStore{
		accountsByName:   make(map[string]*domain.Account),
		accountsByID:     make(map[int64]*domain.Account),
		assetsByID:       make(map[int64]*domain.Asset),
		assetsByKey:      make(map[string]*domain.Asset),
		balances:         make(map[domain.BalanceKey]decimal.Decimal),
		txnsByKey:        make(map[string]*domain.Transaction),
		bankBalances:     make(map[[2]int64]decimal.Decimal),
		rewardConfigs:    make(map[string]*domain.AutoRewardConfig),
		rewardClaims:     make(map[[2]int64]bool),
		panels:           make(map[int64]*domain.RolePanel),
		plans:            make(map[int64]*domain.RolePlan),
		purchases:        make(map[int64]*domain.RolePurchase),
		allowances:       make(map[string]*domain.MonthlyAllowance),
		allowanceHistory: make(map[string]bool),
		events:           make(map[int64]*domain.BettingEvent),
		vcRates:          make(map[string]*domain.VCEarningRate),
		vcSessions:       make(map[string]*domain.VCSession),
		vcDaily:          make(map[string]decimal.Decimal),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) balance(accountID, assetID int64) decimal.Decimal {
	return s.balances[domain.BalanceKey{AccountID: accountID, AssetID: assetID}]
}

func (s *memStore) setBalance(accountID, assetID int64, v decimal.Decimal) {
	s.balances[domain.BalanceKey{AccountID: accountID, AssetID: assetID}] = v
}

// --- accounts ---

type fakeAccountRepo struct{ s *memStore }

func (r *fakeAccountRepo) EnsureUser(_ context.Context, guildID string, userID int64) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	name := domain.UserAccountName(guildID, userID)
	if a, ok := r.s.accountsByName[name]; ok {
		return a, nil
	}
	uid := userID
	a := &domain.Account{
		ID:      r.s.id(),
		UserID:  &uid,
		GuildID: guildID,
		Name:    name,
		Type:    domain.AccountTypeUser,
	}
	r.s.accountsByName[name] = a
	r.s.accountsByID[a.ID] = a
	return a, nil
}

func (r *fakeAccountRepo) EnsureSystem(_ context.Context, guildID string, accType domain.AccountType) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var name string
	switch accType {
	case domain.AccountTypeTreasury:
		name = domain.TreasuryAccountName(guildID)
	case domain.AccountTypeBurn:
		name = domain.BurnAccountName(guildID)
	default:
		return nil, fmt.Errorf("not a system account type: %s", accType)
	}
	if a, ok := r.s.accountsByName[name]; ok {
		return a, nil
	}
	a := &domain.Account{ID: r.s.id(), GuildID: guildID, Name: name, Type: accType}
	r.s.accountsByName[name] = a
	r.s.accountsByID[a.ID] = a
	return a, nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	if a, ok := r.s.accountsByID[id]; ok {
		return a, nil
	}
	return nil, xerrors.ErrAccountNotFound
}

func (r *fakeAccountRepo) GetByName(_ context.Context, name string) (*domain.Account, error) {
	if a, ok := r.s.accountsByName[name]; ok {
		return a, nil
	}
	return nil, xerrors.ErrAccountNotFound
}

func (r *fakeAccountRepo) ListByGuild(_ context.Context, guildID string) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range r.s.accountsByID {
		if a.GuildID == guildID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- assets ---

func assetKey(guildID, symbol string) string {
	return guildID + "/" + domain.NormalizeSymbol(symbol)
}

type fakeAssetRepo struct{ s *memStore }

func (r *fakeAssetRepo) Create(_ context.Context, _ pgx.Tx, ac *domain.AssetCreate) (*domain.Asset, error) {
	key := assetKey(ac.GuildID, ac.Symbol)
	if _, ok := r.s.assetsByKey[key]; ok {
		return nil, xerrors.ErrDuplicateAsset
	}
	a := &domain.Asset{
		ID:       r.s.id(),
		GuildID:  ac.GuildID,
		Symbol:   domain.NormalizeSymbol(ac.Symbol),
		Name:     ac.Name,
		Decimals: ac.Decimals,
	}
	r.s.assetsByKey[key] = a
	r.s.assetsByID[a.ID] = a
	return a, nil
}

func (r *fakeAssetRepo) GetByID(_ context.Context, id int64) (*domain.Asset, error) {
	if a, ok := r.s.assetsByID[id]; ok {
		return a, nil
	}
	return nil, xerrors.ErrAssetNotFound
}

func (r *fakeAssetRepo) GetBySymbol(_ context.Context, guildID, symbol string) (*domain.Asset, error) {
	if a, ok := r.s.assetsByKey[assetKey(guildID, symbol)]; ok {
		return a, nil
	}
	return nil, xerrors.ErrAssetNotFound
}

func (r *fakeAssetRepo) ListByGuild(_ context.Context, guildID string) ([]*domain.Asset, error) {
	var out []*domain.Asset
	for _, a := range r.s.assetsByID {
		if a.GuildID == guildID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAssetRepo) Delete(_ context.Context, _ pgx.Tx, id int64) error {
	a, ok := r.s.assetsByID[id]
	if !ok {
		return xerrors.ErrAssetNotFound
	}
	delete(r.s.assetsByID, id)
	delete(r.s.assetsByKey, assetKey(a.GuildID, a.Symbol))
	return nil
}

// --- transactions / postings / balances ---

type fakeTxnRepo struct{ s *memStore }

func (r *fakeTxnRepo) Create(_ context.Context, _ pgx.Tx, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if req.IdempotencyKey != nil {
		if _, ok := r.s.txnsByKey[*req.IdempotencyKey]; ok {
			return nil, xerrors.ErrDuplicateIdempotencyKey
		}
	}
	t := &domain.Transaction{
		ID:             r.s.id(),
		Kind:           req.Kind,
		Reference:      req.Reference,
		CreatedBy:      req.CreatedBy,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	r.s.txns = append(r.s.txns, t)
	if req.IdempotencyKey != nil {
		r.s.txnsByKey[*req.IdempotencyKey] = t
	}
	return t, nil
}

func (r *fakeTxnRepo) GetByID(_ context.Context, id int64) (*domain.Transaction, error) {
	for _, t := range r.s.txns {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeTxnRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	if t, ok := r.s.txnsByKey[key]; ok {
		return t, nil
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeTxnRepo) ListByKind(_ context.Context, kind domain.TransactionKind, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for i := len(r.s.txns) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.txns[i].Kind == kind {
			out = append(out, r.s.txns[i])
		}
	}
	return out, nil
}

type fakePostingRepo struct{ s *memStore }

func (r *fakePostingRepo) Create(_ context.Context, _ pgx.Tx, transactionID, accountID, assetID int64, amount string) (*domain.Posting, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	p := &domain.Posting{
		ID:            r.s.id(),
		TransactionID: transactionID,
		AccountID:     accountID,
		AssetID:       assetID,
		Amount:        amt,
		CreatedAt:     time.Now(),
	}
	r.s.postings = append(r.s.postings, p)
	return p, nil
}

func (r *fakePostingRepo) ListByTransaction(_ context.Context, transactionID int64) ([]*domain.Posting, error) {
	var out []*domain.Posting
	for _, p := range r.s.postings {
		if p.TransactionID == transactionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostingRepo) ListByAccountAsset(_ context.Context, accountID, assetID int64, limit int) ([]*domain.Posting, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.Posting
	for i := len(r.s.postings) - 1; i >= 0 && len(out) < limit; i-- {
		p := r.s.postings[i]
		if p.AccountID == accountID && p.AssetID == assetID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeBalanceRepo struct{ s *memStore }

func (r *fakeBalanceRepo) Get(_ context.Context, accountID, assetID int64) (*domain.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return &domain.Balance{
		AccountID: accountID,
		AssetID:   assetID,
		Balance:   r.s.balance(accountID, assetID),
	}, nil
}

func (r *fakeBalanceRepo) GetWithLock(ctx context.Context, _ pgx.Tx, accountID, assetID int64) (*domain.Balance, error) {
	return r.Get(ctx, accountID, assetID)
}

func (r *fakeBalanceRepo) ApplyDelta(_ context.Context, _ pgx.Tx, accountID, assetID int64, delta decimal.Decimal) error {
	r.s.setBalance(accountID, assetID, r.s.balance(accountID, assetID).Add(delta))
	return nil
}

func (r *fakeBalanceRepo) Rebuild(_ context.Context, accountID, assetID int64) (*domain.Balance, error) {
	sum := decimal.Zero
	for _, p := range r.s.postings {
		if p.AccountID == accountID && p.AssetID == assetID {
			sum = sum.Add(p.Amount)
		}
	}
	r.s.setBalance(accountID, assetID, sum)
	return &domain.Balance{AccountID: accountID, AssetID: assetID, Balance: sum}, nil
}

// --- ledger ---

// fakeLedgerRepo mirrors the real execution contract against the memory
// store: structural validation, zero-sum check, sufficiency for non-mint
// accounts, idempotency. conflictsLeft injects storage conflicts to
// exercise retry paths.
type fakeLedgerRepo struct {
	s             *memStore
	conflictsLeft int
}

func (r *fakeLedgerRepo) BeginTx(context.Context) (pgx.Tx, error) {
	return fakeTx{}, nil
}

func (r *fakeLedgerRepo) Execute(ctx context.Context, req *domain.TransactionRequest) (*domain.LedgerAggregate, error) {
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return nil, xerrors.ErrStorageConflict
	}
	if req.IdempotencyKey != nil {
		if existing, ok := r.s.txnsByKey[*req.IdempotencyKey]; ok {
			return &domain.LedgerAggregate{Transaction: existing}, nil
		}
	}
	return r.ExecuteInTx(ctx, fakeTx{}, req)
}

func (r *fakeLedgerRepo) ExecuteInTx(ctx context.Context, tx pgx.Tx, req *domain.TransactionRequest) (*domain.LedgerAggregate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !domain.ValidateDoubleEntry(req.Entries) {
		return nil, xerrors.ErrUnbalancedTransaction
	}

	deltas := make(map[domain.BalanceKey]decimal.Decimal)
	for _, e := range req.Entries {
		key := domain.BalanceKey{AccountID: e.AccountID, AssetID: e.AssetID}
		deltas[key] = deltas[key].Add(e.Amount)
	}

	// All sufficiency checks before any write, like the locked path.
	balances := make(map[domain.BalanceKey]decimal.Decimal)
	for key, delta := range deltas {
		account, ok := r.s.accountsByID[key.AccountID]
		if !ok {
			return nil, xerrors.ErrAccountNotFound
		}
		next := r.s.balances[key].Add(delta)
		if next.IsNegative() && !account.IsMint() {
			return nil, fmt.Errorf("account %s: %w", account.Name, xerrors.ErrInsufficientBalance)
		}
		balances[key] = next
	}

	txnRepo := &fakeTxnRepo{s: r.s}
	txn, err := txnRepo.Create(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	postingRepo := &fakePostingRepo{s: r.s}
	var postings []*domain.Posting
	for _, e := range req.Entries {
		p, err := postingRepo.Create(ctx, tx, txn.ID, e.AccountID, e.AssetID, e.Amount.String())
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	for key, next := range balances {
		r.s.balances[key] = next
	}

	return &domain.LedgerAggregate{Transaction: txn, Postings: postings, Balances: balances}, nil
}

func (r *fakeLedgerRepo) RefillTreasury(_ context.Context, treasury *domain.Account, burnAccountID, assetID int64, required *decimal.Decimal) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current := r.s.balance(treasury.ID, assetID)
	if !domain.TreasuryNeedsRefill(current, required) {
		return false, nil
	}
	r.s.setBalance(treasury.ID, assetID, current.Add(domain.TreasuryRefillAmount))
	r.s.setBalance(burnAccountID, assetID, r.s.balance(burnAccountID, assetID).Sub(domain.TreasuryRefillAmount))
	r.s.refills++
	return true, nil
}

// --- bank ---

type fakeBankRepo struct{ s *memStore }

func (r *fakeBankRepo) GetAccountWithLock(_ context.Context, _ pgx.Tx, userID, assetID int64) (*domain.BankAccount, error) {
	return &domain.BankAccount{
		UserID:  userID,
		AssetID: assetID,
		Balance: r.s.bankBalances[[2]int64{userID, assetID}],
	}, nil
}

func (r *fakeBankRepo) GetAccount(ctx context.Context, userID, assetID int64) (*domain.BankAccount, error) {
	return r.GetAccountWithLock(ctx, nil, userID, assetID)
}

func (r *fakeBankRepo) ApplyDelta(_ context.Context, _ pgx.Tx, userID, assetID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	key := [2]int64{userID, assetID}
	r.s.bankBalances[key] = r.s.bankBalances[key].Add(delta)
	return r.s.bankBalances[key], nil
}

func (r *fakeBankRepo) RecordHistory(_ context.Context, _ pgx.Tx, bt *domain.BankTransaction) error {
	bt.ID = r.s.id()
	bt.CreatedAt = time.Now()
	r.s.bankHistory = append(r.s.bankHistory, bt)
	return nil
}

func (r *fakeBankRepo) History(_ context.Context, userID, assetID int64, limit int) ([]*domain.BankTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []*domain.BankTransaction
	for i := len(r.s.bankHistory) - 1; i >= 0 && len(out) < limit; i-- {
		bt := r.s.bankHistory[i]
		if bt.UserID == userID && bt.AssetID == assetID {
			out = append(out, bt)
		}
	}
	return out, nil
}

// --- auto rewards ---

type fakeAutoRewardRepo struct{ s *memStore }

func channelKey(guildID, channelID string) string { return guildID + "/" + channelID }

func (r *fakeAutoRewardRepo) UpsertConfig(_ context.Context, cfg *domain.AutoRewardConfig) (*domain.AutoRewardConfig, error) {
	key := channelKey(cfg.GuildID, cfg.ChannelID)
	if existing, ok := r.s.rewardConfigs[key]; ok {
		cfg.ID = existing.ID
	} else {
		cfg.ID = r.s.id()
	}
	r.s.rewardConfigs[key] = cfg
	return cfg, nil
}

func (r *fakeAutoRewardRepo) GetConfigByChannel(_ context.Context, guildID, channelID string) (*domain.AutoRewardConfig, error) {
	if cfg, ok := r.s.rewardConfigs[channelKey(guildID, channelID)]; ok {
		return cfg, nil
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeAutoRewardRepo) ListConfigs(_ context.Context, guildID string) ([]*domain.AutoRewardConfig, error) {
	var out []*domain.AutoRewardConfig
	for _, cfg := range r.s.rewardConfigs {
		if cfg.GuildID == guildID {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (r *fakeAutoRewardRepo) DeleteConfig(_ context.Context, guildID, channelID string) error {
	delete(r.s.rewardConfigs, channelKey(guildID, channelID))
	return nil
}

func (r *fakeAutoRewardRepo) SetEnabled(_ context.Context, guildID, channelID string, enabled bool) error {
	cfg, ok := r.s.rewardConfigs[channelKey(guildID, channelID)]
	if !ok {
		return xerrors.ErrNotFound
	}
	cfg.Enabled = enabled
	return nil
}

func (r *fakeAutoRewardRepo) InsertClaim(_ context.Context, _ pgx.Tx, configID, userID int64, guildID string) (*domain.AutoRewardClaim, error) {
	key := [2]int64{configID, userID}
	if r.s.rewardClaims[key] {
		return nil, xerrors.ErrDuplicateClaim
	}
	r.s.rewardClaims[key] = true
	return &domain.AutoRewardClaim{ID: r.s.id(), ConfigID: configID, UserID: userID, GuildID: guildID}, nil
}

func (r *fakeAutoRewardRepo) HasClaimed(_ context.Context, configID, userID int64) (bool, error) {
	return r.s.rewardClaims[[2]int64{configID, userID}], nil
}

// --- role plans ---

type fakeRolePlanRepo struct{ s *memStore }

func (r *fakeRolePlanRepo) CreatePanel(_ context.Context, guildID, panelName string) (*domain.RolePanel, error) {
	p := &domain.RolePanel{ID: r.s.id(), GuildID: guildID, PanelName: panelName}
	r.s.panels[p.ID] = p
	return p, nil
}

func (r *fakeRolePlanRepo) GetPanel(_ context.Context, guildID, panelName string) (*domain.RolePanel, error) {
	for _, p := range r.s.panels {
		if p.GuildID == guildID && p.PanelName == panelName {
			return p, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeRolePlanRepo) ListPanels(_ context.Context, guildID string) ([]*domain.RolePanel, error) {
	var out []*domain.RolePanel
	for _, p := range r.s.panels {
		if p.GuildID == guildID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRolePlanRepo) DeletePanel(_ context.Context, guildID, panelName string) error {
	for id, p := range r.s.panels {
		if p.GuildID == guildID && p.PanelName == panelName {
			delete(r.s.panels, id)
		}
	}
	return nil
}

func (r *fakeRolePlanRepo) CreatePlan(_ context.Context, plan *domain.RolePlan) (*domain.RolePlan, error) {
	plan.ID = r.s.id()
	r.s.plans[plan.ID] = plan
	return plan, nil
}

func (r *fakeRolePlanRepo) GetPlan(_ context.Context, id int64) (*domain.RolePlan, error) {
	if p, ok := r.s.plans[id]; ok {
		return p, nil
	}
	return nil, xerrors.ErrPlanNotFound
}

func (r *fakeRolePlanRepo) ListPlans(_ context.Context, panelID int64) ([]*domain.RolePlan, error) {
	var out []*domain.RolePlan
	for _, p := range r.s.plans {
		if p.PanelID == panelID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRolePlanRepo) DeletePlan(_ context.Context, id int64) error {
	delete(r.s.plans, id)
	return nil
}

func (r *fakeRolePlanRepo) InsertPurchase(_ context.Context, _ pgx.Tx, p *domain.RolePurchase) (*domain.RolePurchase, error) {
	p.ID = r.s.id()
	p.PurchasedAt = time.Now()
	r.s.purchases[p.ID] = p
	return p, nil
}

func (r *fakeRolePlanRepo) ActivePurchase(_ context.Context, guildID string, userID, planID int64) (*domain.RolePurchase, error) {
	for _, p := range r.s.purchases {
		if p.GuildID == guildID && p.UserID == userID && p.PlanID == planID {
			return p, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeRolePlanRepo) ExpiredPurchases(_ context.Context, now time.Time, limit int) ([]*domain.RolePurchase, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.RolePurchase
	for _, p := range r.s.purchases {
		if !p.ExpiresAt.After(now) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRolePlanRepo) DeletePurchase(_ context.Context, id int64) error {
	delete(r.s.purchases, id)
	return nil
}

// --- allowances ---

type fakeAllowanceRepo struct{ s *memStore }

func allowanceKey(guildID, roleID string) string { return guildID + "/" + roleID }

func allowanceHistoryKey(guildID, roleID string, userID, assetID int64, yearMonth string) string {
	return strings.Join([]string{guildID, roleID, fmt.Sprint(userID), fmt.Sprint(assetID), yearMonth}, "/")
}

func (r *fakeAllowanceRepo) Upsert(_ context.Context, a *domain.MonthlyAllowance) (*domain.MonthlyAllowance, error) {
	key := allowanceKey(a.GuildID, a.RoleID)
	if existing, ok := r.s.allowances[key]; ok {
		a.ID = existing.ID
	} else {
		a.ID = r.s.id()
	}
	r.s.allowances[key] = a
	return a, nil
}

func (r *fakeAllowanceRepo) Get(_ context.Context, guildID, roleID string) (*domain.MonthlyAllowance, error) {
	if a, ok := r.s.allowances[allowanceKey(guildID, roleID)]; ok {
		return a, nil
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeAllowanceRepo) ListEnabled(_ context.Context) ([]*domain.MonthlyAllowance, error) {
	var out []*domain.MonthlyAllowance
	for _, a := range r.s.allowances {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAllowanceRepo) ListByGuild(_ context.Context, guildID string) ([]*domain.MonthlyAllowance, error) {
	var out []*domain.MonthlyAllowance
	for _, a := range r.s.allowances {
		if a.GuildID == guildID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAllowanceRepo) Delete(_ context.Context, guildID, roleID string) error {
	delete(r.s.allowances, allowanceKey(guildID, roleID))
	return nil
}

func (r *fakeAllowanceRepo) InsertHistory(_ context.Context, _ pgx.Tx, h *domain.AllowanceHistory) error {
	key := allowanceHistoryKey(h.GuildID, h.RoleID, h.UserID, h.AssetID, h.YearMonth)
	if r.s.allowanceHistory[key] {
		return xerrors.ErrDuplicateClaim
	}
	r.s.allowanceHistory[key] = true
	return nil
}

func (r *fakeAllowanceRepo) HasPaid(_ context.Context, guildID, roleID string, userID, assetID int64, yearMonth string) (bool, error) {
	return r.s.allowanceHistory[allowanceHistoryKey(guildID, roleID, userID, assetID, yearMonth)], nil
}

// --- betting ---

type fakeBettingRepo struct{ s *memStore }

func (r *fakeBettingRepo) CreateEvent(_ context.Context, e *domain.BettingEvent) (*domain.BettingEvent, error) {
	e.ID = r.s.id()
	e.Status = domain.BetEventOpen
	e.CreatedAt = time.Now()
	r.s.events[e.ID] = e
	return e, nil
}

func (r *fakeBettingRepo) GetEvent(_ context.Context, id int64) (*domain.BettingEvent, error) {
	if e, ok := r.s.events[id]; ok {
		return e, nil
	}
	return nil, xerrors.ErrEventNotFound
}

func (r *fakeBettingRepo) GetEventWithLock(ctx context.Context, _ pgx.Tx, id int64) (*domain.BettingEvent, error) {
	return r.GetEvent(ctx, id)
}

func (r *fakeBettingRepo) ListOpenEvents(_ context.Context, guildID string) ([]*domain.BettingEvent, error) {
	var out []*domain.BettingEvent
	for _, e := range r.s.events {
		if e.GuildID == guildID && e.Status == domain.BetEventOpen {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeBettingRepo) UpdateEventStatus(_ context.Context, _ pgx.Tx, id int64, status domain.BettingEventStatus, winningTarget *string) error {
	e, ok := r.s.events[id]
	if !ok {
		return xerrors.ErrEventNotFound
	}
	e.Status = status
	e.WinningTarget = winningTarget
	return nil
}

func (r *fakeBettingRepo) InsertBet(_ context.Context, _ pgx.Tx, b *domain.Bet) (*domain.Bet, error) {
	b.ID = r.s.id()
	b.CreatedAt = time.Now()
	r.s.bets = append(r.s.bets, b)
	return b, nil
}

func (r *fakeBettingRepo) ListBets(_ context.Context, eventID int64) ([]*domain.Bet, error) {
	var out []*domain.Bet
	for _, b := range r.s.bets {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBettingRepo) ListBetsTx(ctx context.Context, _ pgx.Tx, eventID int64) ([]*domain.Bet, error) {
	return r.ListBets(ctx, eventID)
}

func (r *fakeBettingRepo) Pools(_ context.Context, eventID int64) (map[string]decimal.Decimal, error) {
	pools := make(map[string]decimal.Decimal)
	for _, b := range r.s.bets {
		if b.EventID == eventID {
			pools[b.Target] = pools[b.Target].Add(b.Amount)
		}
	}
	return pools, nil
}

// --- voice earning ---

type fakeVCRepo struct{ s *memStore }

func sessionKey(guildID string, userID int64) string { return fmt.Sprintf("%s/%d", guildID, userID) }

func dailyKey(guildID string, userID, assetID int64, day string) string {
	return fmt.Sprintf("%s/%d/%d/%s", guildID, userID, assetID, day)
}

func (r *fakeVCRepo) UpsertRate(_ context.Context, rate *domain.VCEarningRate) (*domain.VCEarningRate, error) {
	key := channelKey(rate.GuildID, rate.ChannelID)
	if existing, ok := r.s.vcRates[key]; ok {
		rate.ID = existing.ID
	} else {
		rate.ID = r.s.id()
	}
	r.s.vcRates[key] = rate
	return rate, nil
}

func (r *fakeVCRepo) GetRate(_ context.Context, guildID, channelID string) (*domain.VCEarningRate, error) {
	if rate, ok := r.s.vcRates[channelKey(guildID, channelID)]; ok {
		return rate, nil
	}
	return nil, xerrors.ErrRateNotFound
}

func (r *fakeVCRepo) ListRates(_ context.Context, guildID string) ([]*domain.VCEarningRate, error) {
	var out []*domain.VCEarningRate
	for _, rate := range r.s.vcRates {
		if rate.GuildID == guildID {
			out = append(out, rate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (r *fakeVCRepo) DeleteRate(_ context.Context, guildID, channelID string) error {
	delete(r.s.vcRates, channelKey(guildID, channelID))
	return nil
}

func (r *fakeVCRepo) UpsertSession(_ context.Context, s *domain.VCSession) (*domain.VCSession, error) {
	s.ID = r.s.id()
	now := time.Now()
	if s.JoinedAt.IsZero() {
		s.JoinedAt = now
	}
	if s.LastPaidAt.IsZero() {
		s.LastPaidAt = s.JoinedAt
	}
	r.s.vcSessions[sessionKey(s.GuildID, s.UserID)] = s
	return s, nil
}

func (r *fakeVCRepo) GetSession(_ context.Context, guildID string, userID int64) (*domain.VCSession, error) {
	if s, ok := r.s.vcSessions[sessionKey(guildID, userID)]; ok {
		return s, nil
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeVCRepo) DeleteSession(_ context.Context, guildID string, userID int64) error {
	delete(r.s.vcSessions, sessionKey(guildID, userID))
	return nil
}

func (r *fakeVCRepo) ListSessions(_ context.Context) ([]*domain.VCSession, error) {
	var out []*domain.VCSession
	for _, s := range r.s.vcSessions {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeVCRepo) TouchSession(_ context.Context, id int64, paidAt time.Time) error {
	for _, s := range r.s.vcSessions {
		if s.ID == id {
			s.LastPaidAt = paidAt
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (r *fakeVCRepo) AddDailyEarning(_ context.Context, guildID string, userID, assetID int64, day string, amount decimal.Decimal) (decimal.Decimal, error) {
	key := dailyKey(guildID, userID, assetID, day)
	r.s.vcDaily[key] = r.s.vcDaily[key].Add(amount)
	return r.s.vcDaily[key], nil
}

func (r *fakeVCRepo) DailyEarned(_ context.Context, guildID string, userID, assetID int64, day string) (decimal.Decimal, error) {
	return r.s.vcDaily[dailyKey(guildID, userID, assetID, day)], nil
}

func (r *fakeVCRepo) PruneDailyEarnings(_ context.Context, cutoffDay string) (int64, error) {
	var pruned int64
	for key := range r.s.vcDaily {
		parts := strings.Split(key, "/")
		if parts[len(parts)-1] < cutoffDay {
			delete(r.s.vcDaily, key)
			pruned++
		}
	}
	return pruned, nil
}

// --- test world ---

// world wires every usecase against one shared memory store, the same
// way the server wires them against Postgres.
type world struct {
	store  *memStore
	ledger *fakeLedgerRepo

	accountUC   *AccountUsecase
	assetUC     *AssetUsecase
	ledgerUC    *LedgerUsecase
	transferUC  *TransferUsecase
	bankUC      *BankUsecase
	rewardUC    *AutoRewardUsecase
	rolePlanUC  *RolePlanUsecase
	allowanceUC *AllowanceUsecase
	bettingUC   *BettingUsecase
	vcUC        *VCEarningUsecase

	bankRepo      *fakeBankRepo
	rewardRepo    *fakeAutoRewardRepo
	rolePlanRepo  *fakeRolePlanRepo
	allowanceRepo *fakeAllowanceRepo
	bettingRepo   *fakeBettingRepo
	vcRepo        *fakeVCRepo
}

func newWorld() *world {
	s := newMemStore()
	ledger := &fakeLedgerRepo{s: s}
	accountRepo := &fakeAccountRepo{s: s}
	balanceRepo := &fakeBalanceRepo{s: s}
	postingRepo := &fakePostingRepo{s: s}
	txnRepo := &fakeTxnRepo{s: s}

	w := &world{
		store:         s,
		ledger:        ledger,
		bankRepo:      &fakeBankRepo{s: s},
		rewardRepo:    &fakeAutoRewardRepo{s: s},
		rolePlanRepo:  &fakeRolePlanRepo{s: s},
		allowanceRepo: &fakeAllowanceRepo{s: s},
		bettingRepo:   &fakeBettingRepo{s: s},
		vcRepo:        &fakeVCRepo{s: s},
	}

	w.accountUC = NewAccountUsecase(accountRepo, nil)
	w.assetUC = NewAssetUsecase(&fakeAssetRepo{s: s}, w.accountUC, ledger, nil)
	w.ledgerUC = NewLedgerUsecase(ledger, balanceRepo, postingRepo, txnRepo, w.accountUC, nil, nil)
	w.transferUC = NewTransferUsecase(w.assetUC, w.accountUC, w.ledgerUC)
	w.bankUC = NewBankUsecase(w.bankRepo, w.assetUC, w.accountUC, w.ledgerUC, ledger)
	w.rewardUC = NewAutoRewardUsecase(w.rewardRepo, w.assetUC, w.accountUC, w.ledgerUC, ledger)
	w.rolePlanUC = NewRolePlanUsecase(w.rolePlanRepo, w.assetUC, w.accountUC, w.ledgerUC, ledger)
	w.allowanceUC = NewAllowanceUsecase(w.allowanceRepo, w.assetUC, w.accountUC, w.ledgerUC, ledger)
	w.bettingUC = NewBettingUsecase(w.bettingRepo, w.assetUC, w.accountUC, w.ledgerUC, ledger, nil)
	w.vcUC = NewVCEarningUsecase(w.vcRepo, w.assetUC, w.accountUC, w.ledgerUC)
	return w
}

// seedAsset creates a currency (funding the treasury with the initial
// issue) and returns it with the guild's system accounts.
func (w *world) seedAsset(ctx context.Context, guildID, symbol string, decimals int) (*domain.Asset, *domain.Account, *domain.Account) {
	asset, err := w.assetUC.CreateAsset(ctx, &domain.AssetCreate{
		GuildID:  guildID,
		Symbol:   symbol,
		Name:     symbol,
		Decimals: decimals,
	})
	if err != nil {
		panic(err)
	}
	treasury, _ := w.accountUC.EnsureTreasury(ctx, guildID)
	burn, _ := w.accountUC.EnsureBurn(ctx, guildID)
	return asset, treasury, burn
}

// fundUser credits a wallet straight in the store, bypassing the ledger.
func (w *world) fundUser(ctx context.Context, guildID string, userID int64, assetID int64, amount decimal.Decimal) *domain.Account {
	wallet, err := w.accountUC.EnsureUser(ctx, guildID, userID)
	if err != nil {
		panic(err)
	}
	w.store.setBalance(wallet.ID, assetID, amount)
	return wallet
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// recordingPub captures publisher calls for assertions.
type recordingPub struct {
	committed [][3]string // guild, symbol, amount
	refilled  int
	settled   int
}

func (p *recordingPub) PublishCommitted(_ context.Context, guildID, assetSymbol string, _ *domain.Transaction, amount string) error {
	p.committed = append(p.committed, [3]string{guildID, assetSymbol, amount})
	return nil
}

func (p *recordingPub) PublishTreasuryRefilled(_ context.Context, _, _, _ string) error {
	p.refilled++
	return nil
}

func (p *recordingPub) PublishBetSettled(_ context.Context, _ *domain.BettingEvent) error {
	p.settled++
	return nil
}
