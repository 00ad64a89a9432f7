package hrest

import (
	"net/http"
	"strconv"
	"time"

	"economy-service/internal/domain"
	"economy-service/internal/usecase"
	"economy-service/internal/xerrors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

type EconomyRestHandler struct {
	assetUC     *usecase.AssetUsecase
	accountUC   *usecase.AccountUsecase
	ledgerUC    *usecase.LedgerUsecase
	transferUC  *usecase.TransferUsecase
	bankUC      *usecase.BankUsecase
	rewardUC    *usecase.AutoRewardUsecase
	planUC      *usecase.RolePlanUsecase
	allowanceUC *usecase.AllowanceUsecase
	bettingUC   *usecase.BettingUsecase
	vcUC        *usecase.VCEarningUsecase
}

func NewEconomyRestHandler(
	assetUC *usecase.AssetUsecase,
	accountUC *usecase.AccountUsecase,
	ledgerUC *usecase.LedgerUsecase,
	transferUC *usecase.TransferUsecase,
	bankUC *usecase.BankUsecase,
	rewardUC *usecase.AutoRewardUsecase,
	planUC *usecase.RolePlanUsecase,
	allowanceUC *usecase.AllowanceUsecase,
	bettingUC *usecase.BettingUsecase,
	vcUC *usecase.VCEarningUsecase,
) *EconomyRestHandler {
	return &EconomyRestHandler{
		assetUC:     assetUC,
		accountUC:   accountUC,
		ledgerUC:    ledgerUC,
		transferUC:  transferUC,
		bankUC:      bankUC,
		rewardUC:    rewardUC,
		planUC:      planUC,
		allowanceUC: allowanceUC,
		bettingUC:   bettingUC,
		vcUC:        vcUC,
	}
}

func (h *EconomyRestHandler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/guilds/{guildID}", func(r chi.Router) {
		r.Route("/assets", func(r chi.Router) {
			r.Post("/", h.CreateAsset)
			r.Get("/", h.ListAssets)
			r.Get("/{symbol}", h.GetAsset)
			r.Delete("/{symbol}", h.DeleteAsset)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/balance/{symbol}", h.GetBalance)
			r.Get("/history/{symbol}", h.GetHistory)
		})

		r.Get("/accounts/{logical}", h.ResolveAccount)

		r.Post("/pay", h.Pay)
		r.Post("/issue", h.Issue)
		r.Post("/donate", h.Donate)
		r.Post("/burn", h.Burn)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Post("/balances/rebuild", h.RebuildBalance)

		r.Route("/bank", func(r chi.Router) {
			r.Post("/deposit", h.BankDeposit)
			r.Post("/withdraw", h.BankWithdraw)
			r.Get("/{userID}/balance/{symbol}", h.BankBalance)
			r.Get("/{userID}/history/{symbol}", h.BankHistory)
		})

		r.Route("/autorewards", func(r chi.Router) {
			r.Post("/", h.SetAutoReward)
			r.Get("/", h.ListAutoRewards)
			r.Delete("/{channelID}", h.DeleteAutoReward)
			r.Post("/{channelID}/claim", h.ClaimAutoReward)
		})

		r.Route("/roleplans", func(r chi.Router) {
			r.Post("/panels", h.CreatePanel)
			r.Get("/panels", h.ListPanels)
			r.Delete("/panels/{panelName}", h.DeletePanel)
			r.Post("/plans", h.CreatePlan)
			r.Get("/panels/{panelID}/plans", h.ListPlans)
			r.Delete("/plans/{planID}", h.DeletePlan)
			r.Post("/purchase", h.PurchaseRole)
		})

		r.Route("/allowances", func(r chi.Router) {
			r.Post("/", h.SetAllowance)
			r.Get("/", h.ListAllowances)
			r.Delete("/{roleID}", h.DeleteAllowance)
		})

		r.Route("/betting", func(r chi.Router) {
			r.Post("/events", h.CreateBetEvent)
			r.Get("/events", h.ListBetEvents)
			r.Get("/events/{eventID}/odds", h.BetOdds)
			r.Post("/events/{eventID}/bets", h.PlaceBet)
			r.Post("/events/{eventID}/close", h.CloseBetEvent)
			r.Post("/events/{eventID}/settle", h.SettleBetEvent)
			r.Post("/events/{eventID}/cancel", h.CancelBetEvent)
		})

		r.Route("/vc", func(r chi.Router) {
			r.Post("/rates", h.SetVCRate)
			r.Get("/rates", h.ListVCRates)
			r.Delete("/rates/{channelID}", h.DeleteVCRate)
			r.Post("/sessions/join", h.JoinVoice)
			r.Post("/sessions/leave", h.LeaveVoice)
		})
	})

	return r
}

func guildID(r *http.Request) string {
	return chi.URLParam(r, "guildID")
}

func pathInt64(r *http.Request, key string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil {
		return 0, xerrors.ErrInvalidRequest
	}
	return v, nil
}

// ===============================
// ASSETS
// ===============================

type createAssetJSON struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

func (h *EconomyRestHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var body createAssetJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	asset, err := h.assetUC.CreateAsset(r.Context(), &domain.AssetCreate{
		GuildID:  guildID(r),
		Symbol:   body.Symbol,
		Name:     body.Name,
		Decimals: body.Decimals,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (h *EconomyRestHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assetUC.ListByGuild(r.Context(), guildID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *EconomyRestHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.assetUC.GetBySymbol(r.Context(), guildID(r), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (h *EconomyRestHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.assetUC.DeleteAsset(r.Context(), guildID(r), chi.URLParam(r, "symbol")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ===============================
// BALANCES AND TRANSFERS
// ===============================

// ResolveAccount looks up an account by its logical name without
// creating it.
func (h *EconomyRestHandler) ResolveAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.AccountIDByName(r.Context(), guildID(r), chi.URLParam(r, "logical"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *EconomyRestHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := h.assetUC.GetBySymbol(r.Context(), guildID(r), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.accountUC.EnsureUser(r.Context(), guildID(r), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := h.ledgerUC.BalanceOf(r.Context(), account.ID, asset.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"symbol":  asset.Symbol,
		"balance": balance.String(),
	})
}

func (h *EconomyRestHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := h.assetUC.GetBySymbol(r.Context(), guildID(r), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.accountUC.EnsureUser(r.Context(), guildID(r), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	postings, err := h.ledgerUC.History(r.Context(), account.ID, asset.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postings)
}

type transferJSON struct {
	FromUserID     int64  `json:"from_user_id"`
	ToUserID       int64  `json:"to_user_id"`
	Symbol         string `json:"symbol"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (b *transferJSON) amount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(b.Amount)
	if err != nil {
		return decimal.Zero, xerrors.ErrInvalidRequest
	}
	return d, nil
}

func (b *transferJSON) idemKey() *string {
	if b.IdempotencyKey == "" {
		return nil
	}
	return &b.IdempotencyKey
}

func (h *EconomyRestHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var body transferJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := body.amount()
	if err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.transferUC.Pay(r.Context(), guildID(r), body.FromUserID, body.ToUserID, body.Symbol, amount, body.idemKey())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agg.Transaction)
}

func (h *EconomyRestHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var body transferJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := body.amount()
	if err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.transferUC.Issue(r.Context(), guildID(r), body.ToUserID, body.Symbol, amount, body.FromUserID, domain.KindIssue, body.idemKey())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agg.Transaction)
}

func (h *EconomyRestHandler) Donate(w http.ResponseWriter, r *http.Request) {
	var body transferJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := body.amount()
	if err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.transferUC.Donate(r.Context(), guildID(r), body.FromUserID, body.Symbol, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agg.Transaction)
}

func (h *EconomyRestHandler) Burn(w http.ResponseWriter, r *http.Request) {
	var body transferJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := body.amount()
	if err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.transferUC.Burn(r.Context(), guildID(r), body.FromUserID, body.Symbol, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agg.Transaction)
}

func (h *EconomyRestHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	txn, postings, err := h.ledgerUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": txn,
		"postings":    postings,
	})
}

type rebuildJSON struct {
	AccountID int64 `json:"account_id"`
	AssetID   int64 `json:"asset_id"`
}

func (h *EconomyRestHandler) RebuildBalance(w http.ResponseWriter, r *http.Request) {
	var body rebuildJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	bal, err := h.ledgerUC.RebuildBalance(r.Context(), body.AccountID, body.AssetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}
