package hrest

import (
	"net/http"
	"strconv"

	"economy-service/internal/domain"
	"economy-service/internal/xerrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ===============================
// BANK
// ===============================

type bankJSON struct {
	UserID int64  `json:"user_id"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

func (h *EconomyRestHandler) BankDeposit(w http.ResponseWriter, r *http.Request) {
	var body bankJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}
	after, err := h.bankUC.Deposit(r.Context(), guildID(r), body.UserID, body.Symbol, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bank_balance": after.String()})
}

func (h *EconomyRestHandler) BankWithdraw(w http.ResponseWriter, r *http.Request) {
	var body bankJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}
	after, err := h.bankUC.Withdraw(r.Context(), guildID(r), body.UserID, body.Symbol, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bank_balance": after.String()})
}

func (h *EconomyRestHandler) BankBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := h.bankUC.Balance(r.Context(), guildID(r), userID, chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bank_balance": balance.String()})
}

func (h *EconomyRestHandler) BankHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := h.bankUC.History(r.Context(), guildID(r), userID, chi.URLParam(r, "symbol"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// ===============================
// AUTO REWARDS
// ===============================

type autoRewardJSON struct {
	ChannelID      string `json:"channel_id"`
	TriggerMessage string `json:"trigger_message"`
	Symbol         string `json:"symbol"`
	Amount         string `json:"amount"`
}

func (h *EconomyRestHandler) SetAutoReward(w http.ResponseWriter, r *http.Request) {
	var body autoRewardJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.rewardUC.SetConfig(r.Context(), guildID(r), body.ChannelID, body.TriggerMessage, body.Symbol, body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (h *EconomyRestHandler) ListAutoRewards(w http.ResponseWriter, r *http.Request) {
	configs, err := h.rewardUC.ListConfigs(r.Context(), guildID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

func (h *EconomyRestHandler) DeleteAutoReward(w http.ResponseWriter, r *http.Request) {
	if err := h.rewardUC.DeleteConfig(r.Context(), guildID(r), chi.URLParam(r, "channelID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type claimJSON struct {
	UserID  int64  `json:"user_id"`
	Content string `json:"content"`
}

func (h *EconomyRestHandler) ClaimAutoReward(w http.ResponseWriter, r *http.Request) {
	var body claimJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.rewardUC.ClaimForMessage(r.Context(), guildID(r), chi.URLParam(r, "channelID"), body.UserID, body.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agg.Transaction)
}

// ===============================
// ROLE PLANS
// ===============================

type panelJSON struct {
	PanelName string `json:"panel_name"`
}

func (h *EconomyRestHandler) CreatePanel(w http.ResponseWriter, r *http.Request) {
	var body panelJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	panel, err := h.planUC.CreatePanel(r.Context(), guildID(r), body.PanelName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, panel)
}

func (h *EconomyRestHandler) ListPanels(w http.ResponseWriter, r *http.Request) {
	panels, err := h.planUC.ListPanels(r.Context(), guildID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, panels)
}

func (h *EconomyRestHandler) DeletePanel(w http.ResponseWriter, r *http.Request) {
	if err := h.planUC.DeletePanel(r.Context(), guildID(r), chi.URLParam(r, "panelName")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type planJSON struct {
	PanelID       int64   `json:"panel_id"`
	PlanName      string  `json:"plan_name"`
	RoleID        string  `json:"role_id"`
	Price         string  `json:"price"`
	Symbol        string  `json:"symbol"`
	DurationHours int     `json:"duration_hours"`
	Description   *string `json:"description,omitempty"`
}

func (h *EconomyRestHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var body planJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	price, err := decimal.NewFromString(body.Price)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}
	plan, err := h.planUC.CreatePlan(r.Context(), &domain.RolePlan{
		PanelID:        body.PanelID,
		GuildID:        guildID(r),
		PlanName:       body.PlanName,
		RoleID:         body.RoleID,
		Price:          price,
		CurrencySymbol: body.Symbol,
		DurationHours:  body.DurationHours,
		Description:    body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *EconomyRestHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	panelID, err := pathInt64(r, "panelID")
	if err != nil {
		writeError(w, err)
		return
	}
	plans, err := h.planUC.ListPlans(r.Context(), panelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *EconomyRestHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathInt64(r, "planID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.planUC.DeletePlan(r.Context(), planID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type purchaseJSON struct {
	UserID int64 `json:"user_id"`
	PlanID int64 `json:"plan_id"`
}

func (h *EconomyRestHandler) PurchaseRole(w http.ResponseWriter, r *http.Request) {
	var body purchaseJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	purchase, err := h.planUC.Purchase(r.Context(), guildID(r), body.UserID, body.PlanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

// ===============================
// ALLOWANCES
// ===============================

type allowanceJSON struct {
	RoleID     string `json:"role_id"`
	Amount     string `json:"amount"`
	Symbol     string `json:"symbol"`
	PaymentDay int    `json:"payment_day"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

func (h *EconomyRestHandler) SetAllowance(w http.ResponseWriter, r *http.Request) {
	var body allowanceJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}
	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}
	allowance, err := h.allowanceUC.Set(r.Context(), &domain.MonthlyAllowance{
		GuildID:        guildID(r),
		RoleID:         body.RoleID,
		Amount:         amount,
		CurrencySymbol: body.Symbol,
		PaymentDay:     body.PaymentDay,
		Enabled:        enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, allowance)
}

func (h *EconomyRestHandler) ListAllowances(w http.ResponseWriter, r *http.Request) {
	allowances, err := h.allowanceUC.ListByGuild(r.Context(), guildID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, allowances)
}

func (h *EconomyRestHandler) DeleteAllowance(w http.ResponseWriter, r *http.Request) {
	if err := h.allowanceUC.Delete(r.Context(), guildID(r), chi.URLParam(r, "roleID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ===============================
// BETTING
// ===============================

type betEventJSON struct {
	Title     string   `json:"title"`
	Symbol    string   `json:"symbol"`
	Targets   []string `json:"targets"`
	CreatedBy int64    `json:"created_by"`
}

func (h *EconomyRestHandler) CreateBetEvent(w http.ResponseWriter, r *http.Request) {
	var body betEventJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	event, err := h.bettingUC.CreateEvent(r.Context(), guildID(r), body.Title, body.Symbol, body.Targets, body.CreatedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EconomyRestHandler) ListBetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.bettingUC.ListOpenEvents(r.Context(), guildID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EconomyRestHandler) BetOdds(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}
	odds, err := h.bettingUC.Odds(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]string, len(odds))
	for target, o := range odds {
		out[target] = o.String()
	}
	writeJSON(w, http.StatusOK, out)
}

type placeBetJSON struct {
	UserID int64  `json:"user_id"`
	Target string `json:"target"`
	Amount string `json:"amount"`
}

func (h *EconomyRestHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body placeBetJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}
	bet, err := h.bettingUC.PlaceBet(r.Context(), guildID(r), eventID, body.UserID, body.Target, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

func (h *EconomyRestHandler) CloseBetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.bettingUC.CloseEvent(r.Context(), guildID(r), eventID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type settleJSON struct {
	WinningTarget string `json:"winning_target"`
}

func (h *EconomyRestHandler) SettleBetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body settleJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.bettingUC.Settle(r.Context(), guildID(r), eventID, body.WinningTarget); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

func (h *EconomyRestHandler) CancelBetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathInt64(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.bettingUC.Cancel(r.Context(), guildID(r), eventID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// ===============================
// VOICE EARNING
// ===============================

type vcRateJSON struct {
	ChannelID  string `json:"channel_id"`
	Symbol     string `json:"symbol"`
	PerMinute  string `json:"amount_per_minute"`
	DailyLimit string `json:"daily_limit"`
}

func (h *EconomyRestHandler) SetVCRate(w http.ResponseWriter, r *http.Request) {
	var body vcRateJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	perMinute, err := decimal.NewFromString(body.PerMinute)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}
	dailyLimit := decimal.Zero
	if body.DailyLimit != "" {
		if dailyLimit, err = decimal.NewFromString(body.DailyLimit); err != nil {
			writeError(w, xerrors.ErrInvalidRequest)
			return
		}
	}
	rate, err := h.vcUC.SetRate(r.Context(), guildID(r), body.ChannelID, body.Symbol, perMinute, dailyLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rate)
}

func (h *EconomyRestHandler) ListVCRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.vcUC.ListRates(r.Context(), guildID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (h *EconomyRestHandler) DeleteVCRate(w http.ResponseWriter, r *http.Request) {
	if err := h.vcUC.DeleteRate(r.Context(), guildID(r), chi.URLParam(r, "channelID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type vcSessionJSON struct {
	UserID    int64  `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

func (h *EconomyRestHandler) JoinVoice(w http.ResponseWriter, r *http.Request) {
	var body vcSessionJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.vcUC.JoinVoice(r.Context(), guildID(r), body.UserID, body.ChannelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *EconomyRestHandler) LeaveVoice(w http.ResponseWriter, r *http.Request) {
	var body vcSessionJSON
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.vcUC.LeaveVoice(r.Context(), guildID(r), body.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}
