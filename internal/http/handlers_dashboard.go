package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/ledger"
	"github.com/icesco/PersonalFinance-sub002/internal/services"
)

type contoBalanceResponse struct {
	ContoID string `json:"conto_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance string `json:"balance"`
	Change  string `json:"change"`
}

type dashboardResponse struct {
	Total            string                 `json:"total"`
	PeriodStart      string                 `json:"period_start"`
	AbsoluteChange   string                 `json:"absolute_change"`
	PercentageChange float64                `json:"percentage_change"`
	Income           string                 `json:"income"`
	Expenses         string                 `json:"expenses"`
	Conti            []contoBalanceResponse `json:"conti"`
}

func toDashboardResponse(d services.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		Total:            core.FormatAmount(d.Total),
		PeriodStart:      core.FormatAmount(d.PeriodStart),
		AbsoluteChange:   core.FormatAmount(d.AbsoluteChange),
		PercentageChange: d.PercentageChange,
		Income:           core.FormatAmount(d.Income),
		Expenses:         core.FormatAmount(d.Expenses),
	}
	for _, cb := range d.ContoBalances {
		resp.Conti = append(resp.Conti, contoBalanceResponse{
			ContoID: cb.Conto.ID.String(),
			Name:    cb.Conto.Name,
			Type:    string(cb.Conto.Type),
			Balance: core.FormatAmount(cb.Balance),
			Change:  core.FormatAmount(cb.Change),
		})
	}
	return resp
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(period.Months() - 1), 0)

	key := fmt.Sprintf("%s|%d|%s", accountID, period, now.Format("2006-01-02T15:04"))
	if cached, ok := s.dashboardCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toDashboardResponse(cached))
		return
	}

	d, err := s.balances.Dashboard(r.Context(), accountID, periodStart, now)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.dashboardCache.Set(key, d)
	writeJSON(w, http.StatusOK, toDashboardResponse(d))
}

type balancePointResponse struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

type historyResponse struct {
	Past       []balancePointResponse `json:"past"`
	Future     []balancePointResponse `json:"future,omitempty"`
	LowerBound string                 `json:"lower_bound"`
	UpperBound string                 `json:"upper_bound"`
}

func toPointResponses(points []ledger.BalancePoint) []balancePointResponse {
	out := make([]balancePointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, balancePointResponse{
			Date:    p.Date.Format("2006-01-02"),
			Balance: core.FormatAmount(p.Balance),
		})
	}
	return out
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	selectedMonth, err := parseDateParam(r, "month", now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key := fmt.Sprintf("%s|%d|%s|%s", accountID, period,
		selectedMonth.Format("2006-01"), now.Format("2006-01-02T15:04"))
	if cached, ok := s.historyCache.Get(key); ok {
		writeHistory(w, cached)
		return
	}

	h, err := s.balances.History(r.Context(), accountID, period, selectedMonth, now)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.historyCache.Set(key, h)
	writeHistory(w, h)
}

func writeHistory(w http.ResponseWriter, h services.History) {
	writeJSON(w, http.StatusOK, historyResponse{
		Past:       toPointResponses(h.Past),
		Future:     toPointResponses(h.Future),
		LowerBound: core.FormatAmount(h.LowerBound),
		UpperBound: core.FormatAmount(h.UpperBound),
	})
}

type seriesResponse struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	Points []balancePointResponse `json:"points"`
}

func toSeriesResponses(series []ledger.EntitySeries) []seriesResponse {
	out := make([]seriesResponse, 0, len(series))
	for _, s := range series {
		out = append(out, seriesResponse{
			ID:     s.ID.String(),
			Name:   s.Name,
			Points: toPointResponses(s.Points),
		})
	}
	return out
}

func (s *Server) handleCompareAccounts(w http.ResponseWriter, r *http.Request) {
	months := parseMonths(r, s.historyMonths)
	series, err := s.balances.CompareAccounts(r.Context(), months, time.Now().UTC())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesResponses(series))
}

func (s *Server) handleCompareConti(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	months := parseMonths(r, s.historyMonths)
	series, err := s.balances.CompareConti(r.Context(), accountID, months, time.Now().UTC())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesResponses(series))
}

// --- budgets ---

type budgetRequest struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Period     string `json:"period"`
}

type budgetStatusResponse struct {
	BudgetID  string `json:"budget_id"`
	Category  string `json:"category"`
	Amount    string `json:"amount"`
	Period    string `json:"period"`
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
	Exceeded  bool   `json:"exceeded"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid category_id: %w", err))
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	b := core.Budget{
		ID:         uuid.New(),
		AccountID:  accountID,
		CategoryID: categoryID,
		Amount:     amount,
		Period:     core.BudgetPeriod(req.Period),
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.CreateBudget(r.Context(), b); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": b.ID.String()})
}

func (s *Server) handleBudgetStatuses(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	statuses, err := s.budgets.Statuses(r.Context(), accountID, time.Now().UTC())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]budgetStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, budgetStatusResponse{
			BudgetID:  st.Budget.ID.String(),
			Category:  st.CategoryName,
			Amount:    core.FormatAmount(st.Budget.Amount),
			Period:    string(st.Budget.Period),
			Spent:     core.FormatAmount(st.Spent),
			Remaining: core.FormatAmount(st.Remaining),
			Exceeded:  st.Exceeded,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeleteBudget(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- savings goals ---

type goalRequest struct {
	Name     string  `json:"name"`
	Target   string  `json:"target"`
	ContoID  *string `json:"conto_id,omitempty"`
	Deadline *string `json:"deadline,omitempty"`
}

type goalProgressResponse struct {
	GoalID   string  `json:"goal_id"`
	Name     string  `json:"name"`
	Target   string  `json:"target"`
	Current  string  `json:"current"`
	Fraction float64 `json:"fraction"`
	Reached  bool    `json:"reached"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	target, err := core.ParseAmount(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	g := core.SavingsGoal{ID: uuid.New(), AccountID: accountID, Name: req.Name, Target: target}
	if g.ContoID, err = parseIDField(req.ContoID, "conto_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Deadline != nil {
		deadline, err := time.ParseInLocation("2006-01-02", *req.Deadline, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse deadline: %w", err))
			return
		}
		g.Deadline = &deadline
	}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.CreateSavingsGoal(r.Context(), g); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": g.ID.String()})
}

func (s *Server) handleGoalProgresses(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	progresses, err := s.budgets.GoalProgresses(r.Context(), accountID, time.Now().UTC())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]goalProgressResponse, 0, len(progresses))
	for _, p := range progresses {
		out = append(out, goalProgressResponse{
			GoalID:   p.Goal.ID.String(),
			Name:     p.Goal.Name,
			Target:   core.FormatAmount(p.Goal.Target),
			Current:  core.FormatAmount(p.Current),
			Fraction: p.Fraction,
			Reached:  p.Reached,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeleteSavingsGoal(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// parsePeriod reads ?period= as one of 1m, 3m, 6m, 1y.
func parsePeriod(r *http.Request) (ledger.Period, error) {
	switch r.URL.Query().Get("period") {
	case "", "1m":
		return ledger.PeriodOneMonth, nil
	case "3m":
		return ledger.PeriodThreeMonths, nil
	case "6m":
		return ledger.PeriodSixMonths, nil
	case "1y":
		return ledger.PeriodOneYear, nil
	default:
		return 0, fmt.Errorf("invalid period %q (want 1m, 3m, 6m or 1y)", r.URL.Query().Get("period"))
	}
}

func parseMonths(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("months")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 36 {
		return fallback
	}
	return n
}
