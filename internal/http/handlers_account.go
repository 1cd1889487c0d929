package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

type accountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Active   *bool  `json:"active,omitempty"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Active   bool   `json:"active"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{ID: a.ID.String(), Name: a.Name, Currency: a.Currency, Active: a.Active}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a := core.Account{ID: uuid.New(), Name: req.Name, Currency: req.Currency, Active: true}
	if req.Active != nil {
		a.Active = *req.Active
	}
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.CreateAccount(r.Context(), a); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name != "" {
		a.Name = req.Name
	}
	if req.Currency != "" {
		a.Currency = req.Currency
	}
	if req.Active != nil {
		a.Active = *req.Active
	}
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdateAccount(r.Context(), a); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeleteAccount(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusNoContent, nil)
}

// --- conti ---

type contoRequest struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	InitialBalance string  `json:"initial_balance"`
	Active         *bool   `json:"active,omitempty"`
	CreditLimit    *string `json:"credit_limit,omitempty"`
	StatementDay   *int    `json:"statement_day,omitempty"`
	PaymentDueDay  *int    `json:"payment_due_day,omitempty"`
	InterestRate   *string `json:"interest_rate,omitempty"`
	SavingsTarget  *string `json:"savings_target,omitempty"`
}

type contoResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance"`
	Active         bool   `json:"active"`
}

func toContoResponse(c core.Conto) contoResponse {
	return contoResponse{
		ID:             c.ID.String(),
		AccountID:      c.AccountID.String(),
		Name:           c.Name,
		Type:           string(c.Type),
		InitialBalance: c.InitialBalance.String(),
		Active:         c.Active,
	}
}

func (req contoRequest) apply(c *core.Conto) error {
	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Type != "" {
		c.Type = core.ContoType(req.Type)
	}
	if req.InitialBalance != "" {
		// The initial balance may legitimately be negative (credit
		// card debt carried in), so plain decimal parsing applies.
		d, err := decimal.NewFromString(req.InitialBalance)
		if err != nil {
			return err
		}
		c.InitialBalance = d
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if req.StatementDay != nil {
		c.StatementDay = req.StatementDay
	}
	if req.PaymentDueDay != nil {
		c.PaymentDueDay = req.PaymentDueDay
	}
	for _, f := range []struct {
		src *string
		dst **decimal.Decimal
	}{
		{req.CreditLimit, &c.CreditLimit},
		{req.InterestRate, &c.InterestRate},
		{req.SavingsTarget, &c.SavingsTarget},
	} {
		if f.src == nil {
			continue
		}
		d, err := decimal.NewFromString(*f.src)
		if err != nil {
			return err
		}
		*f.dst = &d
	}
	return c.Validate()
}

func (s *Server) handleCreateConto(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req contoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c := core.Conto{ID: uuid.New(), AccountID: accountID, Active: true}
	if err := req.apply(&c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.CreateConto(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusCreated, toContoResponse(c))
}

func (s *Server) handleListConti(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	conti, err := s.store.ListConti(r.Context(), accountID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]contoResponse, 0, len(conti))
	for _, c := range conti {
		out = append(out, toContoResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateConto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.store.GetConto(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req contoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.apply(&c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdateConto(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusOK, toContoResponse(c))
}

func (s *Server) handleDeleteConto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeleteConto(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusNoContent, nil)
}

// --- categories ---

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c := core.Category{ID: uuid.New(), AccountID: accountID, Name: req.Name}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.CreateCategory(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{
		ID: c.ID.String(), AccountID: c.AccountID.String(), Name: c.Name,
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	categories, err := s.store.ListCategories(r.Context(), accountID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{
			ID: c.ID.String(), AccountID: c.AccountID.String(), Name: c.Name,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// parseDateParam reads a YYYY-MM-DD query parameter, defaulting to
// fallback when absent.
func parseDateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.UTC)
}
