package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

type transactionRequest struct {
	Amount        string  `json:"amount"`
	Type          string  `json:"type"`
	Date          string  `json:"date"` // YYYY-MM-DD
	SourceContoID *string `json:"source_conto_id,omitempty"`
	TargetContoID *string `json:"target_conto_id,omitempty"`
	CategoryID    *string `json:"category_id,omitempty"`
	Description   string  `json:"description"`
	Notes         string  `json:"notes,omitempty"`

	IsRecurring   bool    `json:"is_recurring,omitempty"`
	Frequency     string  `json:"frequency,omitempty"`
	RecurrenceEnd *string `json:"recurrence_end,omitempty"`
}

type transactionResponse struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"account_id"`
	Amount        string  `json:"amount"`
	Type          string  `json:"type"`
	Date          string  `json:"date"`
	SourceContoID *string `json:"source_conto_id,omitempty"`
	TargetContoID *string `json:"target_conto_id,omitempty"`
	CategoryID    *string `json:"category_id,omitempty"`
	Description   string  `json:"description"`
	Notes         string  `json:"notes,omitempty"`
	IsRecurring   bool    `json:"is_recurring,omitempty"`
	Frequency     string  `json:"frequency,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		Amount:      core.FormatAmount(tx.Amount),
		Type:        string(tx.Type),
		Date:        tx.Date.Format("2006-01-02"),
		Description: tx.Description,
		Notes:       tx.Notes,
		IsRecurring: tx.IsRecurring,
		Frequency:   string(tx.Frequency),
	}
	resp.SourceContoID = idString(tx.SourceContoID)
	resp.TargetContoID = idString(tx.TargetContoID)
	resp.CategoryID = idString(tx.CategoryID)
	return resp
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func (req transactionRequest) toTransaction(accountID uuid.UUID) (core.Transaction, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}

	tx := core.Transaction{
		AccountID:   accountID,
		Amount:      amount,
		Type:        core.TransactionType(req.Type),
		Date:        date,
		Description: req.Description,
		Notes:       req.Notes,
		IsRecurring: req.IsRecurring,
		Frequency:   core.Frequency(req.Frequency),
	}

	if tx.SourceContoID, err = parseIDField(req.SourceContoID, "source_conto_id"); err != nil {
		return core.Transaction{}, err
	}
	if tx.TargetContoID, err = parseIDField(req.TargetContoID, "target_conto_id"); err != nil {
		return core.Transaction{}, err
	}
	if tx.CategoryID, err = parseIDField(req.CategoryID, "category_id"); err != nil {
		return core.Transaction{}, err
	}

	if req.RecurrenceEnd != nil {
		end, err := time.ParseInLocation("2006-01-02", *req.RecurrenceEnd, time.UTC)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse recurrence_end: %w", err)
		}
		tx.RecurrenceEnd = &end
	}
	return tx, nil
}

func parseIDField(s *string, field string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &id, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := req.toTransaction(accountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	txs, err := s.transactions.List(r.Context(), accountID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := req.toTransaction(existing.AccountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx.ID = id

	if err := s.transactions.Update(r.Context(), tx); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReads()
	writeJSON(w, http.StatusNoContent, nil)
}

type importResponse struct {
	Imported  int      `json:"imported"`
	Transfers int      `json:"transfer_pairs"`
	Errors    []string `json:"errors,omitempty"`
}

// handleImportCSV imports a CSV body. The response reports per-row
// failures; a partially-failed import still commits its good rows.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.importer.Import(r.Context(), accountID, r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.invalidateReads()

	resp := importResponse{Imported: result.Imported, Transfers: result.Transfers}
	for _, re := range result.Errors {
		resp.Errors = append(resp.Errors, re.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

type upcomingResponse struct {
	TransactionID string `json:"transaction_id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
	Date          string `json:"date"`
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	months := 1
	if v := r.URL.Query().Get("months"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 24 {
			months = n
		}
	}
	horizon := time.Now().UTC().AddDate(0, months, 0)

	occurrences, err := s.transactions.Upcoming(r.Context(), accountID, horizon)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]upcomingResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, upcomingResponse{
			TransactionID: occ.Template.ID.String(),
			Description:   occ.Template.Description,
			Amount:        core.FormatAmount(occ.Template.Amount),
			Type:          string(occ.Template.Type),
			Date:          occ.Date.Format("2006-01-02"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
