// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/icesco/PersonalFinance-sub002/internal/cache"
	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/importer"
	applog "github.com/icesco/PersonalFinance-sub002/internal/log"
	"github.com/icesco/PersonalFinance-sub002/internal/middleware/ratelimit"
	"github.com/icesco/PersonalFinance-sub002/internal/middleware/trace"
	"github.com/icesco/PersonalFinance-sub002/internal/services"
)

// Store is the entity CRUD surface the handlers use directly.
// Transaction writes go through the transaction service instead, so
// they flow into the export pipeline.
type Store interface {
	CreateAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	CreateConto(ctx context.Context, c core.Conto) error
	GetConto(ctx context.Context, id uuid.UUID) (core.Conto, error)
	ListConti(ctx context.Context, accountID uuid.UUID) ([]core.Conto, error)
	UpdateConto(ctx context.Context, c core.Conto) error
	DeleteConto(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c core.Category) error
	ListCategories(ctx context.Context, accountID uuid.UUID) ([]core.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id uuid.UUID) error

	CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) error
	DeleteSavingsGoal(ctx context.Context, id uuid.UUID) error
}

type Server struct {
	http.Server

	store        Store
	transactions *services.TransactionService
	balances     *services.BalanceService
	budgets      *services.BudgetService
	importer     *importer.Importer

	limiter *ratelimit.Limiter

	// default window for comparison series when ?months= is absent
	historyMonths int

	// Read-side caches, purged on any write to the account's ledger.
	dashboardCache *cache.LRU[services.Dashboard]
	historyCache   *cache.LRU[services.History]

	shutdownOnce sync.Once
}

func NewServer(addr string, store Store, tx *services.TransactionService, bal *services.BalanceService, bud *services.BudgetService, imp *importer.Importer, historyMonths int, logger *applog.Logger) *Server {
	if historyMonths < 1 {
		historyMonths = 6
	}
	s := &Server{
		store:          store,
		transactions:   tx,
		balances:       bal,
		budgets:        bud,
		importer:       imp,
		historyMonths:  historyMonths,
		limiter:        ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		dashboardCache: cache.NewLRU[services.Dashboard](100, 5*time.Minute),
		historyCache:   cache.NewLRU[services.History](200, 5*time.Minute),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	tracer := trace.NewMiddleware(ratelimit.ClientIP)
	var handler http.Handler = mux
	handler = applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(handler)
	handler = s.limiter.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("GET /api/accounts/compare", s.handleCompareAccounts)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("POST /api/accounts/{id}/conti", s.handleCreateConto)
	mux.HandleFunc("GET /api/accounts/{id}/conti", s.handleListConti)
	mux.HandleFunc("GET /api/accounts/{id}/conti/compare", s.handleCompareConti)
	mux.HandleFunc("PUT /api/conti/{id}", s.handleUpdateConto)
	mux.HandleFunc("DELETE /api/conti/{id}", s.handleDeleteConto)

	mux.HandleFunc("POST /api/accounts/{id}/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/accounts/{id}/categories", s.handleListCategories)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("POST /api/accounts/{id}/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/accounts/{id}/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/accounts/{id}/transactions/import", s.handleImportCSV)
	mux.HandleFunc("GET /api/accounts/{id}/upcoming", s.handleUpcoming)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/accounts/{id}/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/accounts/{id}/history", s.handleHistory)

	mux.HandleFunc("POST /api/accounts/{id}/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/accounts/{id}/budgets", s.handleBudgetStatuses)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("POST /api/accounts/{id}/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/accounts/{id}/goals", s.handleGoalProgresses)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invalidateReads drops cached dashboards and histories after a write.
func (s *Server) invalidateReads() {
	s.dashboardCache.Purge()
	s.historyCache.Purge()
}

// Shutdown stops the HTTP listener and background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
