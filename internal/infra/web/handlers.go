package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"website-billing/internal/domain"
	"website-billing/internal/domain/model"
	"website-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// ===== JSON views =====

type paymentView struct {
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
	Method        string    `json:"method,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
}

type billingView struct {
	Status         string        `json:"status"`
	Plan           string        `json:"plan"`
	Price          int64         `json:"price"`
	Cycle          string        `json:"cycle"`
	ActivatedAt    time.Time     `json:"activated_at"`
	DueAt          time.Time     `json:"due_at"`
	GraceEndsAt    time.Time     `json:"grace_ends_at"`
	LastPaymentAt  *time.Time    `json:"last_payment_at,omitempty"`
	SuspendedAt    *time.Time    `json:"suspended_at,omitempty"`
	PaymentHistory []paymentView `json:"payment_history,omitempty"`
}

type websiteView struct {
	ID           string       `json:"id"`
	RequestID    string       `json:"request_id,omitempty"`
	ClientName   string       `json:"client_name"`
	ContactEmail string       `json:"contact_email"`
	DomainName   string       `json:"domain_name"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	DeployedAt   *time.Time   `json:"deployed_at,omitempty"`
	Billing      *billingView `json:"billing,omitempty"`
}

type requestView struct {
	ID           string     `json:"id"`
	ClientName   string     `json:"client_name"`
	ContactEmail string     `json:"contact_email"`
	BusinessType string     `json:"business_type,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

func viewBilling(b *model.BillingRecord) *billingView {
	if b == nil {
		return nil
	}
	v := &billingView{
		Status:        string(b.Status),
		Plan:          b.Plan,
		Price:         b.Price,
		Cycle:         string(b.Cycle),
		ActivatedAt:   b.ActivatedAt,
		DueAt:         b.DueAt,
		GraceEndsAt:   b.GraceEndsAt,
		LastPaymentAt: b.LastPaymentAt,
		SuspendedAt:   b.SuspendedAt,
	}
	for _, p := range b.PaymentHistory {
		v.PaymentHistory = append(v.PaymentHistory, paymentView{
			Amount:        p.Amount,
			PaidAt:        p.PaidAt,
			Method:        p.Method,
			TransactionID: p.TransactionID,
		})
	}
	return v
}

func viewWebsite(w *model.Website) *websiteView {
	return &websiteView{
		ID:           w.ID,
		RequestID:    w.RequestID,
		ClientName:   w.ClientName,
		ContactEmail: w.ContactEmail,
		DomainName:   w.DomainName,
		Status:       string(w.Status),
		CreatedAt:    w.CreatedAt,
		DeployedAt:   w.DeployedAt,
		Billing:      viewBilling(w.Billing),
	}
}

func viewRequest(r *model.BuildRequest) *requestView {
	return &requestView{
		ID:           r.ID,
		ClientName:   r.ClientName,
		ContactEmail: r.ContactEmail,
		BusinessType: r.BusinessType,
		Notes:        r.Notes,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		DecidedAt:    r.DecidedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCycle),
		errors.Is(err, domain.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrNotDeployed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func pageParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50 // Default page size
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// ===== Admin session =====

type loginBody struct {
	Key string `json:"key"`
}

// loginHandler trades the admin API key for a short-lived session cookie,
// so browser clients do not have to hold the key past the first call.
func loginHandler(auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !auth.VerifyKey(body.Key) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := auth.Mint(w); err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func logoutHandler(auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ===== Public intake =====

type requestSubmitBody struct {
	ClientName   string `json:"client_name"`
	ContactEmail string `json:"contact_email"`
	BusinessType string `json:"business_type"`
	Notes        string `json:"notes"`
}

func requestSubmitHandler(requestUC usecase.RequestUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body requestSubmitBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		req, err := requestUC.Submit(r.Context(), body.ClientName, body.ContactEmail, body.BusinessType, body.Notes, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewRequest(req))
	}
}

// ===== Admin: build requests =====

func requestsListHandler(requestUC usecase.RequestUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			status = string(model.RequestStatusPending)
		}
		offset, limit := pageParams(r)
		reqs, err := requestUC.ListByStatus(r.Context(), status, offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		data := make([]*requestView, 0, len(reqs))
		for _, req := range reqs {
			data = append(data, viewRequest(req))
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []*requestView `json:"data"`
			Limit  int            `json:"limit"`
			Offset int            `json:"offset"`
		}{Data: data, Limit: limit, Offset: offset})
	}
}

func requestDecisionHandler(requestUC usecase.RequestUseCase, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			req *model.BuildRequest
			err error
		)
		if approve {
			req, err = requestUC.Approve(r.Context(), id, time.Now())
		} else {
			req, err = requestUC.Reject(r.Context(), id, time.Now())
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewRequest(req))
	}
}

// ===== Admin: websites =====

type websiteCreateBody struct {
	RequestID  string `json:"request_id"`
	DomainName string `json:"domain_name"`
}

func websiteCreateHandler(websiteUC usecase.WebsiteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body websiteCreateBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		site, err := websiteUC.CreateFromRequest(r.Context(), body.RequestID, body.DomainName, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewWebsite(site))
	}
}

func websitesListHandler(websiteUC usecase.WebsiteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit := pageParams(r)
		sites, err := websiteUC.List(r.Context(), offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		data := make([]*websiteView, 0, len(sites))
		for _, s := range sites {
			data = append(data, viewWebsite(s))
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []*websiteView `json:"data"`
			Limit  int            `json:"limit"`
			Offset int            `json:"offset"`
		}{Data: data, Limit: limit, Offset: offset})
	}
}

func websiteGetHandler(websiteUC usecase.WebsiteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, err := websiteUC.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewWebsite(site))
	}
}

type websiteDeployBody struct {
	Plan  string `json:"plan"`
	Price int64  `json:"price"`
	Cycle string `json:"cycle"`
}

func websiteDeployHandler(websiteUC usecase.WebsiteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body websiteDeployBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		site, err := websiteUC.Deploy(r.Context(), chi.URLParam(r, "id"), body.Plan, body.Price, body.Cycle, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewWebsite(site))
	}
}

// ===== Admin: billing =====

type billingUpdateBody struct {
	Plan   *string `json:"plan"`
	Price  *int64  `json:"price"`
	Cycle  *string `json:"cycle"`
	Status *string `json:"status"`
}

func billingUpdateHandler(billingUC usecase.BillingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body billingUpdateBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		b, err := billingUC.UpdateBilling(r.Context(), chi.URLParam(r, "id"), usecase.BillingUpdate{
			Plan:   body.Plan,
			Price:  body.Price,
			Cycle:  body.Cycle,
			Status: body.Status,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewBilling(b))
	}
}

type paymentRecordBody struct {
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
}

func paymentRecordHandler(billingUC usecase.BillingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body paymentRecordBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		b, err := billingUC.RecordPayment(r.Context(), chi.URLParam(r, "id"), body.Amount, body.Method, body.TransactionID, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewBilling(b))
	}
}

func reconcileHandler(reconciler usecase.BillingReconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := reconciler.Run(r.Context(), time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func statsHandler(websiteUC usecase.WebsiteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := websiteUC.CountByBillingStatus(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		byStatus := make(map[string]int, len(counts))
		total := 0
		for status, n := range counts {
			byStatus[string(status)] = n
			total += n
		}
		writeJSON(w, http.StatusOK, struct {
			BilledWebsites  int            `json:"billed_websites"`
			ByBillingStatus map[string]int `json:"by_billing_status"`
		}{BilledWebsites: total, ByBillingStatus: byStatus})
	}
}
