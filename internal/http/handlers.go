package http

import (
	"net/http"
	"strings"

	"subtrack/internal/core"
	"subtrack/internal/ingest"
	"subtrack/internal/log"
	"subtrack/internal/services"
)

const serviceName = "subscription-manager"

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": serviceName})
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	handleLiveness(w, r)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if StatusForError(err) == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
	}
	ErrorResponse(err).Write(w)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.ListSubscriptions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Field("subscriptions", subs).Field("count", len(subs)).Write(w)
}

func (s *Server) handleAddSubscription(w http.ResponseWriter, r *http.Request) {
	var req services.AddRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Name = sanitizeInput(req.Name)
	req.Category = sanitizeInput(req.Category)

	res, err := s.svc.AddSubscription(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(res).Write(w)
}

// patchRequest is the PATCH body. Absent fields are left unchanged.
type patchRequest struct {
	Name         *string  `json:"name" validate:"omitempty,max=200"`
	Cost         *float64 `json:"cost" validate:"omitempty,gte=0"`
	Currency     *string  `json:"currency" validate:"omitempty,max=8"`
	BillingCycle *string  `json:"billing_cycle" validate:"omitempty,max=32"`
	Category     *string  `json:"category" validate:"omitempty,max=64"`
	Status       *string  `json:"status" validate:"omitempty,oneof=active cancelled"`
}

func (p patchRequest) toPatch() (core.Patch, error) {
	if err := core.ValidateStruct(p); err != nil {
		return core.Patch{}, err
	}
	var patch core.Patch
	if p.Name != nil {
		name := sanitizeInput(*p.Name)
		if name == "" {
			return core.Patch{}, core.WrapError(core.ErrorCodeValidationFailed, "name cannot be empty", core.ErrEmptyName)
		}
		patch.Name = &name
	}
	patch.Cost = p.Cost
	patch.Currency = p.Currency
	patch.Category = p.Category
	if p.BillingCycle != nil {
		cycle := core.BillingCycle(strings.ToLower(strings.TrimSpace(*p.BillingCycle)))
		patch.BillingCycle = &cycle
	}
	if p.Status != nil {
		status := core.Status(*p.Status)
		patch.Status = &status
	}
	if patch.IsEmpty() {
		return core.Patch{}, core.NewDomainError(core.ErrorCodeValidationFailed, "patch sets no field")
	}
	return patch, nil
}

// handleUpdateSubscription applies a patch. An unknown identifier is not an
// error: nothing changes and "updated" is false.
func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))

	var req patchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	target, found, err := s.svc.FindSubscription(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		NewResponse().Field("updated", false).Write(w)
		return
	}
	if err := s.svc.UpdateSubscription(ctx, target.ID, patch); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, _, err := s.svc.FindSubscription(ctx, target.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Field("updated", true).Field("subscription", updated).Write(w)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	generate, err := QueryBool(r, "generate_email", true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.PrepareCancellation(r.Context(), sanitizeInput(r.PathValue("id")), generate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Data(res).Write(w)
}

type ingestRequest struct {
	Source  string           `json:"source"`
	Records []core.Candidate `json:"records"`
	// Async hands the batch to the ingest queue instead of storing it now.
	Async bool `json:"async"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Records == nil {
		BadRequest("records is required").Write(w)
		return
	}
	source := sanitizeInput(req.Source)

	if req.Async {
		q, err := s.svc.QueueIngest(r.Context(), source, req.Records)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		NewResponse().Status(http.StatusAccepted).Data(q).Write(w)
		return
	}

	res, err := s.svc.Ingest(r.Context(), source, req.Records)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Data(res).Write(w)
}

// scanRequest is the POST /scan body. Reading server-side files is left to
// the import command, so only inline CSV is accepted here.
type scanRequest struct {
	Source     string `json:"source"`
	CSVData    string `json:"csv_data"`
	BankFormat string `json:"bank_format"`
	Query      string `json:"query"`
	MaxResults int64  `json:"max_results" validate:"gte=0,lte=500"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := core.ValidateStruct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Scan(r.Context(), ingest.ScanRequest{
		Source:     req.Source,
		CSVData:    req.CSVData,
		BankFormat: req.BankFormat,
		Query:      req.Query,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Data(res).Write(w)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.AnalyzeSpending(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Data(res).Write(w)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.GetRecommendations(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewResponse().Data(res).Write(w)
}

func (s *Server) handleAlternatives(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.PathValue("name"))
	NewResponse().
		Field("service", name).
		Field("alternatives", s.svc.Alternatives(name)).
		Write(w)
}
