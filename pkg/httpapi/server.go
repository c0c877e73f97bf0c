package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/promote"
)

// Server is the thin HTTP control surface over the forge's command
// surface. It exposes read endpoints over the ledger plus a
// JWT-gated promote endpoint; build/verify/propose stay CLI-only
// since they shell out to the sandbox and local filesystem.
type Server struct {
	store     ledger.Store
	promoter  *promote.Promoter
	validator *JWTValidator
	mux       *http.ServeMux
}

func NewServer(store ledger.Store, promoter *promote.Promoter, validator *JWTValidator) *Server {
	s := &Server{store: store, promoter: promoter, validator: validator, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /proposals/{id}", s.handleGetProposal)
	s.mux.HandleFunc("POST /proposals/{id}/promote", RequireJWT(validator, s.handlePromote))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	proposal, err := s.store.GetProposal(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(proposal)
}

type promoteRequest struct {
	ProjectRoot string `json:"project_root"`
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.promoter.Run(r.Context(), promote.Request{
		ProposalID:  id,
		ProjectRoot: body.ProjectRoot,
		ApprovedBy:  ApproverFromContext(r.Context()),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
