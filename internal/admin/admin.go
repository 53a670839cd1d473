// Package admin exposes the HTTP surface external collaborators consume
// from the core: rule validation, health, metrics, and the NIP-11 relay
// information document. Everything here is Basic-Auth gated except
// health and the NIP-11 document, which relays must be able to fetch
// unauthenticated.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nbd-wtf/go-nostr/nip11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/relayguard/relayguard/internal/dsl"
)

// Validator is the pure, side-effect-free validate operation the rule
// store facade exposes.
type Validator interface {
	Validate(queryText string) (*dsl.Result, *dsl.SyntaxError)
}

// Server builds the admin HTTP router.
type Server struct {
	router        *mux.Router
	validator     Validator
	adminUser     string
	adminPassHash []byte
	relayInfo     nip11.RelayInformationDocument
	registry      *prometheus.Registry
}

// NewServer wires the router. adminPass is hashed once at startup with
// bcrypt so the credential never sits in memory as plaintext beyond this
// call.
func NewServer(validator Validator, adminUser, adminPass string, relayInfo nip11.RelayInformationDocument, registry *prometheus.Registry) (*Server, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:        mux.NewRouter(),
		validator:     validator,
		adminUser:     adminUser,
		adminPassHash: hash,
		relayInfo:     relayInfo,
		registry:      registry,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/nip11", s.handleNIP11).Methods(http.MethodGet)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(s.basicAuth)
	protected.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	protected.HandleFunc("/api/filters/validate", s.handleValidate).Methods(http.MethodPost)
}

// ServeHTTP makes Server usable directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.adminUser || bcrypt.CompareHashAndPassword(s.adminPassHash, []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="relayguard-admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleNIP11(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/nostr+json")
	json.NewEncoder(w).Encode(s.relayInfo)
}

type validateRequest struct {
	Query string `json:"query"`
}

// validSuccessResponse is the `{valid: true, ast, fields_used}` shape (§6).
type validSuccessResponse struct {
	Valid      bool             `json:"valid"`
	AST        *dsl.EncodedNode `json:"ast"`
	FieldsUsed []string         `json:"fields_used"`
}

// validErrorResponse is the `{valid: false, error, position}` shape (§6).
// Position is never omitted: 0 is a valid byte position (e.g. an
// unexpected character on the first byte of the query).
type validErrorResponse struct {
	Valid    bool   `json:"valid"`
	Error    string `json:"error"`
	Position int    `json:"position"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	result, parseErr := s.validator.Validate(req.Query)
	w.Header().Set("Content-Type", "application/json")

	if parseErr != nil {
		json.NewEncoder(w).Encode(validErrorResponse{
			Valid: false, Error: parseErr.Message, Position: parseErr.Position,
		})
		return
	}

	fields := make([]string, 0, len(result.FieldsUsed))
	for f := range result.FieldsUsed {
		fields = append(fields, f)
	}
	json.NewEncoder(w).Encode(validSuccessResponse{
		Valid: true, AST: dsl.Encode(result.AST), FieldsUsed: fields,
	})
}
