// Package backendtest runs an in-memory implementation of the backend HTTP
// contract for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	*httptest.Server

	mux      sync.Mutex
	users    map[string]string
	records  map[string]map[string]any
	mappings map[string]string
	seq      int

	// FailCreate makes record creation fail for transaction ids with this suffix.
	FailCreate string
	updates    int
}

func New(t *testing.T) *Server {
	s := &Server{
		users:    map[string]string{},
		records:  map[string]map[string]any{},
		mappings: map[string]string{},
	}

	r := chi.NewRouter()
	r.Get("/users/lookup", s.lookup)
	r.Post("/transactions", s.create)
	r.Patch("/transactions/by-hash/{hash}", s.update)
	r.Post("/wallets/mapping", s.mapping)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) AddUser(email, address string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.users[email] = address
}

// Record returns a copy of the record with the given transaction id.
func (s *Server) Record(transactionID string) (map[string]any, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	for _, r := range s.records {
		if r["transaction_id"] == transactionID {
			cp := make(map[string]any, len(r))
			for k, v := range r {
				cp[k] = v
			}
			return cp, true
		}
	}

	return nil, false
}

func (s *Server) Count() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.records)
}

// Updates counts status update calls received.
func (s *Server) Updates() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.updates
}

func (s *Server) Mapping(owner string) string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.mappings[owner]
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	addr, ok := s.users[r.URL.Query().Get("email")]
	s.mux.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"wallet_address": addr})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	id, _ := body["transaction_id"].(string)
	if s.FailCreate != "" && strings.HasSuffix(id, s.FailCreate) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.seq++
	rid := fmt.Sprintf("rec_%d", s.seq)
	body["id"] = rid
	s.records[rid] = body

	writeJSON(w, map[string]string{"id": rid})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	s.updates++

	ids := map[string]bool{}
	if list, ok := body["transaction_ids"].([]any); ok {
		for _, id := range list {
			ids[fmt.Sprint(id)] = true
		}
	}

	var n int
	for _, rec := range s.records {
		if rec["chain_txhash"] != hash && !ids[fmt.Sprint(rec["transaction_id"])] {
			continue
		}

		n++
		for k, v := range body {
			if k == "transaction_ids" {
				continue
			}
			rec[k] = v
		}
	}

	if n == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]int{"updated": n})
}

func (s *Server) mapping(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OwnerID       string `json:"owner_id"`
		WalletAddress string `json:"wallet_address"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mux.Lock()
	s.mappings[body.OwnerID] = body.WalletAddress
	s.mux.Unlock()

	writeJSON(w, map[string]string{"id": body.OwnerID})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
