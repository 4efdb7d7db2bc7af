// Package hubtest provides an in-memory hub server for tests.
package hubtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// Challenge is the challenge text served by /hub_info.
const Challenge = `["gaiahub","0","hubtest","blockstack_storage_please_sign"]`

// Server is a fake hub backed by a map.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string][]byte

	reads  atomic.Int64
	writes atomic.Int64

	// Non-zero values make the matching requests fail with that status.
	infoStatus  atomic.Int64
	readStatus  atomic.Int64
	writeStatus atomic.Int64

	// writeGate, when set, blocks writes until it is closed.
	writeGate chan struct{}
}

// New starts a fake hub. It is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{files: make(map[string][]byte)}
	mux := http.NewServeMux()
	mux.HandleFunc("/hub_info", s.handleInfo)
	mux.HandleFunc("/read/", s.handleRead)
	mux.HandleFunc("/store/", s.handleStore)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Reads returns the number of read requests served.
func (s *Server) Reads() int64 { return s.reads.Load() }

// Writes returns the number of write requests received.
func (s *Server) Writes() int64 { return s.writes.Load() }

// FailInfo makes /hub_info respond with status (0 restores).
func (s *Server) FailInfo(status int) { s.infoStatus.Store(int64(status)) }

// FailReads makes reads respond with status (0 restores).
func (s *Server) FailReads(status int) { s.readStatus.Store(int64(status)) }

// FailWrites makes writes respond with status (0 restores).
func (s *Server) FailWrites(status int) { s.writeStatus.Store(int64(status)) }

// HoldWrites blocks writes until the returned release func is called.
func (s *Server) HoldWrites() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.writeGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// File returns the stored bytes at "<address>/<path>".
func (s *Server) File(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	return data, ok
}

// Keys returns every stored key.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	return keys
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	if status := s.infoStatus.Load(); status != 0 {
		w.WriteHeader(int(status))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"read_url_prefix":"`+s.URL+`/read/","challenge_text":`+quote(Challenge)+`,"max_file_upload_size_megabytes":20}`)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	s.reads.Add(1)
	if status := s.readStatus.Load(); status != 0 {
		w.WriteHeader(int(status))
		return
	}

	s.mu.Lock()
	data, ok := s.files[strings.TrimPrefix(r.URL.Path, "/read/")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	s.writes.Add(1)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Authorization")), "bearer v1:") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	gate := s.writeGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	if status := s.writeStatus.Load(); status != 0 {
		w.WriteHeader(int(status))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/store/")
	s.mu.Lock()
	s.files[key] = body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"publicURL":"`+s.URL+`/read/`+key+`"}`)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
