// Package apitest runs an in-memory chat service for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamavenir/gchat/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// Routes whose responses can be forced to fail.
const (
	RouteLogin          = "login"
	RouteRegister       = "register"
	RouteMe             = "me"
	RouteListGroups     = "list-groups"
	RouteCreateGroup    = "create-group"
	RouteGetGroup       = "get-group"
	RouteListMessages   = "list-messages"
	RouteCreateMessage  = "create-message"
	defaultTokenTTL     = time.Hour
	defaultMessageClock = time.Second
)

var signingKey = []byte("apitest-secret")

type failure struct {
	status int
	body   string
}

type storedMessage struct {
	id      types.ID
	group   types.ID
	sender  types.Sender
	content string
	ts      time.Time
	replyTo types.ID
}

type user struct {
	id       types.ID
	username string
	email    string
	password string
}

// Server is a fake chat service backed by an httptest.Server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	nextID     types.ID
	clock      time.Time
	users      map[string]*user
	tokens     map[string]*user
	groups     []types.Group
	messages   map[types.ID]*storedMessage
	order      []types.ID
	failures   map[string]failure
	requestIDs []string
	hits       map[string]int
}

// New starts a fake service that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		nextID:   1,
		clock:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		users:    map[string]*user{},
		tokens:   map[string]*user{},
		messages: map[types.ID]*storedMessage{},
		failures: map[string]failure{},
		hits:     map[string]int{},
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recordRequest)
	r.HandleFunc("/api/token/", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	r.HandleFunc("/api/register/", s.handleRegister).Methods(http.MethodPost).Name(RouteRegister)
	r.HandleFunc("/api/user/me/", s.auth(s.handleMe)).Methods(http.MethodGet).Name(RouteMe)
	r.HandleFunc("/groups/", s.auth(s.handleListGroups)).Methods(http.MethodGet).Name(RouteListGroups)
	r.HandleFunc("/groups/", s.auth(s.handleCreateGroup)).Methods(http.MethodPost).Name(RouteCreateGroup)
	r.HandleFunc("/groups/{id:[0-9]+}/", s.auth(s.handleGetGroup)).Methods(http.MethodGet).Name(RouteGetGroup)
	r.HandleFunc("/groups/{id:[0-9]+}/messages/", s.auth(s.handleListMessages)).Methods(http.MethodGet).Name(RouteListMessages)
	r.HandleFunc("/groups/{id:[0-9]+}/messages/", s.auth(s.handleCreateMessage)).Methods(http.MethodPost).Name(RouteCreateMessage)
	return r
}

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		s.mu.Lock()
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		s.hits[name]++
		f, failing := s.failures[name]
		s.mu.Unlock()
		if failing {
			writeRaw(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next func(http.ResponseWriter, *http.Request, *user)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		s.mu.Lock()
		u, ok := s.tokens[token]
		s.mu.Unlock()
		if header == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next(w, r, u)
	}
}

// Fail makes every request to route answer with status and body until
// Recover is called.
func (s *Server) Fail(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

// Recover clears a forced failure.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Hits returns how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// RequestIDs returns the X-Request-ID header of every request so far.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(username, password string) types.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, username+"@example.com", password).id
}

func (s *Server) addUserLocked(username, email, password string) *user {
	u := &user{id: s.nextID, username: username, email: email, password: password}
	s.nextID++
	s.users[username] = u
	return u
}

// Token issues an access token for an existing user.
func (s *Server) Token(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		u = s.addUserLocked(username, username+"@example.com", "secret")
	}
	return s.issueLocked(u, time.Now().Add(defaultTokenTTL))
}

func (s *Server) issueLocked(u *user, exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  int64(u.id),
		"username": u.username,
		"exp":      exp.Unix(),
		"jti":      strconv.Itoa(len(s.tokens)),
	}).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	s.tokens[token] = u
	return token
}

// SeedGroup creates a group directly.
func (s *Server) SeedGroup(name, creator string) types.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createGroupLocked(name, creator)
}

func (s *Server) createGroupLocked(name, creator string) types.Group {
	g := types.Group{ID: s.nextID, Name: name, Creator: creator}
	s.nextID++
	s.groups = append(s.groups, g)
	return g
}

// SeedMessage stores a message directly. A zero replyTo means none.
func (s *Server) SeedMessage(group types.ID, sender, content string, replyTo types.ID) types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[sender]
	if !ok {
		u = s.addUserLocked(sender, sender+"@example.com", "secret")
	}
	m := s.storeMessageLocked(group, u, content, replyTo)
	return s.renderLocked(m)
}

func (s *Server) storeMessageLocked(group types.ID, u *user, content string, replyTo types.ID) *storedMessage {
	s.clock = s.clock.Add(defaultMessageClock)
	m := &storedMessage{
		id:      s.nextID,
		group:   group,
		sender:  types.Sender{ID: u.id, Username: u.username},
		content: content,
		ts:      s.clock,
		replyTo: replyTo,
	}
	s.nextID++
	s.messages[m.id] = m
	s.order = append(s.order, m.id)
	return m
}

func (s *Server) flatLocked(m *storedMessage) types.Message {
	return types.Message{ID: m.id, Sender: m.sender, Content: m.content, Timestamp: m.ts}
}

func (s *Server) renderLocked(m *storedMessage) types.Message {
	out := s.flatLocked(m)
	if parent, ok := s.messages[m.replyTo]; ok {
		p := s.flatLocked(parent)
		out.ReplyTo = &p
	}
	for _, id := range s.order {
		child := s.messages[id]
		if child.replyTo == m.id {
			out.RepliedBy = append(out.RepliedBy, s.flatLocked(child))
		}
	}
	return out
}

func (s *Server) groupExistsLocked(id types.ID) (types.Group, bool) {
	for _, g := range s.groups {
		if g.ID == id {
			return g, true
		}
	}
	return types.Group{}, false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[creds.Username]
	if !ok || u.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, types.Tokens{
		Access:  s.issueLocked(u, time.Now().Add(defaultTokenTTL)),
		Refresh: "refresh-" + u.username,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg types.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed request"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[reg.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	u := s.addUserLocked(reg.Username, reg.Email, reg.Password)
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.id, "username": u.username, "email": u.email})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, u *user) {
	writeJSON(w, http.StatusOK, types.User{ID: u.id, Username: u.username, Email: u.email})
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]types.Group{}, s.groups...)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, s.createGroupLocked(req.Name, u.username))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request, u *user) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groupExistsLocked(types.ID(id))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, u *user) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groupExistsLocked(types.ID(id)); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	out := []types.Message{}
	for _, mid := range s.order {
		m := s.messages[mid]
		if m.group == types.ID(id) {
			out = append(out, s.renderLocked(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request, u *user) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req types.NewMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"content": {"This field may not be blank."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groupExistsLocked(types.ID(id)); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	var replyTo types.ID
	if req.ReplyTo != nil {
		if _, ok := s.messages[*req.ReplyTo]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"replyTo": {fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *req.ReplyTo)}})
			return
		}
		replyTo = *req.ReplyTo
	}
	m := s.storeMessageLocked(types.ID(id), u, req.Content, replyTo)
	writeJSON(w, http.StatusCreated, s.renderLocked(m))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
