// Package mockserver is an in-memory chat backend for local development and
// integration tests. The jwt cookie value is taken as the caller's user id.
package mockserver

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/matheus3301/chatstore/internal/chat"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Server holds users, messages and push sockets in memory.
type Server struct {
	mu       sync.Mutex
	users    []chat.Contact
	messages []chat.Message
	sockets  map[string]map[*websocket.Conn]struct{}
	extra    map[string]struct{}

	upgrader websocket.Upgrader
	router   *mux.Router
	logger   *zap.Logger
}

// New creates a server knowing users.
func New(users []chat.Contact, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		users:   slices.Clone(users),
		sockets: make(map[string]map[*websocket.Conn]struct{}),
		extra:   make(map[string]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)
	// The REST routes answer both at the root and under /api.
	for _, sub := range []*mux.Router{r, r.PathPrefix("/api").Subrouter()} {
		sub.HandleFunc("/messages/users", s.authed(s.listUsers)).Methods("GET")
		sub.HandleFunc("/messages/send/{id}", s.authed(s.sendMessage)).Methods("POST")
		sub.HandleFunc("/messages/{id}", s.authed(s.listMessages)).Methods("GET")
	}
	r.HandleFunc("/ws", s.serveWs)
	s.router = r
	return s
}

// Handler returns the HTTP handler serving the REST routes and /ws.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) authed(h func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("jwt")
		if err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized - No Token Provided"})
			return
		}
		h(w, r, c.Value)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request, userID string) {
	s.mu.Lock()
	out := make([]chat.Contact, 0, len(s.users))
	for _, u := range s.users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request, userID string) {
	other := mux.Vars(r)["id"]
	s.mu.Lock()
	out := []chat.Message{}
	for _, m := range s.messages {
		if (m.SenderID == userID && m.RecipientID == other) || (m.SenderID == other && m.RecipientID == userID) {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request, userID string) {
	to := mux.Vars(r)["id"]
	var req chat.OutgoingMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid message body"})
		return
	}
	if req.Body == "" && req.AttachmentRef == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "message is empty"})
		return
	}
	if _, ok := s.user(to); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
		return
	}

	msg := s.Deliver(chat.Message{
		SenderID:      userID,
		RecipientID:   to,
		Body:          req.Body,
		AttachmentRef: req.AttachmentRef,
	})
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) user(id string) (chat.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.users, func(c chat.Contact) bool { return c.ID == id })
	if i < 0 {
		return chat.Contact{}, false
	}
	return s.users[i], true
}

// Deliver stores msg and pushes it as newMessage to the recipient's open
// sockets. Missing ids and timestamps are filled in.
func (s *Server) Deliver(msg chat.Message) chat.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	sender, _ := s.user(msg.SenderID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.sendLocked(msg.RecipientID, envelope{
		Event: "newMessage",
		Data:  chat.Inbound{Message: msg, SenderName: sender.DisplayName},
	})
	return msg
}

// SetOnline marks ids online in addition to connected users and broadcasts
// the new list.
func (s *Server) SetOnline(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.extra[id] = struct{}{}
	}
	s.broadcastOnlineLocked()
}

// Online returns the ids currently reported online.
func (s *Server) Online() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onlineLocked()
}

func (s *Server) onlineLocked() []string {
	ids := make([]string, 0, len(s.sockets)+len(s.extra))
	for id := range s.sockets {
		ids = append(ids, id)
	}
	for id := range s.extra {
		if _, ok := s.sockets[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (s *Server) broadcastOnlineLocked() {
	env := envelope{Event: "getOnlineUsers", Data: s.onlineLocked()}
	for id := range s.sockets {
		s.sendLocked(id, env)
	}
}

func (s *Server) sendLocked(userID string, env envelope) {
	for conn := range s.sockets[userID] {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(env); err != nil {
			s.logger.Warn("push write failed", zap.String("user_id", userID), zap.Error(err))
			_ = conn.Close()
			s.removeLocked(userID, conn)
		}
	}
}

func (s *Server) removeLocked(userID string, conn *websocket.Conn) {
	conns := s.sockets[userID]
	delete(conns, conn)
	if len(conns) == 0 {
		delete(s.sockets, userID)
	}
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing userId"})
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.sockets[userID] == nil {
		s.sockets[userID] = make(map[*websocket.Conn]struct{})
	}
	s.sockets[userID][conn] = struct{}{}
	s.broadcastOnlineLocked()
	s.mu.Unlock()
	s.logger.Info("push client connected", zap.String("user_id", userID))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	s.removeLocked(userID, conn)
	s.broadcastOnlineLocked()
	s.mu.Unlock()
	_ = conn.Close()
	s.logger.Info("push client disconnected", zap.String("user_id", userID))
}

// Close drops every push socket.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conns := range s.sockets {
		for conn := range conns {
			_ = conn.Close()
		}
		delete(s.sockets, id)
	}
}
