package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"wander-core/auth"
	"wander-core/contract"
	"wander-core/domain"
	"wander-core/errors"
	"wander-core/observability"
	"wander-core/realtime"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Server exposes the read-side and producer HTTP endpoints next to the
// realtime gateway. Every route requires a bearer token; the realtime
// wire itself stays token-free for legacy clients.
type Server struct {
	log           *slog.Logger
	addr          string
	tokens        auth.Tokens
	table         contract.IPresenceTable
	directory     contract.IIdentityDirectory
	profiles      contract.IProfileWriter
	messages      contract.IMessageRepository
	notifications contract.INotificationRepository
	search        contract.IMessageSearch
	notifier      *realtime.Notifier
	monitor       *observability.Monitor
}

func NewServer(log *slog.Logger, addr string, tokens auth.Tokens,
	table contract.IPresenceTable, directory contract.IIdentityDirectory,
	profiles contract.IProfileWriter,
	messages contract.IMessageRepository, notifications contract.INotificationRepository,
	search contract.IMessageSearch, notifier *realtime.Notifier,
	monitor *observability.Monitor) *Server {
	return &Server{
		log:           log,
		addr:          addr,
		tokens:        tokens,
		table:         table,
		directory:     directory,
		profiles:      profiles,
		messages:      messages,
		notifications: notifications,
		search:        search,
		notifier:      notifier,
		monitor:       monitor,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /online", s.handleOnline)
	mux.HandleFunc("GET /chats", s.handleChats)
	mux.HandleFunc("GET /messages/search", s.handleSearch)
	mux.HandleFunc("GET /messages/{peerID}", s.handleThread)
	mux.HandleFunc("GET /notifications", s.handleNotifications)
	mux.HandleFunc("POST /notifications", s.handleCreateNotification)
	mux.HandleFunc("DELETE /notifications/{id}", s.handleDeleteNotification)
	mux.HandleFunc("PUT /profile", s.handlePutProfile)
	mux.HandleFunc("GET /stats", s.handleStats)
	return auth.Middleware(s.tokens, mux)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
	defer stop()

	s.log.Info("HTTP API listening", "addr", s.addr)
	if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http api: %w", err)
	}
	return nil
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	profiles := lo.Map(s.table.OnlineUserIDs(), func(userID string, _ int) domain.Profile {
		profile, err := s.directory.Profile(userID)
		if err != nil {
			return domain.Profile{ID: userID, Username: userID}
		}
		return profile
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.CallerID(r.Context())
	heads, err := s.messages.ChatHeads(callerID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"chats": heads})
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.CallerID(r.Context())
	peerID := r.PathValue("peerID")
	if !domain.ValidIdentity(peerID) {
		s.writeError(w, http.StatusBadRequest, "malformed peer id")
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := s.messages.Thread(callerID, peerID, cursor)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	body := map[string]any{"messages": messages}
	if next != nil {
		body["nextCursor"] = *next
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.CallerID(r.Context())
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}

	ids, err := s.search.Search(r.Context(), callerID, query, 50)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	// The index only returns ids; hydrate from the store and drop hits
	// whose record vanished in between.
	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.messages.Get(id)
		if err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.CallerID(r.Context())
	notifications, err := s.notifications.ListByRecipient(callerID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

type createNotificationRequest struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
	Type        string `json:"type"`
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.CallerID(r.Context())

	var body createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	created, err := s.notifier.Create(r.Context(), domain.CreateNotificationCommand{
		RecipientID: body.RecipientID,
		SenderID:    callerID,
		Content:     body.Content,
		Type:        body.Type,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.CallerID(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed notification id")
		return
	}

	if err := s.notifier.Delete(r.Context(), callerID, id); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type putProfileRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// handlePutProfile upserts the caller's directory entry. Identity comes
// from the token; the body only carries display attributes.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.CallerID(r.Context())

	var body putProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if body.Username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	profile := domain.Profile{ID: callerID, Username: body.Username, Avatar: body.Avatar}
	if err := s.profiles.Put(profile); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitor.Snapshot(len(s.table.OnlineUserIDs())))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug(fmt.Sprintf("Failed to write response: %v", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

// writeFailure maps core errors onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var validation errors.ValidationError
	switch {
	case stderrors.As(err, &validation):
		s.writeError(w, http.StatusBadRequest, validation.Error())
	case stderrors.Is(err, errors.ErrNotRecipient):
		s.writeError(w, http.StatusForbidden, err.Error())
	case stderrors.Is(err, errors.ErrMessageNotFound),
		stderrors.Is(err, errors.ErrNotificationNotFound),
		stderrors.Is(err, errors.ErrProfileNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("Request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
