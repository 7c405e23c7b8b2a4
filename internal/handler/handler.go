package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/orderwatch/internal/auth"
	"github.com/iurnickita/orderwatch/internal/gzip"
	"github.com/iurnickita/orderwatch/internal/handler/config"
	"github.com/iurnickita/orderwatch/internal/logger"
	"github.com/iurnickita/orderwatch/internal/model"
	"github.com/iurnickita/orderwatch/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Serve блокируется до отмены контекста, затем останавливает сервер.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(auth, service, zaplog)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zaplog.Info("admin API listening", zap.String("addr", cfg.ServerAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type handler struct {
	auth    auth.Auth
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/admin/login", h.wrap(h.auth.Login))

	mux.HandleFunc("GET /api/admin/notifications", h.wrapAuth(h.GetNotifications))
	mux.HandleFunc("GET /api/admin/notifications/unread", h.wrapAuth(h.GetUnreadCount))
	mux.HandleFunc("POST /api/admin/notifications/{id}/read", h.wrapAuth(h.PostMarkAsRead))
	mux.HandleFunc("POST /api/admin/notifications/read", h.wrapAuth(h.PostMarkAllAsRead))
	mux.HandleFunc("DELETE /api/admin/notifications/{id}", h.wrapAuth(h.DeleteNotification))
	mux.HandleFunc("DELETE /api/admin/notifications", h.wrapAuth(h.DeleteAllNotifications))
	mux.HandleFunc("POST /api/admin/notifications/reset", h.wrapAuth(h.PostResetHistory))

	mux.HandleFunc("GET /api/admin/orders", h.wrapAuth(h.GetOrders))
	mux.HandleFunc("GET /api/admin/orders/{id}", h.wrapAuth(h.GetOrder))
	mux.HandleFunc("POST /api/admin/orders/{id}/actions/{action}", h.wrapAuth(h.PostOrderAction))

	return mux
}

func (h *handler) wrap(f http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(f, h.zaplog))
}

func (h *handler) wrapAuth(f http.HandlerFunc) http.HandlerFunc {
	return h.wrap(h.auth.Middleware(f))
}

func (h *handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	kind := model.Kind(r.URL.Query().Get("type"))
	notifications := h.service.Notifications(kind)
	if notifications == nil {
		notifications = []model.Notification{}
	}
	h.writeJSON(w, notifications)
}

type GetUnreadCountJSONResponse struct {
	Count int `json:"count"`
}

func (h *handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, GetUnreadCountJSONResponse{Count: h.service.UnreadCount()})
}

func (h *handler) PostMarkAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAsRead(r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) PostMarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	h.service.MarkAllAsRead()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteNotification(r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) DeleteAllNotifications(w http.ResponseWriter, r *http.Request) {
	h.service.ClearAllNotifications()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) PostResetHistory(w http.ResponseWriter, r *http.Request) {
	h.zaplog.Info("notification history reset requested",
		zap.String("operator", r.Header.Get(auth.HeaderOperatorKey)))
	h.service.ClearNotificationHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		var err error
		page, err = strconv.Atoi(p)
		if err != nil || page < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
	}

	list, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"), page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, list)
}

func (h *handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, view)
}

func (h *handler) PostOrderAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	action := r.PathValue("action")

	view, err := h.service.PerformAction(r.Context(), id, action)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.zaplog.Info("order action performed",
		zap.String("order_id", id),
		zap.String("action", action),
		zap.String("operator", r.Header.Get(auth.HeaderOperatorKey)))
	h.writeJSON(w, view)
}

func (h *handler) writeJSON(w http.ResponseWriter, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseJSON)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientData), errors.Is(err, service.ErrUnknownAction):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrNotEligible), errors.Is(err, service.ErrInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrRejected):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.zaplog.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
