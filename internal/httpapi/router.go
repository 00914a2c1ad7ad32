package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterGuardianRoutes 注册守护引擎路由
func (r *Router) RegisterGuardianRoutes(h *GuardianHandler) {
	r.Handle("/guardian/api/v1/status", methodOnly(http.MethodGet, h.GetStatus))
	r.Handle("/guardian/api/v1/insight", methodOnly(http.MethodGet, h.GetInsight))
	r.Handle("/guardian/api/v1/events", methodOnly(http.MethodGet, h.ListEvents))
	r.Handle("/guardian/api/v1/emergency/trigger", methodOnly(http.MethodPost, h.TriggerEmergency))
	r.Handle("/guardian/api/v1/emergency/confirm", methodOnly(http.MethodPost, h.ConfirmEmergency))
	r.Handle("/guardian/api/v1/emergency/dismiss", methodOnly(http.MethodPost, h.DismissEmergency))
	r.Handle("/guardian/api/v1/report/export", methodOnly(http.MethodGet, h.ExportReport))
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}
