package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/settings"
	"github.com/FranksOps/leadscout/internal/storage"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
	maxRequestBytes = 1 << 20
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	log := s.logger.With("request_id", requestIDFrom(r.Context()), "action", req.Action)

	if s.deps.Forwarder != nil {
		if hook := s.deps.Webhooks.URL(r.Context(), req.Action); hook != "" {
			metrics.RecordSearch("webhook")
			result, err := s.deps.Forwarder.Forward(r.Context(), hook, req)
			if err != nil {
				log.Error("webhook search failed", "err", err)
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(result)
			return
		}
	}

	req.Credential = settings.Lookup(r.Context(), s.deps.Settings, settings.KeyApolloAPIKey)

	ctx := r.Context()
	if s.deps.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.RunTimeout)
		defer cancel()
	}
	resp, err := s.deps.Pipeline.Run(ctx, req)
	if errors.Is(err, pipeline.ErrMissingAction) {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	if err != nil {
		log.Error("search failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.deps.Store != nil && len(resp.Leads) > 0 {
		if n, err := storage.SaveAll(r.Context(), s.deps.Store, resp.Leads); err != nil {
			log.Warn("persisting leads failed", "saved", n, "total", len(resp.Leads), "err", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type leadsPage struct {
	Data       []*lead.Formatted `json:"data"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "no lead store configured")
		return
	}
	filter, page, pageSize, err := parseLeadQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := s.deps.Store.Count(r.Context(), filter)
	if err != nil {
		s.logger.Error("count leads", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	data, err := s.deps.Store.Query(r.Context(), filter)
	if err != nil {
		s.logger.Error("query leads", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if data == nil {
		data = []*lead.Formatted{}
	}

	writeJSON(w, http.StatusOK, leadsPage{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	})
}

// parseLeadQuery reads the listing filters. "platform" is accepted as an
// alias of "source".
func parseLeadQuery(q url.Values) (storage.Filter, int, int, error) {
	f := storage.Filter{
		Source:    strings.TrimSpace(q.Get("source")),
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if f.Source == "" {
		f.Source = strings.TrimSpace(q.Get("platform"))
	}

	var err error
	if f.MinScore, err = intParam(q, "minScore", 0); err != nil {
		return f, 0, 0, err
	}
	if f.MaxScore, err = intParam(q, "maxScore", 0); err != nil {
		return f, 0, 0, err
	}
	page, err := intParam(q, "page", 1)
	if err != nil {
		return f, 0, 0, err
	}
	pageSize, err := intParam(q, "pageSize", defaultPageSize)
	if err != nil {
		return f, 0, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize

	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, 0, 0, fmt.Errorf("since must be RFC3339: %q", raw)
		}
		f.Since = &since
	}
	return f, page, pageSize, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Settings == nil {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	all, err := s.deps.Settings.All(r.Context())
	if err != nil {
		s.logger.Error("read settings", "err", err)
		writeError(w, http.StatusInternalServerError, "settings unavailable")
		return
	}
	if secret, ok := all[settings.KeyApolloAPIKey]; ok && secret != "" {
		all[settings.KeyApolloAPIKey] = mask(secret)
	}
	writeJSON(w, http.StatusOK, all)
}

type settingUpdate struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// handlePutSettings sets one key. An empty value deletes it.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Settings == nil {
		writeError(w, http.StatusServiceUnavailable, "no settings store configured")
		return
	}
	var u settingUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u.Key = strings.TrimSpace(u.Key)
	if u.Key == "" {
		writeError(w, http.StatusBadRequest, "key required")
		return
	}
	if settings.IsWebhookKey(u.Key) {
		if s.deps.AdminToken == "" {
			writeError(w, http.StatusForbidden, "webhook settings are read-only; set server.admin_token")
			return
		}
		if !validToken(r, s.deps.AdminToken) {
			s.logger.Warn("rejected webhook setting", "key", u.Key, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
	}

	var err error
	if strings.TrimSpace(u.Value) == "" {
		err = s.deps.Settings.Delete(r.Context(), u.Key)
	} else {
		err = s.deps.Settings.Set(r.Context(), u.Key, u.Value)
	}
	if err != nil {
		s.logger.Error("write setting", "key", u.Key, "err", err)
		writeError(w, http.StatusInternalServerError, "settings unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validToken checks the request's bearer token against want.
func validToken(r *http.Request, want string) bool {
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
