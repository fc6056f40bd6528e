package api

import (
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/listenupapp/bookshelf-server/internal/http/response"
)

// handleServeObject streams an object named by a signed URL.
func (s *Server) handleServeObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	token := r.URL.Query().Get("token")
	if key == "" || token == "" {
		response.Forbidden(w, "signed URL required", s.logger)
		return
	}
	key = pathParam(r.Context(), key)

	if err := s.objects.Verify(token, key); err != nil {
		s.logger.Debug("rejected object token", "key", key, "error", err)
		response.Forbidden(w, "invalid or expired token", s.logger)
		return
	}

	rc, info, err := s.objects.Open(r.Context(), key)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.CacheControl != "" {
		w.Header().Set("Cache-Control", info.CacheControl)
	}
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(path.Base(key)))
	http.ServeContent(w, r, path.Base(key), info.LastModified, rc)
}
