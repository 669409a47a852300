package web

import (
	"net/http"
	"strconv"

	"github.com/musicrec/musicrec/internal/recommend"
)

// handleSearch serves unranked title matches (GET /api/search?q=...).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := intParam(r, "limit", recommend.DefaultTopN)

	matches := s.rec.SearchTitles(q, limit)
	if matches == nil {
		matches = []recommend.TitleMatch{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": matches})
}

// handleRecommend serves ranked recommendations (GET /api/recommend?q=...).
// A title that resolves to nothing is 404; a resolved anchor with no
// neighbors is an empty list.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	topN := intParam(r, "top_n", recommend.DefaultTopN)
	includeQuery := r.URL.Query().Get("include_query") == "true"

	recs := s.rec.Recommend(q, topN, includeQuery)
	if recs == nil {
		respondError(w, http.StatusNotFound, "song not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": recs})
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
