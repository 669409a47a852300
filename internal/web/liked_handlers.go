package web

import (
	"net/http"

	"github.com/musicrec/musicrec/internal/db"
)

// handleListLiked returns the caller's liked songs (GET /api/liked_songs).
func (s *Server) handleListLiked(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	songs, err := s.liked.List(r.Context(), claims.UserID)
	if err != nil {
		s.internalError(w, err, "listing liked songs")
		return
	}

	type likedResponse struct {
		SongID  string `json:"song_id"`
		Name    string `json:"name"`
		Artists string `json:"artists"`
	}
	out := make([]likedResponse, 0, len(songs))
	for _, song := range songs {
		out = append(out, likedResponse{SongID: song.SongID, Name: song.Name, Artists: song.Artists})
	}
	respondJSON(w, http.StatusOK, map[string]any{"liked_songs": out})
}

// handleToggleLiked likes or unlikes a song (POST /api/liked_songs).
func (s *Server) handleToggleLiked(w http.ResponseWriter, r *http.Request) {
	var req songPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SongID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "song_id and name are required")
		return
	}

	claims := claimsFrom(r.Context())
	song := &db.LikedSong{
		UserID:  claims.UserID,
		SongID:  req.SongID,
		Name:    req.Name,
		Artists: req.Artists,
	}
	liked, err := s.liked.Toggle(r.Context(), song)
	if err != nil {
		s.internalError(w, err, "toggling liked song")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"liked": liked})
}
