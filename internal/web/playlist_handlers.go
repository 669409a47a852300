package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/musicrec/musicrec/internal/db"
)

type playlistResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SongCount int    `json:"song_count"`
	CreatedAt string `json:"created_at"`
}

type songPayload struct {
	SongID  string `json:"song_id"`
	Name    string `json:"name"`
	Artists string `json:"artists"`
}

func toPlaylistResponse(p *db.Playlist) playlistResponse {
	return playlistResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		SongCount: p.SongCount,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// handleListPlaylists returns the caller's playlists (GET /api/playlists).
func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	playlists, err := s.playlists.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		s.internalError(w, err, "listing playlists")
		return
	}
	out := make([]playlistResponse, 0, len(playlists))
	for i := range playlists {
		out = append(out, toPlaylistResponse(&playlists[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"playlists": out})
}

// handleCreatePlaylist creates an empty playlist (POST /api/playlists).
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	claims := claimsFrom(r.Context())
	p, err := s.playlists.Create(r.Context(), claims.UserID, req.Name)
	if errors.Is(err, db.ErrConflict) {
		respondError(w, http.StatusConflict, "a playlist with that name already exists")
		return
	}
	if err != nil {
		s.internalError(w, err, "creating playlist")
		return
	}
	respondJSON(w, http.StatusCreated, toPlaylistResponse(p))
}

// handleGetPlaylist returns one playlist with its songs
// (GET /api/playlists/{playlistID}).
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	playlistID, ok := parsePlaylistID(w, r)
	if !ok {
		return
	}

	p, err := s.playlists.Get(r.Context(), claims.UserID, playlistID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "querying playlist")
		return
	}
	songs, err := s.playlists.ListSongs(r.Context(), claims.UserID, playlistID)
	if err != nil {
		s.internalError(w, err, "listing playlist songs")
		return
	}
	if songs == nil {
		songs = []db.PlaylistSong{}
	}

	type songResponse struct {
		SongID  string `json:"song_id"`
		Name    string `json:"name"`
		Artists string `json:"artists"`
	}
	out := make([]songResponse, 0, len(songs))
	for _, song := range songs {
		out = append(out, songResponse{SongID: song.SongID, Name: song.Name, Artists: song.Artists})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"playlist": toPlaylistResponse(p),
		"songs":    out,
	})
}

// handleRenamePlaylist renames a playlist (PUT /api/playlists/{playlistID}).
func (s *Server) handleRenamePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	claims := claimsFrom(r.Context())
	playlistID, ok := parsePlaylistID(w, r)
	if !ok {
		return
	}
	err := s.playlists.Rename(r.Context(), claims.UserID, playlistID, req.Name)
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondError(w, http.StatusNotFound, "playlist not found")
	case errors.Is(err, db.ErrConflict):
		respondError(w, http.StatusConflict, "a playlist with that name already exists")
	case err != nil:
		s.internalError(w, err, "renaming playlist")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"message": "playlist renamed"})
	}
}

// handleDeletePlaylist removes a playlist (DELETE /api/playlists/{playlistID}).
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	playlistID, ok := parsePlaylistID(w, r)
	if !ok {
		return
	}
	err := s.playlists.Delete(r.Context(), claims.UserID, playlistID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "deleting playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "playlist deleted"})
}

// handleAddPlaylistSong appends a song (POST /api/playlists/{playlistID}/songs).
func (s *Server) handleAddPlaylistSong(w http.ResponseWriter, r *http.Request) {
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
	playlistID, ok := parsePlaylistID(w, r)
	if !ok {
		return
	}
	song := &db.PlaylistSong{
		PlaylistID: playlistID,
		SongID:     req.SongID,
		Name:       req.Name,
		Artists:    req.Artists,
	}
	err := s.playlists.AddSong(r.Context(), claims.UserID, song)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "adding playlist song")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "song added"})
}

// handleRemovePlaylistSong drops a song
// (DELETE /api/playlists/{playlistID}/songs/{songID}).
func (s *Server) handleRemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	playlistID, ok := parsePlaylistID(w, r)
	if !ok {
		return
	}
	songID := chi.URLParam(r, "songID")

	err := s.playlists.RemoveSong(r.Context(), claims.UserID, playlistID, songID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "song not in playlist")
		return
	}
	if err != nil {
		s.internalError(w, err, "removing playlist song")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "song removed"})
}

func parsePlaylistID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "playlistID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid playlist id")
		return uuid.Nil, false
	}
	return id, true
}
