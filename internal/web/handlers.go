package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"songpreview/internal/catalog"
	"songpreview/internal/viewmodel"
)

type SearchRequest struct {
	Term string `json:"term"`
}

type SelectRequest struct {
	ID int64 `json:"id"`
}

type SongResponse struct {
	ID              int64  `json:"id"`
	TrackName       string `json:"track_name"`
	ArtistName      string `json:"artist_name"`
	ArtworkURL      string `json:"artwork_url"`
	ArtworkURLLarge string `json:"artwork_url_large,omitempty"`
	PreviewURL      string `json:"preview_url"`
}

// StateResponse is a view-model snapshot. DefaultTerm and TopLimit describe
// the query behind /api/top.
type StateResponse struct {
	Songs       []SongResponse `json:"songs"`
	Selected    *SongResponse  `json:"selected,omitempty"`
	LastSearch  *string        `json:"last_search,omitempty"`
	Loading     bool           `json:"loading"`
	Error       string         `json:"error,omitempty"`
	Version     uint64         `json:"version"`
	DefaultTerm string         `json:"default_term"`
	TopLimit    int            `json:"top_limit"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.stateResponse(s.model.Snapshot()))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Term) == "" {
		http.Error(w, "term is required", http.StatusBadRequest)
		return
	}

	s.logger.Info("Searching for %q", req.Term)
	s.model.SearchSongs(req.Term)

	writeJSON(w, http.StatusAccepted, s.stateResponse(s.model.Snapshot()))
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.model.FetchTopSongs()
	writeJSON(w, http.StatusAccepted, s.stateResponse(s.model.Snapshot()))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.model.Resume()
	writeJSON(w, http.StatusAccepted, s.stateResponse(s.model.Snapshot()))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	songs := s.model.Snapshot().Songs
	i := catalog.IndexOf(songs, req.ID)
	if i < 0 {
		http.Error(w, "song not in current list", http.StatusNotFound)
		return
	}

	s.model.SelectSong(songs[i])
	writeJSON(w, http.StatusOK, s.stateResponse(s.model.Snapshot()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func songToResponse(song catalog.Song) SongResponse {
	return SongResponse{
		ID:              song.ID,
		TrackName:       song.TrackName,
		ArtistName:      song.ArtistName,
		ArtworkURL:      song.ArtworkURL,
		ArtworkURLLarge: song.HighResArtworkURL(),
		PreviewURL:      song.PreviewURL,
	}
}

func (s *Server) stateResponse(st viewmodel.State) *StateResponse {
	resp := &StateResponse{
		Songs:       make([]SongResponse, len(st.Songs)),
		Loading:     st.Loading,
		Version:     st.Version,
		DefaultTerm: s.config.DefaultTerm,
		TopLimit:    s.config.TopLimit,
	}
	for i, song := range st.Songs {
		resp.Songs[i] = songToResponse(song)
	}

	if st.Selected != nil {
		selected := songToResponse(*st.Selected)
		resp.Selected = &selected
	}

	if st.HasLastSearch {
		last := st.LastSearch
		resp.LastSearch = &last
	}

	if st.Err != nil {
		resp.Error = st.Err.Error()
	}

	return resp
}
