// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/download"
	"github.com/vmunix/reelarr/internal/scrape"
	"github.com/vmunix/reelarr/pkg/transmission"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Server is the v1 API server.
type Server struct {
	deps      ServerDeps
	logger    *slog.Logger
	startedAt time.Time
}

// New creates a new v1 API server.
func New(deps ServerDeps, logger *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingDependency, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		deps:      deps,
		logger:    logger.With("component", "api"),
		startedAt: time.Now(),
	}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Movies
	mux.HandleFunc("GET /api/v1/movies", s.listMovies)
	mux.HandleFunc("GET /api/v1/movies/{code}", s.getMovie)
	mux.HandleFunc("GET /api/v1/search", s.search)

	// Downloads
	mux.HandleFunc("POST /api/v1/movies/{code}/download", s.requireDownloads(s.startDownload))
	mux.HandleFunc("GET /api/v1/movies/{code}/status", s.requireDownloads(s.liveStatus))
	mux.HandleFunc("POST /api/v1/movies/{code}/complete", s.requireDownloads(s.completeDownload))
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.getMovieByJob)

	// Scrapes
	mux.HandleFunc("POST /api/v1/scrapes", s.requireScraper(s.startScrape))
	mux.HandleFunc("GET /api/v1/scrapes", s.listScrapes)
	mux.HandleFunc("GET /api/v1/scrapes/{id}", s.getScrape)

	// Events
	mux.HandleFunc("GET /api/v1/events", s.requireEventLog(s.listEvents))
	mux.HandleFunc("GET /api/v1/movies/{code}/events", s.requireEventLog(s.listMovieEvents))

	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
}

// Handler returns the routes wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return logRequests(s.logger, mux)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError maps core errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, download.ErrNotDownloading):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, download.ErrAlreadyDownloaded),
		errors.Is(err, download.ErrAlreadyDownloading),
		errors.Is(err, download.ErrDuplicateTorrent),
		errors.Is(err, download.ErrNoLiveStats),
		errors.Is(err, download.ErrNotConfirmed),
		errors.Is(err, scrape.ErrScrapeInProgress):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, download.ErrNoAcceptableTorrent),
		errors.Is(err, download.ErrNoTrackers),
		errors.Is(err, download.ErrInvalidHash),
		errors.Is(err, catalog.ErrInvalidCode):
		writeError(w, http.StatusUnprocessableEntity, "UNPROCESSABLE", err.Error())
	case errors.Is(err, transmission.ErrUnavailable),
		errors.Is(err, transmission.ErrUnauthorized),
		errors.Is(err, transmission.ErrProtocol):
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// queryLimit extracts the limit query parameter, clamped to maxLimit.
func queryLimit(r *http.Request) (int, error) {
	val := r.URL.Query().Get("limit")
	if val == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", val)
	}
	return min(limit, maxLimit), nil
}

func (s *Server) listMovies(w http.ResponseWriter, r *http.Request) {
	filter, err := catalog.ParseMovieFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	movies, err := s.deps.Catalog.ListMovies(r.Context(), filter, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := listMoviesResponse{Items: make([]movieResponse, len(movies)), Total: len(movies)}
	for i, m := range movies {
		resp.Items[i] = movieToResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getMovie(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Catalog.FindByCode(r.Context(), catalog.NormalizeCode(r.PathValue("code")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movieToResponse(m))
}

// getMovieByJob resolves a torrent daemon job id to the movie it downloads.
func (s *Server) getMovieByJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_JOB_ID", fmt.Sprintf("invalid job id %q", r.PathValue("id")))
		return
	}
	m, err := s.deps.Catalog.FindByJobID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movieToResponse(m))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "MISSING_QUERY", "q is required")
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	results, err := s.deps.Catalog.Search(r.Context(), q, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := listMoviesResponse{Items: make([]movieResponse, len(results)), Total: len(results)}
	for i, res := range results {
		resp.Items[i] = movieToResponse(res.Movie)
		resp.Items[i].Score = res.Score
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) startDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	code := catalog.NormalizeCode(r.PathValue("code"))
	d, err := s.deps.Downloads.Start(r.Context(), code, download.Request{Quality: req.Quality, Type: req.Type})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, downloadToResponse(d))
}

func (s *Server) liveStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Downloads.LiveStatus(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liveStatusResponse{
		Code:        st.Code,
		Name:        st.Name,
		JobID:       st.JobID,
		Quality:     st.Quality,
		Type:        st.Type,
		Status:      st.Status.String(),
		StartedAt:   st.StartedAt,
		Finished:    st.Finished,
		PercentDone: st.PercentDone,
		Stalled:     st.Stalled,
		ETASeconds:  int64(st.ETA / time.Second),
		Files:       st.Files,
	})
}

// completeDownload runs completion now instead of waiting for the daemon to
// drop the job, e.g. for a torrent that finished but is still seeding.
func (s *Server) completeDownload(w http.ResponseWriter, r *http.Request) {
	code := catalog.NormalizeCode(r.PathValue("code"))
	if err := s.deps.Downloads.Complete(r.Context(), code); err != nil {
		s.writeServiceError(w, err)
		return
	}
	m, err := s.deps.Catalog.FindByCode(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movieToResponse(m))
}

// startScrape launches a detached run and returns immediately.
func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Scraper.Start(r.Context(), s.deps.Tasks)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/scrapes/"+sc.ID)
	writeJSON(w, http.StatusAccepted, scrapeToResponse(sc))
}

func (s *Server) getScrape(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Catalog.GetScrape(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scrapeToResponse(sc))
}

func (s *Server) listScrapes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}
	scrapes, err := s.deps.Catalog.ListScrapes(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := listScrapesResponse{Items: make([]scrapeResponse, len(scrapes))}
	for i, sc := range scrapes {
		resp.Items[i] = scrapeToResponse(sc)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	tasks := []string{}
	if s.deps.Tasks != nil {
		tasks = s.deps.Tasks.Running()
		slices.Sort(tasks)
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Version:   s.deps.Version,
		StartedAt: s.startedAt,
		Tasks:     tasks,
	})
}

func movieToResponse(m *catalog.Movie) movieResponse {
	resp := movieResponse{
		Code:        m.Code,
		Title:       m.Meta.Title,
		Year:        m.Meta.Year,
		Language:    m.Meta.Language,
		Rating:      m.Meta.Rating,
		Description: m.Meta.Description,
		Genres:      m.Meta.Genres,
		Source:      m.Meta.Source,
		SourceTime:  m.Meta.SourceTime,
		Torrents:    make([]torrentResponse, len(m.Torrents)),
	}
	for i, t := range m.Torrents {
		resp.Torrents[i] = torrentResponse{
			Source:    t.Source,
			Hash:      t.Hash,
			Quality:   t.Quality,
			Type:      t.Type,
			SizeBytes: t.SizeBytes,
		}
	}
	if m.Local != nil {
		resp.Local = &localResponse{Source: m.Local.Source, SourceTime: m.Local.SourceTime}
	}
	if m.Download != nil {
		d := downloadToResponse(m.Download)
		resp.Download = &d
	}
	return resp
}

func downloadToResponse(d *catalog.Download) downloadResponse {
	resp := downloadResponse{
		JobID:     d.JobID,
		Name:      d.Name,
		Quality:   d.Quality,
		Type:      d.Type,
		Status:    d.Status().String(),
		StartedAt: d.StartedAt(),
		Events:    make([]statusEventResponse, len(d.Events)),
	}
	for i, e := range d.Events {
		resp.Events[i] = statusEventResponse{Status: e.Status.String(), At: e.At}
	}
	return resp
}

func scrapeToResponse(sc *catalog.Scrape) scrapeResponse {
	resp := scrapeResponse{
		ID:        sc.ID,
		StartedAt: sc.StartedAt,
		EndedAt:   sc.EndedAt,
		Finished:  sc.Finished(),
		Success:   sc.Success,
		Movies:    sc.Movies,
		Torrents:  sc.Torrents,
		Sources:   make([]scrapeSourceResponse, len(sc.Sources)),
	}
	for i, src := range sc.Sources {
		resp.Sources[i] = scrapeSourceResponse{
			Source:    src.Source,
			Kind:      string(src.Kind),
			StartedAt: src.StartedAt,
			EndedAt:   src.EndedAt,
			Success:   src.Success,
			Error:     src.Error,
			Movies:    src.Movies,
			Torrents:  src.Torrents,
		}
	}
	return resp
}
