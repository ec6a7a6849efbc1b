package v1

import (
	"net/http"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/events"
)

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	evs, err := s.deps.EventLog.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.eventsToResponse(evs))
}

func (s *Server) listMovieEvents(w http.ResponseWriter, r *http.Request) {
	code := catalog.NormalizeCode(r.PathValue("code"))

	// Verify the movie exists
	if _, err := s.deps.Catalog.FindByCode(r.Context(), code); err != nil {
		s.writeServiceError(w, err)
		return
	}

	evs, err := s.deps.EventLog.ForEntity(r.Context(), events.EntityMovie, code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.eventsToResponse(evs))
}

// eventsToResponse summarizes each event it can decode. Events of unknown
// types are listed with their raw payload only.
func (s *Server) eventsToResponse(evs []events.RawEvent) listEventsResponse {
	resp := listEventsResponse{Items: make([]EventResponse, len(evs))}
	for i, e := range evs {
		resp.Items[i] = EventResponse{
			ID:         e.ID,
			EventType:  e.EventType,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Payload:    e.Payload,
			OccurredAt: e.OccurredAt,
		}
		decoded, err := events.Decode(e)
		if err != nil {
			s.logger.Debug("event not decoded", "id", e.ID, "type", e.EventType, "error", err)
			continue
		}
		resp.Items[i].Summary = events.Describe(decoded)
	}
	return resp
}
