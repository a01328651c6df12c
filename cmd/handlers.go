package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sells-group/vibepick/internal/location"
	"github.com/sells-group/vibepick/internal/mood"
	"github.com/sells-group/vibepick/internal/places"
	"github.com/sells-group/vibepick/internal/recommend"
	"github.com/sells-group/vibepick/pkg/google"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

// googlePhotoPath serves Google photos with the key added server-side.
const googlePhotoPath = "/api/places/google/photo/"

// placeDetailer fetches one place, or one of its photos, by provider id.
type placeDetailer interface {
	Configured() bool
	Details(ctx context.Context, placeID string) (*places.Place, error)
	Photo(ctx context.Context, ref string) (*google.PhotoData, error)
}

// googlePhotoURL points Google photo references at the photo handler.
func googlePhotoURL(provider, ref string) string {
	if provider != places.GoogleName {
		return ""
	}
	return googlePhotoPath + url.PathEscape(ref)
}

// server holds the HTTP handlers' collaborators.
type server struct {
	resolver    *location.Resolver
	recommender recommend.Recommender
	taxonomy    *mood.Taxonomy
	details     placeDetailer
	proxy       http.Handler
	sessions    *sessionStore
	circuits    func() map[string]string
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type locationRequest struct {
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	PostalCode string   `json:"postal_code"`
}

type recommendRequest struct {
	Mood         string          `json:"mood"`
	Location     locationRequest `json:"location"`
	RadiusMeters int             `json:"radius_meters"`
}

type recommendResponse struct {
	SessionID string                     `json:"session_id"`
	State     string                     `json:"state"`
	CanReroll bool                       `json:"can_reroll"`
	Location  *location.UserLocation     `json:"location,omitempty"`
	Pick      recommend.Recommendation   `json:"pick"`
	Ranked    []recommend.Recommendation `json:"ranked"`
}

// sessionResponse echoes a session's state and its latest result, if any.
type sessionResponse struct {
	SessionID string                     `json:"session_id"`
	State     string                     `json:"state"`
	CanReroll bool                       `json:"can_reroll"`
	Pick      *recommend.Recommendation  `json:"pick,omitempty"`
	Ranked    []recommend.Recommendation `json:"ranked,omitempty"`
}

type moodResponse struct {
	ID    mood.Mood `json:"id"`
	Label string    `json:"label"`
	Image string    `json:"image"`
}

var errMissingLocation = errors.New("location requires postal_code or lat and lng")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("serve: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeDomainError maps core errors to statuses with a recovery hint the
// client can act on.
func writeDomainError(w http.ResponseWriter, err error) {
	var unavailable *location.UnavailableError
	switch {
	case errors.Is(err, location.ErrInvalidPostalCode):
		writeError(w, http.StatusBadRequest, "invalid_postal_code", "enter a 5-digit ZIP code")
	case errors.As(err, &unavailable):
		writeError(w, http.StatusUnprocessableEntity, "location_unavailable", unavailable.Reason.Message())
	case errors.Is(err, location.ErrLocationUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "location_unavailable", "location unavailable, enter a ZIP code")
	case errors.Is(err, recommend.ErrNoPlacesFound):
		writeError(w, http.StatusNotFound, "no_places_found", "nothing nearby for this mood, try another one")
	case errors.Is(err, recommend.ErrRerollExhausted):
		writeError(w, http.StatusConflict, "reroll_exhausted", "you already rerolled this pick")
	case errors.Is(err, recommend.ErrNothingToReroll):
		writeError(w, http.StatusConflict, "nothing_to_reroll", "pick a mood first")
	case errors.Is(err, recommend.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded", "a newer search replaced this one")
	case errors.Is(err, places.ErrProviderUnconfigured):
		writeError(w, http.StatusServiceUnavailable, "provider_unconfigured", "provider not configured")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", "request cancelled")
	default:
		if pe, ok := places.IsProviderError(err); ok {
			zap.L().Warn("serve: provider error", zap.String("provider", pe.Provider), zap.Int("status", pe.Status))
			writeError(w, http.StatusBadGateway, "provider_error", "place provider failed")
			return
		}
		zap.L().Error("serve: unexpected error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	return true
}

// resolve labels the request's location. Without one, a session's
// remembered device position is used while it is fresh.
func (s *server) resolve(ctx context.Context, in locationRequest, sessionID string) (location.UserLocation, error) {
	switch {
	case in.PostalCode != "":
		return s.resolver.FromPostalCode(ctx, in.PostalCode)
	case in.Lat != nil && in.Lng != nil:
		return s.resolver.FromCoordinates(ctx, *in.Lat, *in.Lng)
	}
	if dev, ok := s.sessions.device(sessionID); ok {
		return s.resolver.FromDevice(ctx, dev)
	}
	return location.UserLocation{}, errMissingLocation
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.circuits != nil {
		body["circuits"] = s.circuits()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) moods(w http.ResponseWriter, r *http.Request) {
	ids := s.taxonomy.Moods()
	out := make([]moodResponse, 0, len(ids))
	for _, id := range ids {
		p := s.taxonomy.ProfileFor(id)
		out = append(out, moodResponse{ID: p.Mood, Label: p.DisplayLabel, Image: p.DisplayImageRef})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) locate(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	loc, err := s.resolve(r.Context(), req, r.Header.Get(sessionHeader))
	if errors.Is(err, errMissingLocation) {
		writeError(w, http.StatusBadRequest, "missing_location", err.Error())
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *server) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Mood == "" {
		writeError(w, http.StatusBadRequest, "missing_mood", "mood is required")
		return
	}

	loc, err := s.resolve(r.Context(), req.Location, r.Header.Get(sessionHeader))
	if errors.Is(err, errMissingLocation) {
		writeError(w, http.StatusBadRequest, "missing_location", err.Error())
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, sess := s.sessions.getOrCreate(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, id)
	if req.Location.PostalCode == "" && req.Location.Lat != nil && req.Location.Lng != nil {
		s.sessions.remember(id, *req.Location.Lat, *req.Location.Lng)
	}

	res, err := sess.Search(r.Context(), mood.Mood(req.Mood), loc, req.RadiusMeters)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(id, sess, res, &loc))
}

func (s *server) reroll(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	sess, ok := s.sessions.get(id)
	if !ok {
		writeError(w, http.StatusConflict, "no_session", "start a search before rerolling")
		return
	}
	w.Header().Set(sessionHeader, id)

	res, err := sess.Reroll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(id, sess, res, nil))
}

func (s *server) session(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	sess, ok := s.sessions.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no_session", "session not found or expired")
		return
	}
	w.Header().Set(sessionHeader, id)

	out := sessionResponse{
		SessionID: id,
		State:     sess.State().String(),
		CanReroll: sess.CanReroll(),
	}
	if res, _ := sess.Last(); res != nil {
		pick := res.Pick()
		out.Pick = &pick
		out.Ranked = res.Ranked
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) response(id string, sess *recommend.Session, res *recommend.Result, loc *location.UserLocation) recommendResponse {
	return recommendResponse{
		SessionID: id,
		State:     sess.State().String(),
		CanReroll: sess.CanReroll(),
		Location:  loc,
		Pick:      res.Pick(),
		Ranked:    res.Ranked,
	}
}

func (s *server) googleDetails(w http.ResponseWriter, r *http.Request) {
	if s.details == nil || !s.details.Configured() {
		writeError(w, http.StatusServiceUnavailable, "provider_unconfigured", "place details are not available")
		return
	}
	p, err := s.details.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if pe, ok := places.IsProviderError(err); ok && pe.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "not_found", "place not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) googlePhoto(w http.ResponseWriter, r *http.Request) {
	if s.details == nil || !s.details.Configured() {
		writeError(w, http.StatusServiceUnavailable, "provider_unconfigured", "place photos are not available")
		return
	}
	ref, err := url.PathUnescape(chi.URLParam(r, "ref"))
	if err != nil || ref == "" {
		writeError(w, http.StatusBadRequest, "invalid_photo_ref", "invalid photo reference")
		return
	}
	photo, err := s.details.Photo(r.Context(), ref)
	if err != nil {
		if pe, ok := places.IsProviderError(err); ok && pe.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "not_found", "photo not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(photo.Body); err != nil {
		zap.L().Debug("serve: write photo", zap.Error(err))
	}
}

func (s *server) foursquareSearch(w http.ResponseWriter, r *http.Request) {
	if s.proxy == nil {
		writeError(w, http.StatusServiceUnavailable, "provider_unconfigured", "place search proxy is not configured")
		return
	}
	s.proxy.ServeHTTP(w, r)
}
