// Package api exposes a league session over HTTP and pushes every recomputed
// report to WebSocket subscribers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dynastycalc/trade-engine/internal/importer"
	"github.com/dynastycalc/trade-engine/internal/league"
	"github.com/dynastycalc/trade-engine/internal/model"
	"github.com/dynastycalc/trade-engine/internal/pickcurve"
)

// MaxUploadBytes caps an uploaded CSV.
const MaxUploadBytes = 8 << 20

// Service serves one league session.
type Service struct {
	session *league.Session
	wsHub   *WSHub // optional
}

// NewService creates the HTTP service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(sess *league.Session, hub *WSHub) *Service {
	return &Service{session: sess, wsHub: hub}
}

// Routes registers the REST endpoints on r. Callers mount it under /api/v1
// and register the hub's HandleWS separately.
func (s *Service) Routes(r chi.Router) {
	r.Get("/report", s.GetReport)
	r.Get("/curve", s.GetCurve)

	r.Get("/settings", s.GetSettings)
	r.Put("/settings", s.UpdateSettings)
	r.Get("/source", s.GetSource)
	r.Put("/source", s.UpdateSource)
	r.Put("/suggestions", s.UpdateSuggestions)

	r.Post("/teams", s.CreateTeam)
	r.Route("/teams/{teamID}", func(r chi.Router) {
		r.Patch("/", s.RenameTeam)
		r.Delete("/", s.DeleteTeam)
		r.Post("/players", s.AddPlayer)
		r.Post("/picks", s.AddPick)
		r.Patch("/assets/{assetID}", s.UpdateAsset)
		r.Delete("/assets/{assetID}", s.DeleteAsset)
	})

	r.Post("/imports/players", s.ImportPlayers)
	r.Post("/imports/picks/{year}", s.ImportPicks)
}

// --- Request/Response types ---

// SourceRequest is the JSON body for PUT /source. Omitted fields keep their
// current value.
type SourceRequest struct {
	Source      *model.ValueSource `json:"source"`
	BlendWeight *float64           `json:"blend_weight"`
}

// TeamRequest is the JSON body for creating or renaming a team.
type TeamRequest struct {
	Name string `json:"name"`
}

// PlayerRequest is the JSON body for POST /teams/{teamID}/players.
type PlayerRequest struct {
	Name     string         `json:"name"`
	Position model.Position `json:"position"`
	Age      *int           `json:"age"`
}

// PickRequest is the JSON body for POST /teams/{teamID}/picks.
type PickRequest struct {
	Year int    `json:"year"`
	Slot string `json:"slot"`
}

// TeamResponse is returned when a team is created.
type TeamResponse struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Report model.Report `json:"report"`
}

// AssetResponse is returned when an asset is created.
type AssetResponse struct {
	Asset  model.AssetView `json:"asset"`
	Report model.Report    `json:"report"`
}

// ImportResponse is returned from a successful import.
type ImportResponse struct {
	Kind   string       `json:"kind"`
	Year   int          `json:"year,omitempty"`
	Rows   int          `json:"rows"`
	Report model.Report `json:"report"`
}

// CurveResponse is the pick curve for one league format.
type CurveResponse struct {
	Superflex bool                       `json:"superflex"`
	TEPremium bool                       `json:"te_premium"`
	Rounds    map[pickcurve.RoundKey]int `json:"rounds"`
}

// --- HTTP Handlers ---

// GetReport handles GET /api/v1/report
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Report())
}

// GetCurve handles GET /api/v1/curve. The superflex and te_premium query
// parameters default to the session's settings.
func (s *Service) GetCurve(w http.ResponseWriter, r *http.Request) {
	settings := s.session.Settings()
	sf, err := queryBool(r, "superflex", settings.Superflex)
	if err != nil {
		writeError(w, "superflex must be a boolean", http.StatusBadRequest)
		return
	}
	tep, err := queryBool(r, "te_premium", settings.TEPremium)
	if err != nil {
		writeError(w, "te_premium must be a boolean", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, CurveResponse{
		Superflex: sf,
		TEPremium: tep,
		Rounds:    pickcurve.New(sf, tep),
	})
}

// GetSettings handles GET /api/v1/settings
func (s *Service) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Settings())
}

// UpdateSettings handles PUT /api/v1/settings. The body is decoded over the
// current settings, so omitted fields are kept.
func (s *Service) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.session.Settings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rep := s.session.UpdateSettings(r.Context(), settings)
	slog.Info("settings updated",
		"superflex", rep.Settings.Superflex,
		"te_premium", rep.Settings.TEPremium,
		"ktc_adjustment", rep.Settings.KTCAdjustment,
		"decay", rep.Settings.KTCDecay,
	)
	s.publish("settings", rep)
	writeJSON(w, http.StatusOK, rep)
}

// GetSource handles GET /api/v1/source
func (s *Service) GetSource(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Source())
}

// UpdateSource handles PUT /api/v1/source
func (s *Service) UpdateSource(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == nil && req.BlendWeight == nil {
		writeError(w, "source or blend_weight is required", http.StatusBadRequest)
		return
	}

	var rep model.Report
	if req.Source != nil {
		rep = s.session.SetSource(r.Context(), *req.Source)
	}
	if req.BlendWeight != nil {
		rep = s.session.SetBlendWeight(r.Context(), *req.BlendWeight)
	}
	slog.Info("value source updated", "source", rep.Source.Source, "blend_weight", rep.Source.BlendWeight)
	s.publish("source", rep)
	writeJSON(w, http.StatusOK, rep)
}

// UpdateSuggestions handles PUT /api/v1/suggestions
func (s *Service) UpdateSuggestions(w http.ResponseWriter, r *http.Request) {
	prefs := s.session.Prefs()
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rep := s.session.SetSuggestionPrefs(prefs)
	s.publish("suggestions", rep)
	writeJSON(w, http.StatusOK, rep)
}

// CreateTeam handles POST /api/v1/teams
func (s *Service) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	team, rep := s.session.AddTeam(req.Name)
	slog.Info("team created", "team", team.ID, "name", team.Name)
	s.publish("team_created", rep)
	writeJSON(w, http.StatusCreated, TeamResponse{ID: team.ID, Name: team.Name, Report: rep})
}

// RenameTeam handles PATCH /api/v1/teams/{teamID}
func (s *Service) RenameTeam(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rep, err := s.session.RenameTeam(chi.URLParam(r, "teamID"), req.Name)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.publish("team_renamed", rep)
	writeJSON(w, http.StatusOK, rep)
}

// DeleteTeam handles DELETE /api/v1/teams/{teamID}
func (s *Service) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	rep, err := s.session.RemoveTeam(teamID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	slog.Info("team removed", "team", teamID)
	s.publish("team_removed", rep)
	writeJSON(w, http.StatusOK, rep)
}

// AddPlayer handles POST /api/v1/teams/{teamID}/players
func (s *Service) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, rep, err := s.session.AddPlayer(chi.URLParam(r, "teamID"), req.Name, req.Position, req.Age)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.publish("asset_added", rep)
	writeJSON(w, http.StatusCreated, AssetResponse{Asset: viewIn(rep, p.ID, p), Report: rep})
}

// AddPick handles POST /api/v1/teams/{teamID}/picks
func (s *Service) AddPick(w http.ResponseWriter, r *http.Request) {
	var req PickRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, rep, err := s.session.AddPick(chi.URLParam(r, "teamID"), req.Year, req.Slot)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.publish("asset_added", rep)
	writeJSON(w, http.StatusCreated, AssetResponse{Asset: viewIn(rep, p.ID, p), Report: rep})
}

// UpdateAsset handles PATCH /api/v1/teams/{teamID}/assets/{assetID}
func (s *Service) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	var patch model.AssetPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rep, err := s.session.UpdateAsset(chi.URLParam(r, "teamID"), chi.URLParam(r, "assetID"), patch)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.publish("asset_updated", rep)
	writeJSON(w, http.StatusOK, rep)
}

// DeleteAsset handles DELETE /api/v1/teams/{teamID}/assets/{assetID}
func (s *Service) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	rep, err := s.session.RemoveAsset(chi.URLParam(r, "teamID"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.publish("asset_removed", rep)
	writeJSON(w, http.StatusOK, rep)
}

// ImportPlayers handles POST /api/v1/imports/players. The CSV is either the
// raw request body or a multipart "file" field.
func (s *Service) ImportPlayers(w http.ResponseWriter, r *http.Request) {
	body, closeFn, err := uploadBody(w, r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeFn()

	n, rep, err := s.session.ImportPlayers(body)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.publish("players_imported", rep)
	writeJSON(w, http.StatusOK, ImportResponse{Kind: "players", Rows: n, Report: rep})
}

// ImportPicks handles POST /api/v1/imports/picks/{year}
func (s *Service) ImportPicks(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, "year must be an integer", http.StatusBadRequest)
		return
	}
	body, closeFn, err := uploadBody(w, r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeFn()

	n, rep, err := s.session.ImportPicks(year, body)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.publish("picks_imported", rep)
	writeJSON(w, http.StatusOK, ImportResponse{Kind: "picks", Year: year, Rows: n, Report: rep})
}

// publish broadcasts the new report, if a hub is attached.
func (s *Service) publish(reason string, rep model.Report) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.Broadcast(WSMessage{Type: "report_updated", Reason: reason, Report: &rep})
}

// --- helpers ---

// viewIn finds the valued view of assetID in rep, falling back to a zero
// value view.
func viewIn(rep model.Report, assetID string, a model.Asset) model.AssetView {
	for _, t := range rep.Teams {
		for _, v := range t.Assets {
			if v.ID == assetID {
				return v
			}
		}
	}
	return model.ViewOf(a, 0)
}

// decodeOptional decodes a JSON body, treating an empty body as zero values.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// uploadBody returns the CSV stream for an import request.
func uploadBody(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, func() {}, nil
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errors.New("multipart upload needs a file field")
	}
	return f, func() { f.Close() }, nil
}

func queryBool(r *http.Request, key string, def bool) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

// writeSessionError maps session and import errors to status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, league.ErrTeamNotFound), errors.Is(err, league.ErrAssetNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, league.ErrInvalidPosition), errors.Is(err, league.ErrInvalidYear):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, importer.ErrParseFailed):
		writeError(w, "import failed: "+err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("request failed", "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
