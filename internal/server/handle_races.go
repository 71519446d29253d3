package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stanadevale/trailrace/internal/cache"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

// RaceStore is the race subset of the store.
type RaceStore interface {
	ListRaces(ctx context.Context, difficulty trailrace.Difficulty) ([]trailrace.Race, error)
	GetRace(ctx context.Context, id int64) (trailrace.Race, error)
	CreateRace(ctx context.Context, r trailrace.Race) (trailrace.Race, error)
	UpdateRace(ctx context.Context, id int64, u trailrace.RaceUpdate) (trailrace.Race, error)
}

// RaceResponse is a race with its text resolved to the negotiated
// language alongside every translation.
type RaceResponse struct {
	trailrace.Race
	NameText        string `json:"nameText"`
	DescriptionText string `json:"descriptionText"`
	BibPrefix       string `json:"bibPrefix"`
}

func newRaceResponse(r trailrace.Race, lang string) RaceResponse {
	return RaceResponse{
		Race:            r,
		NameText:        r.Name.In(lang),
		DescriptionText: r.Description.In(lang),
		BibPrefix:       trailrace.BibPrefix(r.DistanceKm),
	}
}

func handleListRaces(logger *slog.Logger, st RaceStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		difficulty := trailrace.Difficulty(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("difficulty"))))
		if difficulty != "" && !difficulty.Valid() {
			writeServiceError(w, logger, &registration.ValidationError{
				Fields: map[string]string{"difficulty": "must be one of: beginner, intermediate, advanced, ultra"},
			})
			return
		}
		lang := requestLanguage(w, r)

		serveCached(w, r, logger, c, nsRaces, lang+":"+string(difficulty), func(ctx context.Context) (any, error) {
			races, err := st.ListRaces(ctx, difficulty)
			if err != nil {
				return nil, err
			}
			out := make([]RaceResponse, 0, len(races))
			for _, race := range races {
				out = append(out, newRaceResponse(race, lang))
			}
			return out, nil
		})
	}
}

func handleGetRace(logger *slog.Logger, st RaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "race not found")
			return
		}
		race, err := st.GetRace(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newRaceResponse(race, requestLanguage(w, r)))
	}
}

// CreateRaceRequest is the request body for POST /api/races.
type CreateRaceRequest struct {
	Name                   trailrace.Localized  `json:"name"`
	Description            trailrace.Localized  `json:"description"`
	Distance               float64              `json:"distance" validate:"gt=0"`
	Elevation              int                  `json:"elevation" validate:"gte=0"`
	Difficulty             trailrace.Difficulty `json:"difficulty" validate:"required,oneof=beginner intermediate advanced ultra"`
	Date                   time.Time            `json:"date" validate:"required"`
	Price                  float64              `json:"price" validate:"gte=0"`
	ImageURL               string               `json:"imageUrl,omitempty"`
	MapURL                 string               `json:"mapUrl,omitempty"`
	IsEMACertified         bool                 `json:"isEmaCertified"`
	IsNationalChampionship bool                 `json:"isNationalChampionship"`
}

func (req *CreateRaceRequest) validate() error {
	req.Difficulty = trailrace.Difficulty(strings.ToLower(strings.TrimSpace(string(req.Difficulty))))
	if strings.TrimSpace(req.Name.RO) == "" && strings.TrimSpace(req.Name.EN) == "" {
		return &registration.ValidationError{Fields: map[string]string{"name": "needs at least a Romanian or English text"}}
	}
	return registration.Validate(req)
}

func handleCreateRace(logger *slog.Logger, st RaceStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRaceRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			writeServiceError(w, logger, err)
			return
		}

		race, err := st.CreateRace(r.Context(), trailrace.Race{
			Name:                   req.Name,
			Description:            req.Description,
			DistanceKm:             req.Distance,
			ElevationGainM:         req.Elevation,
			Difficulty:             req.Difficulty,
			Date:                   req.Date.UTC(),
			Price:                  req.Price,
			ImageURL:               req.ImageURL,
			MapURL:                 req.MapURL,
			IsEMACertified:         req.IsEMACertified,
			IsNationalChampionship: req.IsNationalChampionship,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		invalidate(r, logger, c, nsRaces)

		logger.Info("race created", "race_id", race.ID, "admin", adminFrom(r).Username)
		writeJSON(w, http.StatusCreated, newRaceResponse(race, requestLanguage(w, r)))
	}
}

func handleUpdateRace(logger *slog.Logger, st RaceStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "race not found")
			return
		}
		var req trailrace.RaceUpdate
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ImageURL == nil && req.MapURL == nil {
			writeServiceError(w, logger, &registration.ValidationError{
				Fields: map[string]string{"imageUrl": "imageUrl or mapUrl is required"},
			})
			return
		}

		race, err := st.UpdateRace(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		invalidate(r, logger, c, nsRaces)

		logger.Info("race updated", "race_id", race.ID, "admin", adminFrom(r).Username)
		writeJSON(w, http.StatusOK, newRaceResponse(race, requestLanguage(w, r)))
	}
}

func invalidate(r *http.Request, logger *slog.Logger, c cache.Cache, ns string) {
	if err := c.Invalidate(r.Context(), ns); err != nil {
		logger.Warn("invalidating cache", "namespace", ns, "error", err)
	}
}
