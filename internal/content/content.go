// Package content holds the event's default site content and loads it into
// a store.
package content

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

//go:embed seed.yaml
var seedYAML []byte

type raceDoc struct {
	Name                   trailrace.Localized `yaml:"name"`
	Description            trailrace.Localized `yaml:"description"`
	Distance               float64             `yaml:"distance"`
	Elevation              int                 `yaml:"elevation"`
	Difficulty             string              `yaml:"difficulty"`
	Date                   string              `yaml:"date"`
	Price                  float64             `yaml:"price"`
	ImageURL               string              `yaml:"imageUrl"`
	MapURL                 string              `yaml:"mapUrl"`
	IsEMACertified         bool                `yaml:"isEmaCertified"`
	IsNationalChampionship bool                `yaml:"isNationalChampionship"`
}

type faqDoc struct {
	Order    int                 `yaml:"order"`
	Question trailrace.Localized `yaml:"question"`
	Answer   trailrace.Localized `yaml:"answer"`
}

type eventDoc struct {
	Day         string              `yaml:"day"`
	StartTime   string              `yaml:"startTime"`
	EndTime     string              `yaml:"endTime"`
	Location    string              `yaml:"location"`
	Title       trailrace.Localized `yaml:"title"`
	Description trailrace.Localized `yaml:"description"`
}

type sponsorDoc struct {
	Name        string              `yaml:"name"`
	Level       string              `yaml:"level"`
	Order       int                 `yaml:"order"`
	Website     string              `yaml:"website"`
	LogoURL     string              `yaml:"logoUrl"`
	Description trailrace.Localized `yaml:"description"`
}

type document struct {
	Races    []raceDoc    `yaml:"races"`
	FAQs     []faqDoc     `yaml:"faqs"`
	Program  []eventDoc   `yaml:"program"`
	Sponsors []sponsorDoc `yaml:"sponsors"`
}

// Bundle is a parsed content document.
type Bundle struct {
	Races    []trailrace.Race
	FAQs     []trailrace.FAQ
	Program  []trailrace.ProgramEvent
	Sponsors []trailrace.Sponsor
}

// Default returns the embedded content.
func Default() (Bundle, error) {
	return Parse(seedYAML)
}

// Parse decodes a YAML content document.
func Parse(data []byte) (Bundle, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Bundle{}, fmt.Errorf("decoding content: %w", err)
	}

	var b Bundle
	for i, r := range doc.Races {
		d := trailrace.Difficulty(r.Difficulty)
		if !d.Valid() {
			return Bundle{}, fmt.Errorf("race %d: unknown difficulty %q", i, r.Difficulty)
		}
		date, err := time.Parse(time.RFC3339, r.Date)
		if err != nil {
			return Bundle{}, fmt.Errorf("race %d: date: %w", i, err)
		}
		if r.Distance <= 0 {
			return Bundle{}, fmt.Errorf("race %d: distance must be positive", i)
		}
		b.Races = append(b.Races, trailrace.Race{
			Name:                   r.Name,
			Description:            r.Description,
			DistanceKm:             r.Distance,
			ElevationGainM:         r.Elevation,
			Difficulty:             d,
			Date:                   date.UTC(),
			Price:                  r.Price,
			ImageURL:               r.ImageURL,
			MapURL:                 r.MapURL,
			IsEMACertified:         r.IsEMACertified,
			IsNationalChampionship: r.IsNationalChampionship,
		})
	}
	for _, f := range doc.FAQs {
		b.FAQs = append(b.FAQs, trailrace.FAQ{Question: f.Question, Answer: f.Answer, Order: f.Order})
	}
	for _, e := range doc.Program {
		b.Program = append(b.Program, trailrace.ProgramEvent{
			Day:         e.Day,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			Title:       e.Title,
			Description: e.Description,
			Location:    e.Location,
		})
	}
	for _, s := range doc.Sponsors {
		b.Sponsors = append(b.Sponsors, trailrace.Sponsor{
			Name:        s.Name,
			Description: s.Description,
			LogoURL:     s.LogoURL,
			Website:     s.Website,
			Level:       trailrace.SponsorLevel(s.Level),
			Order:       s.Order,
		})
	}
	return b, nil
}

// Store is what seeding writes to.
type Store interface {
	ListRaces(ctx context.Context, difficulty trailrace.Difficulty) ([]trailrace.Race, error)
	CreateRace(ctx context.Context, r trailrace.Race) (trailrace.Race, error)
	CreateFAQ(ctx context.Context, f trailrace.FAQ) (trailrace.FAQ, error)
	CreateProgramEvent(ctx context.Context, e trailrace.ProgramEvent) (trailrace.ProgramEvent, error)
	CreateSponsor(ctx context.Context, s trailrace.Sponsor) (trailrace.Sponsor, error)
}

// Seed writes b into st unless races already exist. It reports whether
// anything was written.
func Seed(ctx context.Context, logger *slog.Logger, st Store, b Bundle) (bool, error) {
	existing, err := st.ListRaces(ctx, "")
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	for _, r := range b.Races {
		if _, err := st.CreateRace(ctx, r); err != nil {
			return false, fmt.Errorf("seeding race %q: %w", r.Name.EN, err)
		}
	}
	for _, f := range b.FAQs {
		if _, err := st.CreateFAQ(ctx, f); err != nil {
			return false, fmt.Errorf("seeding faq: %w", err)
		}
	}
	for _, e := range b.Program {
		if _, err := st.CreateProgramEvent(ctx, e); err != nil {
			return false, fmt.Errorf("seeding program event: %w", err)
		}
	}
	for _, s := range b.Sponsors {
		if _, err := st.CreateSponsor(ctx, s); err != nil {
			return false, fmt.Errorf("seeding sponsor %q: %w", s.Name, err)
		}
	}

	logger.Info("content seeded",
		"races", len(b.Races),
		"faqs", len(b.FAQs),
		"program", len(b.Program),
		"sponsors", len(b.Sponsors),
	)
	return true, nil
}
