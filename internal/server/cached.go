package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stanadevale/trailrace/internal/cache"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

// Cache namespaces for public content lists.
const (
	nsRaces    = "races"
	nsFAQs     = "faqs"
	nsProgram  = "program"
	nsSponsors = "sponsors"
)

// requestLanguage negotiates the response language from ?lang= and
// Accept-Language and records it on the response.
func requestLanguage(w http.ResponseWriter, r *http.Request) string {
	lang := trailrace.MatchLanguage(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	w.Header().Set("Content-Language", lang)
	w.Header().Add("Vary", "Accept-Language")
	return lang
}

// serveCached writes the cached body for key, or calls load, encodes its
// result, stores it and writes it. Cache failures only cost a reload. The
// result is stored under the version seen before loading, so a write that
// invalidates the namespace mid-load wins.
func serveCached(w http.ResponseWriter, r *http.Request, logger *slog.Logger, c cache.Cache, ns, key string, load func(ctx context.Context) (any, error)) {
	body, version, ok := c.Get(r.Context(), ns, key)
	if ok {
		w.Header().Set("X-Cache", "hit")
		writeRawJSON(w, body)
		return
	}

	v, err := load(r.Context())
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}
	body, err = json.Marshal(v)
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}
	c.Set(r.Context(), ns, key, version, body)
	w.Header().Set("X-Cache", "miss")
	writeRawJSON(w, body)
}

func writeRawJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
