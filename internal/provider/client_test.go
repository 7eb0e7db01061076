package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELENA-QPA/elena-case-sync/internal/config"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

type fakeProvider struct {
	t            *testing.T
	logins       int
	rejectNextN  int
	pages        [][]ChangeRecord
	unboundPages bool
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/Login", func(w http.ResponseWriter, r *http.Request) {
		f.logins++
		var req map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(f.t, "sync@example.com", req["email"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":   fmt.Sprintf("token-%d", f.logins),
			"success": true,
		})
	})

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if f.rejectNextN > 0 {
			f.rejectNextN--
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer token-") {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux.HandleFunc("/ResumenActualizacion/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode(ChangeSummary{
			HasChanges: true,
			Stats:      map[string]int{"procesos": 2},
		})
	})

	mux.HandleFunc("/InformeExpedientes/Cambios", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		page := 0
		fmt.Sscanf(r.URL.Query().Get("pagina"), "%d", &page)
		if f.unboundPages {
			json.NewEncoder(w).Encode([]ChangeRecord{{Docket: fmt.Sprintf("docket-%d", page)}})
			return
		}
		if page < 1 || page > len(f.pages) {
			json.NewEncoder(w).Encode([]ChangeRecord{})
			return
		}
		json.NewEncoder(w).Encode(f.pages[page-1])
	})

	return mux
}

func newTestClient(t *testing.T, baseURL string, maxPages int) *Client {
	t.Helper()

	log, err := logger.NewLogger("error", "console")
	require.NoError(t, err)

	return NewClient(&config.Config{
		ProviderBaseURL:  baseURL,
		ProviderEmail:    "sync@example.com",
		ProviderPassword: "secret",
		TokenTTL:         30 * time.Minute,
		RequestTimeout:   5 * time.Second,
		MaxPages:         maxPages,
	}, log)
}

func TestFetchChangeSummary(t *testing.T) {
	fake := &fakeProvider{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, 10)

	summary, err := client.FetchChangeSummary(context.Background(), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, summary.HasChanges)
	assert.Equal(t, 2, summary.Stats["procesos"])
	assert.Equal(t, 1, fake.logins)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	fake := &fakeProvider{t: t}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, 10)
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := client.FetchChangeSummary(context.Background(), date)
	require.NoError(t, err)
	_, err = client.FetchChangeSummary(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.logins, "valid token must be reused")
}

func TestTokenRejectionTriggersOneRetry(t *testing.T) {
	fake := &fakeProvider{t: t, rejectNextN: 1}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, 10)

	summary, err := client.FetchChangeSummary(context.Background(), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, summary.HasChanges)
	assert.Equal(t, 2, fake.logins, "rejection must force exactly one re-login")
}

func TestSecondTokenRejectionIsFatal(t *testing.T) {
	fake := &fakeProvider{t: t, rejectNextN: 2}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, 10)

	_, err := client.FetchChangeSummary(context.Background(), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
}

func TestLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "bad credentials",
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 10)

	_, err := client.FetchChangeSummary(context.Background(), time.Now())
	require.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestFetchAllChangesPaginates(t *testing.T) {
	fake := &fakeProvider{t: t, pages: [][]ChangeRecord{
		{{Docket: "a"}, {Docket: "b"}},
		{{Docket: "c"}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, 10)

	records, err := client.FetchAllChanges(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].Docket)
	assert.Equal(t, "c", records[2].Docket)
}

func TestFetchAllChangesPageGuard(t *testing.T) {
	fake := &fakeProvider{t: t, unboundPages: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)

	records, err := client.FetchAllChanges(context.Background(), time.Now())
	require.NoError(t, err, "tripping the guard is a warning, not an error")
	assert.Len(t, records, 3)
}

func TestRequestErrorCarriesUpstreamMessage(t *testing.T) {
	fake := &fakeProvider{t: t}
	mux := http.NewServeMux()
	mux.Handle("/Login", fake.handler())
	mux.HandleFunc("/ResumenActualizacion/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL, 10)

	_, err := client.FetchChangeSummary(context.Background(), time.Now())
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Contains(t, reqErr.Message, "upstream exploded")
}
