package mangadex

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *MangaDexClient {
	return NewClient(serverURL, "secret",
		WithRetryPolicy(2, time.Millisecond),
		WithRateLimit(1000, 100),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestClient_GetMangaListSendsHeadersAndIncludes(t *testing.T) {
	var gotQuery url.Values
	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga", r.URL.Path)
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"result":"ok","data":[{"id":"m1","type":"manga","attributes":{"title":{"en":"Berserk"}}}],"total":1}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).GetMangaList(context.Background(), url.Values{"title": {"berserk"}})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "m1", resp.Data[0].ID)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "MangaKo/1.0", gotUA)
	assert.ElementsMatch(t, []string{"author", "cover_art"}, gotQuery["includes[]"])
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"result":"ok","data":[],"total":0}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetCovers(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetCovers(context.Background(), url.Values{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"result":"error"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetManga(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "",
		WithRetryPolicy(5, time.Hour),
		WithRateLimit(1000, 100),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetCovers(ctx, url.Values{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseVolumeNumber(t *testing.T) {
	s := func(v string) *string { return &v }

	tests := []struct {
		name string
		in   *string
		want *float64
	}{
		{"nil", nil, nil},
		{"empty", s(""), nil},
		{"integer", s("3"), floatPtr(3)},
		{"fractional", s("13.1"), floatPtr(13.1)},
		{"padded", s(" 2 "), floatPtr(2)},
		{"word", s("none"), nil},
		{"range", s("1-2"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVolumeNumber(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestPreferredTitleFallbacks(t *testing.T) {
	assert.Equal(t, "English", PreferredTitle(MangaAttributes{
		Title: map[string]string{"en": "English", "ja-ro": "Romaji"},
	}))
	assert.Equal(t, "Alt English", PreferredTitle(MangaAttributes{
		Title:     map[string]string{"ja-ro": "Romaji"},
		AltTitles: []map[string]string{{"ja": "日本"}, {"en": "Alt English"}},
	}))
	assert.Equal(t, "Romaji", PreferredTitle(MangaAttributes{
		Title: map[string]string{"ja-ro": "Romaji", "pt-br": "Português"},
	}))
	assert.Equal(t, "Português", PreferredTitle(MangaAttributes{
		Title: map[string]string{"pt-br": "Português"},
	}))
	assert.Equal(t, "Untitled", PreferredTitle(MangaAttributes{}))
}

func TestPreferredDescriptionOrder(t *testing.T) {
	assert.Equal(t, "pt", PreferredDescription(MangaAttributes{
		Description: map[string]string{"en": "en", "pt-br": "pt"},
	}))
	assert.Equal(t, "en", PreferredDescription(MangaAttributes{
		Description: map[string]string{"en": "en", "ja-ro": "ro"},
	}))
	assert.Equal(t, "No description available", PreferredDescription(MangaAttributes{}))
}

func TestCoverURL(t *testing.T) {
	assert.Equal(t,
		"https://uploads.mangadex.org/covers/m1/abc.jpg.512.jpg",
		CoverURL("m1", "abc.jpg"))
}

func floatPtr(f float64) *float64 {
	return &f
}
