package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}

	for _, tt := range tests {
		got, err := ParseVideoID(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestParseVideoIDInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"hello",
		"https://vimeo.com/123456",
		"https://www.youtube.com/watch?v=short",
		"https://www.youtube.com/channel/UC123",
	} {
		_, err := ParseVideoID(raw)
		assert.ErrorIs(t, err, ErrInvalidVideoReference, raw)
	}
}

func TestGetWithEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.URL.Query().Get("url"))
		w.Write([]byte(`{"title":"Never Gonna Give You Up","author_name":"Rick Astley"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client()).WithBaseURLs(srv.URL, srv.URL+"/page/")
	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", data.Title)
	assert.Equal(t, "Rick Astley", data.AuthorName)
}

func TestGetFallsBackToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Private Song - YouTube</title>` +
			`<link itemprop="name" content="Some Author"></head><body></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.Client()).WithBaseURLs(srv.URL+"/oembed", srv.URL+"/page/")
	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Private Song", data.Title)
	assert.Equal(t, "Some Author", data.AuthorName)
	assert.Contains(t, data.ThumbnailUrl, "dQw4w9WgXcQ")
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.Client()).WithBaseURLs(srv.URL, srv.URL+"/page/")
	_, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
