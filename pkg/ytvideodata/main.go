package ytvideodata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrVideoNotFound         = errors.New("video not found")
	ErrVideoNotEmbeddable    = errors.New("video is not embeddable")
	ErrInvalidVideoReference = errors.New("invalid video reference")
	defaultClient            = NewClient(&http.Client{Timeout: 10 * time.Second})
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

type Client struct {
	httpClient *http.Client
	oembedURL  string
	pageURL    string
}

func NewClient(httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		oembedURL:  "https://www.youtube.com/oembed",
		pageURL:    "https://youtu.be/",
	}
}

// WithBaseURLs points the client at other hosts, used by tests.
func (c *Client) WithBaseURLs(oembedURL, pageURL string) *Client {
	c.oembedURL = oembedURL
	c.pageURL = pageURL
	return c
}

func (c *Client) Get(ctx context.Context, videoId string) (*VideoData, error) {
	videoData, err := c.getVideoWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = c.getFromPage(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}

func Get(ctx context.Context, videoId string) (*VideoData, error) {
	return defaultClient.Get(ctx, videoId)
}
