package youtube

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/yanqian/rihla/internal/domain/enrichment"
	"github.com/yanqian/rihla/internal/domain/generation"
)

// Options configures the YouTube Data API client.
type Options struct {
	APIKey   string
	Endpoint string
}

// Client searches medium-length videos. Without an API key every search
// returns an empty list.
type Client struct {
	svc *yt.Service
}

// NewClient builds the client. An empty key yields a disabled client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return &Client{}, nil
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c.svc != nil
}

// Search implements enrichment.VideoSearcher.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]generation.Video, error) {
	if c.svc == nil {
		return []generation.Video{}, nil
	}
	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(int64(maxResults)).
		Type("video").
		VideoDuration("medium").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	videos := make([]generation.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		video := generation.Video{
			ID:      item.Id.VideoId,
			Title:   item.Snippet.Title,
			Channel: item.Snippet.ChannelTitle,
		}
		if thumbs := item.Snippet.Thumbnails; thumbs != nil {
			switch {
			case thumbs.Medium != nil:
				video.Thumbnail = thumbs.Medium.Url
			case thumbs.Default != nil:
				video.Thumbnail = thumbs.Default.Url
			}
		}
		videos = append(videos, video)
	}
	return videos, nil
}

var _ enrichment.VideoSearcher = (*Client)(nil)
