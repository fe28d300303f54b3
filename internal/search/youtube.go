package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Video is the metadata the analysis pipeline needs about one YouTube video.
type Video struct {
	ID           string
	URL          string
	Title        string
	ChannelTitle string
	Description  string
	PublishedAt  time.Time
	ViewCount    int64
	Duration     time.Duration
}

// Provider finds candidate videos for a query spec. The production
// implementation is the YouTube Data API; tests stub it.
type Provider interface {
	SearchAndFilter(ctx context.Context, query, dateFilter string, minViews int, maxResults int) ([]Video, error)
	GetVideoByURL(ctx context.Context, videoURL string) (*Video, error)
}

var ErrVideoNotFound = errors.New("video not found")

type ClientConfig struct {
	APIKey             string
	BaseURL            string
	Timeout            time.Duration
	SearchMaxResults   int
	MinDurationMinutes int
	MaxDurationMinutes int
	HTTPClient         *http.Client
}

// Client is a thin YouTube Data API v3 client covering search and video
// statistics lookups.
type Client struct {
	apiKey           string
	baseURL          string
	searchMaxResults int
	minDuration      time.Duration
	maxDuration      time.Duration
	httpClient       *http.Client
}

func NewClient(config ClientConfig) *Client {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.SearchMaxResults <= 0 {
		config.SearchMaxResults = 50
	}
	if config.MinDurationMinutes <= 0 {
		config.MinDurationMinutes = 10
	}
	if config.MaxDurationMinutes <= 0 {
		config.MaxDurationMinutes = 150
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		apiKey:           strings.TrimSpace(config.APIKey),
		baseURL:          strings.TrimSuffix(config.BaseURL, "/"),
		searchMaxResults: config.SearchMaxResults,
		minDuration:      time.Duration(config.MinDurationMinutes) * time.Minute,
		maxDuration:      time.Duration(config.MaxDurationMinutes) * time.Minute,
		httpClient:       config.HTTPClient,
	}
}

func (c *Client) Available() bool {
	return c.apiKey != ""
}

// SearchAndFilter searches by relevance inside the date window, then keeps
// only videos above the view threshold and inside the duration band.
func (c *Client) SearchAndFilter(
	ctx context.Context,
	query, dateFilter string,
	minViews int,
	maxResults int,
) ([]Video, error) {
	if !c.Available() {
		return nil, errors.New("youtube api key not configured")
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	ids, err := c.searchVideoIDs(ctx, query, dateFilter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Video{}, nil
	}

	videos, err := c.fetchVideos(ctx, ids)
	if err != nil {
		return nil, err
	}

	filtered := make([]Video, 0, maxResults)
	for _, video := range videos {
		if video.ViewCount < int64(minViews) {
			continue
		}
		if video.Duration < c.minDuration || video.Duration > c.maxDuration {
			continue
		}
		filtered = append(filtered, video)
		if len(filtered) == maxResults {
			break
		}
	}
	return filtered, nil
}

func (c *Client) GetVideoByURL(ctx context.Context, videoURL string) (*Video, error) {
	if !c.Available() {
		return nil, errors.New("youtube api key not configured")
	}

	videoID := ExtractVideoID(videoURL)
	if videoID == "" {
		return nil, fmt.Errorf("%w: unrecognized url %q", ErrVideoNotFound, videoURL)
	}

	videos, err := c.fetchVideos(ctx, []string{videoID})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrVideoNotFound
	}
	return &videos[0], nil
}

func (c *Client) searchVideoIDs(ctx context.Context, query, dateFilter string) ([]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("q", query)
	params.Set("publishedAfter", PublishedAfter(dateFilter, time.Now().UTC()).Format(time.RFC3339))
	params.Set("maxResults", strconv.Itoa(c.searchMaxResults))
	params.Set("key", c.apiKey)

	var response struct {
		Items []struct {
			ID struct {
				Kind    string `json:"kind"`
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, "/search", params, &response); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID.Kind == "youtube#video" && item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

func (c *Client) fetchVideos(ctx context.Context, ids []string) ([]Video, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics,contentDetails")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", c.apiKey)

	var response struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title        string    `json:"title"`
				ChannelTitle string    `json:"channelTitle"`
				Description  string    `json:"description"`
				PublishedAt  time.Time `json:"publishedAt"`
			} `json:"snippet"`
			Statistics struct {
				ViewCount string `json:"viewCount"`
			} `json:"statistics"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, "/videos", params, &response); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(response.Items))
	for _, item := range response.Items {
		viewCount, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		videos = append(videos, Video{
			ID:           item.ID,
			URL:          "https://www.youtube.com/watch?v=" + item.ID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Description:  item.Snippet.Description,
			PublishedAt:  item.Snippet.PublishedAt,
			ViewCount:    viewCount,
			Duration:     ParseISODuration(item.ContentDetails.Duration),
		})
	}
	return videos, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, value any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create youtube request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("youtube transport error: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read youtube response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 500 {
			message = message[:500]
		}
		return fmt.Errorf("youtube status %d: %s", response.StatusCode, message)
	}
	if err := json.Unmarshal(body, value); err != nil {
		return fmt.Errorf("decode youtube response: %w", err)
	}
	return nil
}

// PublishedAfter maps a free-form date filter onto the search window start.
// Unrecognized filters fall back to the last 24 hours.
func PublishedAfter(dateFilter string, now time.Time) time.Time {
	switch strings.ToLower(strings.TrimSpace(dateFilter)) {
	case "week", "this week", "last week":
		return now.AddDate(0, 0, -7)
	case "month", "this month", "last month":
		return now.AddDate(0, 0, -30)
	case "year", "this year", "last year":
		return now.AddDate(0, 0, -365)
	default:
		return now.AddDate(0, 0, -1)
	}
}

var (
	watchIDPattern     = regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`)
	shortIDPattern     = regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`)
	isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
)

// ExtractVideoID pulls the video id out of watch and short-link URLs.
func ExtractVideoID(videoURL string) string {
	if match := watchIDPattern.FindStringSubmatch(videoURL); match != nil {
		return match[1]
	}
	if match := shortIDPattern.FindStringSubmatch(videoURL); match != nil {
		return match[1]
	}
	return ""
}

// ParseISODuration converts the API's ISO 8601 durations (PT1H30M15S) into a
// time.Duration. Malformed input yields zero.
func ParseISODuration(value string) time.Duration {
	match := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return 0
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
}
