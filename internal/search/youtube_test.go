package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":  "dQw4w9WgXcQ",
		"https://youtube.com/watch?list=x&v=abc123def": "abc123def",
		"https://youtu.be/abc123def":                   "abc123def",
		"https://example.com/watch?x=1":                "",
		"not a url":                                    "",
	}
	for input, want := range cases {
		if got := ExtractVideoID(input); got != want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseISODuration(t *testing.T) {
	cases := map[string]time.Duration{
		"PT1H30M15S": time.Hour + 30*time.Minute + 15*time.Second,
		"PT12M":      12 * time.Minute,
		"PT45S":      45 * time.Second,
		"garbage":    0,
	}
	for input, want := range cases {
		if got := ParseISODuration(input); got != want {
			t.Fatalf("ParseISODuration(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestPublishedAfterWindows(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := PublishedAfter("week", now); !got.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("week window wrong: %v", got)
	}
	if got := PublishedAfter("something else", now); !got.Equal(now.AddDate(0, 0, -1)) {
		t.Fatalf("expected 24h fallback, got %v", got)
	}
}

func TestSearchAndFilterAppliesViewAndDurationFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(`{"items":[
				{"id":{"kind":"youtube#video","videoId":"keep1"}},
				{"id":{"kind":"youtube#video","videoId":"lowviews"}},
				{"id":{"kind":"youtube#video","videoId":"tooshort"}}
			]}`))
		case "/videos":
			w.Write([]byte(`{"items":[
				{"id":"keep1","snippet":{"title":"Keeper","channelTitle":"chan"},
					"statistics":{"viewCount":"90000"},"contentDetails":{"duration":"PT22M"}},
				{"id":"lowviews","snippet":{"title":"Quiet","channelTitle":"chan"},
					"statistics":{"viewCount":"120"},"contentDetails":{"duration":"PT30M"}},
				{"id":"tooshort","snippet":{"title":"Short","channelTitle":"chan"},
					"statistics":{"viewCount":"500000"},"contentDetails":{"duration":"PT2M"}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	videos, err := client.SearchAndFilter(context.Background(), "ai news", "24 hours", 5000, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != "keep1" {
		t.Fatalf("expected only keep1 to survive the filters, got %+v", videos)
	}
	if videos[0].URL != "https://www.youtube.com/watch?v=keep1" {
		t.Fatalf("unexpected url %q", videos[0].URL)
	}
}

func TestGetVideoByURLUnknownVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	if _, err := client.GetVideoByURL(context.Background(), "https://youtu.be/missing1"); err == nil {
		t.Fatalf("expected error for unknown video")
	}
}
