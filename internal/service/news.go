package service

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
)

const maxNewsEntries = 5

// NewsFeed is the project news feed trimmed to its newest entries.
type NewsFeed struct {
	Title   string      `json:"title"`
	Entries []NewsEntry `json:"entries"`
}

// NewsEntry is one item from the project news feed.
type NewsEntry struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
}

// News fetches the project Atom feed and returns its title and newest
// entries.
func (s *Service) News(ctx context.Context) (*NewsFeed, error) {
	feed, err := gofeed.NewParser().ParseURLWithContext(s.newsFeedURL, ctx)
	if err != nil {
		return nil, &domain.DependencyError{Op: "fetch news feed", Err: err}
	}
	entries := make([]NewsEntry, 0, maxNewsEntries)
	for _, item := range feed.Items {
		if len(entries) == maxNewsEntries {
			break
		}
		entry := NewsEntry{Title: item.Title, Link: item.Link, Summary: item.Description}
		if item.PublishedParsed != nil {
			entry.Published = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else {
			entry.Published = item.Published
		}
		entries = append(entries, entry)
	}
	return &NewsFeed{Title: feed.Title, Entries: entries}, nil
}
