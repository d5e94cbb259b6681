package models

import (
	"testing"
)

func TestCrawlStatusTransitions(t *testing.T) {
	tests := []struct {
		from CrawlStatus
		to   CrawlStatus
		ok   bool
	}{
		{CrawlStatusPending, CrawlStatusInProgress, true},
		{CrawlStatusPending, CrawlStatusCancelled, true},
		{CrawlStatusInProgress, CrawlStatusCompleted, true},
		{CrawlStatusInProgress, CrawlStatusFailed, true},
		{CrawlStatusInProgress, CrawlStatusCancelled, true},
		{CrawlStatusCompleted, CrawlStatusPending, false},
		{CrawlStatusCompleted, CrawlStatusCancelled, false},
		{CrawlStatusFailed, CrawlStatusInProgress, false},
		{CrawlStatusCancelled, CrawlStatusInProgress, false},
		{CrawlStatusPending, CrawlStatusCompleted, false},
		{CrawlStatusPending, CrawlStatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}
