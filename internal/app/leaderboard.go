package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"daily-riddle-bot/internal/domain"
)

// DefaultPageSize is the number of rows on one leaderboard or question-list page.
const DefaultPageSize = 10

// Leaderboard ranks the ledger snapshot.
type Leaderboard struct {
	ledger *PointLedger
	now    func() time.Time
}

func NewLeaderboard(ledger *PointLedger) *Leaderboard {
	return &Leaderboard{ledger: ledger, now: time.Now}
}

// Rank returns every user with a non-zero metric for category, best first.
func (b *Leaderboard) Rank(ctx context.Context, category domain.Category) ([]domain.LeaderboardEntry, error) {
	scores, err := b.ledger.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return RankEntries(scores, category), nil
}

// Page returns one zero-indexed page of the ranking for category.
func (b *Leaderboard) Page(ctx context.Context, category domain.Category, page, size int) (domain.LeaderboardPage, error) {
	entries, err := b.Rank(ctx, category)
	if err != nil {
		return domain.LeaderboardPage{}, err
	}
	out := Paginate(entries, page, size)
	out.Category = category
	out.UpdatedAt = b.now()
	return out, nil
}

// RankEntries filters zero metrics, sorts by metric descending and breaks ties by ascending user ID.
func RankEntries(scores map[string]domain.UserScore, category domain.Category) []domain.LeaderboardEntry {
	maxTotal := MaxTotal(scores)
	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for userID, s := range scores {
		entry := domain.LeaderboardEntry{
			UserID:       userID,
			Insight:      s.InsightPoints,
			Contribution: s.ContributionPoints,
			Total:        s.Total(),
			Streak:       s.Streak,
			Rank:         RankFor(s.Total(), s.Streak, maxTotal).Label,
		}
		if entry.Metric(category) == 0 {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		mi, mj := entries[i].Metric(category), entries[j].Metric(category)
		if mi != mj {
			return mi > mj
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// Paginate slices entries into a page. The index is clamped to the valid range and
// an empty ranking still has one (empty) page.
func Paginate(entries []domain.LeaderboardEntry, page, size int) domain.LeaderboardPage {
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := PageCount(len(entries), size)
	page = ClampPage(page, totalPages)
	start := page * size
	end := start + size
	if end > len(entries) {
		end = len(entries)
	}
	return domain.LeaderboardPage{
		Page:       page,
		TotalPages: totalPages,
		Entries:    append([]domain.LeaderboardEntry{}, entries[start:end]...),
	}
}

// PageCount is ceil(n/size), at least 1.
func PageCount(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage keeps page inside [0, totalPages-1].
func ClampPage(page, totalPages int) int {
	if page < 0 {
		return 0
	}
	if page > totalPages-1 {
		return totalPages - 1
	}
	return page
}

// LeaderboardFeed fans out the overall ranking to live subscribers.
type LeaderboardFeed struct {
	now         func() time.Time
	mu          sync.Mutex
	latest      domain.LeaderboardPage
	subscribers map[chan domain.LeaderboardPage]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		now:         time.Now,
		latest:      domain.LeaderboardPage{Category: domain.CategoryAll, TotalPages: 1, Entries: []domain.LeaderboardEntry{}},
		subscribers: make(map[chan domain.LeaderboardPage]struct{}),
	}
}

// Publish ranks scores and pushes the first page to every subscriber.
func (f *LeaderboardFeed) Publish(scores map[string]domain.UserScore) {
	page := Paginate(RankEntries(scores, domain.CategoryAll), 0, DefaultPageSize)
	page.Category = domain.CategoryAll

	f.mu.Lock()
	defer f.mu.Unlock()
	page.UpdatedAt = f.now()
	f.latest = page
	for ch := range f.subscribers {
		select {
		case ch <- page:
		default:
			// slow subscriber: replace its stale update
			select {
			case <-ch:
			default:
			}
			ch <- page
		}
	}
}

// Subscribe returns a channel primed with the latest ranking.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe() (<-chan domain.LeaderboardPage, func()) {
	ch := make(chan domain.LeaderboardPage, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	ch <- f.latest
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Prime seeds the latest ranking without notifying subscribers.
func (f *LeaderboardFeed) Prime(scores map[string]domain.UserScore) {
	page := Paginate(RankEntries(scores, domain.CategoryAll), 0, DefaultPageSize)
	page.Category = domain.CategoryAll
	f.mu.Lock()
	page.UpdatedAt = f.now()
	f.latest = page
	f.mu.Unlock()
}
