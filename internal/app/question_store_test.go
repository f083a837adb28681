package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"daily-riddle-bot/internal/app"
	"daily-riddle-bot/internal/domain"
	"daily-riddle-bot/internal/infra/codec"
	"daily-riddle-bot/internal/infra/memory"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk unavailable")

type brokenQuestions struct{}

func (brokenQuestions) LoadQuestions(context.Context) ([]domain.QuestionRecord, error) {
	return nil, errDisk
}

func (brokenQuestions) SaveQuestions(context.Context, []domain.QuestionRecord) error {
	return errDisk
}

type readOnlyQuestions struct{ *memory.QuestionRepository }

func (readOnlyQuestions) SaveQuestions(context.Context, []domain.QuestionRecord) error {
	return errDisk
}

func newStore(seed ...domain.QuestionRecord) (*app.QuestionStore, *memory.QuestionRepository) {
	repo := memory.NewQuestionRepository(seed...)
	return app.NewQuestionStore(repo, memory.NewUsedSet(), nil, app.QuestionStoreOptions{RejectDuplicates: true}), repo
}

func mustDate(t *testing.T, raw string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestSubmitAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(domain.QuestionRecord{ID: "4", Text: "Seeded"})

	first, err := store.Submit(ctx, domain.SubmitRequest{Text: "  What has keys\nbut no locks? ", SubmitterID: "u1", Answer: " piano "})
	require.NoError(t, err)
	require.Equal(t, "5", first.ID)
	require.Equal(t, "What has keys but no locks?", first.Text)
	require.Equal(t, "piano", first.Answer)

	second, err := store.Submit(ctx, domain.SubmitRequest{Text: "Another"})
	require.NoError(t, err)
	require.Equal(t, "6", second.ID)

	list := store.List(ctx)
	require.Len(t, list, 3)
	require.Equal(t, []string{"4", "5", "6"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestSubmitRejectsDuplicatesAfterNormalization(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	_, err := store.Submit(ctx, domain.SubmitRequest{Text: "What is  BLUE?"})
	require.NoError(t, err)

	_, err = store.Submit(ctx, domain.SubmitRequest{Text: "what is blue ?"})
	require.ErrorIs(t, err, domain.ErrDuplicateQuestion)
	require.Len(t, store.List(ctx), 1)
}

func TestSubmitAllowsDuplicatesWhenDisabled(t *testing.T) {
	ctx := context.Background()
	store := app.NewQuestionStore(memory.NewQuestionRepository(), memory.NewUsedSet(), nil, app.QuestionStoreOptions{})

	for i := 0; i < 2; i++ {
		if _, err := store.Submit(ctx, domain.SubmitRequest{Text: "same"}); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
	}
	require.Len(t, store.List(ctx), 2)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	cases := map[string]domain.SubmitRequest{
		"empty text":   {Text: "   \n "},
		"one choice":   {Text: "Pick", Choices: []string{"only"}},
		"five choices": {Text: "Pick", Choices: []string{"a", "b", "c", "d", "e"}},
		"blank choice": {Text: "Pick", Choices: []string{"a", " "}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := store.Submit(ctx, req)
			require.ErrorIs(t, err, domain.ErrInvalidQuestion)
		})
	}
	require.Empty(t, store.List(ctx))
}

func TestRemoveDoesNotReuseIDWithinProcess(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	a, _ := store.Submit(ctx, domain.SubmitRequest{Text: "A"})
	b, _ := store.Submit(ctx, domain.SubmitRequest{Text: "B"})

	removed, err := store.Remove(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "B", removed.Text)

	c, err := store.Submit(ctx, domain.SubmitRequest{Text: "C"})
	require.NoError(t, err)
	require.Equal(t, "3", c.ID)

	list := store.List(ctx)
	require.Equal(t, []string{a.ID, c.ID}, []string{list[0].ID, list[1].ID})
}

func TestRemoveUnknownID(t *testing.T) {
	store, _ := newStore(domain.QuestionRecord{ID: "1", Text: "A"})
	_, err := store.Remove(context.Background(), "9")
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)
	require.Len(t, store.List(context.Background()), 1)
}

func TestSelectForDay(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(
		domain.QuestionRecord{ID: "1", Text: "Q1"},
		domain.QuestionRecord{ID: "2", Text: "Q2"},
	)
	start := mustDate(t, "2025-01-01")

	cases := []struct {
		date      string
		want      string
		remaining int
	}{
		{"2024-12-30", "Q1", 1},
		{"2025-01-01", "Q1", 1},
		{"2025-01-02", "Q2", 0},
		{"2025-01-03", "Q2", 0},
		{"2026-06-01", "Q2", 0},
	}
	for _, tc := range cases {
		q, remaining, err := store.SelectForDay(ctx, mustDate(t, tc.date), start)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.date, err)
		}
		if q.Text != tc.want || remaining != tc.remaining {
			t.Fatalf("%s: expected %s (%d remaining), got %s (%d)", tc.date, tc.want, tc.remaining, q.Text, remaining)
		}
	}
}

func TestSelectForDayEmptyQueue(t *testing.T) {
	store, _ := newStore()
	_, _, err := store.SelectForDay(context.Background(), mustDate(t, "2025-01-01"), mustDate(t, "2025-01-01"))
	require.ErrorIs(t, err, domain.ErrEmptyQueue)

	_, err = app.SelectForDay(nil, mustDate(t, "2025-01-01"), mustDate(t, "2025-01-01"))
	require.ErrorIs(t, err, domain.ErrEmptyQueue)
}

func TestPickNextUnusedCyclesThroughQueue(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(
		domain.QuestionRecord{ID: "1", Text: "A"},
		domain.QuestionRecord{ID: "2", Text: "B"},
		domain.QuestionRecord{ID: "3", Text: "C"},
	)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		q, remaining, err := store.PickNextUnused(ctx)
		require.NoError(t, err)
		require.False(t, seen[q.ID], "question %s drawn twice in one cycle", q.ID)
		require.Equal(t, 2-i, remaining)
		seen[q.ID] = true
	}

	unused, err := store.CountUnused(ctx)
	require.NoError(t, err)
	require.Zero(t, unused)

	// exhausted: the cycle restarts instead of failing
	_, remaining, err := store.PickNextUnused(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, remaining)
}

func TestPickNextUnusedEmptyQueue(t *testing.T) {
	store, _ := newStore()
	_, _, err := store.PickNextUnused(context.Background())
	require.ErrorIs(t, err, domain.ErrEmptyQueue)
}

func TestPickNextUnusedSkipsRowsWithoutID(t *testing.T) {
	legacy, err := codec.DecodeQuestions([]byte(`[{"question": "legacy riddle without id"}]`))
	require.NoError(t, err)
	require.Len(t, legacy, 1)
	require.Empty(t, legacy[0].ID)

	store, _ := newStore(legacy...)
	require.NotPanics(t, func() {
		_, _, err = store.PickNextUnused(context.Background())
	})
	require.ErrorIs(t, err, domain.ErrEmptyQueue)

	unused, err := store.CountUnused(context.Background())
	require.NoError(t, err)
	require.Zero(t, unused)
}

func TestQuestionReadsFailOpen(t *testing.T) {
	ctx := context.Background()
	store := app.NewQuestionStore(brokenQuestions{}, memory.NewUsedSet(), nil, app.QuestionStoreOptions{})

	require.Empty(t, store.List(ctx))
	_, _, err := store.SelectForDay(ctx, mustDate(t, "2025-01-01"), mustDate(t, "2025-01-01"))
	require.ErrorIs(t, err, domain.ErrEmptyQueue)

	_, err = store.Submit(ctx, domain.SubmitRequest{Text: "x"})
	require.ErrorIs(t, err, domain.ErrPersistence)
}

func TestSubmitSaveFailureIsNotSuccess(t *testing.T) {
	ctx := context.Background()
	repo := readOnlyQuestions{memory.NewQuestionRepository()}
	store := app.NewQuestionStore(repo, memory.NewUsedSet(), nil, app.QuestionStoreOptions{})

	_, err := store.Submit(ctx, domain.SubmitRequest{Text: "x"})
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.Empty(t, store.List(ctx))
}

func TestConcurrentSubmitsKeepEveryQuestion(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Submit(ctx, domain.SubmitRequest{Text: fmt.Sprintf("riddle %d", i)}); err != nil {
				t.Errorf("submit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	list := store.List(ctx)
	require.Len(t, list, n)
	ids := map[string]bool{}
	for _, q := range list {
		require.False(t, ids[q.ID], "duplicate id %s", q.ID)
		ids[q.ID] = true
	}
}
