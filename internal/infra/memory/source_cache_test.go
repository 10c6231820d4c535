package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kamass93/quiz-bot/internal/domain"
)

func TestCachedSourceAvoidsRepeatedReads(t *testing.T) {
	ctx := context.Background()
	loader := &countingSource{
		categories: []string{"general"},
		questions:  map[string][]domain.Question{"general": {{Category: "general", Text: "2+2?", Answer: "4"}}},
	}
	cached := NewCachedSource(loader, time.Minute)

	if _, err := cached.Categories(ctx); err != nil {
		t.Fatalf("categories: %v", err)
	}
	if _, err := cached.Categories(ctx); err != nil {
		t.Fatalf("categories again: %v", err)
	}
	if loader.categoryCalls != 1 {
		t.Fatalf("expected one underlying read, got %d", loader.categoryCalls)
	}

	if _, err := cached.QuestionsFor(ctx, "general"); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if _, err := cached.QuestionsFor(ctx, "general"); err != nil {
		t.Fatalf("questions again: %v", err)
	}
	if loader.questionCalls != 1 {
		t.Fatalf("expected one underlying read, got %d", loader.questionCalls)
	}
}

func TestCachedSourceExpires(t *testing.T) {
	ctx := context.Background()
	loader := &countingSource{categories: []string{"general"}}
	cached := NewCachedSource(loader, time.Minute)

	now := time.Now()
	cached.clock = func() time.Time { return now }

	if _, err := cached.Categories(ctx); err != nil {
		t.Fatalf("categories: %v", err)
	}

	// Jitter adds at most 10%, so two minutes is safely past expiry.
	now = now.Add(2 * time.Minute)
	if _, err := cached.Categories(ctx); err != nil {
		t.Fatalf("categories after expiry: %v", err)
	}
	if loader.categoryCalls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", loader.categoryCalls)
	}
}

type countingSource struct {
	categories    []string
	questions     map[string][]domain.Question
	categoryCalls int
	questionCalls int
}

func (s *countingSource) Categories(_ context.Context) ([]string, error) {
	s.categoryCalls++
	return s.categories, nil
}

func (s *countingSource) QuestionsFor(_ context.Context, category string) ([]domain.Question, error) {
	s.questionCalls++
	return s.questions[category], nil
}
