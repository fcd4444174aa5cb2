package domain

import (
	"context"
	"testing"
	"time"

	"github.com/assetsmith/assetsmith/internal/history"
)

type fakeHistoryReader struct {
	records []history.Record
	err     error
}

func (f *fakeHistoryReader) Recent(_ context.Context, limit int) ([]history.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func TestListRecentJobsHandler(t *testing.T) {
	reader := &fakeHistoryReader{records: []history.Record{
		{
			JobID:          "job-2",
			Prompt:         "a sword",
			GenerationType: "CREATE",
			Status:         "COMPLETE",
			OutputPath:     "/tmp/sword.png",
			ElapsedMS:      34000,
			CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{JobID: "job-1", Prompt: "a wall", GenerationType: "CREATE", Status: "TIMEOUT"},
	}}
	handler := ListRecentJobsHandler(reader)

	_, result, err := handler(context.Background(), nil, ListRecentJobsInput{})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(result.Jobs) != 2 {
		t.Fatalf("Jobs = %d, want 2", len(result.Jobs))
	}
	if result.Jobs[0].ElapsedSeconds != 34 {
		t.Fatalf("ElapsedSeconds = %d, want 34", result.Jobs[0].ElapsedSeconds)
	}
	if result.Jobs[0].CreatedAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("CreatedAt = %q", result.Jobs[0].CreatedAt)
	}
}

func TestListRecentJobsHandlerWithoutLedger(t *testing.T) {
	handler := ListRecentJobsHandler(nil)

	_, result, err := handler(context.Background(), nil, ListRecentJobsInput{})
	if err != nil {
		t.Fatalf("handler error = %v, failures must come back structured", err)
	}
	if result.Error == nil || result.Error.Classification != "storage" {
		t.Fatalf("result.Error = %+v, want storage classification", result.Error)
	}
}

func TestGeneratePromptHandlerRequiresBasePrompt(t *testing.T) {
	handler := GeneratePromptHandler(fakePrompter{}, "ws-1")

	_, result, err := handler(context.Background(), nil, GeneratePromptInput{BasePrompt: "   "})
	if err != nil {
		t.Fatalf("handler error = %v, failures must come back structured", err)
	}
	if result.Error == nil || result.Error.Classification != "validation" {
		t.Fatalf("result.Error = %+v, want validation classification", result.Error)
	}
}

type fakePrompter struct{}

func (fakePrompter) GeneratePrompt(_ context.Context, _, basePrompt, assetType string) (string, error) {
	return basePrompt + " in " + assetType + " style", nil
}

func TestGeneratePromptHandlerDefaultsAssetType(t *testing.T) {
	handler := GeneratePromptHandler(fakePrompter{}, "ws-1")

	_, result, err := handler(context.Background(), nil, GeneratePromptInput{BasePrompt: "a shield"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if result.Prompt != "a shield in PROP style" {
		t.Fatalf("Prompt = %q", result.Prompt)
	}
}
