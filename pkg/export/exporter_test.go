package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/stash-scene-export/internal/testutil"
)

// fakeReader serves a fixed catalog and records every call.
type fakeReader struct {
	scenes []string

	calls     []int // page indexes, in call order
	countFor  func(page, realCount int) int
	emptyPage int
	err       error
}

func (f *fakeReader) FindScenes(ctx context.Context, pageSize, page int) ([]json.RawMessage, int, error) {
	f.calls = append(f.calls, page)

	if f.err != nil {
		return nil, 0, f.err
	}

	count := len(f.scenes)
	if f.countFor != nil {
		count = f.countFor(page, count)
	}

	if f.emptyPage != 0 && page == f.emptyPage {
		return nil, count, nil
	}

	start := pageSize * (page - 1)
	end := start + pageSize
	if start > len(f.scenes) {
		start = len(f.scenes)
	}
	if end > len(f.scenes) {
		end = len(f.scenes)
	}

	out := make([]json.RawMessage, 0, end-start)
	for _, s := range f.scenes[start:end] {
		out = append(out, json.RawMessage(s))
	}
	return out, count, nil
}

func newExtractor(t *testing.T, reader SceneReader, cfg Config) *Extractor {
	t.Helper()

	ex, err := New(reader, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return ex
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		reader      SceneReader
		config      Config
		expectError bool
	}{
		{
			name:   "valid",
			reader: &fakeReader{},
			config: DefaultConfig(),
		},
		{
			name:        "nil reader",
			reader:      nil,
			config:      DefaultConfig(),
			expectError: true,
		},
		{
			name:        "zero page size",
			reader:      &fakeReader{},
			config:      Config{PageSize: 0},
			expectError: true,
		},
		{
			name:        "negative page size",
			reader:      &fakeReader{},
			config:      Config{PageSize: -5},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.reader, tt.config)
			if tt.expectError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestRun_FetchCountMatchesPageMath(t *testing.T) {
	tests := []struct {
		name        string
		totalScenes int
		pageSize    int
		wantFetches int
	}{
		{name: "empty catalog", totalScenes: 0, pageSize: 120, wantFetches: 1},
		{name: "single partial page", totalScenes: 30, pageSize: 120, wantFetches: 1},
		{name: "exactly one page", totalScenes: 120, pageSize: 120, wantFetches: 1},
		{name: "one scene over", totalScenes: 121, pageSize: 120, wantFetches: 2},
		{name: "one and a half pages", totalScenes: 150, pageSize: 120, wantFetches: 2},
		{name: "exact multiple", totalScenes: 240, pageSize: 120, wantFetches: 2},
		{name: "many small pages", totalScenes: 17, pageSize: 5, wantFetches: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{scenes: testutil.Scenes(tt.totalScenes)}
			ex := newExtractor(t, reader, Config{PageSize: tt.pageSize})

			records, err := ex.Run(context.Background())
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if len(reader.calls) != tt.wantFetches {
				t.Errorf("Expected %d fetches, got %d (%v)", tt.wantFetches, len(reader.calls), reader.calls)
			}

			if len(records) != tt.totalScenes {
				t.Errorf("Expected %d records, got %d", tt.totalScenes, len(records))
			}

			// Each page index requested exactly once, in order.
			for i, page := range reader.calls {
				if page != i+1 {
					t.Errorf("Call %d requested page %d", i, page)
				}
			}
		})
	}
}

func TestRun_EmptyCatalog(t *testing.T) {
	reader := &fakeReader{}
	ex := newExtractor(t, reader, DefaultConfig())

	var progress []float64
	ex.config.Progress = func(f float64) { progress = append(progress, f) }

	records, err := ex.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if records != nil {
		t.Errorf("Expected nil result for empty catalog, got %d records", len(records))
	}

	if len(progress) != 0 {
		t.Errorf("Expected no progress updates, got %d", len(progress))
	}
}

func TestRun_PreservesServerOrder(t *testing.T) {
	reader := &fakeReader{scenes: testutil.Scenes(150)}
	ex := newExtractor(t, reader, Config{PageSize: 120})

	records, err := ex.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(records) != 150 {
		t.Fatalf("Expected 150 records, got %d", len(records))
	}

	for i, rec := range records {
		want := fmt.Sprintf("%d", i+1)
		if rec.ID != want {
			t.Fatalf("Record %d has ID %q, expected %q", i, rec.ID, want)
		}
	}
}

func TestRun_ProgressMonotonicEndsAtOne(t *testing.T) {
	reader := &fakeReader{scenes: testutil.Scenes(47)}

	var progress []float64
	ex := newExtractor(t, reader, Config{
		PageSize: 10,
		Progress: func(f float64) { progress = append(progress, f) },
	})

	if _, err := ex.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(progress) != 47 {
		t.Fatalf("Expected one progress update per scene (47), got %d", len(progress))
	}

	for i, f := range progress {
		if f < 0 || f > 1 {
			t.Errorf("Progress %d = %f out of [0, 1]", i, f)
		}
		if i > 0 && f < progress[i-1] {
			t.Errorf("Progress decreased at %d: %f -> %f", i, progress[i-1], f)
		}
	}

	final := progress[len(progress)-1]
	if final < 0.9999 || final > 1.0001 {
		t.Errorf("Expected final progress 1.0, got %f", final)
	}
}

func TestRun_SkipsMalformedScenes(t *testing.T) {
	scenes := testutil.Scenes(5)
	scenes[2] = `{"id":"303","title":"broken","files":[],"paths":{"sprite":""}}`
	reader := &fakeReader{scenes: scenes}

	var progress []float64
	ex := newExtractor(t, reader, Config{
		PageSize:  120,
		Malformed: SkipMalformed,
		Progress:  func(f float64) { progress = append(progress, f) },
	})

	records, err := ex.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("Expected 4 records after skipping, got %d", len(records))
	}

	for _, rec := range records {
		if rec.ID == "303" {
			t.Error("Skipped scene present in result")
		}
	}

	// Skipped scenes still advance progress to completion.
	if final := progress[len(progress)-1]; final != 1.0 {
		t.Errorf("Expected final progress 1.0 with skips, got %f", final)
	}
}

func TestRun_AbortsOnMalformedScene(t *testing.T) {
	scenes := testutil.Scenes(3)
	scenes[1] = `{"id":"bad","files":[]}`
	reader := &fakeReader{scenes: scenes}

	ex := newExtractor(t, reader, Config{
		PageSize:  120,
		Malformed: AbortOnMalformed,
	})

	_, err := ex.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var malformed *MalformedSceneError
	if !errors.As(err, &malformed) {
		t.Errorf("Expected MalformedSceneError, got %v", err)
	}
}

func TestRun_FetchErrorAbortsRun(t *testing.T) {
	wantErr := errors.New("connection refused")
	reader := &fakeReader{err: wantErr}
	ex := newExtractor(t, reader, DefaultConfig())

	records, err := ex.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected wrapped fetch error, got %v", err)
	}
	if records != nil {
		t.Error("Expected no partial result on fetch failure")
	}
}

func TestRun_CountChangeFailsFast(t *testing.T) {
	reader := &fakeReader{
		scenes: testutil.Scenes(25),
		countFor: func(page, realCount int) int {
			if page > 1 {
				return realCount - 10
			}
			return realCount
		},
	}
	ex := newExtractor(t, reader, Config{PageSize: 10})

	_, err := ex.Run(context.Background())
	if !errors.Is(err, ErrCountChanged) {
		t.Errorf("Expected ErrCountChanged, got %v", err)
	}
}

func TestRun_EmptyPageBeforeExhaustionFailsFast(t *testing.T) {
	reader := &fakeReader{
		scenes:    testutil.Scenes(25),
		emptyPage: 2,
	}
	ex := newExtractor(t, reader, Config{PageSize: 10})

	_, err := ex.Run(context.Background())
	if !errors.Is(err, ErrShortPage) {
		t.Errorf("Expected ErrShortPage, got %v", err)
	}
}
