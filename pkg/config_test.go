package dfsblockcache

import (
	"errors"
	"testing"
)

func TestApplyOptionsDefaults(t *testing.T) {
	cfg, err := applyOptions(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BlockLimit != defaultBlockLimit {
		t.Errorf("expected default block limit, got %d", cfg.BlockLimit)
	}
	if cfg.BlockSize != defaultBlockSize {
		t.Errorf("expected default block size, got %d", cfg.BlockSize)
	}
}

func TestApplyOptionsRejectsNonPowerOfTwoBlockSize(t *testing.T) {
	_, err := applyOptions([]Option{WithBlockSize(1000)})
	if !errors.Is(err, ErrBudgetConfig) {
		t.Fatalf("expected ErrBudgetConfig, got %v", err)
	}
}

func TestApplyOptionsRejectsTooSmallBlockSize(t *testing.T) {
	_, err := applyOptions([]Option{WithBlockSize(256)})
	if !errors.Is(err, ErrBudgetConfig) {
		t.Fatalf("expected ErrBudgetConfig for sub-minimum block size, got %v", err)
	}
}

func TestApplyOptionsRoundsConcurrencyUpToPowerOfTwo(t *testing.T) {
	cfg, err := applyOptions([]Option{WithConcurrencyLevel(20)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConcurrencyLevel != 32 {
		t.Fatalf("expected concurrency rounded up to 32, got %d", cfg.ConcurrencyLevel)
	}
}

func TestApplyOptionsClampsStreamRatio(t *testing.T) {
	cfg, err := applyOptions([]Option{WithStreamRatio(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StreamRatio != 1 {
		t.Fatalf("expected stream ratio clamped to 1, got %f", cfg.StreamRatio)
	}

	cfg, err = applyOptions([]Option{WithStreamRatio(-1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StreamRatio != 0 {
		t.Fatalf("expected stream ratio clamped to 0, got %f", cfg.StreamRatio)
	}
}

func TestApplyOptionsRejectsNonPositiveBlockLimit(t *testing.T) {
	_, err := applyOptions([]Option{WithBlockLimit(0)})
	if !errors.Is(err, ErrBudgetConfig) {
		t.Fatalf("expected ErrBudgetConfig, got %v", err)
	}
}

func TestShouldCopyThroughCache(t *testing.T) {
	cfg, err := applyOptions([]Option{WithBlockLimit(1000), WithStreamRatio(0.3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.ShouldCopyThroughCache(300) {
		t.Errorf("expected 300 bytes to fit within 30%% of a 1000-byte budget")
	}
	if cfg.ShouldCopyThroughCache(301) {
		t.Errorf("expected 301 bytes to exceed 30%% of a 1000-byte budget")
	}
}
