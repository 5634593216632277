package collector

import (
	"context"
	"fmt"
	"testing"

	"github.com/LJTian/TrendPulse/internal/model"
)

func TestDedupSetByTitleAndURL(t *testing.T) {
	d := newDedupSet()

	if d.seen("Hello World", "https://example.com/a") {
		t.Fatalf("first occurrence should not be seen")
	}
	// 标题大小写与首尾空白不影响判重
	if !d.seen("  hello world ", "https://example.com/b") {
		t.Fatalf("normalized title should be deduplicated")
	}
	// 相同 URL、不同标题同样判重
	if !d.seen("Another Title", "https://example.com/a") {
		t.Fatalf("duplicate URL should be deduplicated")
	}
	if d.seen("Another Title", "https://example.com/c") {
		t.Fatalf("new title and URL should pass")
	}
	// 空标题直接拒绝
	if !d.seen("   ", "https://example.com/d") {
		t.Fatalf("empty title should be rejected")
	}
}

func TestDedupSetEmptyURLOnlyTracksTitle(t *testing.T) {
	d := newDedupSet()

	if d.seen("first line", "") {
		t.Fatalf("first occurrence should not be seen")
	}
	// URL 为空时不登记 URL，后续带 URL 的同名条目仍按标题判重
	if !d.seen("first line", "https://example.com/x") {
		t.Fatalf("same title should be deduplicated")
	}
	if d.seen("second line", "") {
		t.Fatalf("distinct title with empty URL should pass")
	}
}

func makeTier(n int, prefix string) tierFunc {
	return func(_ context.Context, acc []model.Article) []model.Article {
		for i := 0; i < n; i++ {
			acc = append(acc, model.Article{
				ID:    fmt.Sprintf("%s-%d", prefix, i),
				Title: fmt.Sprintf("%s title %d", prefix, i),
			})
		}
		return acc
	}
}

func TestRunChainStopsAtFloor(t *testing.T) {
	var thirdCalled bool
	third := func(ctx context.Context, acc []model.Article) []model.Article {
		thirdCalled = true
		return acc
	}

	out := runChain(context.Background(), 5, makeTier(3, "a"), makeTier(4, "b"), third)
	if len(out) != 7 {
		t.Fatalf("expected 7 items after two tiers, got %d", len(out))
	}
	if thirdCalled {
		t.Fatalf("third tier should not run once floor is reached")
	}
	// 前一级的结果保留在累计里
	if out[0].ID != "a-0" || out[3].ID != "b-0" {
		t.Fatalf("accumulated order wrong: %v, %v", out[0].ID, out[3].ID)
	}
}

func TestRunChainExhaustsTiersBelowFloor(t *testing.T) {
	out := runChain(context.Background(), 10, makeTier(2, "a"), makeTier(2, "b"))
	if len(out) != 4 {
		t.Fatalf("expected all tiers to run, got %d items", len(out))
	}
}

func TestRunChainZeroFloorStopsOnFirstResult(t *testing.T) {
	out := runChain(context.Background(), 0, makeTier(0, "a"), makeTier(2, "b"), makeTier(2, "c"))
	if len(out) != 2 {
		t.Fatalf("expected to stop after first non-empty tier, got %d", len(out))
	}
	if out[0].ID != "b-0" {
		t.Fatalf("expected items from second tier, got %s", out[0].ID)
	}
}

func TestRunChainRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := runChain(ctx, 5, makeTier(3, "a"))
	if len(out) != 0 {
		t.Fatalf("cancelled context should run no tiers, got %d items", len(out))
	}
}
