package crawler

import (
	"context"
	"iter"
	"testing"
)

// stubSource 用固定记录集模拟一个数据源
type stubSource struct {
	name string
	cfps []CFP
	fail bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) iter.Seq[CFP] {
	return func(yield func(CFP) bool) {
		if s.fail {
			return
		}
		for _, c := range s.cfps {
			if !yield(c) {
				return
			}
		}
	}
}

func stubCFPs(provider string, n int) []CFP {
	out := make([]CFP, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, CFP{
			Provider: provider,
			Journal:  provider + " journal",
			Title:    provider + " title",
			Link:     "https://example.com/" + provider,
		})
	}
	return out
}

func TestRunConcatenatesInCallerOrder(t *testing.T) {
	a := NewAggregator([]Source{
		&stubSource{name: "a", cfps: stubCFPs("a", 2)},
		&stubSource{name: "b", cfps: stubCFPs("b", 3)},
	}, nil, nil)

	got, err := a.Run(context.Background(), []string{"b", "a"}, false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d records, want 5", len(got))
	}
	// 调用方顺序优先：b 的记录在前
	if got[0].Provider != "b" || got[4].Provider != "a" {
		t.Fatalf("cross-source order not preserved: %v, %v", got[0].Provider, got[4].Provider)
	}
}

func TestRunIsolatesFailedSource(t *testing.T) {
	a := NewAggregator([]Source{
		&stubSource{name: "a", fail: true},
		&stubSource{name: "b", cfps: stubCFPs("b", 3)},
	}, nil, nil)

	got, err := a.Run(context.Background(), []string{"a", "b"}, false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// a 整体失败贡献 0 条，不中断运行：总数 = 0 + 3
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
}

func TestRunRejectsUnknownProvider(t *testing.T) {
	a := NewAggregator([]Source{&stubSource{name: "a"}}, nil, nil)

	if _, err := a.Run(context.Background(), []string{"a", "nope"}, false); err == nil {
		t.Fatalf("expected hard error for unknown provider")
	}
}

func TestRunEnrichmentKeepsCountAndOrder(t *testing.T) {
	lookups := make(chan string, 16)
	rank := func(ctx context.Context, journal string) *float64 {
		lookups <- journal
		if journal == "a journal" {
			v := 2.5
			return &v
		}
		return nil // 查询失败不丢记录
	}

	a := NewAggregator([]Source{
		&stubSource{name: "a", cfps: stubCFPs("a", 2)},
		&stubSource{name: "b", cfps: stubCFPs("b", 2)},
	}, rank, nil)

	plain, err := a.Run(context.Background(), []string{"a", "b"}, false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	enriched, err := a.Run(context.Background(), []string{"a", "b"}, true)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(plain) != len(enriched) {
		t.Fatalf("enrichment changed record count: %d vs %d", len(plain), len(enriched))
	}
	for i := range plain {
		if plain[i].Provider != enriched[i].Provider || plain[i].Title != enriched[i].Title {
			t.Fatalf("enrichment changed order at %d", i)
		}
	}
	if enriched[0].Rank == nil || *enriched[0].Rank != 2.5 {
		t.Fatalf("rank not assigned: %+v", enriched[0])
	}
	if enriched[2].Rank != nil {
		t.Fatalf("failed lookup should leave rank nil: %+v", enriched[2])
	}
	if plain[0].Rank != nil {
		t.Fatalf("enrich=false should not assign rank")
	}

	close(lookups)
	n := 0
	for range lookups {
		n++
	}
	if n != 4 {
		t.Fatalf("expected 4 lookups (one per record), got %d", n)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAggregator([]Source{&stubSource{name: "a", cfps: stubCFPs("a", 2)}}, nil, nil)
	got, err := a.Run(ctx, []string{"a"}, true)
	if err != nil {
		t.Fatalf("cancellation should not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("cancelled run should return records produced so far (none), got %d", len(got))
	}
}

func TestProvidersSorted(t *testing.T) {
	a := NewAggregator([]Source{
		&stubSource{name: "wiley"},
		&stubSource{name: "elsevier"},
		&stubSource{name: "mdpi"},
	}, nil, nil)

	got := a.Providers()
	want := []string{"elsevier", "mdpi", "wiley"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Providers() = %v, want %v", got, want)
		}
	}
}
