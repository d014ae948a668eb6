package crawler

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateDescriptionKeepsPrefix(t *testing.T) {
	long := strings.Repeat("描述x", 200) // 400 个 rune

	out := truncateDescription(long)
	if got := len([]rune(out)); got != descriptionMaxRunes {
		t.Fatalf("truncated length = %d runes, want %d", got, descriptionMaxRunes)
	}
	if !strings.HasPrefix(long, out) {
		t.Fatalf("truncated description is not a prefix of the original")
	}

	// 不超长时原样保留
	short := "a short description"
	if got := truncateDescription(short); got != short {
		t.Fatalf("truncateDescription(%q) = %q, want unchanged", short, got)
	}
}

func TestToMapRendersDatesAndNulls(t *testing.T) {
	deadline := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	rank := 1.234

	c := CFP{
		Provider: "elsevier",
		Journal:  "Foo",
		Title:    "Bar",
		Deadline: &deadline,
		Link:     "https://x",
		Rank:     &rank,
	}

	m := c.ToMap()
	if m["deadline"] != "2026-03-15" {
		t.Fatalf("deadline = %v, want 2026-03-15", m["deadline"])
	}
	if m["posted"] != nil {
		t.Fatalf("posted = %v, want nil", m["posted"])
	}
	if m["rank"] != 1.234 {
		t.Fatalf("rank = %v, want 1.234", m["rank"])
	}

	// 可选字段缺失时必须输出 null 而不是字段消失
	empty := CFP{Provider: "wiley"}.ToMap()
	for _, key := range []string{"posted", "deadline", "rank"} {
		v, ok := empty[key]
		if !ok {
			t.Fatalf("key %q missing from canonical map", key)
		}
		if v != nil {
			t.Fatalf("key %q = %v, want nil", key, v)
		}
	}
}
