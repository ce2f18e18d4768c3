package adapter

import (
	"context"
	"testing"
)

func TestDTO_Validate(t *testing.T) {
	cases := []struct {
		name    string
		dto     DTO
		wantErr bool
	}{
		{"valid", DTO{Title: "2-room", Price: 50000, URL: "https://x.by/1", Location: "Minsk", Source: "kufar"}, false},
		{"zero price kept", DTO{Title: "2-room", Price: 0, URL: "https://x.by/1", Location: "Minsk", Source: "kufar"}, false},
		{"empty title", DTO{Title: "", Price: 1, URL: "https://x.by/1", Location: "Minsk", Source: "kufar"}, true},
		{"negative price", DTO{Title: "x", Price: -1, URL: "https://x.by/1", Location: "Minsk", Source: "kufar"}, true},
		{"non-http url", DTO{Title: "x", Price: 1, URL: "ftp://x.by/1", Location: "Minsk", Source: "kufar"}, true},
		{"empty source", DTO{Title: "x", Price: 1, URL: "https://x.by/1", Location: "Minsk", Source: ""}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.dto.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

type fakeOldChecker map[string]bool

func (f fakeOldChecker) Contains(ctx context.Context, id string) (bool, error) {
	return f[id], nil
}

func TestPaginate_StopsOnOldStreak(t *testing.T) {
	old := fakeOldChecker{"a2": true, "a3": true, "a4": true}
	pages := [][]string{
		{"a1", "a2", "a3", "a4"},
		{"a5", "a6"},
	}
	fetch := func(ctx context.Context, page int) ([]string, bool, error) {
		idx := page - 1
		if idx >= len(pages) {
			return nil, false, nil
		}
		return pages[idx], idx+1 < len(pages), nil
	}

	out, err := Paginate(context.Background(), 2, 3, old, fetch)
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}
	if len(out) != 1 || out[0] != "a1" {
		t.Fatalf("expected pagination to stop after streak of 3 old ids, got %v", out)
	}
}

func TestPaginate_RespectsPageCap(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, page int) ([]string, bool, error) {
		calls++
		return []string{"x"}, true, nil
	}
	_, err := Paginate(context.Background(), 2, 5, nil, fetch)
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 page fetches (hard cap), got %d", calls)
	}
}

func TestRegistry_AllIncludesSelfRegisteredAdapters(t *testing.T) {
	// kufar, onliner, and the five HTML-shared adapters self-register via
	// init() across this package's files.
	all := All()
	if len(all) < 7 {
		t.Fatalf("expected at least 7 self-registered adapters, got %d", len(all))
	}
}
