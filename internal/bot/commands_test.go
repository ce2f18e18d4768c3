package bot

import (
	"strings"
	"testing"

	"github.com/yanizio/flatradar/internal/filterstore"
)

func TestApplyFilterField_SetsKnownFields(t *testing.T) {
	rec := defaultFilterRecord(42)
	for _, tc := range []struct {
		field, value string
	}{
		{"city", "minsk"},
		{"min_rooms", "2"},
		{"max_rooms", "4"},
		{"min_price", "10000"},
		{"max_price", "30000"},
		{"seller_type", "owner"},
		{"mode", "full"},
	} {
		if err := applyFilterField(&rec, tc.field, tc.value); err != nil {
			t.Fatalf("applyFilterField(%s, %s) failed: %v", tc.field, tc.value, err)
		}
	}
	if rec.CitySlug != "minsk" || rec.MinRooms != 2 || rec.MaxRooms != 4 ||
		rec.MinPrice != 10000 || rec.MaxPrice != 30000 ||
		rec.SellerType != filterstore.SellerOwner || rec.DeliveryMode != filterstore.ModeFull {
		t.Fatalf("unexpected record after field updates: %#v", rec)
	}
}

func TestApplyFilterField_RejectsUnknownField(t *testing.T) {
	rec := defaultFilterRecord(1)
	if err := applyFilterField(&rec, "not_a_field", "x"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestApplyFilterField_RejectsNonNumericRooms(t *testing.T) {
	rec := defaultFilterRecord(1)
	if err := applyFilterField(&rec, "min_rooms", "two"); err == nil {
		t.Fatalf("expected error for non-numeric min_rooms")
	}
}

func TestFilterSummary_IncludesAllFields(t *testing.T) {
	rec := filterstore.Record{
		CitySlug: "minsk", MinRooms: 1, MaxRooms: 3,
		MinPrice: 20000, MaxPrice: 40000,
		SellerType: filterstore.SellerOwner, DeliveryMode: filterstore.ModeBrief,
	}
	summary := filterSummary(rec)
	for _, want := range []string{"minsk", "1-3", "20000", "40000", "owner", "brief"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("expected summary to contain %q, got %q", want, summary)
		}
	}
}

func TestMainMenuText_ReflectsActiveStatus(t *testing.T) {
	active := filterstore.Record{Active: true}
	if !strings.Contains(mainMenuText(active), "active") {
		t.Fatalf("expected active status in menu text")
	}
	paused := filterstore.Record{Active: false}
	if !strings.Contains(mainMenuText(paused), "paused") {
		t.Fatalf("expected paused status in menu text")
	}
}
