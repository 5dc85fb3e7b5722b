package store

import (
	"context"
	"testing"

	"github.com/erazemk/handreceipt/internal/db"
)

func TestSeedSettingsKeepsExisting(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := PutSettings(ctx, database, map[string]string{"calibration.font_size": "8"}); err != nil {
		t.Fatal(err)
	}

	err := SeedSettings(ctx, database, map[string]string{
		"calibration.font_size":     "9",
		"calibration.rows_per_page": "16",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := GetSettings(ctx, database, "calibration.")
	if err != nil {
		t.Fatal(err)
	}
	if got["calibration.font_size"] != "8" {
		t.Errorf("expected existing value to survive seeding, got %q", got["calibration.font_size"])
	}
	if got["calibration.rows_per_page"] != "16" {
		t.Errorf("expected seeded default, got %q", got["calibration.rows_per_page"])
	}
}

func TestGetSettingsPrefix(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	PutSettings(ctx, database, map[string]string{
		"calibration.x_from": "260",
		"other.key":          "x",
	})

	got, err := GetSettings(ctx, database, "calibration.")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 setting under prefix, got %d: %v", len(got), got)
	}

	// Second put overwrites.
	PutSettings(ctx, database, map[string]string{"calibration.x_from": "250"})
	got, _ = GetSettings(ctx, database, "calibration.")
	if got["calibration.x_from"] != "250" {
		t.Errorf("expected overwritten value, got %q", got["calibration.x_from"])
	}
}
