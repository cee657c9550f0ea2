package postgres

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/domain/plans"
)

// fakeScan plays the driver's role: it assigns one prepared value per scan
// destination, restricted to the types database/sql can actually deliver
// ([]byte for jsonb, never []string).
func fakeScan(vals ...any) func(dest ...any) error {
	return func(dest ...any) error {
		if len(dest) != len(vals) {
			return fmt.Errorf("fakeScan: %d destinations, %d values", len(dest), len(vals))
		}
		for i, v := range vals {
			switch d := dest[i].(type) {
			case *string:
				*d = v.(string)
			case *[]byte:
				*d = v.([]byte)
			case *bool:
				*d = v.(bool)
			case *int:
				*d = v.(int)
			case *time.Time:
				*d = v.(time.Time)
			case *sql.NullString:
				*d = v.(sql.NullString)
			case *sql.NullTime:
				*d = v.(sql.NullTime)
			default:
				return fmt.Errorf("fakeScan: unsupported destination %T", dest[i])
			}
		}
		return nil
	}
}

func TestScanPlanDecodesJSONColumns(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	winner := sql.NullString{String: "req-9", Valid: true}

	p, err := scanPlan(fakeScan(
		"plan-1",
		"patient-1",
		"coord-1",
		"intake-1",
		[]byte(`["walk 30 minutes without pain","return to work"]`),
		[]byte(`["physiotherapy","dietetics"]`),
		9,
		true,
		false,
		winner,
		"active",
		now,
		now,
	))
	if err != nil {
		t.Fatalf("scanPlan: %v", err)
	}

	if p.Status != plans.StatusActive {
		t.Fatalf("expected active, got %s", p.Status)
	}
	if len(p.Goals) != 2 || p.Goals[0] != "walk 30 minutes without pain" {
		t.Fatalf("unexpected goals %v", p.Goals)
	}
	if len(p.Disciplines) != 2 || p.Disciplines[1] != pathway.DisciplineDietetics {
		t.Fatalf("unexpected disciplines %v", p.Disciplines)
	}
	if p.WinningRequestID == nil || *p.WinningRequestID != "req-9" {
		t.Fatalf("unexpected winning request %v", p.WinningRequestID)
	}
}

func TestScanPlanEmptyCollections(t *testing.T) {
	now := time.Now()

	p, err := scanPlan(fakeScan(
		"plan-1", "patient-1", "coord-1", "intake-1",
		[]byte(`[]`), []byte(`[]`),
		6, false, false,
		sql.NullString{}, "draft",
		now, now,
	))
	if err != nil {
		t.Fatalf("scanPlan: %v", err)
	}
	if p.Goals == nil || len(p.Goals) != 0 {
		t.Fatalf("expected empty goals, got %v", p.Goals)
	}
	if p.WinningRequestID != nil {
		t.Fatalf("expected no winner, got %v", p.WinningRequestID)
	}
}

func TestScanProviderDecodesInsurers(t *testing.T) {
	p, err := scanProvider(fakeScan(
		"prov-1",
		"Moves Physiotherapy Centrum",
		"physiotherapy",
		[]byte(`["CZ","VGZ"]`),
		true,
	))
	if err != nil {
		t.Fatalf("scanProvider: %v", err)
	}

	if p.Discipline != pathway.DisciplinePhysiotherapy {
		t.Fatalf("unexpected discipline %s", p.Discipline)
	}
	if len(p.Insurers) != 2 || p.Insurers[1] != "VGZ" {
		t.Fatalf("unexpected insurers %v", p.Insurers)
	}
}
