package record

import (
	"path/filepath"
	"testing"
	"time"

	"tipline/internal/cache"
	"tipline/internal/errors"
	"tipline/internal/logging"
	"tipline/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db := storage.New(filepath.Join(t.TempDir(), "test.db"), logging.Discard())
	t.Cleanup(func() {
		db.Close()
	})
	return NewStore(db)
}

func mustInsertLocation(t *testing.T, s *Store, name, region string) *Location {
	t.Helper()
	loc := &Location{
		Name:      name,
		Region:    region,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Insert(loc); err != nil {
		t.Fatalf("failed to insert location: %v", err)
	}
	return loc
}

func mustInsertReport(t *testing.T, s *Store, loc *Location, publicId, status string, createdAt time.Time) *Report {
	t.Helper()
	rep := &Report{
		PublicId:      publicId,
		LocationId:    loc.Id,
		ReporterName:  "A Reporter",
		ReporterEmail: "reporter@example.com",
		Subject:       "subject",
		Body:          "body",
		Status:        status,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := s.Insert(rep); err != nil {
		t.Fatalf("failed to insert report: %v", err)
	}
	return rep
}

func TestInsertAndFind(t *testing.T) {
	s := setupTestStore(t)

	loc := mustInsertLocation(t, s, "Old Town", "north")
	if loc.Id == 0 {
		t.Fatal("Insert did not set the id")
	}

	var got Location
	if err := s.Find(&got, loc.Id); err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Id != loc.Id || got.Name != "Old Town" || got.Region != "north" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not restored")
	}
}

func TestFindNotFound(t *testing.T) {
	s := setupTestStore(t)

	var loc Location
	err := s.Find(&loc, 999)
	if err == nil {
		t.Fatal("expected error for missing record")
	}
	if errors.CodeOf(err) != errors.NotFound {
		t.Errorf("error code = %s, want %s", errors.CodeOf(err), errors.NotFound)
	}
}

func TestUpdate(t *testing.T) {
	s := setupTestStore(t)

	loc := mustInsertLocation(t, s, "Before", "north")
	loc.Name = "After"
	if err := s.Update(loc); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	var got Location
	if err := s.Find(&got, loc.Id); err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Name != "After" {
		t.Errorf("name = %q, want %q", got.Name, "After")
	}
}

func TestUpdateUnsavedAndMissing(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Update(&Location{Name: "nope"}); err == nil {
		t.Error("expected error updating unsaved record")
	}

	gone := &Location{Id: 12345, Name: "gone"}
	err := s.Update(gone)
	if err == nil {
		t.Fatal("expected error updating missing record")
	}
	if errors.CodeOf(err) != errors.NotFound {
		t.Errorf("error code = %s, want %s", errors.CodeOf(err), errors.NotFound)
	}
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)

	loc := mustInsertLocation(t, s, "Doomed", "south")
	if err := s.Delete(loc); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var got Location
	if err := s.Find(&got, loc.Id); errors.CodeOf(err) != errors.NotFound {
		t.Errorf("record still present after delete: %v", err)
	}
}

func TestReportNullableTarget(t *testing.T) {
	s := setupTestStore(t)

	loc := mustInsertLocation(t, s, "Somewhere", "east")
	tgt := &Target{
		LocationId: loc.Id,
		Name:       "The Mill",
		Category:   "business",
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Insert(tgt); err != nil {
		t.Fatalf("failed to insert target: %v", err)
	}

	now := time.Now().UTC()
	withTarget := mustInsertReport(t, s, loc, "pub-1", StatusOpen, now)
	withTarget.TargetId = &tgt.Id
	if err := s.Update(withTarget); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	withoutTarget := mustInsertReport(t, s, loc, "pub-2", StatusOpen, now)

	var got Report
	if err := s.Find(&got, withTarget.Id); err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.TargetId == nil || *got.TargetId != tgt.Id {
		t.Errorf("TargetId = %v, want %d", got.TargetId, tgt.Id)
	}

	if err := s.Find(&got, withoutTarget.Id); err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.TargetId != nil {
		t.Errorf("TargetId = %v, want nil", got.TargetId)
	}
}

func TestListLocations(t *testing.T) {
	s := setupTestStore(t)

	mustInsertLocation(t, s, "Zeta", "north")
	mustInsertLocation(t, s, "Alpha", "south")
	mustInsertLocation(t, s, "Mid", "east")

	locs, err := s.ListLocations(0)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}
	if len(locs) != 3 {
		t.Fatalf("got %d locations, want 3", len(locs))
	}
	if locs[0].Name != "Alpha" || locs[2].Name != "Zeta" {
		t.Errorf("locations not ordered by name: %v, %v, %v", locs[0].Name, locs[1].Name, locs[2].Name)
	}
}

func TestListLocationsCached(t *testing.T) {
	s := setupTestStore(t)
	qc, err := cache.New(filepath.Join(t.TempDir(), "cache"), logging.Discard())
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	s.DB().SetCache(qc)

	mustInsertLocation(t, s, "Cached", "north")

	if _, err := s.ListLocations(time.Minute); err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}

	// A write after caching is invisible until the entry expires
	mustInsertLocation(t, s, "Later", "south")

	locs, err := s.ListLocations(time.Minute)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}
	if len(locs) != 1 {
		t.Errorf("got %d locations, want 1 stale cached row", len(locs))
	}
}

func TestListTargetsFiltersInactive(t *testing.T) {
	s := setupTestStore(t)

	loc := mustInsertLocation(t, s, "Town", "west")
	other := mustInsertLocation(t, s, "Elsewhere", "west")

	for _, spec := range []struct {
		loc    *Location
		name   string
		active bool
	}{
		{loc, "Visible", true},
		{loc, "Hidden", false},
		{other, "Foreign", true},
	} {
		tgt := &Target{
			LocationId: spec.loc.Id,
			Name:       spec.name,
			Category:   "venue",
			Active:     spec.active,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.Insert(tgt); err != nil {
			t.Fatalf("failed to insert target: %v", err)
		}
	}

	targets, err := s.ListTargets(loc.Id, 0)
	if err != nil {
		t.Fatalf("ListTargets failed: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(targets))
	}
	if targets[0].Name != "Visible" {
		t.Errorf("target = %q, want Visible", targets[0].Name)
	}
}

func TestListReports(t *testing.T) {
	s := setupTestStore(t)

	loc := mustInsertLocation(t, s, "Town", "west")
	other := mustInsertLocation(t, s, "Elsewhere", "west")

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	mustInsertReport(t, s, loc, "pub-1", StatusOpen, base)
	mustInsertReport(t, s, loc, "pub-2", StatusClosed, base.Add(time.Hour))
	mustInsertReport(t, s, other, "pub-3", StatusOpen, base.Add(2*time.Hour))

	all, err := s.ListReports(ReportFilter{})
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d reports, want 3", len(all))
	}
	if all[0].PublicId != "pub-3" || all[2].PublicId != "pub-1" {
		t.Errorf("reports not newest-first: %v, %v, %v", all[0].PublicId, all[1].PublicId, all[2].PublicId)
	}

	open, err := s.ListReports(ReportFilter{Status: StatusOpen})
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("got %d open reports, want 2", len(open))
	}

	local, err := s.ListReports(ReportFilter{Status: StatusOpen, LocationId: loc.Id})
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(local) != 1 || local[0].PublicId != "pub-1" {
		t.Errorf("unexpected filtered reports: %+v", local)
	}

	limited, err := s.ListReports(ReportFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d reports with limit 2, want 2", len(limited))
	}
}

func TestFindReportByPublicID(t *testing.T) {
	s := setupTestStore(t)

	loc := mustInsertLocation(t, s, "Town", "west")
	mustInsertReport(t, s, loc, "pub-x", StatusOpen, time.Now().UTC())

	rep, err := s.FindReportByPublicID("pub-x")
	if err != nil {
		t.Fatalf("FindReportByPublicID failed: %v", err)
	}
	if rep.PublicId != "pub-x" {
		t.Errorf("PublicId = %q, want pub-x", rep.PublicId)
	}

	if _, err := s.FindReportByPublicID("missing"); errors.CodeOf(err) != errors.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusOpen, StatusReviewing, true},
		{StatusReviewing, StatusClosed, true},
		{StatusReviewing, StatusOpen, true},
		{StatusOpen, StatusClosed, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusReviewing, false},
		{StatusOpen, StatusOpen, false},
		{"bogus", StatusOpen, false},
	}

	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
