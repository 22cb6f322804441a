package metalworks

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/metalworks/content"
)

func newTestJobs(t *testing.T, cfg SiteConfig) (*Jobs, *content.Store) {
	t.Helper()
	store, err := content.Open(filepath.Join(t.TempDir(), "site.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	logger := log.New("jobs")
	logger.SetOutput(io.Discard)
	cfg.setDefaults()
	j, err := NewJobs(store, cfg, logger)
	if err != nil {
		t.Fatalf("NewJobs: %v", err)
	}
	return j, store
}

func TestNewJobsRejectsBadSchedule(t *testing.T) {
	store, err := content.Open(filepath.Join(t.TempDir(), "site.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	cfg := SiteConfig{PublishSchedule: "every now and then"}
	if _, err := NewJobs(store, cfg, log.New("jobs")); err == nil {
		t.Fatalf("expected an invalid publish schedule to be rejected")
	}
}

func TestNewJobsRegistersBackupOnlyWhenEnabled(t *testing.T) {
	j, _ := newTestJobs(t, SiteConfig{})
	if n := len(j.cron.Entries()); n != 1 {
		t.Fatalf("entries without backups = %d, want 1", n)
	}
	j, _ = newTestJobs(t, SiteConfig{BackupDir: t.TempDir()})
	if n := len(j.cron.Entries()); n != 2 {
		t.Fatalf("entries with backups = %d, want 2", n)
	}
}

func TestRunBackupWritesSnapshotAndPrunes(t *testing.T) {
	dir := t.TempDir()
	j, store := newTestJobs(t, SiteConfig{BackupDir: dir, BackupKeep: 2})
	ctx := context.Background()
	if _, err := store.Listings.Create(ctx, content.Listing{TitleEN: "Gate"}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }
	var paths []string
	for i := 0; i < 3; i++ {
		path, err := j.RunBackup(ctx)
		if err != nil {
			t.Fatalf("RunBackup %d: %v", i, err)
		}
		paths = append(paths, path)
		now = now.Add(24 * time.Hour)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"metalworks-20250602-030000.json", "metalworks-20250603-030000.json"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("backups = %v, want %v", names, want)
	}

	data, err := os.ReadFile(paths[2])
	if err != nil {
		t.Fatal(err)
	}
	var snap content.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	if len(snap.Listings) != 1 || snap.Listings[0].TitleEN != "Gate" {
		t.Fatalf("backup listings = %+v", snap.Listings)
	}
}

func TestPruneKeepZeroKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	j, _ := newTestJobs(t, SiteConfig{BackupDir: dir})
	j.backupKeep = 0
	for _, name := range []string{"metalworks-20250101-000000.json", "metalworks-20250102-000000.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := j.prune(); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Fatalf("prune removed files with keep=0: %d left", len(entries))
	}
}

func TestPublishDuePromotesScheduledPosts(t *testing.T) {
	j, store := newTestJobs(t, SiteConfig{})
	ctx := context.Background()
	p, err := store.Posts.Create(ctx, content.BlogPost{
		TitleEN:   "Tomorrow",
		Status:    content.StatusScheduled,
		PublishOn: content.DateOf(time.Now().AddDate(0, 0, 1)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != content.StatusScheduled {
		t.Fatalf("status = %q, want scheduled", p.Status)
	}

	var events []content.Event
	unsubscribe := store.Bus().Subscribe(func(e content.Event) { events = append(events, e) })
	defer unsubscribe()

	j.publishDue()
	if len(events) != 0 {
		t.Fatalf("nothing was due, got events %v", events)
	}
}
