package metalworks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eringen/metalworks/content"
)

const backupPrefix = "metalworks-"

// Jobs runs the scheduled maintenance work: promoting scheduled blog posts
// and writing snapshot backups.
type Jobs struct {
	cron  *cron.Cron
	store *content.Store
	log   content.Logger

	backupDir  string
	backupKeep int
	now        func() time.Time
}

// NewJobs registers the publish job and, when a backup directory is
// configured, the backup job. Invalid schedules are reported here rather
// than when the scheduler starts.
func NewJobs(store *content.Store, cfg SiteConfig, log content.Logger) (*Jobs, error) {
	j := &Jobs{
		cron:       cron.New(),
		store:      store,
		log:        log,
		backupDir:  cfg.BackupDir,
		backupKeep: cfg.BackupKeep,
		now:        time.Now,
	}
	if _, err := j.cron.AddFunc(cfg.PublishSchedule, j.publishDue); err != nil {
		return nil, fmt.Errorf("publish schedule %q: %w", cfg.PublishSchedule, err)
	}
	if cfg.BackupsEnabled() {
		if _, err := j.cron.AddFunc(cfg.BackupSchedule, j.backup); err != nil {
			return nil, fmt.Errorf("backup schedule %q: %w", cfg.BackupSchedule, err)
		}
	}
	return j, nil
}

// Start runs the scheduler in its own goroutine.
func (j *Jobs) Start() {
	j.cron.Start()
	j.log.Infof("scheduler started with %d jobs", len(j.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (j *Jobs) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Jobs) publishDue() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := j.store.Posts.PublishDue(ctx)
	if err != nil {
		j.log.Errorf("publish scheduled posts: %v", err)
		return
	}
	if n > 0 {
		j.log.Infof("published %d scheduled posts", n)
	}
}

func (j *Jobs) backup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	path, err := j.RunBackup(ctx)
	if err != nil {
		j.log.Errorf("backup: %v", err)
		return
	}
	j.log.Infof("wrote backup %s", path)
}

// RunBackup writes a snapshot into the backup directory and prunes old
// backups. It returns the path of the new file.
func (j *Jobs) RunBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(j.backupDir, 0o755); err != nil {
		return "", err
	}
	name := backupPrefix + j.now().UTC().Format("20060102-150405") + ".json"
	path := filepath.Join(j.backupDir, name)

	// Write to a temp file first so a failed export never leaves a
	// truncated backup behind.
	tmp, err := os.CreateTemp(j.backupDir, ".backup-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if err := j.store.Export(ctx, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	if err := j.prune(); err != nil {
		return path, fmt.Errorf("prune backups: %w", err)
	}
	return path, nil
}

// prune deletes all but the newest backupKeep backups. A keep of zero keeps
// everything.
func (j *Jobs) prune() error {
	if j.backupKeep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(j.backupDir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= j.backupKeep {
		return nil
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	for _, name := range names[:len(names)-j.backupKeep] {
		if err := os.Remove(filepath.Join(j.backupDir, name)); err != nil {
			return err
		}
	}
	return nil
}
