// Package journal records one row per served GETFILE request to a
// SQLite-backed access log. Writes are funneled through a single
// background goroutine draining its own workqueue.Queue, the same
// producer/consumer shape the rest of the pipeline uses, so request
// handling is never blocked on a database write.
package journal

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jonnybach/low-level-file-server/internal/logger"
	"github.com/jonnybach/low-level-file-server/pkg/workqueue"
)

// Entry is one logged request.
type Entry struct {
	ID         uint64 `gorm:"primaryKey"`
	Path       string `gorm:"index"`
	Status     string
	BytesSent  uint64
	DurationMs int64
	ClientAddr string
	ServedVia  string
	CreatedAt  time.Time
}

// Journal owns the database handle and the write queue feeding it.
type Journal struct {
	db    *gorm.DB
	queue *workqueue.Queue[Entry]
	done  chan struct{}
}

// Open opens (creating if needed) a SQLite database at dsn and
// migrates the Entry schema.
func Open(dsn string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("journal: migrate schema: %w", err)
	}

	j := &Journal{db: db, queue: workqueue.New[Entry](), done: make(chan struct{})}
	go j.writeLoop()
	return j, nil
}

// Record enqueues entry for persistence. It never blocks the caller.
func (j *Journal) Record(e Entry) {
	e.CreatedAt = e.CreatedAt.UTC()
	j.queue.Submit(e)
}

func (j *Journal) writeLoop() {
	defer close(j.done)
	for {
		entry, ok := j.queue.Pop()
		if !ok {
			return
		}
		if err := j.db.Create(&entry).Error; err != nil {
			logger.Warn("journal: write failed", "path", entry.Path, "error", err)
		}
	}
}

// Close stops accepting new entries, drains the queue, and closes the
// database handle.
func (j *Journal) Close() error {
	j.queue.Close()
	<-j.done
	sqlDB, err := j.db.DB()
	if err != nil {
		return fmt.Errorf("journal: underlying db handle: %w", err)
	}
	return sqlDB.Close()
}
