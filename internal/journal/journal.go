// Package journal appends session events to date-organized JSONL files.
package journal

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgnsrekt/lunarsession/internal/events"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultMaxSizeMB = 50

// Journal follows a broker and writes every event it sees as one JSON line
// under <dir>/<YYYY-MM-DD>/events.jsonl. Files roll over by size and by UTC
// date.
type Journal struct {
	dir       string
	maxSizeMB int
	broker    *events.Broker
	subID     int64
	wg        sync.WaitGroup
	closeOnce sync.Once

	date string
	out  *lumberjack.Logger
	now  func() time.Time
}

// Start subscribes to b and begins writing. maxSizeMB <= 0 selects 50.
func Start(b *events.Broker, dir string, maxSizeMB int) *Journal {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	j := &Journal{dir: dir, maxSizeMB: maxSizeMB, broker: b, now: time.Now}
	id, ch := b.Subscribe()
	j.subID = id
	j.wg.Add(1)
	go j.loop(ch)
	return j
}

// Close unsubscribes, writes whatever was already buffered and closes the
// current file.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		j.broker.Unsubscribe(j.subID)
		j.wg.Wait()
		if j.out != nil {
			err = j.out.Close()
		}
	})
	return err
}

func (j *Journal) loop(ch <-chan events.Event) {
	defer j.wg.Done()
	for evt := range ch {
		j.write(evt)
	}
}

func (j *Journal) write(evt events.Event) {
	data, err := sonic.Marshal(evt)
	if err != nil {
		slog.Error("journal marshal failed", "type", evt.Type, "error", err)
		return
	}
	date := j.now().UTC().Format("2006-01-02")
	if date != j.date || j.out == nil {
		if err := j.rotate(date); err != nil {
			slog.Error("journal rotate failed", "dir", j.dir, "error", err)
			return
		}
	}
	if _, err := j.out.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "type", evt.Type, "error", err)
	}
}

func (j *Journal) rotate(date string) error {
	if j.out != nil {
		if err := j.out.Close(); err != nil {
			slog.Debug("journal close failed", "error", err)
		}
		j.out = nil
	}
	dir := filepath.Join(j.dir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	j.out = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "events.jsonl"),
		MaxSize:    j.maxSizeMB,
		MaxBackups: 20,
		MaxAge:     30,
	}
	j.date = date
	slog.Info("journal file opened", "file", j.out.Filename)
	return nil
}
