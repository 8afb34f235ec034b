package uploadsvc

import (
	"context"
	"sync"
	"time"

	"github.com/yourname/chunk_upload/internal/logger"
)

// SweepReport: итог одного прохода сборщика.
type SweepReport struct {
	Parts   int   `json:"parts"`
	Staging int   `json:"staging"`
	Bytes   int64 `json:"bytes"`
	Skipped int   `json:"skipped"` // части ключей, занятых в момент прохода
}

// Sweep удаляет части и staging-файлы, не менявшиеся дольше ttl. Части берутся под
// блокировкой своего ключа; ключи, которые сейчас заняты, пропускаются до следующего прохода.
func (s *Uploads) Sweep(ctx context.Context, ttl time.Duration) (SweepReport, error) {
	GCRuns.Inc()

	now := time.Now()
	stale, err := s.Parts.Stale(ttl, now)
	if err != nil {
		return SweepReport{}, err
	}

	cutoff := now.Add(-ttl)
	var report SweepReport
	for _, e := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if !e.Staging {
			if !s.locks.TryLock(e.Key) {
				report.Skipped++
				continue
			}
		}
		removed, err := s.Parts.RemoveStale(e, cutoff)
		if !e.Staging {
			s.locks.Unlock(e.Key)
		}

		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("path", e.Path).Msg("gc: remove failed")
			continue
		}
		if !removed {
			continue
		}

		report.Bytes += e.Size
		if e.Staging {
			report.Staging++
			GCRemoved.WithLabelValues("staging").Inc()
		} else {
			report.Parts++
			GCRemoved.WithLabelValues("part").Inc()
		}
	}

	if report.Parts+report.Staging > 0 {
		logger.Ctx(ctx).Info().
			Int("parts", report.Parts).
			Int("staging", report.Staging).
			Int64("bytes", report.Bytes).
			Int("skipped", report.Skipped).
			Msg("gc: removed stale files")
	}
	return report, nil
}

// StartGC стартует периодическую очистку каталога. Возвращает функцию остановки,
// которую можно вызывать повторно.
func (s *Uploads) StartGC(ttl, every time.Duration) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	done := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(context.Background(), ttl); err != nil {
					logger.Warn().Err(err).Msg("gc: sweep failed")
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
		})
		<-done
	}
}
