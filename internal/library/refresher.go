package library

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"mangako/internal/repository"
	"mangako/pkg/models"

	"github.com/google/uuid"
)

// LibraryRefreshSyncType is the sync_state key of a whole-library run.
const LibraryRefreshSyncType = "library_refresh"

// Refresher re-fetches the full cover listing of every library manga and
// reconciles it into the store. Each task touches the rows of one manga only.
type Refresher struct {
	catalog Catalog
	mangas  repository.MangaRepository
	volumes repository.VolumeRepository
	syncs   repository.SyncStateRepository
	logger  *slog.Logger

	workerCount     int
	pageSize        int
	refreshMetadata bool
	rateSemaphore   chan struct{}
}

type RefreshConfig struct {
	Workers int
	// RateConcurrency caps catalog calls in flight across workers.
	RateConcurrency int
	PageSize        int
	RefreshMetadata bool
	Logger          *slog.Logger
}

// RefreshReport summarises one RefreshAll run.
type RefreshReport struct {
	RunID      string
	Manga      int
	Refreshed  int
	Failed     int
	Volumes    int
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewRefresher(catalog Catalog, mangas repository.MangaRepository, volumes repository.VolumeRepository, syncs repository.SyncStateRepository, cfg RefreshConfig) *Refresher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RateConcurrency <= 0 {
		cfg.RateConcurrency = 5
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultVolumePageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Refresher{
		catalog:         catalog,
		mangas:          mangas,
		volumes:         volumes,
		syncs:           syncs,
		logger:          cfg.Logger,
		workerCount:     cfg.Workers,
		pageSize:        cfg.PageSize,
		refreshMetadata: cfg.RefreshMetadata,
		rateSemaphore:   make(chan struct{}, cfg.RateConcurrency),
	}
}

// RefreshAll refreshes every manga in the library. A failing manga is
// recorded in its own sync state and does not stop the run.
func (r *Refresher) RefreshAll(ctx context.Context) (*RefreshReport, error) {
	report := &RefreshReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := r.logger.With("run_id", report.RunID)

	r.recordState(ctx, LibraryRefreshSyncType, models.SyncStatusRunning, "", nil)

	library, err := r.mangas.ListInLibrary(ctx)
	if err != nil {
		err = storageError("list library", err)
		r.recordState(ctx, LibraryRefreshSyncType, models.SyncStatusError, "", err)
		return nil, err
	}
	report.Manga = len(library)
	log.Info("library_refresh_started", "manga", len(library), "workers", r.workerCount)

	var refreshed, volumes atomic.Int64

	pool := NewWorkerPool(ctx, r.workerCount, log)
	pool.Start()
	for _, item := range library {
		manga := item.Manga
		accepted := pool.Submit(func(ctx context.Context) error {
			n, err := r.RefreshManga(ctx, manga)
			if err != nil {
				return err
			}
			refreshed.Add(1)
			volumes.Add(int64(n))
			return nil
		})
		if !accepted {
			log.Warn("library_refresh_skipped", "manga_id", manga.ID)
		}
	}
	pool.Wait()

	report.Refreshed = int(refreshed.Load())
	// tasks rejected or skipped after cancellation count as failed
	report.Failed = report.Manga - report.Refreshed
	report.Volumes = int(volumes.Load())
	report.FinishedAt = time.Now()

	if err := ctx.Err(); err != nil {
		r.recordState(context.WithoutCancel(ctx), LibraryRefreshSyncType, models.SyncStatusError, report.RunID, err)
		return report, err
	}

	r.recordState(ctx, LibraryRefreshSyncType, models.SyncStatusCompleted, report.RunID, nil)
	log.Info("library_refresh_completed",
		"refreshed", report.Refreshed,
		"failed", report.Failed,
		"volumes", report.Volumes,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

// RefreshManga fetches every cover page of manga, reconciles the result
// against the stored rows and persists it. It returns the number of volumes kept.
func (r *Refresher) RefreshManga(ctx context.Context, manga models.Manga) (int, error) {
	syncType := models.VolumeSyncType(manga.ID)
	r.recordState(ctx, syncType, models.SyncStatusRunning, "", nil)

	if r.refreshMetadata {
		r.updateMetadata(ctx, manga.ID)
	}

	var incoming []models.Volume
	offset := 0
	for {
		page, err := r.fetchPage(ctx, manga, offset)
		if err != nil {
			err = networkError(fmt.Sprintf("refresh volumes %s", manga.ID), err)
			r.recordState(ctx, syncType, models.SyncStatusError, strconv.Itoa(offset), err)
			return 0, err
		}
		incoming = append(incoming, page...)
		if len(page) < r.pageSize {
			break
		}
		offset += r.pageSize
	}

	stored, err := r.volumes.ListByManga(ctx, manga.ID)
	if err != nil {
		err = storageError("read stored volumes", err)
		r.recordState(ctx, syncType, models.SyncStatusError, strconv.Itoa(offset), err)
		return 0, err
	}

	reconciled := Reconcile(stored, incoming)
	if len(reconciled) > 0 {
		if err := r.volumes.ReplaceSlots(ctx, manga.ID, reconciled); err != nil {
			err = storageError("persist refreshed volumes", err)
			r.recordState(ctx, syncType, models.SyncStatusError, strconv.Itoa(offset), err)
			return 0, err
		}
	}

	r.recordState(ctx, syncType, models.SyncStatusCompleted, strconv.Itoa(len(incoming)), nil)
	r.logger.Debug("manga_volumes_refreshed",
		"manga_id", manga.ID,
		"fetched", len(incoming),
		"kept", len(reconciled),
	)
	return len(reconciled), nil
}

// StartPoller runs RefreshAll now and then every interval until ctx ends.
func (r *Refresher) StartPoller(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.logger.Info("library_refresh_poller_started", "interval", interval)
		r.runLogged(ctx)

		for {
			select {
			case <-ticker.C:
				r.runLogged(ctx)
			case <-ctx.Done():
				r.logger.Info("library_refresh_poller_stopped")
				return
			}
		}
	}()
}

func (r *Refresher) runLogged(ctx context.Context) {
	if _, err := r.RefreshAll(ctx); err != nil {
		r.logger.Error("library_refresh_failed", "error", err)
	}
}

func (r *Refresher) fetchPage(ctx context.Context, manga models.Manga, offset int) ([]models.Volume, error) {
	select {
	case r.rateSemaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.rateSemaphore }()

	return r.catalog.ListVolumes(ctx, manga, offset, r.pageSize)
}

func (r *Refresher) updateMetadata(ctx context.Context, mangaID string) {
	fetched, err := r.catalog.GetManga(ctx, mangaID)
	if err != nil {
		r.logger.Warn("manga_metadata_fetch_failed", "manga_id", mangaID, "error", err)
		return
	}
	if _, err := r.mangas.UpdateMetadata(ctx, fetched); err != nil {
		r.logger.Warn("manga_metadata_update_failed", "manga_id", mangaID, "error", err)
	}
}

func (r *Refresher) recordState(ctx context.Context, syncType, status, cursor string, syncErr error) {
	if r.syncs == nil {
		return
	}
	if err := r.syncs.Update(ctx, syncType, status, cursor, syncErr); err != nil {
		r.logger.Warn("sync_state_update_failed", "sync_type", syncType, "status", status, "error", err)
	}
}
