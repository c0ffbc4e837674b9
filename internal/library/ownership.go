package library

import (
	"context"
	"fmt"
	"sync"

	"mangako/pkg/models"
)

// ToggleOwned flips the owned flag of one visible volume. The store is written
// first; the visible list changes only after that succeeds. Unknown ids are ignored.
func (s *VolumeSession) ToggleOwned(ctx context.Context, volumeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	list := s.Volumes.Get()
	idx := indexOf(list, volumeID)
	if idx < 0 {
		return nil
	}

	updated := list[idx]
	updated.Owned = !updated.Owned
	if err := s.volumes.Upsert(ctx, &updated); err != nil {
		return storageError(fmt.Sprintf("toggle owned %s", volumeID), err)
	}

	next := make([]models.Volume, len(list))
	copy(next, list)
	next[idx] = updated
	s.Volumes.Set(next)

	s.logger.Debug("volume_owned_toggled", "manga_id", s.manga.ID, "volume_id", volumeID, "owned", updated.Owned)
	return nil
}

// SetOwned sets owned on every visible volume whose id is in ids, as one
// store transaction. Ids that are not visible are skipped. It returns how many
// volumes were updated.
func (s *VolumeSession) SetOwned(ctx context.Context, ids []string, owned bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	list := s.Volumes.Get()
	var (
		batch   []models.Volume
		indices []int
	)
	for i, v := range list {
		if _, ok := want[v.ID]; ok {
			v.Owned = owned
			batch = append(batch, v)
			indices = append(indices, i)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}

	if err := s.volumes.UpsertBatch(ctx, batch); err != nil {
		return 0, storageError("set owned", err)
	}

	next := make([]models.Volume, len(list))
	copy(next, list)
	for j, i := range indices {
		next[i] = batch[j]
	}
	s.Volumes.Set(next)

	s.logger.Info("volumes_owned_set",
		"manga_id", s.manga.ID,
		"requested", len(ids),
		"applied", len(batch),
		"owned", owned,
	)
	return len(batch), nil
}

// SetOwnedForSelection applies owned to the current selection and, on
// success, ends multi-select.
func (s *VolumeSession) SetOwnedForSelection(ctx context.Context, owned bool) (int, error) {
	n, err := s.SetOwned(ctx, s.Selection.IDs(), owned)
	if err != nil {
		return 0, err
	}
	s.Selection.Finish()
	return n, nil
}

// SelectAllVolumes selects every visible volume while multi-select is active.
func (s *VolumeSession) SelectAllVolumes() bool {
	list := s.Volumes.Get()
	ids := make([]string, 0, len(list))
	for _, v := range list {
		ids = append(ids, v.ID)
	}
	return s.Selection.SelectAll(ids)
}

func indexOf(list []models.Volume, id string) int {
	for i, v := range list {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// OwnershipGate enforces that a manga is in the library before any of its
// volumes are marked owned. A mutation against a manga outside the library is
// parked and ErrConfirmationRequired returned; Confirm adds the manga and
// replays the parked mutation once, Cancel drops it.
type OwnershipGate struct {
	session    *VolumeSession
	membership *Membership

	mu      sync.Mutex
	pending func(context.Context) error
}

func NewOwnershipGate(session *VolumeSession, membership *Membership) *OwnershipGate {
	return &OwnershipGate{session: session, membership: membership}
}

func (g *OwnershipGate) RequestToggle(ctx context.Context, volumeID string) error {
	return g.request(ctx, func(ctx context.Context) error {
		return g.session.ToggleOwned(ctx, volumeID)
	})
}

func (g *OwnershipGate) RequestSetOwned(ctx context.Context, ids []string, owned bool) error {
	return g.request(ctx, func(ctx context.Context) error {
		_, err := g.session.SetOwned(ctx, ids, owned)
		return err
	})
}

func (g *OwnershipGate) RequestSetOwnedForSelection(ctx context.Context, owned bool) error {
	return g.request(ctx, func(ctx context.Context) error {
		_, err := g.session.SetOwnedForSelection(ctx, owned)
		return err
	})
}

// Pending reports whether a mutation is waiting for confirmation.
func (g *OwnershipGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// Confirm adds the manga to the library and replays the parked mutation.
// If adding fails the mutation stays parked. Without a parked mutation it is a no-op.
func (g *OwnershipGate) Confirm(ctx context.Context) error {
	g.mu.Lock()
	op := g.pending
	g.pending = nil
	g.mu.Unlock()
	if op == nil {
		return nil
	}

	if err := g.membership.AddToLibrary(ctx, g.session.Manga()); err != nil {
		g.mu.Lock()
		if g.pending == nil {
			g.pending = op
		}
		g.mu.Unlock()
		return err
	}
	return op(ctx)
}

// Cancel drops the parked mutation.
func (g *OwnershipGate) Cancel() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}

func (g *OwnershipGate) request(ctx context.Context, op func(context.Context) error) error {
	in, err := g.membership.IsInLibrary(ctx, g.session.Manga().ID)
	if err != nil {
		return err
	}
	if in {
		return op(ctx)
	}

	g.mu.Lock()
	g.pending = op
	g.mu.Unlock()
	return ErrConfirmationRequired
}
