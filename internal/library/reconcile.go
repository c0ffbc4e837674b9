package library

import (
	"strings"
	"time"

	"mangako/pkg/models"
)

// Reconcile collapses incoming catalog records to one record per volume number
// and carries ownership over from existing records of the same slot.
//
// Within a slot the record with the greatest source timestamp wins; a missing
// timestamp sorts lowest and ties keep the earlier record. Unnumbered records
// are never merged with each other. Output follows the order in which each
// slot first appears in incoming.
func Reconcile(existing, incoming []models.Volume) []models.Volume {
	out := dedupe(incoming)
	CarryOwnership(existing, out)
	return out
}

// Merge appends a freshly fetched page to an already reconciled list.
// The page is deduplicated first; a page record whose slot is already present
// replaces the existing entry in place only when it is strictly newer, and
// keeps the existing entry's ownership. Unseen slots are appended.
func Merge(existing, page []models.Volume) []models.Volume {
	out := make([]models.Volume, len(existing), len(existing)+len(page))
	copy(out, existing)

	slots := make(map[string]int, len(out))
	ids := make(map[string]int, len(out))
	for i, v := range out {
		if k := v.Key(); k != "" {
			if _, ok := slots[k]; !ok {
				slots[k] = i
			}
		}
		ids[v.ID] = i
	}

	for _, v := range dedupe(page) {
		k := v.Key()

		if k != "" {
			if i, ok := slots[k]; ok {
				if compareUpdatedAt(v.SourceUpdatedAt, out[i].SourceUpdatedAt) > 0 {
					v.Owned = out[i].Owned
					delete(ids, out[i].ID)
					out[i] = v
					ids[v.ID] = i
				}
				continue
			}
		}

		// same cover seen again under an unnumbered or renumbered slot
		if i, ok := ids[v.ID]; ok {
			if old := out[i].Key(); old != "" && slots[old] == i {
				delete(slots, old)
			}
			v.Owned = out[i].Owned
			out[i] = v
			if k != "" {
				slots[k] = i
			}
			continue
		}

		if k != "" {
			slots[k] = len(out)
		}
		ids[v.ID] = len(out)
		out = append(out, v)
	}
	return out
}

// CarryOwnership copies the owned flag from existing records onto incoming
// records in place. Numbered records match by slot, unnumbered ones by id.
// When several existing records share a slot, ownership of any of them wins.
func CarryOwnership(existing, incoming []models.Volume) {
	if len(existing) == 0 {
		return
	}
	bySlot := make(map[string]bool, len(existing))
	byID := make(map[string]bool, len(existing))
	for _, v := range existing {
		if k := v.Key(); k != "" {
			bySlot[k] = bySlot[k] || v.Owned
		} else {
			byID[v.ID] = v.Owned
		}
	}

	for i := range incoming {
		if k := incoming[i].Key(); k != "" {
			if owned, ok := bySlot[k]; ok {
				incoming[i].Owned = owned
			}
		} else if owned, ok := byID[incoming[i].ID]; ok {
			incoming[i].Owned = owned
		}
	}
}

func dedupe(in []models.Volume) []models.Volume {
	out := make([]models.Volume, 0, len(in))
	slots := make(map[string]int, len(in))
	for _, v := range in {
		v.Classify()
		k := v.Key()
		if k == "" {
			out = append(out, v)
			continue
		}
		if i, ok := slots[k]; ok {
			if compareUpdatedAt(v.SourceUpdatedAt, out[i].SourceUpdatedAt) > 0 {
				out[i] = v
			}
			continue
		}
		slots[k] = len(out)
		out = append(out, v)
	}
	return out
}

// compareUpdatedAt orders source timestamps. Missing values sort lowest.
// RFC 3339 values compare as instants, anything else lexicographically.
func compareUpdatedAt(a, b *string) int {
	av, bv := deref(a), deref(b)
	switch {
	case av == bv:
		return 0
	case av == "":
		return -1
	case bv == "":
		return 1
	}

	ta, errA := time.Parse(time.RFC3339, av)
	tb, errB := time.Parse(time.RFC3339, bv)
	if errA == nil && errB == nil {
		return ta.Compare(tb)
	}
	return strings.Compare(av, bv)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
