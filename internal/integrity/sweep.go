// Package integrity drops installments whose owning client no longer exists.
package integrity

import (
	"strings"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// ValidOwners holds the known client names of each track, normalized with
// NormalizeName.
type ValidOwners struct {
	Principal map[string]struct{}
	Tarot     map[string]struct{}
}

// NormalizeName folds case and collapses whitespace in a client name for
// ownership comparison.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// OwnersFromRecords collects the valid client names of both tracks.
// Principal names come from appointments, tarot names from analyses.
func OwnersFromRecords(appointments []model.Appointment, analyses []model.Analysis) ValidOwners {
	owners := ValidOwners{
		Principal: make(map[string]struct{}, len(appointments)),
		Tarot:     make(map[string]struct{}, len(analyses)),
	}
	for _, a := range appointments {
		if name := NormalizeName(a.ClientName); name != "" {
			owners.Principal[name] = struct{}{}
		}
	}
	for _, a := range analyses {
		if name := NormalizeName(a.OwnerName()); name != "" {
			owners.Tarot[name] = struct{}{}
		}
	}
	return owners
}

// Owns reports whether name is a known client on track.
func (v ValidOwners) Owns(track model.Track, name string) bool {
	key := NormalizeName(name)
	if key == "" {
		return false
	}
	var set map[string]struct{}
	switch track {
	case model.TrackPrincipal:
		set = v.Principal
	case model.TrackTarot:
		set = v.Tarot
	}
	_, ok := set[key]
	return ok
}

// SweepOrphans returns the installments whose owner is known on their track,
// preserving order, along with the number dropped.
func SweepOrphans(installments []model.Installment, valid ValidOwners) ([]model.Installment, int) {
	retained := make([]model.Installment, 0, len(installments))
	for _, inst := range installments {
		if valid.Owns(inst.Track(), inst.OwnerClientName) {
			retained = append(retained, inst)
		}
	}
	return retained, len(installments) - len(retained)
}

// OrphanIDs lists the ids present in all but missing from retained.
func OrphanIDs(all, retained []model.Installment) []string {
	keep := make(map[string]struct{}, len(retained))
	for _, inst := range retained {
		keep[inst.ID] = struct{}{}
	}
	var ids []string
	for _, inst := range all {
		if _, ok := keep[inst.ID]; !ok {
			ids = append(ids, inst.ID)
		}
	}
	return ids
}
