package ops

import (
	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/store"
)

// EnsureUser creates the local user row for the session user if it does not
// exist yet. Idempotent; returns the current row either way.
func (s *Service) EnsureUser(email string) (models.User, error) {
	userID, err := s.userID()
	if err != nil {
		return models.User{}, err
	}

	var out models.User
	err = s.store.WriteTx(func(tx *store.Tx) error {
		if u, err := s.currentUser(tx, userID); err != nil {
			return err
		} else if u != nil {
			out = *u
			return nil
		}

		now := s.now()
		out = models.User{
			ID:             userID,
			Email:          email,
			PreferredUnit:  models.UnitKg,
			NutritionPhase: models.PhaseMaintenance,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return tx.Create(models.TableUsers, out.Record())
	})
	return out, err
}

// SetPreferredUnit changes the user's weight unit for future set entry.
func (s *Service) SetPreferredUnit(unit models.WeightUnit) error {
	if unit != models.UnitKg && unit != models.UnitLbs {
		return invalidf("preferred_unit", "must be kg or lbs")
	}
	return s.updateUser(map[string]any{"preferred_unit": string(unit)})
}

// SetNutritionPhase changes the user's current phase. Existing workouts keep
// the phase they were created under.
func (s *Service) SetNutritionPhase(phase models.NutritionPhase) error {
	switch phase {
	case models.PhaseBulk, models.PhaseCut, models.PhaseMaintenance:
	default:
		return invalidf("nutrition_phase", "must be bulk, cut, or maintenance")
	}
	return s.updateUser(map[string]any{"nutrition_phase": string(phase)})
}

func (s *Service) updateUser(fields map[string]any) error {
	userID, err := s.userID()
	if err != nil {
		return err
	}
	return s.store.WriteTx(func(tx *store.Tx) error {
		u, err := s.currentUser(tx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return &NotFoundError{Kind: "user", ID: userID}
		}
		fields["updated_at"] = s.now()
		return tx.Update(models.TableUsers, userID, fields)
	})
}
