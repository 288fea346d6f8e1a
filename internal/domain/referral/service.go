package referral

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/directory"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/patient"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/db"
)

type patientReader interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type directoryReader interface {
	GetDepartment(ctx context.Context, id uuid.UUID) (*directory.Department, error)
	InterventionsFor(ctx context.Context, ids []uuid.UUID) ([]*directory.Intervention, error)
}

type Service struct {
	referrals Repository
	patients  patientReader
	dir       directoryReader
	tx        db.TxRunner
	now       func() time.Time
}

func NewService(referrals Repository, patients patientReader, dir directoryReader, tx db.TxRunner) *Service {
	return &Service{referrals: referrals, patients: patients, dir: dir, tx: tx, now: time.Now}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// validateRouting checks the origin/destination pair and that every
// requested intervention type belongs to the destination department's
// specialty catalog.
func (s *Service) validateRouting(ctx context.Context, ref *Referral) (*directory.Department, error) {
	ref.RequestedInterventionIDs = dedupe(ref.RequestedInterventionIDs)
	if ref.OriginDepartmentID == ref.DestinationDepartmentID {
		return nil, apperror.Validation("destination_department_id", "must differ from origin")
	}
	if _, err := s.dir.GetDepartment(ctx, ref.OriginDepartmentID); err != nil {
		return nil, apperror.Validation("origin_department_id", "unknown department")
	}
	dest, err := s.dir.GetDepartment(ctx, ref.DestinationDepartmentID)
	if err != nil {
		return nil, apperror.Validation("destination_department_id", "unknown department")
	}

	if len(ref.RequestedInterventionIDs) > 0 {
		ivs, err := s.dir.InterventionsFor(ctx, ref.RequestedInterventionIDs)
		if err != nil {
			return nil, err
		}
		if len(ivs) != len(ref.RequestedInterventionIDs) {
			return nil, apperror.Validation("requested_intervention_ids", "unknown intervention type")
		}
		for _, iv := range ivs {
			if iv.SpecialtyID != dest.SpecialtyID {
				return nil, apperror.Validation("requested_intervention_ids", "intervention type is not in the destination department's specialty")
			}
		}
	}
	return dest, nil
}

func (s *Service) Create(ctx context.Context, ref *Referral) error {
	if _, err := s.patients.Get(ctx, ref.PatientID); err != nil {
		return apperror.Validation("patient_id", "unknown or hidden patient")
	}
	if ref.ReferringTherapistID == uuid.Nil {
		return apperror.Validation("referring_therapist_id", "is required")
	}
	dest, err := s.validateRouting(ctx, ref)
	if err != nil {
		return err
	}
	if ref.Priority == 0 {
		ref.Priority = dest.DefaultPriority
	}
	if !ref.Priority.Valid() {
		return apperror.Validation("priority", "must be between 1 and 3")
	}

	ref.Status = status.ReferralActive
	ref.TriageDecision = status.TriagePending
	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.referrals.Create(ctx, ref)
	}); err != nil {
		return err
	}
	ref.present()
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Referral, error) {
	ref, err := s.referrals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ref.present()
	return ref, nil
}

// Update edits the clinical content of a referral. Terminal referrals are
// frozen; success and cancelled are reachable only through Complete and
// Triage, never through Update.
func (s *Service) Update(ctx context.Context, ref *Referral) error {
	existing, err := s.referrals.GetByID(ctx, ref.ID)
	if err != nil {
		return err
	}
	if existing.Status.Terminal() {
		return apperror.InvalidState("referral can no longer be edited", string(existing.Status))
	}

	if ref.Status == "" {
		ref.Status = existing.Status
	}
	if !ref.Status.Valid() {
		return apperror.Validation("status", "unknown status")
	}
	if ref.Status.Terminal() {
		return apperror.Validation("status", "set through triage or complete, not update")
	}
	if ref.Priority == 0 {
		ref.Priority = existing.Priority
	}
	if !ref.Priority.Valid() {
		return apperror.Validation("priority", "must be between 1 and 3")
	}

	// Routing fields that Update cannot change come from the stored row.
	ref.PatientID = existing.PatientID
	ref.OriginDepartmentID = existing.OriginDepartmentID
	ref.ReferringTherapistID = existing.ReferringTherapistID
	if ref.DestinationDepartmentID == uuid.Nil {
		ref.DestinationDepartmentID = existing.DestinationDepartmentID
	}
	if _, err := s.validateRouting(ctx, ref); err != nil {
		return err
	}

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.referrals.Update(ctx, ref)
	}); err != nil {
		return err
	}
	ref.TriageDecision = existing.TriageDecision
	ref.Hidden = existing.Hidden
	ref.present()
	return nil
}

// Triage records the destination department's decision. The decision is
// made once: the underlying update is compare-and-swap on
// (status, triage_decision) and a lost race surfaces as Conflict.
func (s *Service) Triage(ctx context.Context, id uuid.UUID, action TriageAction, note string, newDestination *uuid.UUID) (*Referral, error) {
	ref, err := s.referrals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ref.Status != status.ReferralActive || ref.TriageDecision != status.TriagePending {
		return nil, apperror.InvalidState("referral has already been triaged",
			status.PresentedReferral(ref.Status, ref.TriageDecision))
	}

	var notePtr *string
	if strings.TrimSpace(note) != "" {
		notePtr = &note
	}

	var won bool
	err = s.tx(ctx, func(ctx context.Context) error {
		var casErr error
		switch action {
		case ActionAccept:
			won, casErr = s.referrals.CASAccept(ctx, id, notePtr)
		case ActionReject:
			if strings.TrimSpace(note) == "" {
				return apperror.Validation("note", "rejection reason is required")
			}
			won, casErr = s.referrals.CASReject(ctx, id, note)
		case ActionRedirect:
			if newDestination == nil {
				return apperror.Validation("new_destination_id", "is required")
			}
			if *newDestination == ref.OriginDepartmentID {
				return apperror.Validation("new_destination_id", "must differ from origin")
			}
			if *newDestination == ref.DestinationDepartmentID {
				return apperror.Validation("new_destination_id", "must differ from current destination")
			}
			newDest, err := s.dir.GetDepartment(ctx, *newDestination)
			if err != nil {
				return apperror.Validation("new_destination_id", "unknown department")
			}
			// Redirect re-queues the referral, so the requested types must
			// fit the new department's catalog just as they did at create.
			if len(ref.RequestedInterventionIDs) > 0 {
				ivs, err := s.dir.InterventionsFor(ctx, ref.RequestedInterventionIDs)
				if err != nil {
					return err
				}
				for _, iv := range ivs {
					if iv.SpecialtyID != newDest.SpecialtyID {
						return apperror.Validation("new_destination_id", "requested intervention types are not in the new department's specialty")
					}
				}
			}
			won, casErr = s.referrals.CASRedirect(ctx, id, *newDestination, notePtr)
		default:
			return apperror.Validation("action", "must be accept, reject or redirect")
		}
		return casErr
	})
	if err != nil {
		return nil, err
	}
	if !won {
		if _, err := s.referrals.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperror.Conflict("referral was triaged concurrently")
	}
	return s.Get(ctx, id)
}

// Complete closes an active accepted referral as successful.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, outcomeNotes string) (*Referral, error) {
	if strings.TrimSpace(outcomeNotes) == "" {
		return nil, apperror.Validation("outcome_notes", "is required")
	}
	ref, err := s.referrals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ref.Actionable() {
		return nil, apperror.InvalidState("referral must be active and accepted to complete",
			status.PresentedReferral(ref.Status, ref.TriageDecision))
	}

	var won bool
	err = s.tx(ctx, func(ctx context.Context) error {
		var casErr error
		won, casErr = s.referrals.CASComplete(ctx, id, outcomeNotes, s.now())
		return casErr
	})
	if err != nil {
		return nil, err
	}
	if !won {
		if _, err := s.referrals.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperror.Conflict("referral was updated concurrently")
	}
	return s.Get(ctx, id)
}

// ToggleActive hides or restores a referral. The business status is not
// touched, so restoring brings back exactly the pre-hide status.
func (s *Service) ToggleActive(ctx context.Context, id uuid.UUID) (*Referral, error) {
	ref, err := s.referrals.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.referrals.SetHidden(ctx, id, !ref.Hidden); err != nil {
		return nil, err
	}
	ref.Hidden = !ref.Hidden
	ref.present()
	return ref, nil
}

func (s *Service) List(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Referral, int, error) {
	if dir, ok := params["direction"]; ok {
		if dir != "incoming" && dir != "outgoing" {
			return nil, 0, apperror.Validation("direction", "must be incoming or outgoing")
		}
		if _, err := uuid.Parse(params["department_id"]); err != nil {
			return nil, 0, apperror.Validation("department_id", "a department id is required with direction")
		}
	}
	items, total, err := s.referrals.List(ctx, params, sort, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, ref := range items {
		ref.present()
	}
	return items, total, nil
}
