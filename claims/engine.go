package claims

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"projectclaim/models"
)

// Engine enforces the claim lifecycle rules: who may claim a project, when a
// claim may be approved, and how approval cascades into the rest of the
// ledger. Every operation runs as one serializable transaction; either all
// invariants hold when it returns, or nothing changed.
type Engine struct {
	store  Store
	logger *logrus.Logger
}

func NewEngine(store Store, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{store: store, logger: logger}
}

// Recompute derives a project's availability from its committed headcount.
func Recompute(capacity, committed int) bool {
	return committed < capacity
}

// CreateProject allocates a wraparound identifier and inserts the project.
// Allocation and insert share a transaction so concurrent creates cannot
// observe the same max id.
func (e *Engine) CreateProject(ctx context.Context, project *models.Project) error {
	if project.Capacity < models.MinCapacity || project.Capacity > models.MaxCapacity {
		return invalidf("capacity must be between %d and %d", models.MinCapacity, models.MaxCapacity)
	}
	return e.store.Atomic(ctx, func(r Repositories) error {
		id, err := r.Projects.NextID(ctx)
		if err != nil {
			return err
		}
		project.ID = id
		project.IsAvailable = true
		return r.Projects.Create(ctx, project)
	})
}

// Submit records a pending group claim. The checks run in a fixed order so
// error messages are deterministic: unknown students, oversized group,
// already-committed project, student committed elsewhere, duplicate pending
// claim on this project, residual capacity.
func (e *Engine) Submit(ctx context.Context, projectID uint, externalStudentIDs []string) (*models.ProjectClaim, error) {
	if len(externalStudentIDs) == 0 {
		return nil, invalidf("at least one student id is required")
	}
	seen := make(map[string]struct{}, len(externalStudentIDs))
	for _, id := range externalStudentIDs {
		if _, dup := seen[id]; dup {
			return nil, invalidf("duplicate student id %q", id)
		}
		seen[id] = struct{}{}
	}

	var claim *models.ProjectClaim
	err := e.store.Atomic(ctx, func(r Repositories) error {
		project, err := r.Projects.Get(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return notFoundf("project %d not found", projectID)
		}

		studentIDs, missing, err := r.Students.ResolveExternalIDs(ctx, externalStudentIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return notFoundf("unknown student id %q", missing[0])
		}

		if len(studentIDs) > project.Capacity {
			return conflictf("group of %d exceeds project capacity %d", len(studentIDs), project.Capacity)
		}

		approved, err := r.Claims.ApprovedExists(ctx, projectID)
		if err != nil {
			return err
		}
		if approved {
			return conflictf("project %d already has an approved claim", projectID)
		}

		committed, err := r.Projects.CommittedAnywhere(ctx, studentIDs)
		if err != nil {
			return err
		}
		if len(committed) > 0 {
			return conflictf("student is already committed to another project")
		}

		dup, err := r.Claims.PendingOnProjectNaming(ctx, projectID, studentIDs)
		if err != nil {
			return err
		}
		if dup {
			return conflictf("student already has a pending claim on this project")
		}

		headcount, err := r.Projects.CommittedCount(ctx, projectID)
		if err != nil {
			return err
		}
		if headcount+len(studentIDs) > project.Capacity {
			return conflictf("project has only %d seats remaining", project.Capacity-headcount)
		}

		claim = &models.ProjectClaim{ProjectID: projectID}
		for _, sid := range studentIDs {
			claim.Members = append(claim.Members, models.ClaimMember{StudentID: sid})
		}
		return r.Claims.Create(ctx, claim)
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"claim_id":   claim.ID,
		"group_size": len(claim.Members),
	}).Info("claim submitted")
	return claim, nil
}

// Approve commits a pending claim: the claim is stamped approved, the
// project's roster and claim timestamp are written, availability is
// recomputed, and every other pending claim anywhere that names one of the
// now-committed students is deleted. One transaction covers all of it.
func (e *Engine) Approve(ctx context.Context, claimID, professorID uint) (*models.ProjectClaim, error) {
	var (
		claim   *models.ProjectClaim
		evicted []uint
	)
	err := e.store.Atomic(ctx, func(r Repositories) error {
		var err error
		claim, err = r.Claims.Get(ctx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFoundf("claim %d not found", claimID)
		}
		if claim.Approved {
			return conflictf("claim %d is already approved", claimID)
		}

		project, err := r.Projects.Get(ctx, claim.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return notFoundf("project %d not found", claim.ProjectID)
		}
		if project.ProfessorID != professorID {
			return forbiddenf("only the owning professor may approve this claim")
		}

		approved, err := r.Claims.ApprovedExists(ctx, claim.ProjectID)
		if err != nil {
			return err
		}
		if approved {
			return conflictf("project %d already has an approved claim", claim.ProjectID)
		}

		studentIDs := claim.StudentIDs()
		committed, err := r.Projects.CommittedAnywhere(ctx, studentIDs)
		if err != nil {
			return err
		}
		if len(committed) > 0 {
			return conflictf("student is already committed to another project")
		}

		now := time.Now()
		if err := r.Claims.Approve(ctx, claim.ID, now); err != nil {
			return err
		}
		if err := r.Projects.AddMembers(ctx, claim.ProjectID, studentIDs); err != nil {
			return err
		}

		headcount, err := r.Projects.CommittedCount(ctx, claim.ProjectID)
		if err != nil {
			return err
		}
		if err := r.Projects.SetAvailability(ctx, claim.ProjectID, Recompute(project.Capacity, headcount), &now); err != nil {
			return err
		}

		// Cascade: competing pending claims naming a committed student are
		// now impossible and are removed rather than left to be rejected.
		evicted, err = r.Claims.PendingNaming(ctx, studentIDs, claim.ID)
		if err != nil {
			return err
		}
		if len(evicted) > 0 {
			if err := r.Claims.Delete(ctx, evicted...); err != nil {
				return err
			}
		}

		claim.Approved = true
		claim.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"claim_id":        claim.ID,
		"project_id":      claim.ProjectID,
		"evicted_pending": len(evicted),
	}).Info("claim approved")
	return claim, nil
}

// Reject deletes a pending claim. Availability is untouched.
func (e *Engine) Reject(ctx context.Context, claimID, professorID uint) error {
	return e.store.Atomic(ctx, func(r Repositories) error {
		claim, err := r.Claims.Get(ctx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return notFoundf("claim %d not found", claimID)
		}
		if claim.Approved {
			return conflictf("claim %d is already approved", claimID)
		}

		project, err := r.Projects.Get(ctx, claim.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return notFoundf("project %d not found", claim.ProjectID)
		}
		if project.ProfessorID != professorID {
			return forbiddenf("only the owning professor may reject this claim")
		}
		return r.Claims.Delete(ctx, claim.ID)
	})
}

// Cancel withdraws a student's own pending claim. Approved claims are
// immutable here: a student cannot unilaterally withdraw once committed.
func (e *Engine) Cancel(ctx context.Context, projectID, studentID uint) error {
	return e.store.Atomic(ctx, func(r Repositories) error {
		return cancelPending(ctx, r, projectID, studentID)
	})
}

// ProfessorCancel removes a pending claim naming the given student, authorized
// by project ownership instead of student identity.
func (e *Engine) ProfessorCancel(ctx context.Context, projectID uint, externalStudentID string, professorID uint) error {
	return e.store.Atomic(ctx, func(r Repositories) error {
		project, err := r.Projects.Get(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return notFoundf("project %d not found", projectID)
		}
		if project.ProfessorID != professorID {
			return forbiddenf("only the owning professor may cancel claims on this project")
		}

		resolved, missing, err := r.Students.ResolveExternalIDs(ctx, []string{externalStudentID})
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return notFoundf("unknown student id %q", missing[0])
		}
		return cancelPending(ctx, r, projectID, resolved[0])
	})
}

func cancelPending(ctx context.Context, r Repositories, projectID, studentID uint) error {
	claim, err := r.Claims.FindByProjectAndStudent(ctx, projectID, studentID)
	if err != nil {
		return err
	}
	if claim == nil {
		return notFoundf("no claim on project %d for this student", projectID)
	}
	if claim.Approved {
		return conflictf("claim is already approved and cannot be withdrawn")
	}
	return r.Claims.Delete(ctx, claim.ID)
}

// ClearClaims is a maintenance operation for the owning professor: every
// claim and roster entry on the project is deleted and the project re-opens.
func (e *Engine) ClearClaims(ctx context.Context, projectID, professorID uint) error {
	err := e.store.Atomic(ctx, func(r Repositories) error {
		project, err := r.Projects.Get(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return notFoundf("project %d not found", projectID)
		}
		if project.ProfessorID != professorID {
			return forbiddenf("only the owning professor may clear claims on this project")
		}
		if err := r.Claims.DeleteByProject(ctx, projectID); err != nil {
			return err
		}
		if err := r.Projects.ClearMembers(ctx, projectID); err != nil {
			return err
		}
		return r.Projects.SetAvailability(ctx, projectID, true, nil)
	})
	if err != nil {
		return err
	}
	e.logger.WithField("project_id", projectID).Info("claims cleared")
	return nil
}

// RecomputeAvailability re-derives the availability flag from the committed
// headcount. Idempotent.
func (e *Engine) RecomputeAvailability(ctx context.Context, projectID uint) error {
	return e.store.Atomic(ctx, func(r Repositories) error {
		project, err := r.Projects.Get(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return notFoundf("project %d not found", projectID)
		}
		headcount, err := r.Projects.CommittedCount(ctx, projectID)
		if err != nil {
			return err
		}
		return r.Projects.SetAvailability(ctx, projectID, Recompute(project.Capacity, headcount), project.ClaimedAt)
	})
}

// DeleteProject removes a project owned by the professor together with its
// claims and roster.
func (e *Engine) DeleteProject(ctx context.Context, projectID, professorID uint) error {
	return e.store.Atomic(ctx, func(r Repositories) error {
		project, err := r.Projects.Get(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return notFoundf("project %d not found", projectID)
		}
		if project.ProfessorID != professorID {
			return forbiddenf("only the owning professor may delete this project")
		}
		if err := r.Claims.DeleteByProject(ctx, projectID); err != nil {
			return err
		}
		if err := r.Projects.ClearMembers(ctx, projectID); err != nil {
			return err
		}
		return r.Projects.Delete(ctx, projectID)
	})
}
