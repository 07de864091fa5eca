package claims

import (
	"context"
	"time"

	"projectclaim/models"
)

// ProjectRepository is the engine's view of the project directory.
// Implementations must report missing rows with a nil project, not an error.
type ProjectRepository interface {
	Get(ctx context.Context, id uint) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uint) error

	// NextID allocates the next project identifier: max existing id plus one,
	// wrapping to models.ProjectIDFloor past models.ProjectIDCeil.
	NextID(ctx context.Context) (uint, error)

	// CommittedCount is the size of the project's committed roster.
	CommittedCount(ctx context.Context, projectID uint) (int, error)
	// CommittedAnywhere filters studentIDs down to those already on any
	// project's committed roster.
	CommittedAnywhere(ctx context.Context, studentIDs []uint) ([]uint, error)
	AddMembers(ctx context.Context, projectID uint, studentIDs []uint) error
	ClearMembers(ctx context.Context, projectID uint) error

	SetAvailability(ctx context.Context, projectID uint, available bool, claimedAt *time.Time) error
}

// ClaimRepository is the engine's view of the claim ledger.
type ClaimRepository interface {
	Get(ctx context.Context, id uint) (*models.ProjectClaim, error)
	Create(ctx context.Context, claim *models.ProjectClaim) error
	Delete(ctx context.Context, ids ...uint) error
	DeleteByProject(ctx context.Context, projectID uint) error
	Approve(ctx context.Context, id uint, at time.Time) error

	// ApprovedExists reports whether the project already carries an approved
	// claim.
	ApprovedExists(ctx context.Context, projectID uint) (bool, error)
	// FindByProjectAndStudent returns the claim (any status) on projectID that
	// names studentID, or nil.
	FindByProjectAndStudent(ctx context.Context, projectID, studentID uint) (*models.ProjectClaim, error)
	// PendingOnProjectNaming reports whether any pending claim on projectID
	// names one of studentIDs.
	PendingOnProjectNaming(ctx context.Context, projectID uint, studentIDs []uint) (bool, error)
	// PendingNaming returns the ids of every pending claim, on any project,
	// that names one of studentIDs, excluding excludeID.
	PendingNaming(ctx context.Context, studentIDs []uint, excludeID uint) ([]uint, error)
}

// StudentRepository resolves external student identifiers.
type StudentRepository interface {
	// ResolveExternalIDs maps external 10-char student ids onto internal row
	// ids, preserving order. Unknown ids are reported in missing.
	ResolveExternalIDs(ctx context.Context, externalIDs []string) (resolved []uint, missing []string, err error)
}

// Repositories bundles the stores a single atomic operation may touch.
type Repositories struct {
	Projects ProjectRepository
	Claims   ClaimRepository
	Students StudentRepository
}

// Store runs a function against the repositories as one atomic unit. The
// backing store's transaction isolation is the sole concurrency-correctness
// mechanism; implementations must use a serializable transaction.
type Store interface {
	Atomic(ctx context.Context, fn func(r Repositories) error) error
}
