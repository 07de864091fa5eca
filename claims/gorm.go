package claims

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"projectclaim/models"
)

// GormStore runs engine operations inside serializable GORM transactions.
// All multi-step check-then-mutate sequences rely on the database's isolation
// rather than application-level locking.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Atomic(ctx context.Context, fn func(r Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repositories{
			Projects: &gormProjectRepo{tx: tx},
			Claims:   &gormClaimRepo{tx: tx},
			Students: &gormStudentRepo{tx: tx},
		})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

type gormProjectRepo struct {
	tx *gorm.DB
}

func (r *gormProjectRepo) Get(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.tx.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *gormProjectRepo) Create(ctx context.Context, project *models.Project) error {
	return r.tx.Create(project).Error
}

func (r *gormProjectRepo) Delete(ctx context.Context, id uint) error {
	return r.tx.Delete(&models.Project{}, "id = ?", id).Error
}

func (r *gormProjectRepo) NextID(ctx context.Context) (uint, error) {
	var max int64
	if err := r.tx.Model(&models.Project{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	next := uint(max) + 1
	if next < models.ProjectIDFloor || next > models.ProjectIDCeil {
		next = models.ProjectIDFloor
	}
	return next, nil
}

func (r *gormProjectRepo) CommittedCount(ctx context.Context, projectID uint) (int, error) {
	var count int64
	err := r.tx.Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return int(count), err
}

func (r *gormProjectRepo) CommittedAnywhere(ctx context.Context, studentIDs []uint) ([]uint, error) {
	var committed []uint
	err := r.tx.Model(&models.ProjectMember{}).
		Where("student_id IN ?", studentIDs).
		Pluck("student_id", &committed).Error
	return committed, err
}

func (r *gormProjectRepo) AddMembers(ctx context.Context, projectID uint, studentIDs []uint) error {
	members := make([]models.ProjectMember, 0, len(studentIDs))
	for _, sid := range studentIDs {
		members = append(members, models.ProjectMember{ProjectID: projectID, StudentID: sid})
	}
	return r.tx.Create(&members).Error
}

func (r *gormProjectRepo) ClearMembers(ctx context.Context, projectID uint) error {
	return r.tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error
}

func (r *gormProjectRepo) SetAvailability(ctx context.Context, projectID uint, available bool, claimedAt *time.Time) error {
	return r.tx.Model(&models.Project{}).
		Where("id = ?", projectID).
		Updates(map[string]interface{}{
			"is_available": available,
			"claimed_at":   claimedAt,
		}).Error
}

type gormClaimRepo struct {
	tx *gorm.DB
}

func (r *gormClaimRepo) Get(ctx context.Context, id uint) (*models.ProjectClaim, error) {
	var claim models.ProjectClaim
	if err := r.tx.Preload("Members").First(&claim, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

func (r *gormClaimRepo) Create(ctx context.Context, claim *models.ProjectClaim) error {
	return r.tx.Create(claim).Error
}

func (r *gormClaimRepo) Delete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.tx.Where("claim_id IN ?", ids).Delete(&models.ClaimMember{}).Error; err != nil {
		return err
	}
	return r.tx.Where("id IN ?", ids).Delete(&models.ProjectClaim{}).Error
}

func (r *gormClaimRepo) DeleteByProject(ctx context.Context, projectID uint) error {
	var ids []uint
	if err := r.tx.Model(&models.ProjectClaim{}).
		Where("project_id = ?", projectID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	return r.Delete(ctx, ids...)
}

func (r *gormClaimRepo) Approve(ctx context.Context, id uint, at time.Time) error {
	return r.tx.Model(&models.ProjectClaim{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"approved":    true,
			"approved_at": at,
		}).Error
}

func (r *gormClaimRepo) ApprovedExists(ctx context.Context, projectID uint) (bool, error) {
	var count int64
	err := r.tx.Model(&models.ProjectClaim{}).
		Where("project_id = ? AND approved = ?", projectID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *gormClaimRepo) FindByProjectAndStudent(ctx context.Context, projectID, studentID uint) (*models.ProjectClaim, error) {
	var claim models.ProjectClaim
	err := r.tx.Preload("Members").
		Joins("JOIN claim_members ON claim_members.claim_id = project_claims.id").
		Where("project_claims.project_id = ? AND claim_members.student_id = ?", projectID, studentID).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

func (r *gormClaimRepo) PendingOnProjectNaming(ctx context.Context, projectID uint, studentIDs []uint) (bool, error) {
	var count int64
	err := r.tx.Model(&models.ProjectClaim{}).
		Joins("JOIN claim_members ON claim_members.claim_id = project_claims.id").
		Where("project_claims.project_id = ? AND project_claims.approved = ? AND claim_members.student_id IN ?",
			projectID, false, studentIDs).
		Count(&count).Error
	return count > 0, err
}

func (r *gormClaimRepo) PendingNaming(ctx context.Context, studentIDs []uint, excludeID uint) ([]uint, error) {
	var ids []uint
	err := r.tx.Model(&models.ProjectClaim{}).
		Distinct("project_claims.id").
		Joins("JOIN claim_members ON claim_members.claim_id = project_claims.id").
		Where("project_claims.approved = ? AND claim_members.student_id IN ? AND project_claims.id <> ?",
			false, studentIDs, excludeID).
		Pluck("project_claims.id", &ids).Error
	return ids, err
}

type gormStudentRepo struct {
	tx *gorm.DB
}

func (r *gormStudentRepo) ResolveExternalIDs(ctx context.Context, externalIDs []string) ([]uint, []string, error) {
	var students []models.Student
	if err := r.tx.Where("student_id IN ?", externalIDs).Find(&students).Error; err != nil {
		return nil, nil, err
	}

	byExternal := make(map[string]uint, len(students))
	for _, s := range students {
		byExternal[s.StudentID] = s.ID
	}

	resolved := make([]uint, 0, len(externalIDs))
	var missing []string
	for _, ext := range externalIDs {
		id, ok := byExternal[ext]
		if !ok {
			missing = append(missing, ext)
			continue
		}
		resolved = append(resolved, id)
	}
	return resolved, missing, nil
}
