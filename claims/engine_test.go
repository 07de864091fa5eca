package claims

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectclaim/models"
)

// fakeState is an in-memory ledger backing the repository interfaces. Atomic
// snapshots it before each operation and restores it on error, matching the
// rollback behavior of the real store.
type fakeState struct {
	projects    map[uint]*models.Project
	members     map[uint][]uint
	claims      map[uint]*models.ProjectClaim
	students    map[string]uint
	nextClaimID uint
}

func newFakeState() *fakeState {
	return &fakeState{
		projects:    make(map[uint]*models.Project),
		members:     make(map[uint][]uint),
		claims:      make(map[uint]*models.ProjectClaim),
		students:    make(map[string]uint),
		nextClaimID: 1,
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	c.nextClaimID = s.nextClaimID
	for id, p := range s.projects {
		cp := *p
		c.projects[id] = &cp
	}
	for id, m := range s.members {
		c.members[id] = append([]uint(nil), m...)
	}
	for id, cl := range s.claims {
		cc := *cl
		cc.Members = append([]models.ClaimMember(nil), cl.Members...)
		c.claims[id] = &cc
	}
	for ext, id := range s.students {
		c.students[ext] = id
	}
	return c
}

func (s *fakeState) addProject(id, professorID uint, capacity int) {
	s.projects[id] = &models.Project{
		ID:          id,
		ProfessorID: professorID,
		Capacity:    capacity,
		IsAvailable: true,
	}
}

func (s *fakeState) addStudent(external string, id uint) {
	s.students[external] = id
}

func (s *fakeState) addPending(projectID uint, studentIDs ...uint) uint {
	id := s.nextClaimID
	s.nextClaimID++
	claim := &models.ProjectClaim{ProjectID: projectID}
	claim.ID = id
	for _, sid := range studentIDs {
		claim.Members = append(claim.Members, models.ClaimMember{ClaimID: id, StudentID: sid})
	}
	s.claims[id] = claim
	return id
}

type fakeStore struct {
	s *fakeState
}

func (f *fakeStore) Atomic(ctx context.Context, fn func(r Repositories) error) error {
	snapshot := f.s.clone()
	r := Repositories{
		Projects: &fakeProjects{f.s},
		Claims:   &fakeClaims{f.s},
		Students: &fakeStudents{f.s},
	}
	if err := fn(r); err != nil {
		*f.s = *snapshot
		return err
	}
	return nil
}

type fakeProjects struct {
	s *fakeState
}

func (f *fakeProjects) Get(ctx context.Context, id uint) (*models.Project, error) {
	p, ok := f.s.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) Create(ctx context.Context, project *models.Project) error {
	cp := *project
	f.s.projects[project.ID] = &cp
	return nil
}

func (f *fakeProjects) Delete(ctx context.Context, id uint) error {
	delete(f.s.projects, id)
	return nil
}

func (f *fakeProjects) NextID(ctx context.Context) (uint, error) {
	var max uint
	for id := range f.s.projects {
		if id > max {
			max = id
		}
	}
	next := max + 1
	if next < models.ProjectIDFloor || next > models.ProjectIDCeil {
		next = models.ProjectIDFloor
	}
	return next, nil
}

func (f *fakeProjects) CommittedCount(ctx context.Context, projectID uint) (int, error) {
	return len(f.s.members[projectID]), nil
}

func (f *fakeProjects) CommittedAnywhere(ctx context.Context, studentIDs []uint) ([]uint, error) {
	committed := make(map[uint]struct{})
	for _, roster := range f.s.members {
		for _, sid := range roster {
			committed[sid] = struct{}{}
		}
	}
	var hits []uint
	for _, sid := range studentIDs {
		if _, ok := committed[sid]; ok {
			hits = append(hits, sid)
		}
	}
	return hits, nil
}

func (f *fakeProjects) AddMembers(ctx context.Context, projectID uint, studentIDs []uint) error {
	f.s.members[projectID] = append(f.s.members[projectID], studentIDs...)
	return nil
}

func (f *fakeProjects) ClearMembers(ctx context.Context, projectID uint) error {
	delete(f.s.members, projectID)
	return nil
}

func (f *fakeProjects) SetAvailability(ctx context.Context, projectID uint, available bool, claimedAt *time.Time) error {
	p, ok := f.s.projects[projectID]
	if !ok {
		return nil
	}
	p.IsAvailable = available
	p.ClaimedAt = claimedAt
	return nil
}

type fakeClaims struct {
	s *fakeState
}

func (f *fakeClaims) Get(ctx context.Context, id uint) (*models.ProjectClaim, error) {
	c, ok := f.s.claims[id]
	if !ok {
		return nil, nil
	}
	cc := *c
	cc.Members = append([]models.ClaimMember(nil), c.Members...)
	return &cc, nil
}

func (f *fakeClaims) Create(ctx context.Context, claim *models.ProjectClaim) error {
	claim.ID = f.s.nextClaimID
	f.s.nextClaimID++
	claim.CreatedAt = time.Now()
	cc := *claim
	cc.Members = append([]models.ClaimMember(nil), claim.Members...)
	f.s.claims[claim.ID] = &cc
	return nil
}

func (f *fakeClaims) Delete(ctx context.Context, ids ...uint) error {
	for _, id := range ids {
		delete(f.s.claims, id)
	}
	return nil
}

func (f *fakeClaims) DeleteByProject(ctx context.Context, projectID uint) error {
	for id, c := range f.s.claims {
		if c.ProjectID == projectID {
			delete(f.s.claims, id)
		}
	}
	return nil
}

func (f *fakeClaims) Approve(ctx context.Context, id uint, at time.Time) error {
	if c, ok := f.s.claims[id]; ok {
		c.Approved = true
		c.ApprovedAt = &at
	}
	return nil
}

func (f *fakeClaims) ApprovedExists(ctx context.Context, projectID uint) (bool, error) {
	for _, c := range f.s.claims {
		if c.ProjectID == projectID && c.Approved {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeClaims) FindByProjectAndStudent(ctx context.Context, projectID, studentID uint) (*models.ProjectClaim, error) {
	for _, c := range f.s.claims {
		if c.ProjectID == projectID && c.HasStudent(studentID) {
			cc := *c
			cc.Members = append([]models.ClaimMember(nil), c.Members...)
			return &cc, nil
		}
	}
	return nil, nil
}

func (f *fakeClaims) PendingOnProjectNaming(ctx context.Context, projectID uint, studentIDs []uint) (bool, error) {
	for _, c := range f.s.claims {
		if c.ProjectID != projectID || c.Approved {
			continue
		}
		for _, sid := range studentIDs {
			if c.HasStudent(sid) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeClaims) PendingNaming(ctx context.Context, studentIDs []uint, excludeID uint) ([]uint, error) {
	var ids []uint
	for id, c := range f.s.claims {
		if c.Approved || id == excludeID {
			continue
		}
		for _, sid := range studentIDs {
			if c.HasStudent(sid) {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

type fakeStudents struct {
	s *fakeState
}

func (f *fakeStudents) ResolveExternalIDs(ctx context.Context, externalIDs []string) ([]uint, []string, error) {
	var resolved []uint
	var missing []string
	for _, ext := range externalIDs {
		if id, ok := f.s.students[ext]; ok {
			resolved = append(resolved, id)
		} else {
			missing = append(missing, ext)
		}
	}
	return resolved, missing, nil
}

func newTestEngine() (*Engine, *fakeState) {
	state := newFakeState()
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return NewEngine(&fakeStore{s: state}, lg), state
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok, "expected a lifecycle error, got %v", err)
	assert.Equal(t, kind, e.Kind)
}

func TestRecompute(t *testing.T) {
	assert.True(t, Recompute(4, 0))
	assert.True(t, Recompute(4, 3))
	assert.False(t, Recompute(4, 4))
	assert.False(t, Recompute(1, 1))
	assert.False(t, Recompute(2, 3))
}

func TestCreateProjectAllocatesIDs(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()

	first := &models.Project{ProfessorID: 1, Title: "Compilers", Capacity: 2}
	require.NoError(t, engine.CreateProject(ctx, first))
	assert.Equal(t, uint(models.ProjectIDFloor), first.ID)
	assert.True(t, first.IsAvailable)

	second := &models.Project{ProfessorID: 1, Title: "Databases", Capacity: 3}
	require.NoError(t, engine.CreateProject(ctx, second))
	assert.Equal(t, uint(models.ProjectIDFloor+1), second.ID)

	// Past the ceiling the counter wraps back to the floor.
	state.addProject(models.ProjectIDCeil, 1, 2)
	third := &models.Project{ProfessorID: 1, Title: "Networks", Capacity: 2}
	require.NoError(t, engine.CreateProject(ctx, third))
	assert.Equal(t, uint(models.ProjectIDFloor), third.ID)
}

func TestCreateProjectCapacityBounds(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	requireKind(t, engine.CreateProject(ctx, &models.Project{Capacity: 0}), KindInvalidInput)
	requireKind(t, engine.CreateProject(ctx, &models.Project{Capacity: 5}), KindInvalidInput)
	require.NoError(t, engine.CreateProject(ctx, &models.Project{Capacity: 1}))
	require.NoError(t, engine.CreateProject(ctx, &models.Project{Capacity: 4}))
}

func TestSubmitCreatesPendingClaim(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 3)
	state.addStudent("0000000001", 11)
	state.addStudent("0000000002", 12)

	claim, err := engine.Submit(ctx, 1000, []string{"0000000001", "0000000002"})
	require.NoError(t, err)
	assert.False(t, claim.Approved)
	assert.Equal(t, uint(1000), claim.ProjectID)
	assert.Equal(t, []uint{11, 12}, claim.StudentIDs())
	assert.Len(t, state.claims, 1)

	// Submitting does not commit anyone.
	assert.Empty(t, state.members[1000])
	assert.True(t, state.projects[1000].IsAvailable)
}

func TestSubmitValidation(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	state.addStudent("0000000001", 11)

	_, err := engine.Submit(ctx, 1000, nil)
	requireKind(t, err, KindInvalidInput)

	_, err = engine.Submit(ctx, 1000, []string{"0000000001", "0000000001"})
	requireKind(t, err, KindInvalidInput)

	_, err = engine.Submit(ctx, 9998, []string{"0000000001"})
	requireKind(t, err, KindNotFound)

	_, err = engine.Submit(ctx, 1000, []string{"0000000001", "0000000099"})
	requireKind(t, err, KindNotFound)
}

func TestSubmitGroupExceedsCapacity(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	for i, ext := range []string{"0000000001", "0000000002", "0000000003"} {
		state.addStudent(ext, uint(11+i))
	}

	_, err := engine.Submit(ctx, 1000, []string{"0000000001", "0000000002", "0000000003"})
	requireKind(t, err, KindConflict)
	assert.Empty(t, state.claims)
}

func TestSubmitBlockedByApprovedClaim(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 3)
	state.addStudent("0000000001", 11)
	state.addStudent("0000000002", 12)
	claimID := state.addPending(1000, 12)
	state.claims[claimID].Approved = true

	_, err := engine.Submit(ctx, 1000, []string{"0000000001"})
	requireKind(t, err, KindConflict)
}

func TestSubmitBlockedWhenCommittedElsewhere(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 3)
	state.addProject(1001, 8, 3)
	state.addStudent("0000000001", 11)
	state.members[1001] = []uint{11}

	_, err := engine.Submit(ctx, 1000, []string{"0000000001"})
	requireKind(t, err, KindConflict)
}

func TestSubmitDuplicatePendingOnSameProject(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 4)
	state.addStudent("0000000001", 11)
	state.addStudent("0000000002", 12)
	state.addPending(1000, 11)

	_, err := engine.Submit(ctx, 1000, []string{"0000000001", "0000000002"})
	requireKind(t, err, KindConflict)
}

func TestSubmitPendingOnOtherProjectAllowed(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 4)
	state.addProject(1001, 8, 4)
	state.addStudent("0000000001", 11)
	state.addPending(1000, 11)

	// A student may have pending claims on several projects at once.
	claim, err := engine.Submit(ctx, 1001, []string{"0000000001"})
	require.NoError(t, err)
	assert.Equal(t, uint(1001), claim.ProjectID)
}

func TestSubmitResidualCapacity(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 3)
	state.members[1000] = []uint{21, 22}
	state.addStudent("0000000001", 11)
	state.addStudent("0000000002", 12)

	before := len(state.claims)
	_, err := engine.Submit(ctx, 1000, []string{"0000000001", "0000000002"})
	requireKind(t, err, KindConflict)
	assert.Len(t, state.claims, before)
}

func TestApproveCommitsAndCascades(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	state.addProject(1001, 8, 2)
	winning := state.addPending(1000, 11, 12)
	rival := state.addPending(1001, 12)      // names a winner, gets evicted
	unrelated := state.addPending(1001, 13)  // survives

	claim, err := engine.Approve(ctx, winning, 7)
	require.NoError(t, err)
	assert.True(t, claim.Approved)
	require.NotNil(t, claim.ApprovedAt)

	assert.ElementsMatch(t, []uint{11, 12}, state.members[1000])
	assert.False(t, state.projects[1000].IsAvailable)
	require.NotNil(t, state.projects[1000].ClaimedAt)

	_, rivalLives := state.claims[rival]
	assert.False(t, rivalLives)
	_, unrelatedLives := state.claims[unrelated]
	assert.True(t, unrelatedLives)
}

func TestApproveUnderCapacityKeepsAvailability(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 3)
	claimID := state.addPending(1000, 11)

	_, err := engine.Approve(ctx, claimID, 7)
	require.NoError(t, err)
	assert.True(t, state.projects[1000].IsAvailable)
	assert.Equal(t, []uint{11}, state.members[1000])
}

func TestApproveAuthorization(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	claimID := state.addPending(1000, 11)

	_, err := engine.Approve(ctx, claimID, 99)
	requireKind(t, err, KindForbidden)

	_, err = engine.Approve(ctx, 404, 7)
	requireKind(t, err, KindNotFound)
}

func TestApproveFailuresLeaveLedgerUnchanged(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	state.addProject(1001, 8, 2)

	winner := state.addPending(1000, 11)
	_, err := engine.Approve(ctx, winner, 7)
	require.NoError(t, err)

	// Project already carries an approved claim.
	late := state.addPending(1000, 13)
	_, err = engine.Approve(ctx, late, 7)
	requireKind(t, err, KindConflict)
	assert.Equal(t, []uint{11}, state.members[1000])
	assert.False(t, state.claims[late].Approved)

	// Student 11 is committed on project 1000.
	elsewhere := state.addPending(1001, 11)
	_, err = engine.Approve(ctx, elsewhere, 8)
	requireKind(t, err, KindConflict)
	assert.Empty(t, state.members[1001])
}

func TestApproveTwiceConflicts(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	claimID := state.addPending(1000, 11)

	_, err := engine.Approve(ctx, claimID, 7)
	require.NoError(t, err)
	_, err = engine.Approve(ctx, claimID, 7)
	requireKind(t, err, KindConflict)
}

func TestReject(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	claimID := state.addPending(1000, 11)

	requireKind(t, engine.Reject(ctx, claimID, 99), KindForbidden)
	require.NoError(t, engine.Reject(ctx, claimID, 7))
	assert.Empty(t, state.claims)
	assert.True(t, state.projects[1000].IsAvailable)

	requireKind(t, engine.Reject(ctx, claimID, 7), KindNotFound)
}

func TestRejectApprovedClaim(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	claimID := state.addPending(1000, 11)
	state.claims[claimID].Approved = true

	requireKind(t, engine.Reject(ctx, claimID, 7), KindConflict)
}

func TestCancel(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	state.addPending(1000, 11)

	requireKind(t, engine.Cancel(ctx, 1000, 99), KindNotFound)
	require.NoError(t, engine.Cancel(ctx, 1000, 11))
	assert.Empty(t, state.claims)
}

func TestCancelApprovedClaim(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	claimID := state.addPending(1000, 11)
	state.claims[claimID].Approved = true

	requireKind(t, engine.Cancel(ctx, 1000, 11), KindConflict)
	assert.Len(t, state.claims, 1)
}

func TestProfessorCancel(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	state.addStudent("0000000001", 11)
	state.addPending(1000, 11)

	requireKind(t, engine.ProfessorCancel(ctx, 1000, "0000000001", 99), KindForbidden)
	requireKind(t, engine.ProfessorCancel(ctx, 1000, "0000000099", 7), KindNotFound)
	require.NoError(t, engine.ProfessorCancel(ctx, 1000, "0000000001", 7))
	assert.Empty(t, state.claims)
}

func TestClearClaims(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	claimID := state.addPending(1000, 11)

	_, err := engine.Approve(ctx, claimID, 7)
	require.NoError(t, err)
	state.addPending(1000, 12)

	requireKind(t, engine.ClearClaims(ctx, 1000, 99), KindForbidden)

	require.NoError(t, engine.ClearClaims(ctx, 1000, 7))
	assert.Empty(t, state.claims)
	assert.Empty(t, state.members[1000])
	assert.True(t, state.projects[1000].IsAvailable)
	assert.Nil(t, state.projects[1000].ClaimedAt)
}

func TestRecomputeAvailability(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	state.members[1000] = []uint{11, 12}
	state.projects[1000].IsAvailable = true

	require.NoError(t, engine.RecomputeAvailability(ctx, 1000))
	assert.False(t, state.projects[1000].IsAvailable)

	state.members[1000] = []uint{11}
	require.NoError(t, engine.RecomputeAvailability(ctx, 1000))
	assert.True(t, state.projects[1000].IsAvailable)
}

func TestDeleteProject(t *testing.T) {
	engine, state := newTestEngine()
	ctx := context.Background()
	state.addProject(1000, 7, 2)
	state.addPending(1000, 11)
	state.members[1000] = []uint{12}

	requireKind(t, engine.DeleteProject(ctx, 1000, 99), KindForbidden)

	require.NoError(t, engine.DeleteProject(ctx, 1000, 7))
	assert.Empty(t, state.projects)
	assert.Empty(t, state.claims)
	assert.Empty(t, state.members[1000])
}
