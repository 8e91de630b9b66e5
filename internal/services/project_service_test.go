package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
)

func activeOwners() *MockUserRepository {
	return &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			switch id {
			case 404:
				return nil, models.ErrNotFound
			case 403:
				return &models.User{ID: id, Active: false}, nil
			}
			return &models.User{ID: id, Active: true}, nil
		},
	}
}

func projectRepoWith(projects ...*models.Project) *MockProjectRepository {
	return &MockProjectRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Project, error) {
			for _, p := range projects {
				if p.ID == id {
					cp := *p
					return &cp, nil
				}
			}
			return nil, models.ErrNotFound
		},
	}
}

func TestProjectService_Create(t *testing.T) {
	repo := &MockProjectRepository{
		CreateFunc: func(ctx context.Context, p *models.Project) (*models.Project, error) {
			p.ID = 11
			return p, nil
		},
	}
	audit := &MockAuditor{}
	svc := NewProjectService(repo, activeOwners(), audit, testLogger())

	p, err := svc.Create(context.Background(), generalActor(8), ProjectInput{Name: "  Casa Norte ", Phases: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.OwnerID)
	assert.Equal(t, "Casa Norte", p.Name)
	assert.Equal(t, models.AuditActionProjectCreate, audit.Last().Action)
	assert.Equal(t, models.AuditTargetProject, audit.Last().TargetType)
}

func TestProjectService_Create_Rejections(t *testing.T) {
	svc := NewProjectService(&MockProjectRepository{}, activeOwners(), &MockAuditor{}, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, generalActor(8), ProjectInput{Name: "", Phases: 1})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Create(ctx, generalActor(8), ProjectInput{Name: "X", Phases: 4})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Create(ctx, generalActor(404), ProjectInput{Name: "X", Phases: 1})
	assert.ErrorIs(t, err, models.ErrInvalidReference)

	_, err = svc.Create(ctx, generalActor(403), ProjectInput{Name: "X", Phases: 1})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestProjectService_List_ScopedToOwner(t *testing.T) {
	var got models.ProjectSearch
	repo := &MockProjectRepository{
		SearchFunc: func(ctx context.Context, search models.ProjectSearch) ([]*models.Project, error) {
			got = search
			return nil, nil
		},
	}
	svc := NewProjectService(repo, activeOwners(), &MockAuditor{}, testLogger())

	other := int64(99)
	_, err := svc.List(context.Background(), generalActor(8), models.ProjectSearch{OwnerID: &other})
	require.NoError(t, err)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, int64(8), *got.OwnerID)

	_, err = svc.List(context.Background(), adminActor(), models.ProjectSearch{})
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
}

func TestProjectService_Get_Ownership(t *testing.T) {
	svc := NewProjectService(projectRepoWith(&models.Project{ID: 3, OwnerID: 8}), activeOwners(), &MockAuditor{}, testLogger())
	ctx := context.Background()

	_, err := svc.Get(ctx, generalActor(8), 3)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, generalActor(9), 3)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.Get(ctx, adminActor(), 3)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, adminActor(), 4)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProjectService_UpdateDelete_AdminOnly(t *testing.T) {
	repo := projectRepoWith(&models.Project{ID: 3, OwnerID: 8, Name: "Old", Phases: 1})
	deleted := int64(0)
	repo.DeleteFunc = func(ctx context.Context, id int64) error {
		deleted = id
		return nil
	}
	audit := &MockAuditor{}
	svc := NewProjectService(repo, activeOwners(), audit, testLogger())
	ctx := context.Background()

	_, err := svc.Update(ctx, generalActor(8), 3, ProjectInput{Name: "New", Phases: 3})
	assert.ErrorIs(t, err, models.ErrForbidden)

	p, err := svc.Update(ctx, adminActor(), 3, ProjectInput{Name: "New", Phases: 3})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, 3, p.Phases)

	assert.ErrorIs(t, svc.Delete(ctx, generalActor(8), 3), models.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, adminActor(), 3))
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, []string{models.AuditActionProjectUpdate, models.AuditActionProjectDelete}, audit.Actions())
}

func TestProjectService_RepositoryErrorsHidden(t *testing.T) {
	repo := &MockProjectRepository{
		SearchFunc: func(ctx context.Context, search models.ProjectSearch) ([]*models.Project, error) {
			return nil, errors.New("syntax error at or near")
		},
	}
	svc := NewProjectService(repo, activeOwners(), &MockAuditor{}, testLogger())

	_, err := svc.List(context.Background(), adminActor(), models.ProjectSearch{})
	assert.Equal(t, models.ErrInternalServer, err)
}
