package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
	pkgauth "github.com/BradenHooton/swgfv/pkg/auth"
)

func validCreateInput() CreateUserInput {
	return CreateUserInput{
		Email:                " Luis@Example.com ",
		Password:             "Solar-Panel-42",
		PasswordConfirmation: "Solar-Panel-42",
		FirstName:            "Luis",
		PaternalSurname:      "Pérez",
	}
}

func TestUserService_Create_Success(t *testing.T) {
	var stored *models.User
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = 9
			stored = user
			return user, nil
		},
	}
	audit := &MockAuditor{}
	svc := NewUserService(repo, audit, testLogger())

	user, err := svc.Create(context.Background(), adminActor(), validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, "luis@example.com", user.Email)
	assert.Equal(t, models.RoleGeneral, user.Role)
	assert.True(t, user.Active)
	assert.NoError(t, pkgauth.ComparePassword(stored.PasswordHash, "Solar-Panel-42"))
	assert.Equal(t, models.AuditActionUserCreate, audit.Last().Action)
	assert.Equal(t, "9", audit.Last().TargetID)
}

func TestUserService_Create_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		actor  *models.Actor
		mutate func(*CreateUserInput)
		want   error
	}{
		{"non admin", generalActor(2), func(*CreateUserInput) {}, models.ErrForbidden},
		{"bad email", adminActor(), func(in *CreateUserInput) { in.Email = "not-an-email" }, models.ErrBadRequest},
		{"missing name", adminActor(), func(in *CreateUserInput) { in.FirstName = " " }, models.ErrBadRequest},
		{"bad role", adminActor(), func(in *CreateUserInput) { in.Role = "root" }, models.ErrBadRequest},
		{"confirmation mismatch", adminActor(), func(in *CreateUserInput) { in.PasswordConfirmation = "other" }, models.ErrBadRequest},
		{"weak password", adminActor(), func(in *CreateUserInput) { in.Password, in.PasswordConfirmation = "short", "short" }, models.ErrBadRequest},
		{"password resembles name", adminActor(), func(in *CreateUserInput) { in.Password, in.PasswordConfirmation = "Luis-Solar-42", "Luis-Solar-42" }, models.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewUserService(&MockUserRepository{}, &MockAuditor{}, testLogger())
			in := validCreateInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), tt.actor, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserService_Create_DuplicateEmailCaseInsensitive(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == "luis@example.com" {
				return &models.User{ID: 3, Email: email}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	svc := NewUserService(repo, &MockAuditor{}, testLogger())

	_, err := svc.Create(context.Background(), adminActor(), validCreateInput())
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserService_Get(t *testing.T) {
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
	svc := NewUserService(repo, &MockAuditor{}, testLogger())
	ctx := context.Background()

	_, err := svc.Get(ctx, generalActor(4), 4)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, generalActor(4), 5)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.Get(ctx, adminActor(), 5)
	assert.NoError(t, err)
}

func TestUserService_Search_AdminOnly(t *testing.T) {
	var got models.UserSearch
	repo := &MockUserRepository{
		SearchFunc: func(ctx context.Context, search models.UserSearch) ([]*models.User, error) {
			got = search
			return []*models.User{{ID: 1}}, nil
		},
	}
	svc := NewUserService(repo, &MockAuditor{}, testLogger())

	_, err := svc.Search(context.Background(), generalActor(2), models.UserSearch{})
	assert.ErrorIs(t, err, models.ErrForbidden)

	users, err := svc.Search(context.Background(), adminActor(), models.UserSearch{Name: "pér"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "pér", got.Name)
}

func TestUserService_Update(t *testing.T) {
	existing := func() *models.User {
		return &models.User{ID: 5, Email: "luis@example.com", FirstName: "Luis", PaternalSurname: "Pérez", Role: models.RoleGeneral, Active: true}
	}
	newRepo := func(passwordSet *string) *MockUserRepository {
		return &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
				if id == 5 {
					return existing(), nil
				}
				return &models.User{ID: id, FirstName: "Admin", PaternalSurname: "User", Role: models.RoleAdmin, Active: true}, nil
			},
			UpdatePasswordFunc: func(ctx context.Context, id int64, hash string) error {
				*passwordSet = hash
				return nil
			},
		}
	}

	t.Run("profile and password", func(t *testing.T) {
		var hash string
		audit := &MockAuditor{}
		svc := NewUserService(newRepo(&hash), audit, testLogger())
		phone := "555-0199"
		role := models.RoleAdmin

		user, err := svc.Update(context.Background(), adminActor(), 5, UpdateUserInput{
			Phone:                &phone,
			Role:                 &role,
			Password:             "Another-Secret-7",
			PasswordConfirmation: "Another-Secret-7",
		})
		require.NoError(t, err)
		assert.Equal(t, "555-0199", user.Phone)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.NoError(t, pkgauth.ComparePassword(hash, "Another-Secret-7"))
		assert.Equal(t, true, audit.Last().Metadata["password_changed"])
	})

	t.Run("self demotion", func(t *testing.T) {
		var hash string
		svc := NewUserService(newRepo(&hash), &MockAuditor{}, testLogger())
		role := models.RoleGeneral

		_, err := svc.Update(context.Background(), adminActor(), 1, UpdateUserInput{Role: &role})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("password mismatch", func(t *testing.T) {
		var hash string
		svc := NewUserService(newRepo(&hash), &MockAuditor{}, testLogger())

		_, err := svc.Update(context.Background(), adminActor(), 5, UpdateUserInput{Password: "Another-Secret-7", PasswordConfirmation: "x"})
		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "password_confirmation", ve.Field)
		assert.Empty(t, hash)
	})
}

func TestUserService_Deactivate(t *testing.T) {
	var updated *models.User
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return &models.User{ID: id, Active: true}, nil
		},
		UpdateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			updated = user
			return user, nil
		},
	}
	audit := &MockAuditor{}
	svc := NewUserService(repo, audit, testLogger())

	require.NoError(t, svc.Deactivate(context.Background(), adminActor(), 7))
	assert.False(t, updated.Active)
	assert.Equal(t, models.AuditActionUserDeactivate, audit.Last().Action)

	assert.ErrorIs(t, svc.Deactivate(context.Background(), adminActor(), 1), models.ErrBadRequest)
	assert.ErrorIs(t, svc.Deactivate(context.Background(), generalActor(3), 7), models.ErrForbidden)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	t.Run("creates first admin", func(t *testing.T) {
		var created *models.User
		repo := &MockUserRepository{
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				user.ID = 1
				created = user
				return user, nil
			},
		}
		audit := &MockAuditor{}
		svc := NewUserService(repo, audit, testLogger())

		ok, err := svc.EnsureAdmin(context.Background(), "root@example.com", "Bootstrap-Pass-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, models.RoleAdmin, created.Role)
		assert.Nil(t, audit.Last().ActorID)
	})

	t.Run("skips when users exist", func(t *testing.T) {
		repo := &MockUserRepository{
			CountFunc: func(ctx context.Context) (int64, error) { return 2, nil },
		}
		svc := NewUserService(repo, &MockAuditor{}, testLogger())

		ok, err := svc.EnsureAdmin(context.Background(), "root@example.com", "Bootstrap-Pass-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
