//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/handlers"
	"github.com/BradenHooton/swgfv/internal/models"
)

func loggedInClient(t *testing.T, srv *TestServer, role string) (*http.Client, *models.User) {
	t.Helper()
	email := TestEmail(role)
	user, err := SeedUser(context.Background(), testDB.DB, email, TestPassword, role)
	require.NoError(t, err)

	client := srv.NewClient()
	resp, err := srv.Login(client, email, TestPassword, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return client, user
}

func TestSizing_ResubmitReplacesStoredResult(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	srv := NewTestServer(testDB.DB)
	defer srv.Close()

	panelID, irradianceID, err := SeedCatalog(ctx, testDB.DB)
	require.NoError(t, err)
	client, _ := loggedInClient(t, srv, models.RoleGeneral)

	var project handlers.ProjectResponse
	resp, err := srv.DoJSON(client, http.MethodPost, "/projects", handlers.ProjectRequest{Name: "Rooftop", Phases: 1}, &project)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	monthly := map[string]float64{}
	for m := 1; m <= 12; m++ {
		monthly[fmt.Sprintf("m%02d", m)] = 300
	}
	path := fmt.Sprintf("/projects/%d/sizing", project.ID)

	var first handlers.SizingResponse
	resp, err = srv.DoJSON(client, http.MethodPost, path, handlers.SizingRequest{
		BillingMode: "monthly", PanelID: panelID, IrradianceID: irradianceID, Efficiency: 0.8, Consumption: monthly,
	}, &first)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, first.Result.Periods, 12)
	assert.Greater(t, first.Result.PanelCount, 0)

	bimonthly := map[string]float64{"b1": 600, "b2": 600, "b3": 600, "b4": 600, "b5": 600, "b6": 600}
	var second handlers.SizingResponse
	resp, err = srv.DoJSON(client, http.MethodPost, path, handlers.SizingRequest{
		BillingMode: "bimonthly", PanelID: panelID, IrradianceID: irradianceID, Efficiency: 0.7, Consumption: bimonthly,
	}, &second)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, second.Result.Periods, 6)

	var stored handlers.SizingResponse
	resp, err = srv.DoJSON(client, http.MethodGet, path, nil, &stored)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bimonthly", stored.Input.BillingMode)
	assert.Equal(t, 0.7, stored.Input.Efficiency)
	assert.Equal(t, second.Result.PanelCount, stored.Result.PanelCount)

	var inputs, results int
	require.NoError(t, testDB.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sizing_inputs WHERE project_id = $1`, project.ID).Scan(&inputs))
	require.NoError(t, testDB.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sizing_results WHERE project_id = $1`, project.ID).Scan(&results))
	assert.Equal(t, 1, inputs)
	assert.Equal(t, 1, results)
}

func TestSizing_UnknownPanelIsInvalidReference(t *testing.T) {
	resetDatabase(t)
	srv := NewTestServer(testDB.DB)
	defer srv.Close()

	client, _ := loggedInClient(t, srv, models.RoleGeneral)
	var project handlers.ProjectResponse
	_, err := srv.DoJSON(client, http.MethodPost, "/projects", handlers.ProjectRequest{Name: "Ghost", Phases: 3}, &project)
	require.NoError(t, err)

	bimonthly := map[string]float64{"b1": 1, "b2": 1, "b3": 1, "b4": 1, "b5": 1, "b6": 1}
	resp, err := srv.DoJSON(client, http.MethodPost, fmt.Sprintf("/projects/%d/sizing", project.ID), handlers.SizingRequest{
		BillingMode: "bimonthly", PanelID: 999, IrradianceID: 999, Efficiency: 0.8, Consumption: bimonthly,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestProjects_GeneralUserCannotSeeOthersProjects(t *testing.T) {
	resetDatabase(t)
	srv := NewTestServer(testDB.DB)
	defer srv.Close()

	owner, _ := loggedInClient(t, srv, models.RoleGeneral)
	other, _ := loggedInClient(t, srv, models.RoleGeneral)

	var project handlers.ProjectResponse
	_, err := srv.DoJSON(owner, http.MethodPost, "/projects", handlers.ProjectRequest{Name: "Private", Phases: 2}, &project)
	require.NoError(t, err)

	resp, err := srv.DoJSON(other, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
