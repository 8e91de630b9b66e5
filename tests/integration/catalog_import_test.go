//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/catalog"
	"github.com/BradenHooton/swgfv/internal/repositories"
	"github.com/BradenHooton/swgfv/internal/services"
)

func newCatalogService() *services.CatalogService {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	audit := services.NewAuditService(repositories.NewAuditLogRepository(testDB.DB), logger)
	return services.NewCatalogService(repositories.NewCatalogRepository(testDB.DB), audit, logger)
}

func TestImportPanels_UpsertsByModuleID(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	svc := newCatalogService()

	first, err := catalog.ParsePanels(strings.NewReader(
		"PK Id_modulo,Marca,Modelo,Potencia\n101,Acme,A550,550\n102,Acme,A600,600\n"))
	require.NoError(t, err)
	report, err := svc.ImportPanels(ctx, "first.csv", first.Items, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)

	second, err := catalog.ParsePanels(strings.NewReader(
		"PK Id_modulo,Marca,Modelo,Potencia\n101,Acme,A550 Plus,555\n103,Sol,S400,400\n"))
	require.NoError(t, err)
	report, err = svc.ImportPanels(ctx, "second.csv", second.Items, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)

	panels, err := svc.ListPanels(ctx)
	require.NoError(t, err)
	require.Len(t, panels, 3)

	var updated bool
	for _, p := range panels {
		if p.ModuleID == 101 {
			updated = true
			assert.Equal(t, "A550 Plus", p.Model)
			assert.Equal(t, 555.0, p.PowerW)
		}
	}
	assert.True(t, updated)
}

func TestImportIrradiance_ClearReplacesTable(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	svc := newCatalogService()

	const header = "Ciudad,Estado,Promedio,Ene,Feb,Mar,Abr,May,Jun,Jul,Ago,Sep,Oct,Nov,Dic\n"
	res, err := catalog.ParseIrradiance(strings.NewReader(header +
		"Hermosillo,Sonora,6,1,2,3,4,5,6,7,8,9,10,11,12\n" +
		"Mérida,Yucatán,5,1,2,3,4,5,6,7,8,9,10,11,12\n"))
	require.NoError(t, err)
	_, err = svc.ImportIrradiance(ctx, "a.csv", res.Items, false)
	require.NoError(t, err)

	res, err = catalog.ParseIrradiance(strings.NewReader(header + "Monterrey,Nuevo León,5.2,1,2,3,4,5,6,7,8,9,10,11,12\n"))
	require.NoError(t, err)
	report, err := svc.ImportIrradiance(ctx, "b.csv", res.Items, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	rows, err := svc.ListIrradiance(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Monterrey", rows[0].City)
	assert.Equal(t, 12.0, rows[0].Monthly[11])
}
