package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/services"
)

type fakeImporter struct {
	panels     []models.SolarPanel
	irradiance []models.Irradiance
	clear      bool
	err        error
}

func (f *fakeImporter) ImportPanels(ctx context.Context, source string, items []models.SolarPanel, clear bool) (*services.ImportReport, error) {
	f.panels, f.clear = items, clear
	if f.err != nil {
		return nil, f.err
	}
	return &services.ImportReport{Catalog: services.CatalogPanels, Created: len(items)}, nil
}

func (f *fakeImporter) ImportInverters(ctx context.Context, source string, items []models.Inverter, clear bool) (*services.ImportReport, error) {
	return &services.ImportReport{Catalog: services.CatalogInverters, Updated: len(items)}, nil
}

func (f *fakeImporter) ImportMicroInverters(ctx context.Context, source string, items []models.MicroInverter, clear bool) (*services.ImportReport, error) {
	return &services.ImportReport{Catalog: services.CatalogMicroInverters, Created: len(items)}, nil
}

func (f *fakeImporter) ImportIrradiance(ctx context.Context, source string, items []models.Irradiance, clear bool) (*services.ImportReport, error) {
	f.irradiance, f.clear = items, clear
	return &services.ImportReport{Catalog: services.CatalogIrradiance, Created: 1, Updated: len(items) - 1}, nil
}

func runCLI(t *testing.T, imp *fakeImporter, args ...string) (string, error) {
	t.Helper()
	closed := false
	e := &env{connect: func(ctx context.Context, migrate bool) (*session, error) {
		return &session{importer: imp, close: func() { closed = true }}, nil
	}}

	root := newRootCmd(e)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		assert.True(t, closed, "database session must be closed")
	}
	return out.String(), err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestPanelsCommand_ReportsTotalsAndSkips(t *testing.T) {
	path := writeCSV(t, "PK Id_modulo,Marca,Modelo,Potencia,Voc\n"+
		"101,Acme,A550,550,\"49,5\"\n"+
		",Acme,NoID,400,\n"+
		"102,Acme,A600,600,\n")
	imp := &fakeImporter{}

	out, err := runCLI(t, imp, "panels", "--clear", path)

	require.NoError(t, err)
	require.Len(t, imp.panels, 2)
	assert.True(t, imp.clear)
	require.NotNil(t, imp.panels[0].Voc)
	assert.Equal(t, 49.5, *imp.panels[0].Voc)
	assert.Contains(t, out, "line 3 skipped: missing module id")
	assert.Contains(t, out, "panels: 2 created, 0 updated, 1 skipped")
}

func TestIrradianceCommand_AccentedHeaders(t *testing.T) {
	path := writeCSV(t, "Ciudad,Estado,Región,Tarifa,Promedio,Ene,Feb,Mar,Abr,May,Jun,Jul,Ago,Sep,Oct,Nov,Dic\n"+
		"Hermosillo,Sonora,Noroeste,1F,6.2,4.5,5.5,6.5,7.2,7.8,7.6,6.6,6.3,6.2,5.8,4.9,4.3\n"+
		"Mérida,Yucatán,Sureste,1C,5.4,4.4,5.1,5.9,6.2,6.1,5.7,5.7,5.6,5.2,4.9,4.5,4.2\n")
	imp := &fakeImporter{}

	out, err := runCLI(t, imp, "irradiance", path)

	require.NoError(t, err)
	require.Len(t, imp.irradiance, 2)
	assert.False(t, imp.clear)
	assert.Equal(t, "Noroeste", imp.irradiance[0].Region)
	assert.Equal(t, 5.5, imp.irradiance[0].Monthly[1])
	assert.Contains(t, out, "irradiance: 1 created, 1 updated, 0 skipped")
}

func TestImportCommand_ImportFailureIsReturned(t *testing.T) {
	path := writeCSV(t, "PK Id_modulo,Marca,Modelo,Potencia\n101,Acme,A550,550\n")
	imp := &fakeImporter{err: errors.New("import panels: duplicate key")}

	_, err := runCLI(t, imp, "panels", path)

	assert.ErrorContains(t, err, "duplicate key")
}

func TestImportCommand_RequiresFileArgument(t *testing.T) {
	_, err := runCLI(t, &fakeImporter{}, "inverters")
	assert.Error(t, err)
}

func TestImportCommand_MissingFile(t *testing.T) {
	_, err := runCLI(t, &fakeImporter{}, "microinverters", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	var migrated bool
	e := &env{connect: func(ctx context.Context, migrate bool) (*session, error) {
		migrated = migrate
		return &session{importer: &fakeImporter{}, close: func() {}}, nil
	}}
	root := newRootCmd(e)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"migrate"})

	require.NoError(t, root.Execute())
	assert.True(t, migrated)
	assert.Contains(t, out.String(), "migrations applied")
}
