package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/swgfv/internal/catalog"
	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/services"
)

// importer is the catalog service surface the CLI drives.
type importer interface {
	ImportPanels(ctx context.Context, source string, items []models.SolarPanel, clear bool) (*services.ImportReport, error)
	ImportInverters(ctx context.Context, source string, items []models.Inverter, clear bool) (*services.ImportReport, error)
	ImportMicroInverters(ctx context.Context, source string, items []models.MicroInverter, clear bool) (*services.ImportReport, error)
	ImportIrradiance(ctx context.Context, source string, items []models.Irradiance, clear bool) (*services.ImportReport, error)
}

type session struct {
	importer importer
	close    func()
}

type connectFunc func(ctx context.Context, migrate bool) (*session, error)

type env struct {
	connect connectFunc
	timeout time.Duration
}

func newRootCmd(e *env) *cobra.Command {
	if e.timeout == 0 {
		e.timeout = 5 * time.Minute
	}

	root := &cobra.Command{
		Use:          "catalog-import",
		Short:        "Import SWGFV catalogs from CSV files",
		SilenceUsage: true,
	}

	root.AddCommand(
		importCmd(e, services.CatalogPanels, "Import solar panels keyed by module id", importPanels),
		importCmd(e, services.CatalogInverters, "Import inverters keyed by brand and model", importInverters),
		importCmd(e, services.CatalogMicroInverters, "Import micro-inverters keyed by brand and model", importMicroInverters),
		importCmd(e, services.CatalogIrradiance, "Import irradiance keyed by city and state", importIrradiance),
		migrateCmd(e),
	)
	return root
}

// runImport parses one file and hands the rows to the importer. It returns
// the parser skips so they can be reported with the import totals.
type runImport func(ctx context.Context, imp importer, source string, r io.Reader, clear bool) (*services.ImportReport, []catalog.Skip, error)

func importCmd(e *env, name, short string, run runImport) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   name + " FILE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), e.timeout)
			defer cancel()

			s, err := e.connect(ctx, false)
			if err != nil {
				return err
			}
			defer s.close()

			report, skips, err := run(ctx, s.importer, path, f, clear)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, sk := range skips {
				fmt.Fprintf(out, "line %d skipped: %s\n", sk.Line, sk.Reason)
			}
			fmt.Fprintf(out, "%s: %d created, %d updated, %d skipped\n",
				report.Catalog, report.Created, report.Updated, report.Skipped+len(skips))
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "delete every existing row before importing")
	return cmd
}

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), e.timeout)
			defer cancel()

			s, err := e.connect(ctx, true)
			if err != nil {
				return err
			}
			s.close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func importPanels(ctx context.Context, imp importer, source string, r io.Reader, clear bool) (*services.ImportReport, []catalog.Skip, error) {
	res, err := catalog.ParsePanels(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", source, err)
	}
	report, err := imp.ImportPanels(ctx, source, res.Items, clear)
	return report, res.Skipped, err
}

func importInverters(ctx context.Context, imp importer, source string, r io.Reader, clear bool) (*services.ImportReport, []catalog.Skip, error) {
	res, err := catalog.ParseInverters(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", source, err)
	}
	report, err := imp.ImportInverters(ctx, source, res.Items, clear)
	return report, res.Skipped, err
}

func importMicroInverters(ctx context.Context, imp importer, source string, r io.Reader, clear bool) (*services.ImportReport, []catalog.Skip, error) {
	res, err := catalog.ParseMicroInverters(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", source, err)
	}
	report, err := imp.ImportMicroInverters(ctx, source, res.Items, clear)
	return report, res.Skipped, err
}

func importIrradiance(ctx context.Context, imp importer, source string, r io.Reader, clear bool) (*services.ImportReport, []catalog.Skip, error) {
	res, err := catalog.ParseIrradiance(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", source, err)
	}
	report, err := imp.ImportIrradiance(ctx, source, res.Items, clear)
	return report, res.Skipped, err
}
