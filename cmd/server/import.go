package main

import (
	"fmt"
	"path/filepath"

	"github.com/aceofaces/aoa-server/internal/page"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportPagesCmd(configPath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import-pages",
		Short: "Copy the CSV page tables into Postgres",
		Long: `Reads aoa_allies.csv and aoa_german.csv from the pages directory and
replaces each faction's rows in the aoa_pages table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if dir == "" {
				dir = cfg.Pages.Dir
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("database.url is required")
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := page.EnsureSchema(ctx, pool); err != nil {
				return err
			}

			for _, faction := range page.Factions {
				path := filepath.Join(dir, page.TableFileName(faction))
				rows, err := page.ReadCSVFile(path)
				if err != nil {
					return err
				}
				n, err := page.ImportRows(ctx, pool, faction, rows)
				if err != nil {
					return fmt.Errorf("import %s: %w", faction, err)
				}
				logger.Info("imported page table",
					zap.String("faction", string(faction)),
					zap.String("file", path),
					zap.Int("rows", n),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d pages imported\n", faction, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the CSV page tables (defaults to pages.dir)")
	return cmd
}
