// cmd/plan-generator/catalog.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-plan-generator/internal/models"
)

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the exercise catalog",
	}

	var file string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Insert or update catalog entries from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			exercises, err := loadCatalogFile(file)
			if err != nil {
				return err
			}

			store, err := a.openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.UpsertExercises(cmd.Context(), exercises)
			if err != nil {
				return fmt.Errorf("failed to seed catalog: %w", err)
			}
			a.logger.Info("catalog seeded", zap.String("file", file), zap.Int("count", n))
			return nil
		},
	}
	seed.Flags().StringVar(&file, "file", "exercises.json", "JSON array of catalog entries")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			catalog, err := store.ListExercises(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(catalog)
		},
	}

	cmd.AddCommand(seed, list)
	return cmd
}

func loadCatalogFile(path string) ([]models.CatalogExercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var exercises []models.CatalogExercise
	if err := json.Unmarshal(data, &exercises); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	if len(exercises) == 0 {
		return nil, fmt.Errorf("catalog file %s has no entries", path)
	}
	return exercises, nil
}
