// internal/storage/catalog.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mcp-plan-generator/internal/models"
)

const catalogQuery = `
    SELECT id, name, category, equipment, joint_load
    FROM exercises
    ORDER BY name
`

// ListExercises returns the canonical catalog ordered by name. Callers read it
// once per request and resolve against that snapshot.
func (s *SQLStorage) ListExercises(ctx context.Context) ([]models.CatalogExercise, error) {
	rows, err := s.db.QueryContext(ctx, catalogQuery)
	if err != nil {
		return nil, &models.PersistenceError{Op: "query exercise catalog", Err: err}
	}
	defer rows.Close()

	var catalog []models.CatalogExercise
	for rows.Next() {
		var (
			ex        models.CatalogExercise
			jointLoad string
		)
		if err := rows.Scan(&ex.ID, &ex.Name, &ex.Category, &ex.Equipment, &jointLoad); err != nil {
			return nil, &models.PersistenceError{Op: "scan exercise", Err: err}
		}
		ex.JointLoad = splitTags(jointLoad)
		catalog = append(catalog, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "read exercise catalog", Err: err}
	}
	return catalog, nil
}

// UpsertExercises adds new catalog entries and refreshes the attributes of
// existing ones. Known names keep their id.
func (s *SQLStorage) UpsertExercises(ctx context.Context, exercises []models.CatalogExercise) (int, error) {
	query := s.rebind(`
        INSERT INTO exercises (id, name, category, equipment, joint_load)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (name) DO UPDATE SET
            category = excluded.category,
            equipment = excluded.equipment,
            joint_load = excluded.joint_load
    `)

	count := 0
	err := s.inTx(ctx, "upsert exercises", func(tx *sql.Tx) error {
		count = 0
		for _, ex := range exercises {
			name := strings.TrimSpace(ex.Name)
			if name == "" {
				return fmt.Errorf("exercise %d has no name", count)
			}
			id := ex.ID
			if id == "" {
				id = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, query,
				id, name, ex.Category, ex.Equipment, strings.Join(ex.JointLoad, ",")); err != nil {
				return &models.PersistenceError{Op: "upsert exercise " + name, Err: err}
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// catalogNamesTx reads the catalog names inside a running transaction.
func (s *SQLStorage) catalogNamesTx(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM exercises ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
