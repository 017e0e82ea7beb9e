// internal/models/catalog.go
package models

// CatalogExercise is an entry of the canonical exercise catalog. Name is
// unique across the catalog and ID never changes once assigned.
type CatalogExercise struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Equipment string   `json:"equipment"`
	JointLoad []string `json:"joint_load"`
}

// CatalogNames lists the names of the given entries in order.
func CatalogNames(catalog []CatalogExercise) []string {
	names := make([]string, 0, len(catalog))
	for _, c := range catalog {
		names = append(names, c.Name)
	}
	return names
}
