package projects

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ProjectNotFoundError represents an error when a project is not found
type ProjectNotFoundError struct {
	ID uint
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("project not found: %d", e.ID)
}

// NewProjectNotFoundError creates a new ProjectNotFoundError
func NewProjectNotFoundError(id uint) *ProjectNotFoundError {
	return &ProjectNotFoundError{ID: id}
}

// Project represents a tenant-scoped analytics namespace. All raw events,
// sessions and daily summaries are scoped to one project.
type Project struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Domain    string    `gorm:"unique;not null" json:"domain"` // Base domain, e.g., "example.com"
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// GetProjectOrNotFound retrieves a project by ID
func GetProjectOrNotFound(db *gorm.DB, id uint) (*Project, error) {
	var project Project
	if err := db.First(&project, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewProjectNotFoundError(id)
		}
		return nil, fmt.Errorf("unexpected error querying project: %w", err)
	}
	return &project, nil
}

// Registry lists projects for the batch runner.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a registry backed by the given database connection.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// ActiveProjectIDs returns the IDs of all active projects, ordered by ID for
// deterministic batch reports.
func (r *Registry) ActiveProjectIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&Project{}).
		Where("active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active projects: %w", err)
	}
	return ids, nil
}
