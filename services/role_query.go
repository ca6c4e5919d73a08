package services

import (
	"context"

	"rolecenter/models"
)

// RoleQueryService is the read-only view joining roles with membership counts.
type RoleQueryService struct {
	store IdentityStore
}

func NewRoleQueryService(store IdentityStore) *RoleQueryService {
	return &RoleQueryService{store: store}
}

// Summaries returns every role with its member count. It never returns a nil slice.
func (q *RoleQueryService) Summaries(ctx context.Context) ([]models.RoleSummary, error) {
	summaries, err := q.store.RoleSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []models.RoleSummary{}
	}
	return summaries, nil
}
