package services

import (
	"context"

	"event-marketplace/internal/models"
)

func requireUser(user *models.User) error {
	if user == nil || user.ID == "" {
		return models.ErrUnauthenticated
	}
	return nil
}

func requireAdmin(user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if !user.IsAdmin() {
		return models.ErrForbidden
	}
	return nil
}

// canManageEvent reports whether user may act as the event's organizer
func canManageEvent(user *models.User, event *models.Event) bool {
	if user.IsAdmin() {
		return true
	}
	return user.HasRole(models.RoleOrganiser) && event.OwnerID == user.ID
}

// ticketAuthority allows the ticket owner, an admin, or the organiser who owns
// the ticket's event. Anyone else gets ErrNotOwner.
func ticketAuthority(ctx context.Context, catalog CatalogStore, user *models.User, ticket *models.Ticket) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if ticket.UserID == user.ID || user.IsAdmin() {
		return nil
	}
	if !user.HasRole(models.RoleOrganiser) {
		return models.ErrNotOwner
	}
	event, err := catalog.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return err
	}
	if !canManageEvent(user, event) {
		return models.ErrNotOwner
	}
	return nil
}
