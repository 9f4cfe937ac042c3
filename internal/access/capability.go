package access

import (
	"context"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
)

// Capability names one workflow operation.
type Capability string

const (
	CapCreateCase            Capability = "case.create"
	CapTakeCase              Capability = "case.take"
	CapViewAvailableCases    Capability = "case.view_available"
	CapBookConsultation      Capability = "consultation.book"
	CapViewConsultationStats Capability = "consultation.stats"
	CapSendMessage           Capability = "message.send"
	CapEditProfile           Capability = "provider.edit_profile"
	CapViewClients           Capability = "provider.view_clients"
	CapVerifyProvider        Capability = "provider.verify"
	CapListProviders         Capability = "provider.list_all"
	// Координатор может менять статусы чужих дел и консультаций.
	CapOverrideStatus Capability = "status.override"
)

var capabilities = map[Capability][]model.Role{
	CapCreateCase:            {model.RoleClient},
	CapTakeCase:              {model.RoleProvider},
	CapViewAvailableCases:    {model.RoleProvider, model.RoleCoordinator},
	CapBookConsultation:      {model.RoleClient, model.RoleProvider},
	CapViewConsultationStats: {model.RoleProvider},
	CapSendMessage:           {model.RoleClient, model.RoleProvider, model.RoleCoordinator},
	CapEditProfile:           {model.RoleProvider},
	CapViewClients:           {model.RoleProvider},
	CapVerifyProvider:        {model.RoleCoordinator},
	CapListProviders:         {model.RoleCoordinator},
	CapOverrideStatus:        {model.RoleCoordinator},
}

// Allowed reports whether role holds capability c. Unknown capabilities are denied.
func Allowed(role model.Role, c Capability) bool {
	for _, r := range capabilities[c] {
		if r == role {
			return true
		}
	}
	return false
}

// Can is Allowed for a.
func (a Actor) Can(c Capability) bool {
	return Allowed(a.Role, c)
}

// Require returns the current actor if it holds c.
func Require(ctx context.Context, c Capability) (Actor, error) {
	a, err := CurrentActor(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !a.Can(c) {
		return Actor{}, domainerr.Newf(domainerr.CodeForbidden, "role %s may not perform %s", a.Role, c)
	}
	return a, nil
}
