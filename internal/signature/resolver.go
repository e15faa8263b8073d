package signature

import (
	"time"

	"github.com/google/uuid"

	"leaveflow/internal/domain"
)

// Signer is the resolver's input: one person who should appear on the
// document, with the organizational role that decides their slot.
type Signer struct {
	ID       uuid.UUID
	Name     string
	Role     domain.Role
	Payload  *string
	SignedAt *time.Time
}

// ResolvedSlot is one signature block on the document, in render order.
// Required is false for a collapsed slot: the person already owes a required
// signature under an earlier label and this one renders as informational.
type ResolvedSlot struct {
	Role     domain.SignatureRole
	Required bool
	SignerID uuid.UUID
	Name     string
	Payload  *string
	SignedAt *time.Time
}

// slotOrder fixes the render order of signature blocks on the document.
var slotOrder = []domain.SignatureRole{
	domain.SignatureEmployee,
	domain.SignatureManager,
	domain.SignatureDepartmentManager,
	domain.SignatureExecutive,
	domain.SignatureHR,
}

// Resolve maps the requester and the deciding approvers onto document slots.
//
// Each approver is labelled by the first matching rule: the requester's
// direct manager signs as manager, then EXECUTIVE as executive, then
// DEPARTMENT_DIRECTOR as department_manager, anyone else under the hr
// fallback. One person holding two positions (a director who is also the
// requester's direct manager) keeps the first label as the required slot;
// the label their system role owns is still emitted, marked not required,
// so the rendered document shows both lines without a duplicate obligation.
// A slot claimed by two different signers keeps the first. The requester
// always occupies the employee slot regardless of their role and never
// fills a second one. directManagerID is uuid.Nil when the requester has
// no manager.
func Resolve(requester Signer, directManagerID uuid.UUID, approvers []Signer) []ResolvedSlot {
	bySlot := make(map[domain.SignatureRole]ResolvedSlot, len(slotOrder))
	seen := make(map[uuid.UUID]struct{}, len(approvers)+1)

	bySlot[domain.SignatureEmployee] = ResolvedSlot{
		Role:     domain.SignatureEmployee,
		Required: true,
		SignerID: requester.ID,
		Name:     requester.Name,
		Payload:  requester.Payload,
		SignedAt: requester.SignedAt,
	}
	seen[requester.ID] = struct{}{}

	for _, a := range approvers {
		if a.ID == requester.ID {
			continue
		}
		_, dup := seen[a.ID]
		seen[a.ID] = struct{}{}

		for i, slot := range labelsFor(a, directManagerID) {
			if _, taken := bySlot[slot]; taken {
				continue
			}
			bySlot[slot] = ResolvedSlot{
				Role:     slot,
				Required: !dup && i == 0,
				SignerID: a.ID,
				Name:     a.Name,
				Payload:  a.Payload,
				SignedAt: a.SignedAt,
			}
		}
	}

	slots := make([]ResolvedSlot, 0, len(bySlot))
	for _, role := range slotOrder {
		if s, ok := bySlot[role]; ok {
			slots = append(slots, s)
		}
	}
	return slots
}

// labelsFor returns the approver's labels in rule order: the required slot
// first, then, for a direct manager whose system role owns a different slot,
// that slot as the collapsed second label.
func labelsFor(a Signer, directManagerID uuid.UUID) []domain.SignatureRole {
	var primary domain.SignatureRole
	switch {
	case directManagerID != uuid.Nil && a.ID == directManagerID:
		primary = domain.SignatureManager
	case a.Role == domain.RoleExecutive:
		primary = domain.SignatureExecutive
	case a.Role == domain.RoleDepartmentDirector:
		primary = domain.SignatureDepartmentManager
	default:
		primary = domain.SignatureHR
	}

	labels := []domain.SignatureRole{primary}
	if primary == domain.SignatureManager {
		if own := domain.Capabilities(a.Role).SignatureSlot; own != domain.SignatureManager && own != domain.SignatureEmployee {
			labels = append(labels, own)
		}
	}
	return labels
}
