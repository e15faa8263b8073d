package domain

import "fmt"

// Role is the closed set of organizational roles the engine reasons about.
// All role-based branching (chain building, escalation targeting, signature
// slot resolution) goes through Capabilities below instead of comparing raw
// strings in handlers.
type Role int

const (
	RoleEmployee Role = iota
	RoleManager
	RoleDepartmentDirector
	RoleExecutive
	RoleHR
)

const (
	roleEmployeeLabel  = "EMPLOYEE"
	roleManagerLabel   = "MANAGER"
	roleDirectorLabel  = "DEPARTMENT_DIRECTOR"
	roleExecutiveLabel = "EXECUTIVE"
	roleHRLabel        = "HR"
)

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return roleEmployeeLabel
	case RoleManager:
		return roleManagerLabel
	case RoleDepartmentDirector:
		return roleDirectorLabel
	case RoleExecutive:
		return roleExecutiveLabel
	case RoleHR:
		return roleHRLabel
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole maps the persisted label back to a Role. Unknown labels come back
// as RoleEmployee with ok=false so callers can decide whether to reject.
func ParseRole(label string) (Role, bool) {
	switch label {
	case roleEmployeeLabel:
		return RoleEmployee, true
	case roleManagerLabel:
		return RoleManager, true
	case roleDirectorLabel:
		return RoleDepartmentDirector, true
	case roleExecutiveLabel:
		return RoleExecutive, true
	case roleHRLabel:
		return RoleHR, true
	}
	return RoleEmployee, false
}

// SignatureRole is the fixed label set a generated document's signature block
// is keyed by. At most one signature per (document, role).
type SignatureRole string

const (
	SignatureEmployee          SignatureRole = "employee"
	SignatureManager           SignatureRole = "manager"
	SignatureDepartmentManager SignatureRole = "department_manager"
	SignatureExecutive         SignatureRole = "executive"
	SignatureHR                SignatureRole = "hr"
)

// RoleCapabilities is the single place deciding what an organizational role
// may do inside the lifecycle engine.
type RoleCapabilities struct {
	// CanApprove: the role can own an approval level.
	CanApprove bool
	// CanAdminCancel: the role may cancel someone else's request.
	CanAdminCancel bool
	// CanVerifyDocuments: the role handles the HR verification pre-gate.
	CanVerifyDocuments bool
	// EscalationRank orders roles for escalation targeting; a level escalates
	// to the nearest role with a strictly higher rank.
	EscalationRank int
	// SignatureSlot is the document slot this role signs under when it is not
	// the requester's direct manager.
	SignatureSlot SignatureRole
}

// Capabilities resolves a Role to its capability set. Chain builder,
// escalation evaluator and signature resolver all consume this one function.
func Capabilities(r Role) RoleCapabilities {
	switch r {
	case RoleManager:
		return RoleCapabilities{
			CanApprove:     true,
			EscalationRank: 1,
			SignatureSlot:  SignatureManager,
		}
	case RoleDepartmentDirector:
		return RoleCapabilities{
			CanApprove:     true,
			CanAdminCancel: true,
			EscalationRank: 2,
			SignatureSlot:  SignatureDepartmentManager,
		}
	case RoleExecutive:
		return RoleCapabilities{
			CanApprove:     true,
			CanAdminCancel: true,
			EscalationRank: 3,
			SignatureSlot:  SignatureExecutive,
		}
	case RoleHR:
		return RoleCapabilities{
			CanApprove:         true,
			CanAdminCancel:     true,
			CanVerifyDocuments: true,
			EscalationRank:     3,
			SignatureSlot:      SignatureHR,
		}
	default:
		return RoleCapabilities{
			EscalationRank: 0,
			SignatureSlot:  SignatureEmployee,
		}
	}
}
