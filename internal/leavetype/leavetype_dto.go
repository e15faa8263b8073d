package leavetype

type CreateLeaveTypeRequest struct {
	Name                     string `json:"name" binding:"required,min=2,max=100"`
	AnnualEntitlement        int    `json:"annual_entitlement" binding:"required,min=0,max=366"`
	RequiresVerification     bool   `json:"requires_verification"`
	CarryForwardEnabled      bool   `json:"carry_forward_enabled"`
	MaxCarryForward          int    `json:"max_carry_forward" binding:"min=0,max=366"`
	CarryForwardExpiryMonths int    `json:"carry_forward_expiry_months" binding:"min=0,max=12"`
}

type LeaveTypeResponse struct {
	ID                       string `json:"id"`
	CompanyID                string `json:"company_id"`
	Name                     string `json:"name"`
	AnnualEntitlement        int    `json:"annual_entitlement"`
	RequiresVerification     bool   `json:"requires_verification"`
	CarryForwardEnabled      bool   `json:"carry_forward_enabled"`
	MaxCarryForward          int    `json:"max_carry_forward"`
	CarryForwardExpiryMonths int    `json:"carry_forward_expiry_months"`
}
