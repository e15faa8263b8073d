package request

import "time"

type CreateRequest struct {
	EmployeeID  string `json:"employee_id" binding:"required,uuid"`
	LeaveTypeID string `json:"leave_type_id" binding:"required,uuid"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	// SelectedDates, when present, names the exact (possibly non-contiguous)
	// days inside the range; the range itself is then only an envelope.
	SelectedDates  []string `json:"selected_dates"`
	Reason         string   `json:"reason"`
	PeerApproverID *string  `json:"peer_approver_id"`
}

type DecisionRequest struct {
	Comments string `json:"comments"`
	// Signature is the approver's captured signature payload, carried through
	// to the generated leave document.
	Signature *string `json:"signature"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type VerificationRequest struct {
	Passed   *bool  `json:"passed" binding:"required"`
	Comments string `json:"comments"`
}

type LevelResponse struct {
	ID               string     `json:"id"`
	Ordinal          int        `json:"ordinal"`
	Label            string     `json:"label"`
	ApproverID       string     `json:"approver_id"`
	Status           string     `json:"status"`
	Comments         *string    `json:"comments,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	EscalatedToID    *string    `json:"escalated_to_id,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	EscalationReason *string    `json:"escalation_reason,omitempty"`
}

type RequestResponse struct {
	ID                 string          `json:"id"`
	RequestNumber      int64           `json:"request_number"`
	EmployeeID         string          `json:"employee_id"`
	LeaveTypeID        string          `json:"leave_type_id"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	SelectedDates      []string        `json:"selected_dates,omitempty"`
	WorkingDays        int             `json:"working_days"`
	Reason             string          `json:"reason,omitempty"`
	Status             string          `json:"status"`
	VerificationStatus string          `json:"verification_status"`
	CancelReason       *string         `json:"cancel_reason,omitempty"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	Levels             []LevelResponse `json:"levels"`
}

// levelLabel derives the human-facing step name from its position in the
// chain; ordinals are authoritative, labels are presentation only.
func levelLabel(ordinal, total int) string {
	if total == 1 {
		return "FINAL_APPROVAL"
	}
	switch ordinal {
	case 1:
		return "MANAGER_APPROVAL"
	case total:
		return "FINAL_APPROVAL"
	default:
		return "INTERMEDIATE_APPROVAL"
	}
}

func mapToResponse(r *LeaveRequest) *RequestResponse {
	resp := &RequestResponse{
		ID:                 r.ID.String(),
		RequestNumber:      r.RequestNumber,
		EmployeeID:         r.EmployeeID.String(),
		LeaveTypeID:        r.LeaveTypeID.String(),
		StartDate:          r.StartDate.Format("2006-01-02"),
		EndDate:            r.EndDate.Format("2006-01-02"),
		WorkingDays:        r.WorkingDays,
		Reason:             r.Reason,
		Status:             r.Status,
		VerificationStatus: r.VerificationStatus,
		CancelReason:       r.CancelReason,
		ApprovedAt:         r.ApprovedAt,
		CreatedAt:          r.CreatedAt,
	}

	for _, d := range r.Days {
		resp.SelectedDates = append(resp.SelectedDates, d.Day.Format("2006-01-02"))
	}

	total := 0
	for _, l := range r.Levels {
		if l.Ordinal > total {
			total = l.Ordinal
		}
	}
	resp.Levels = make([]LevelResponse, len(r.Levels))
	for i, l := range r.Levels {
		lr := LevelResponse{
			ID:               l.ID.String(),
			Ordinal:          l.Ordinal,
			Label:            levelLabel(l.Ordinal, total),
			ApproverID:       l.ApproverID.String(),
			Status:           l.Status,
			Comments:         l.Comments,
			DecidedAt:        l.DecidedAt,
			ActivatedAt:      l.ActivatedAt,
			EscalatedAt:      l.EscalatedAt,
			EscalationReason: l.EscalationReason,
		}
		if l.EscalatedToID != nil {
			v := l.EscalatedToID.String()
			lr.EscalatedToID = &v
		}
		resp.Levels[i] = lr
	}
	return resp
}
