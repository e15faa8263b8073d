package balance

type BalanceResponse struct {
	ID             string `json:"id"`
	EmployeeID     string `json:"employee_id"`
	LeaveTypeID    string `json:"leave_type_id"`
	Year           int    `json:"year"`
	Entitled       int    `json:"entitled"`
	Used           int    `json:"used"`
	Pending        int    `json:"pending"`
	Available      int    `json:"available"`
	CarriedForward int    `json:"carried_forward"`
}

type CarryForwardRequest struct {
	FromYear int `json:"from_year" binding:"required,min=2000,max=2200"`
}

type CarryForwardReport struct {
	FromYear   int `json:"from_year"`
	ToYear     int `json:"to_year"`
	RowsRolled int `json:"rows_rolled"`
	Failed     int `json:"failed"`
}

type ExpireCarryForwardRequest struct {
	Year int `json:"year" binding:"required,min=2000,max=2200"`
}

func mapToResponse(b LeaveBalance) BalanceResponse {
	return BalanceResponse{
		ID:             b.ID.String(),
		EmployeeID:     b.EmployeeID.String(),
		LeaveTypeID:    b.LeaveTypeID.String(),
		Year:           b.Year,
		Entitled:       b.Entitled,
		Used:           b.Used,
		Pending:        b.Pending,
		Available:      b.Available,
		CarriedForward: b.CarriedForward,
	}
}
