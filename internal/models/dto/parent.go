package dto

type CreateChildRequest struct {
	Name string `json:"name"`
}

type CreateAllowanceRequest struct {
	ChildID   string `json:"childId"`
	Amount    int64  `json:"amount"`
	Frequency string `json:"frequency"`
}

type DeactivateAllowanceRequest struct {
	PlanID string `json:"planId"`
}

type FundRequest struct {
	Amount          int64  `json:"amount"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type FundResponse struct {
	Success bool  `json:"success"`
	Sats    int64 `json:"sats"`
}
