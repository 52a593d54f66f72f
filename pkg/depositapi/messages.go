package depositapi

// Amounts are decimal strings of wei so that values above 2^53 survive JSON
// clients. Timestamps are Unix seconds.

type Agreement struct {
	PropertyId       string `json:"propertyId"`
	Landlord         string `json:"landlord"`
	Tenant           string `json:"tenant,omitempty"`
	DepositRequired  string `json:"depositRequired"`
	DepositAmount    string `json:"depositAmount"`
	Deductions       string `json:"deductions"`
	ReturnAmount     string `json:"returnAmount"`
	State            string `json:"state"`
	StateDescription string `json:"stateDescription"`
	CreatedAt        int64  `json:"createdAt"`
	UpdatedAt        int64  `json:"updatedAt"`
}

type Event struct {
	Id          string `json:"id"`
	Seq         int64  `json:"seq"`
	Type        string `json:"type"`
	PropertyId  string `json:"propertyId"`
	Landlord    string `json:"landlord"`
	Tenant      string `json:"tenant,omitempty"`
	Amount      string `json:"amount"`
	Refunded    string `json:"refunded,omitempty"`
	Deductions  string `json:"deductions,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	DeliveredAt int64  `json:"deliveredAt,omitempty"`
}

type CreateDepositAgreementRequest struct {
	PropertyId      string `json:"propertyId"`
	DepositRequired string `json:"depositRequired"`
}

type CreateDepositAgreementResponse struct {
	Agreement *Agreement `json:"agreement"`
}

type PayDepositRequest struct {
	PropertyId string `json:"propertyId"`
	Amount     string `json:"amount"`
}

type PayDepositResponse struct {
	Agreement *Agreement `json:"agreement"`
	Refunded  string     `json:"refunded"`
}

type ApproveDepositReturnRequest struct {
	PropertyId string `json:"propertyId"`
	Deductions string `json:"deductions"`
}

type ApproveDepositReturnResponse struct {
	Agreement *Agreement `json:"agreement"`
}

type WithdrawDepositRequest struct {
	PropertyId string `json:"propertyId"`
}

type WithdrawDepositResponse struct {
	Agreement *Agreement `json:"agreement"`
}

type GetDepositRequest struct {
	PropertyId string `json:"propertyId"`
}

type GetDepositResponse struct {
	Agreement *Agreement `json:"agreement"`
}

type GetPropertyIdsRequest struct{}

type GetPropertyIdsResponse struct {
	PropertyIds []string `json:"propertyIds"`
}

type DepositBalancesRequest struct{}

type DepositBalancesResponse struct {
	Balance string `json:"balance"`
}

type GetLandlordRequest struct{}

type GetLandlordResponse struct {
	Landlord string `json:"landlord"`
}

type ListEventsRequest struct {
	// PropertyId filters the history; empty lists every property.
	PropertyId string `json:"propertyId,omitempty"`
}

type ListEventsResponse struct {
	Events []*Event `json:"events"`
}

type GetAccountBalanceRequest struct {
	Address string `json:"address"`
}

type GetAccountBalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}
