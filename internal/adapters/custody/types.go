package custody

import "github.com/shopspring/decimal"

type balanceRequest struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
}

type allowanceRequest struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type approveRequest struct {
	Token   string          `json:"token"`
	Spender string          `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}

type transferFromRequest struct {
	Token  string          `json:"token"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	Token  string          `json:"token"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type amountResponse struct {
	Amount decimal.Decimal `json:"amount"`
}
