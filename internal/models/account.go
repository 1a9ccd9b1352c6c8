package models

// Account holds the paper-trading cash balance. The balance is rounded to
// two decimal places after every mutation.
type Account struct {
	Balance float64 `json:"balance"`
}
