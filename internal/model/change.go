package model

// ChangeKind names a bank policy mutation published to subscribers.
type ChangeKind string

const (
	ChangeCreditLimit     ChangeKind = "credit-limit"
	ChangeLoanCommission  ChangeKind = "loan-commission"
	ChangeDebitInterest   ChangeKind = "debit-interest"
	ChangeDepositInterest ChangeKind = "deposit-interest"
	// ChangeBroadcast is used by unfiltered notifications.
	ChangeBroadcast ChangeKind = "broadcast"
)

// AffectedKind returns the account kind whose holders care about c.
// Broadcast changes affect every holder and report false.
func (c ChangeKind) AffectedKind() (AccountKind, bool) {
	switch c {
	case ChangeCreditLimit, ChangeLoanCommission:
		return AccountKindCredit, true
	case ChangeDebitInterest:
		return AccountKindDebit, true
	case ChangeDepositInterest:
		return AccountKindDeposit, true
	default:
		return "", false
	}
}

// Notification is delivered to a subscriber when a bank publishes a change.
type Notification struct {
	BankID string
	Change ChangeKind
}
