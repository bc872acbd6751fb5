package model

// AccountKind tags the variant of a bank account.
type AccountKind string

const (
	AccountKindDebit   AccountKind = "debit"
	AccountKindDeposit AccountKind = "deposit"
	AccountKindCredit  AccountKind = "credit"
)

// AccountKinds lists every account kind in a stable order.
var AccountKinds = []AccountKind{AccountKindDebit, AccountKindDeposit, AccountKindCredit}

// ParseAccountKind returns the kind named by s.
func ParseAccountKind(s string) (AccountKind, bool) {
	for _, k := range AccountKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
