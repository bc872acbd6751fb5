package scenario

import (
	"fmt"

	"github.com/lab-banks/banks/internal/bank"
)

// Result is the outcome of one operation. TxID is set for money movements,
// including a transfer whose replenishment leg failed.
type Result struct {
	Op   Op
	TxID string
	Err  error
}

// Run applies ops in order. A failed operation is recorded in its Result and
// the run continues.
func (w *World) Run(ops []Op) []Result {
	txByLabel := make(map[string]string)
	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		txID, err := w.apply(op, txByLabel)
		if txID != "" {
			txByLabel[op.Label] = txID
		}
		if err != nil {
			w.logger.Warn("operation failed", "label", op.Label, "op", op.Kind, "error", err)
		} else {
			w.logger.Debug("operation applied", "label", op.Label, "op", op.Kind)
		}
		results = append(results, Result{Op: op, TxID: txID, Err: err})
	}
	return results
}

// Failed counts the results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func (w *World) apply(op Op, txByLabel map[string]string) (string, error) {
	switch op.Kind {
	case OpReplenish, OpWithdraw:
		b, a, err := w.Account(op.Account)
		if err != nil {
			return "", err
		}
		m := bank.Movement{Account: a, Amount: op.Amount}
		move := b.Replenish
		if op.Kind == OpWithdraw {
			move = b.Withdraw
		}
		tx, err := move(m)
		return tx.ID, err

	case OpTransfer:
		src, from, err := w.Account(op.Account)
		if err != nil {
			return "", err
		}
		dst, to, err := w.Account(op.Target)
		if err != nil {
			return "", err
		}
		return w.Registry.Transfer(src.ID(), dst.ID(), from, to, op.Amount)

	case OpCancel:
		txID, ok := txByLabel[op.Ref]
		if !ok {
			return "", fmt.Errorf("%w: %q produced no transaction", bank.ErrTransactionNotFound, op.Ref)
		}
		return "", w.Registry.Cancel(txID)

	case OpAdvance:
		return "", w.Registry.AdvanceDate(op.Days)

	case OpCreditLimit, OpLoanCommission, OpDebitInterest, OpWithdrawalCap:
		b, err := w.Bank(op.Account)
		if err != nil {
			return "", err
		}
		switch op.Kind {
		case OpCreditLimit:
			return "", b.ChangeCreditLimit(op.Amount)
		case OpLoanCommission:
			return "", b.ChangeLoanCommission(op.Amount)
		case OpDebitInterest:
			return "", b.ChangeDebitInterest(op.Amount)
		default:
			return "", b.ChangeUnverifiedWithdrawalCap(op.Amount)
		}

	case OpNotifyAll:
		b, err := w.Bank(op.Account)
		if err != nil {
			return "", err
		}
		b.NotifyAll()
		return "", nil
	}
	return "", fmt.Errorf("%w: unknown op %q", ErrInvalidOp, op.Kind)
}
