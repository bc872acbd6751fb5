package bank

import (
	"fmt"

	"github.com/lab-banks/banks/internal/model"
)

var (
	ErrInvalidAmount          = fmt.Errorf("%w: amount must not be negative", model.ErrValidation)
	ErrInvalidCondition       = fmt.Errorf("%w: bank condition must not be negative", model.ErrValidation)
	ErrNoDepositTier          = fmt.Errorf("%w: no deposit tier covers balance", model.ErrValidation)
	ErrInvalidSubscriber      = fmt.Errorf("%w: subscriber has no identity", model.ErrValidation)
	ErrAccountNotFound        = fmt.Errorf("%w: account", model.ErrNotFound)
	ErrClientAccountsNotFound = fmt.Errorf("%w: client accounts", model.ErrNotFound)
	ErrTransactionNotFound    = fmt.Errorf("%w: transaction", model.ErrNotFound)
	ErrSubscriberNotFound     = fmt.Errorf("%w: subscriber", model.ErrNotFound)
	ErrAccountExists          = fmt.Errorf("%w: account already open", model.ErrConflict)
	ErrNotSubscribed          = fmt.Errorf("%w: subscriber was never attached", model.ErrConflict)
	ErrUnverifiedLimit        = fmt.Errorf("%w: unverified client exceeds withdrawal cap", model.ErrBusinessRule)
)
