package bank

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/model"
)

// Subscriber receives policy-change notifications. SubscriberID matches the
// SubscriberID of the client whose holdings decide filtered delivery.
type Subscriber interface {
	SubscriberID() string
	Notified(n model.Notification)
}

// Subscribe attaches s. Attaching an ID that is already attached is a no-op.
func (b *Bank) Subscribe(s Subscriber) error {
	if s.SubscriberID() == "" {
		return ErrInvalidSubscriber
	}
	if b.FindSubscriber(s.SubscriberID()) != nil {
		return nil
	}
	b.subscribers = append(b.subscribers, s)
	return nil
}

// Unsubscribe detaches s.
func (b *Bank) Unsubscribe(s Subscriber) error {
	for i, cur := range b.subscribers {
		if cur.SubscriberID() == s.SubscriberID() {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotSubscribed, s.SubscriberID())
}

// FindSubscriber returns the attached subscriber with the given ID, or nil.
func (b *Bank) FindSubscriber(subscriberID string) Subscriber {
	for _, s := range b.subscribers {
		if s.SubscriberID() == subscriberID {
			return s
		}
	}
	return nil
}

// LookupSubscriber returns the attached subscriber with the given ID.
func (b *Bank) LookupSubscriber(subscriberID string) (Subscriber, error) {
	if s := b.FindSubscriber(subscriberID); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSubscriberNotFound, subscriberID)
}

// Subscribers returns the attached subscribers in attach order.
func (b *Bank) Subscribers() []Subscriber {
	out := make([]Subscriber, len(b.subscribers))
	copy(out, b.subscribers)
	return out
}

// NotifyAll delivers a broadcast to every subscriber and returns the count.
func (b *Bank) NotifyAll() int {
	n := model.Notification{BankID: b.id, Change: model.ChangeBroadcast}
	for _, s := range b.subscribers {
		s.Notified(n)
	}
	b.recorder.Notified(model.ChangeBroadcast, len(b.subscribers))
	return len(b.subscribers)
}

// Publish delivers change to the subscribers whose client holds at least one
// account of the affected kind at this bank, and returns how many were
// reached. A change with no affected kind is broadcast.
func (b *Bank) Publish(change model.ChangeKind) int {
	kind, ok := change.AffectedKind()
	if !ok {
		return b.NotifyAll()
	}
	n := model.Notification{BankID: b.id, Change: change}
	delivered := 0
	for _, s := range b.subscribers {
		if b.holds(s.SubscriberID(), kind) {
			s.Notified(n)
			delivered++
		}
	}
	b.recorder.Notified(change, delivered)
	b.logger.Info("policy change published", "change", change, "delivered", delivered)
	return delivered
}

func (b *Bank) holds(subscriberID string, kind model.AccountKind) bool {
	for _, ca := range b.clients {
		if ca.Client().SubscriberID() == subscriberID && ca.HasKind(kind) {
			return true
		}
	}
	return false
}

// ChangeCreditLimit updates the credit limit and notifies credit holders.
// Existing credit accounts keep the threshold they were opened with.
func (b *Bank) ChangeCreditLimit(v decimal.Decimal) error {
	if err := b.conditions.ChangeCreditLimit(v); err != nil {
		return err
	}
	b.Publish(model.ChangeCreditLimit)
	return nil
}

// ChangeLoanCommission updates the loan commission and notifies credit holders.
func (b *Bank) ChangeLoanCommission(v decimal.Decimal) error {
	if err := b.conditions.ChangeLoanCommission(v); err != nil {
		return err
	}
	b.Publish(model.ChangeLoanCommission)
	return nil
}

// ChangeDebitInterest updates the debit rate and notifies debit holders.
func (b *Bank) ChangeDebitInterest(v decimal.Decimal) error {
	if err := b.conditions.ChangeDebitInterest(v); err != nil {
		return err
	}
	b.Publish(model.ChangeDebitInterest)
	return nil
}

// ChangeDepositInterestTable replaces the deposit tiers and notifies deposit holders.
func (b *Bank) ChangeDepositInterestTable(tiers []DepositTier) error {
	if err := b.conditions.ChangeDepositInterestTable(tiers); err != nil {
		return err
	}
	b.Publish(model.ChangeDepositInterest)
	return nil
}

// ChangeUnverifiedWithdrawalCap updates the cap. No account kind is tied to
// it, so nobody is notified.
func (b *Bank) ChangeUnverifiedWithdrawalCap(v decimal.Decimal) error {
	return b.conditions.ChangeUnverifiedWithdrawalCap(v)
}
