package domain

import "time"

// Payment is one monetary entry on the case.
type Payment struct {
	Ref           EntityRef
	Value         float64
	CausationDate time.Time
	PaymentDate   time.Time
}

func (p Payment) SameContent(other Payment) bool {
	return p.Value == other.Value &&
		p.CausationDate.Equal(other.CausationDate) &&
		p.PaymentDate.Equal(other.PaymentDate)
}

// SuccessBonus is the singleton bonus sub-record edited together with the
// payment list. Every payment payload carries it alongside the specific value.
type SuccessBonus struct {
	Enabled       bool
	Percentage    float64
	Price         float64
	CausationDate time.Time
	PaymentDate   time.Time
}
