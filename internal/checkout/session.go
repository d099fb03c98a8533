package checkout

import (
	"time"

	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// State is the checkout flow position of a session.
type State string

const (
	StateBrowsing       State = "browsing"
	StateAddressEntered State = "address_entered"
	StateQuoteFetched   State = "quote_fetched"
	StateMethodSelected State = "method_selected"
	StateSubmitted      State = "submitted"
	// StateFailed is passed through when a submission fails its
	// preconditions; the session then rests in AddressEntered.
	StateFailed State = "failed"
)

// Address is the shipping destination entered by the shopper.
type Address struct {
	ReceiverName string `json:"receiverName" validate:"required,max=120"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Line1        string `json:"line1" validate:"required,max=200"`
	Line2        string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City         string `json:"city" validate:"required,max=120"`
	Region       string `json:"region,omitempty" validate:"omitempty,max=120"`
	PostalCode   string `json:"postalCode" validate:"required,max=16"`
	Country      string `json:"country" validate:"required,len=2,alpha"`
}

// Receipt records the upstream result of a successful submission.
type Receipt struct {
	OrderID     string    `json:"orderId"`
	PaymentURL  string    `json:"paymentUrl,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Session is the per-shopper checkout state. It is stored as JSON, so every
// field is exported; mutate it only through its methods.
type Session struct {
	ID        string            `json:"id"`
	State     State             `json:"state"`
	Address   *Address          `json:"address,omitempty"`
	Quote     *pricing.Quote    `json:"quote,omitempty"`
	Selection pricing.Selection `json:"selection"`
	QuoteGen  uint64            `json:"quoteGen"`
	LastError string            `json:"lastError,omitempty"`
	Receipt   *Receipt          `json:"receipt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewSession starts a session in the browsing state.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		State:     StateBrowsing,
		Selection: pricing.Selection{Method: pricing.MethodNone},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EnterAddress stores addr and invalidates any quote and chosen method.
func (s *Session) EnterAddress(addr Address) error {
	if s.State == StateSubmitted {
		return ErrAlreadySubmitted
	}
	s.Address = &addr
	s.resetQuote()
	return nil
}

// BeginQuote stamps a new lookup and returns its generation. Results of
// older lookups are discarded by ApplyQuote.
func (s *Session) BeginQuote() (uint64, error) {
	if s.State == StateSubmitted {
		return 0, ErrAlreadySubmitted
	}
	if s.Address == nil {
		return 0, ErrNoAddress
	}
	s.resetQuote()
	return s.QuoteGen, nil
}

// ApplyQuote installs q when gen is still current. When the quote prices
// exactly one method that method is selected.
func (s *Session) ApplyQuote(gen uint64, q pricing.Quote) error {
	if s.State == StateSubmitted {
		return ErrAlreadySubmitted
	}
	if gen != s.QuoteGen || s.Address == nil {
		return ErrStaleQuote
	}
	s.Quote = &q
	s.LastError = ""
	s.State = StateQuoteFetched
	s.Selection.Method = pricing.MethodNone
	if m := q.DefaultMethod(); m != pricing.MethodNone {
		s.Selection.Method = m
		s.State = StateMethodSelected
	}
	return nil
}

// QuoteFailed records a failed lookup when gen is still current. The
// session stays in AddressEntered so the shopper can retry.
func (s *Session) QuoteFailed(gen uint64, code string) error {
	if s.State == StateSubmitted {
		return ErrAlreadySubmitted
	}
	if gen != s.QuoteGen {
		return ErrStaleQuote
	}
	s.LastError = code
	return nil
}

// SelectMethod chooses a delivery method from the current quote. Choosing
// MethodNone clears the choice.
func (s *Session) SelectMethod(m pricing.Method) error {
	if err := s.checkSelectable(); err != nil {
		return err
	}
	if s.Quote == nil {
		return ErrNoQuote
	}
	if m == pricing.MethodNone || m == "" {
		s.Selection.Method = pricing.MethodNone
		s.State = StateQuoteFetched
		return nil
	}
	if !s.Quote.Available(m) {
		return ErrMethodUnavailable
	}
	s.Selection.Method = m
	s.State = StateMethodSelected
	return nil
}

// SetTailLift toggles the tail-lift surcharge without changing state.
func (s *Session) SetTailLift(on bool) error {
	if err := s.checkSelectable(); err != nil {
		return err
	}
	s.Selection.TailLift = on
	return nil
}

// Prepare builds the order snapshot for submission. A snapshot failure
// passes through Failed back to AddressEntered with the error recorded.
func (s *Session) Prepare(build func() (Snapshot, error)) (Snapshot, error) {
	if s.State == StateSubmitted {
		return Snapshot{}, ErrAlreadySubmitted
	}
	snap, err := build()
	if err != nil {
		s.State = StateFailed
		if rerr := s.Recover(); rerr != nil {
			return Snapshot{}, rerr
		}
		s.LastError = err.Error()
		return Snapshot{}, err
	}
	return snap, nil
}

// Complete records the placed order. Submitted is terminal.
func (s *Session) Complete(receipt Receipt) error {
	if s.State == StateSubmitted {
		return ErrAlreadySubmitted
	}
	s.Receipt = &receipt
	s.LastError = ""
	s.State = StateSubmitted
	return nil
}

// Submit prepares the snapshot, hands it to place and completes the session.
// A place failure leaves the session untouched so the shopper can retry.
func (s *Session) Submit(build func() (Snapshot, error), place func(Snapshot) (Receipt, error)) (Receipt, error) {
	snap, err := s.Prepare(build)
	if err != nil {
		return Receipt{}, err
	}
	receipt, err := place(snap)
	if err != nil {
		return Receipt{}, err
	}
	if err := s.Complete(receipt); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Recover returns a failed session to AddressEntered.
func (s *Session) Recover() error {
	switch s.State {
	case StateSubmitted:
		return ErrAlreadySubmitted
	case StateFailed:
		s.resetQuote()
	}
	return nil
}

// Totals prices lines against the session's selection and quote.
func (s *Session) Totals(engine pricing.Engine, lines []pricing.CartLine) pricing.Totals {
	return engine.ComputeTotals(lines, s.Selection, s.Quote)
}

func (s *Session) checkSelectable() error {
	if s.State == StateSubmitted {
		return ErrAlreadySubmitted
	}
	return nil
}

func (s *Session) resetQuote() {
	s.Quote = nil
	s.Selection.Method = pricing.MethodNone
	s.QuoteGen++
	s.LastError = ""
	if s.Address != nil {
		s.State = StateAddressEntered
	} else {
		s.State = StateBrowsing
	}
}
