package model

const (
	PaymentStatusPaid = "paid"

	EventCheckoutSessionCompleted = "checkout.session.completed"

	MetadataProductID     = "productId"
	MetadataCustomerEmail = "customerEmail"
)

type CheckoutSessionRequest struct {
	ProductID     string
	ProductName   string
	ProductImage  string
	UnitAmount    int64 // minor currency units
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID                   string
	PaymentStatus        string
	CustomerEmail        string
	CustomerDetailsEmail string
	Metadata             map[string]string
}

// PurchaserEmail prefers the email attached at checkout and falls back to
// the details the customer typed on the hosted page.
func (s *CheckoutSession) PurchaserEmail() string {
	if email := s.Metadata[MetadataCustomerEmail]; email != "" {
		return email
	}
	if s.CustomerDetailsEmail != "" {
		return s.CustomerDetailsEmail
	}
	return s.CustomerEmail
}

func (s *CheckoutSession) ProductID() string {
	return s.Metadata[MetadataProductID]
}

func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

type GatewayEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession // set for checkout.session.* events
}
