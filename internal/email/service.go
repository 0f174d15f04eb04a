package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// Receipt carries everything the payment receipt template needs. Amount and
// UnitPrice are minor currency units.
type Receipt struct {
	OrderID        string
	ProductName    string
	Quantity       int
	UnitPrice      int64
	Amount         int64
	Currency       string
	SubscriptionID string
}

// SendPaymentReceipt sends a payment receipt for a completed order
func (s *Service) SendPaymentReceipt(to string, r Receipt) error {
	shortID := r.OrderID
	if len(r.OrderID) > 8 {
		shortID = r.OrderID[:8]
	}
	subject := fmt.Sprintf("Payment received for order %s", shortID)
	body := BuildPaymentReceiptBody(r)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
