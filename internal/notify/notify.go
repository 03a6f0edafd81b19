// Package notify renders transactional emails and delivers them in the
// background, one rate-limited worker per recipient class.
package notify

import "context"

type Kind string

const (
	KindOrderPlaced         Kind = "order_placed"
	KindOrderDelivered      Kind = "order_delivered"
	KindOrderCancelled      Kind = "order_cancelled"
	KindAdminNewOrder       Kind = "admin_new_order"
	KindAdminOrderCancelled Kind = "admin_order_cancelled"
	KindPasswordReset       Kind = "password_reset"
)

type Class string

const (
	ClassCustomer Class = "customer"
	ClassAdmin    Class = "admin"
)

func (k Kind) Class() Class {
	switch k {
	case KindAdminNewOrder, KindAdminOrderCancelled:
		return ClassAdmin
	}
	return ClassCustomer
}

// Notification is one email waiting to be rendered. Vars whose key ends in
// _html are inserted without escaping.
type Notification struct {
	Kind Kind
	To   string
	Vars map[string]string
}

// Message is a rendered email.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
