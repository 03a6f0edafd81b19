package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFiles = map[Kind]string{
	KindOrderPlaced:         "order_confirmation.html",
	KindOrderDelivered:      "order_delivered.html",
	KindOrderCancelled:      "order_cancelled.html",
	KindAdminNewOrder:       "new_order_admin_notification.html",
	KindAdminOrderCancelled: "order_cancelled_admin_notification.html",
	KindPasswordReset:       "password_reset.html",
}

type Renderer struct {
	shop      string
	templates map[Kind]*template.Template
}

func NewRenderer(shopName string) (*Renderer, error) {
	r := &Renderer{shop: shopName, templates: make(map[Kind]*template.Template, len(templateFiles))}
	for kind, file := range templateFiles {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.templates[kind] = t
	}
	return r, nil
}

func (r *Renderer) Subject(n Notification) string {
	switch n.Kind {
	case KindOrderPlaced:
		return fmt.Sprintf("Your %s Order Confirmation", r.shop)
	case KindOrderDelivered:
		return fmt.Sprintf("Your %s Order Has Been Delivered!", r.shop)
	case KindOrderCancelled:
		return fmt.Sprintf("Your %s Order Has Been Cancelled", r.shop)
	case KindAdminNewOrder:
		return fmt.Sprintf("New Order Received! (#%s)", n.Vars["order_id"])
	case KindAdminOrderCancelled:
		return fmt.Sprintf("Notice: Order #%s has been cancelled", n.Vars["order_uid"])
	case KindPasswordReset:
		return fmt.Sprintf("Your Password Reset Link for %s", r.shop)
	}
	return r.shop
}

func (r *Renderer) Render(n Notification) (Message, error) {
	t, ok := r.templates[n.Kind]
	if !ok {
		return Message{}, fmt.Errorf("no template for %q", n.Kind)
	}

	data := make(map[string]any, len(n.Vars)+1)
	for k, v := range n.Vars {
		if strings.HasSuffix(k, "_html") {
			data[k] = template.HTML(v)
			continue
		}
		data[k] = v
	}
	data["shop_name"] = r.shop

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", n.Kind, err)
	}
	return Message{To: n.To, Subject: r.Subject(n), HTML: buf.String()}, nil
}
