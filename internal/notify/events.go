package notify

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (d *Dispatcher) baseVars() map[string]string {
	return map[string]string{
		"logo_url":               d.cfg.BackendURL + "/static/images/logo.png",
		"year":                   strconv.Itoa(d.now().UTC().Year()),
		"shop_new_arrivals_link": d.cfg.FrontendURL + "/lookbook",
		"continue_shopping_link": d.cfg.FrontendURL + "/shop",
	}
}

func (d *Dispatcher) itemsHTML(items []models.OrderItem) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b,
			`<tr><td style="padding:12px 0;border-bottom:1px solid #dee2e6;">%s</td>`+
				`<td style="padding:12px 0;border-bottom:1px solid #dee2e6;">%d</td>`+
				`<td style="text-align:right;padding:12px 0;border-bottom:1px solid #dee2e6;">%s%s</td></tr>`,
			template.HTMLEscapeString(it.ProductName), it.Qty,
			template.HTMLEscapeString(d.cfg.Currency), it.Subtotal.StringFixed(2))
	}
	return b.String()
}

func (d *Dispatcher) orderVars(o *models.Order) map[string]string {
	v := d.baseVars()
	v["customer_name"] = o.CustomerName
	v["order_id"] = o.OrderUID
	v["items_html"] = d.itemsHTML(o.Items)
	v["total"] = d.cfg.Currency + o.Total.StringFixed(2)
	v["address"] = o.CustomerAddress
	v["customer_phone"] = o.CustomerPhone
	v["admin_order_link"] = d.cfg.FrontendURL + "/admin/orders/" + url.PathEscape(o.OrderUID)
	return v
}

func (d *Dispatcher) toCustomer(kind Kind, o *models.Order) {
	if o.Customer == nil || o.Customer.Email == "" {
		d.logger.Warn("notification_skipped", "kind", kind, "order_uid", o.OrderUID, "reason", "no customer email")
		return
	}
	_ = d.Enqueue(Notification{Kind: kind, To: o.Customer.Email, Vars: d.orderVars(o)})
}

func (d *Dispatcher) toAdmin(kind Kind, vars map[string]string) {
	if d.cfg.AdminEmail == "" {
		d.logger.Warn("notification_skipped", "kind", kind, "reason", "ADMIN_EMAIL not set")
		return
	}
	_ = d.Enqueue(Notification{Kind: kind, To: d.cfg.AdminEmail, Vars: vars})
}

func (d *Dispatcher) OrderPlaced(_ context.Context, o *models.Order) {
	d.toCustomer(KindOrderPlaced, o)
	d.toAdmin(KindAdminNewOrder, d.orderVars(o))
}

func (d *Dispatcher) OrderDelivered(_ context.Context, o *models.Order) {
	d.toCustomer(KindOrderDelivered, o)
}

func (d *Dispatcher) OrderCancelled(_ context.Context, o *models.Order) {
	d.toCustomer(KindOrderCancelled, o)

	v := d.baseVars()
	v["customer_name"] = o.CustomerName
	v["order_uid"] = o.OrderUID
	v["admin_order_link"] = d.cfg.FrontendURL + "/admin/orders/" + url.PathEscape(o.OrderUID)
	d.toAdmin(KindAdminOrderCancelled, v)
}

func (d *Dispatcher) PasswordReset(_ context.Context, u *models.User, token string) {
	v := d.baseVars()
	v["customer_name"] = u.Name
	v["reset_link"] = d.cfg.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	_ = d.Enqueue(Notification{Kind: KindPasswordReset, To: u.Email, Vars: v})
}
