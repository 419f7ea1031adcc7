package mail

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	domain "github.com/auric-jewels/api/internal/domain"
)

// TemplateConfig carries the storefront facts embedded in outgoing email.
type TemplateConfig struct {
	BrandName             string
	SupportEmail          string
	TrackingURLBase       string
	FreeShippingThreshold int64
}

// Builder renders the customer receipt and the internal ops notification.
type Builder struct {
	cfg     TemplateConfig
	receipt *template.Template
	ops     *template.Template
	invoice *template.Template
}

// NewBuilder parses the templates once at construction.
func NewBuilder(cfg TemplateConfig) (*Builder, error) {
	if strings.TrimSpace(cfg.BrandName) == "" {
		return nil, errors.New("mail: brand name is required")
	}

	receipt, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return nil, fmt.Errorf("mail: parse receipt template: %w", err)
	}
	ops, err := template.New("ops").Parse(opsTemplate)
	if err != nil {
		return nil, fmt.Errorf("mail: parse ops template: %w", err)
	}
	invoice, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("mail: parse invoice template: %w", err)
	}

	return &Builder{cfg: cfg, receipt: receipt, ops: ops, invoice: invoice}, nil
}

type lineView struct {
	Name      string
	Quantity  int
	UnitPrice string
	Total     string
}

type orderView struct {
	Brand          string
	SupportEmail   string
	OrderNumber    string
	CustomerName   string
	Email          string
	Phone          string
	Address        string
	Lines          []lineView
	Subtotal       string
	HasDiscount    bool
	PromoCode      string
	Discount       string
	ShippingLine   string
	Total          string
	PaymentLabel   string
	TrackingNumber string
	TrackingURL    string
	InvoiceURL     string
	GiftMessage    string
}

func (b *Builder) view(order domain.Order, invoiceURL string) orderView {
	lines := make([]lineView, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, lineView{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: formatAmount(item.UnitPrice, order.Currency),
			Total:     formatAmount(item.Total, order.Currency),
		})
	}

	shippingLine := formatAmount(order.Totals.Shipping, order.Currency)
	if order.Totals.Shipping == 0 && domain.FreeShipping(order.Totals.Subtotal-order.Totals.Discount, b.cfg.FreeShippingThreshold) {
		shippingLine = "Free"
	}

	paymentLabel := "Paid online"
	if order.PaymentMethod == domain.PaymentMethodCOD {
		paymentLabel = "Cash on delivery"
	}

	view := orderView{
		Brand:        b.cfg.BrandName,
		SupportEmail: b.cfg.SupportEmail,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.Contact.Name,
		Email:        order.Contact.Email,
		Phone:        order.Contact.Phone,
		Address:      formatAddress(order.ShippingAddress),
		Lines:        lines,
		Subtotal:     formatAmount(order.Totals.Subtotal, order.Currency),
		ShippingLine: shippingLine,
		Total:        formatAmount(order.Totals.Total, order.Currency),
		PaymentLabel: paymentLabel,
		InvoiceURL:   strings.TrimSpace(invoiceURL),
		GiftMessage:  order.GiftMessage,
	}
	if order.Promotion != nil && order.Totals.Discount > 0 {
		view.HasDiscount = true
		view.PromoCode = order.Promotion.Code
		view.Discount = formatAmount(order.Totals.Discount, order.Currency)
	}
	if order.Tracking != nil {
		view.TrackingNumber = order.Tracking.Number
		if base := strings.TrimRight(strings.TrimSpace(b.cfg.TrackingURLBase), "/"); base != "" {
			view.TrackingURL = base + "/" + order.Tracking.Number
		}
	}
	return view
}

// Receipt renders the customer-facing order confirmation.
func (b *Builder) Receipt(order domain.Order, invoiceURL string) (Message, error) {
	if b == nil || b.receipt == nil {
		return Message{}, errors.New("mail: builder not initialised")
	}
	if strings.TrimSpace(order.Contact.Email) == "" {
		return Message{}, errors.New("mail: order has no contact email")
	}

	var buf bytes.Buffer
	if err := b.receipt.Execute(&buf, b.view(order, invoiceURL)); err != nil {
		return Message{}, fmt.Errorf("mail: render receipt: %w", err)
	}
	return Message{
		To:      []string{order.Contact.Email},
		Subject: fmt.Sprintf("%s: order %s confirmed", b.cfg.BrandName, order.OrderNumber),
		HTML:    buf.String(),
	}, nil
}

// OpsNotification renders the internal new-order alert for the fixed list.
func (b *Builder) OpsNotification(order domain.Order, recipients []string) (Message, error) {
	if b == nil || b.ops == nil {
		return Message{}, errors.New("mail: builder not initialised")
	}
	if len(recipients) == 0 {
		return Message{}, errors.New("mail: ops notification requires recipients")
	}

	var buf bytes.Buffer
	if err := b.ops.Execute(&buf, b.view(order, "")); err != nil {
		return Message{}, fmt.Errorf("mail: render ops notification: %w", err)
	}
	return Message{
		To:      recipients,
		Subject: fmt.Sprintf("New order %s (%s)", order.OrderNumber, formatAmount(order.Totals.Total, order.Currency)),
		HTML:    buf.String(),
	}, nil
}

// Invoice renders the HTML invoice uploaded to object storage.
func (b *Builder) Invoice(order domain.Order) (string, error) {
	if b == nil || b.invoice == nil {
		return "", errors.New("mail: builder not initialised")
	}
	var buf bytes.Buffer
	if err := b.invoice.Execute(&buf, b.view(order, "")); err != nil {
		return "", fmt.Errorf("mail: render invoice: %w", err)
	}
	return buf.String(), nil
}

func formatAmount(minor int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "PKR"
	}
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, minor/100, minor%100)
}

func formatAddress(addr domain.Address) string {
	parts := make([]string, 0, 5)
	for _, part := range []string{addr.Line1, deref(addr.Line2), addr.City, deref(addr.State), addr.PostalCode, addr.Country} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const receiptTemplate = `<!DOCTYPE html>
<html>
<body style="font-family:Georgia,serif;color:#2b2b2b;max-width:640px;margin:0 auto;">
  <h1 style="font-weight:normal;">{{.Brand}}</h1>
  <p>Dear {{if .CustomerName}}{{.CustomerName}}{{else}}customer{{end}},</p>
  <p>Thank you for your order <strong>{{.OrderNumber}}</strong>. Payment method: {{.PaymentLabel}}.</p>
  <table width="100%" cellpadding="6" style="border-collapse:collapse;">
    <tr style="border-bottom:1px solid #ccc;"><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
    {{range .Lines}}
    <tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.Total}}</td></tr>
    {{end}}
    <tr><td colspan="3" align="right">Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
    {{if .HasDiscount}}<tr><td colspan="3" align="right">Discount ({{.PromoCode}})</td><td align="right">-{{.Discount}}</td></tr>{{end}}
    <tr><td colspan="3" align="right">Shipping</td><td align="right">{{.ShippingLine}}</td></tr>
    <tr style="border-top:1px solid #ccc;"><td colspan="3" align="right"><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
  </table>
  <p>Shipping to: {{.Address}}</p>
  {{if .TrackingNumber}}<p>Track your parcel: {{if .TrackingURL}}<a href="{{.TrackingURL}}">{{.TrackingNumber}}</a>{{else}}{{.TrackingNumber}}{{end}}</p>{{end}}
  {{if .InvoiceURL}}<p><a href="{{.InvoiceURL}}">Download your invoice</a></p>{{end}}
  {{if .GiftMessage}}<p>Gift message: <em>{{.GiftMessage}}</em></p>{{end}}
  {{if .SupportEmail}}<p style="color:#777;">Questions? Write to <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>{{end}}
</body>
</html>`

const opsTemplate = `<!DOCTYPE html>
<html>
<body style="font-family:monospace;">
  <h2>New order {{.OrderNumber}}</h2>
  <p>{{.PaymentLabel}} — total {{.Total}}</p>
  <ul>
    <li>Customer: {{.CustomerName}} &lt;{{.Email}}&gt; {{.Phone}}</li>
    <li>Ship to: {{.Address}}</li>
    {{if .TrackingNumber}}<li>Tracking: {{.TrackingNumber}}</li>{{end}}
  </ul>
  <table cellpadding="4">
    {{range .Lines}}<tr><td>{{.Quantity}}x</td><td>{{.Name}}</td><td>{{.Total}}</td></tr>{{end}}
  </table>
</body>
</html>`

const invoiceTemplate = `<!DOCTYPE html>
<html>
<body style="font-family:Georgia,serif;max-width:640px;margin:0 auto;">
  <h1 style="font-weight:normal;">{{.Brand}} — Invoice</h1>
  <p>Order {{.OrderNumber}}<br>Billed to: {{.CustomerName}}, {{.Address}}</p>
  <table width="100%" cellpadding="6" style="border-collapse:collapse;">
    <tr style="border-bottom:1px solid #000;"><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
    {{range .Lines}}
    <tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.Total}}</td></tr>
    {{end}}
    <tr><td colspan="3" align="right">Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
    {{if .HasDiscount}}<tr><td colspan="3" align="right">Discount ({{.PromoCode}})</td><td align="right">-{{.Discount}}</td></tr>{{end}}
    <tr><td colspan="3" align="right">Shipping</td><td align="right">{{.ShippingLine}}</td></tr>
    <tr style="border-top:1px solid #000;"><td colspan="3" align="right"><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
  </table>
  <p>Payment: {{.PaymentLabel}}</p>
</body>
</html>`
