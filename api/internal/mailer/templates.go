package mailer

import (
	"fmt"
	"html/template"
	"strings"
)

// OrderDetails carries everything the order notification templates need.
type OrderDetails struct {
	OrderID      string
	BookTitle    string
	BuyerName    string
	BuyerEmail   string
	SellerName   string
	SellerEmail  string
	IssueDetails string
}

const baseLayout = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family:Arial,sans-serif;line-height:1.6;color:#333;max-width:600px;margin:0 auto;padding:20px;">
<div style="background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);padding:25px;text-align:center;border-radius:8px;color:#fff;">
<h1 style="margin:0;font-size:22px;">{{.Title}}</h1></div>
<div style="background:#f9f9f9;padding:20px;border-radius:0 0 8px 8px;border:1px solid #ddd;">
<p>Hello {{.Greeting}},</p>
{{.Body}}
</div></body></html>`

var layoutTmpl = template.Must(template.New("layout").Parse(baseLayout))

type layoutData struct {
	Title    string
	Greeting string
	Body     template.HTML
}

func render(title, greeting string, body template.HTML) (string, error) {
	var sb strings.Builder
	if err := layoutTmpl.Execute(&sb, layoutData{Title: title, Greeting: greeting, Body: body}); err != nil {
		return "", fmt.Errorf("failed to render %q: %w", title, err)
	}
	return sb.String(), nil
}

func orDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// ComposeDeliveredPrompt asks the buyer to confirm a delivered order.
func ComposeDeliveredPrompt(d OrderDetails) (Message, error) {
	link := "https://rebookedsolutions.co.za/orders/" + template.URLQueryEscaper(d.OrderID)
	body := template.HTML(fmt.Sprintf(
		`<p>Your order has been marked as delivered. Please log into your account and confirm whether you received the order to complete the transaction.</p>
<p style="text-align:center;margin-top:18px;"><a href=%q style="padding:12px 18px;background:#667eea;color:#fff;border-radius:6px;text-decoration:none;">Confirm Delivery</a></p>`,
		link))

	html, err := render("Your Book Has Arrived!", orDefault(d.BuyerName, "Buyer"), body)
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      d.BuyerEmail,
		Subject: "Your Book Has Arrived — Please Confirm",
		HTML:    html,
		Text: fmt.Sprintf("Your Book Has Arrived!\n\nHello %s,\n\nYour order has been marked as delivered. Confirm: %s",
			orDefault(d.BuyerName, "Buyer"), link),
	}, nil
}

// ComposeReceiptConfirmed thanks the buyer and tells the seller payment is
// on the way. Returns the buyer message followed by the seller message.
func ComposeReceiptConfirmed(d OrderDetails) ([]Message, error) {
	title := template.HTMLEscapeString(d.BookTitle)

	buyerHTML, err := render("Thank you — Order Received", orDefault(d.BuyerName, "Buyer"),
		template.HTML(fmt.Sprintf(`<p>Thanks for confirming receipt of <strong>%s</strong>. We will release payment to the seller shortly.</p>`, title)))
	if err != nil {
		return nil, err
	}
	sellerHTML, err := render("Payment on the way", orDefault(d.SellerName, "Seller"),
		template.HTML(fmt.Sprintf(`<p>The buyer has confirmed delivery of <strong>%s</strong>. We will process your payment and notify you once it has been released.</p>`, title)))
	if err != nil {
		return nil, err
	}

	return []Message{
		{
			To:      d.BuyerEmail,
			Subject: "Thank you — Order Received",
			HTML:    buyerHTML,
			Text:    fmt.Sprintf("Thank you — Order Received\n\nThanks for confirming receipt of %s. We will release payment to the seller shortly.", d.BookTitle),
		},
		{
			To:      d.SellerEmail,
			Subject: "Payment on the way — ReBooked Solutions",
			HTML:    sellerHTML,
			Text:    fmt.Sprintf("Payment on the way\n\nThe buyer has confirmed delivery of %s. We will process your payment and notify you once it has been released.", d.BookTitle),
		},
	}, nil
}

// ComposeIssueReported notifies both parties that the buyer reported a
// problem with the order.
func ComposeIssueReported(d OrderDetails) ([]Message, error) {
	issue := template.HTMLEscapeString(d.IssueDetails)
	orderID := template.HTMLEscapeString(d.OrderID)

	buyerHTML, err := render("We've received your report", orDefault(d.BuyerName, "Buyer"),
		template.HTML(fmt.Sprintf(`<p>Thank you for reporting an issue. Our support team will contact you shortly to investigate: &quot;%s&quot;</p>`, issue)))
	if err != nil {
		return nil, err
	}
	sellerHTML, err := render("Issue finalising order", orDefault(d.SellerName, "Seller"),
		template.HTML(fmt.Sprintf(`<p>We encountered an issue while finalising Order ID: %s. The buyer reported: &quot;%s&quot;. Our team is investigating and may contact you for more information.</p>`, orderID, issue)))
	if err != nil {
		return nil, err
	}

	return []Message{
		{
			To:      d.BuyerEmail,
			Subject: "We've received your report — ReBooked Solutions",
			HTML:    buyerHTML,
			Text:    fmt.Sprintf("We've received your report\n\nThank you for reporting an issue. Our support team will contact you shortly to investigate: %q", d.IssueDetails),
		},
		{
			To:      d.SellerEmail,
			Subject: "Issue finalising order — ReBooked Solutions",
			HTML:    sellerHTML,
			Text:    fmt.Sprintf("Issue finalising order\n\nWe encountered an issue while finalising Order ID: %s. The buyer reported: %q.", d.OrderID, d.IssueDetails),
		},
	}, nil
}
