package mailer

import (
	"strings"
	"testing"
)

func TestComposeDeliveredPrompt(t *testing.T) {
	msg, err := ComposeDeliveredPrompt(OrderDetails{
		OrderID:    "ord-123",
		BuyerName:  "Thandi",
		BuyerEmail: "thandi@example.com",
	})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if msg.To != "thandi@example.com" {
		t.Errorf("wrong recipient: %s", msg.To)
	}
	if !strings.Contains(msg.HTML, "Hello Thandi") {
		t.Error("HTML body missing buyer greeting")
	}
	if !strings.Contains(msg.HTML, "/orders/ord-123") {
		t.Error("HTML body missing confirmation link")
	}
	if !strings.Contains(msg.Text, "ord-123") {
		t.Error("text body missing order id")
	}
}

func TestComposeDeliveredPrompt_DefaultGreeting(t *testing.T) {
	msg, err := ComposeDeliveredPrompt(OrderDetails{OrderID: "ord-1", BuyerEmail: "b@example.com"})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if !strings.Contains(msg.HTML, "Hello Buyer") {
		t.Error("expected fallback greeting for missing buyer name")
	}
}

func TestComposeReceiptConfirmed_ProducesBuyerAndSellerPair(t *testing.T) {
	msgs, err := ComposeReceiptConfirmed(OrderDetails{
		BookTitle:   "Discrete Mathematics",
		BuyerEmail:  "buyer@example.com",
		SellerEmail: "seller@example.com",
		SellerName:  "Sipho",
	})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].To != "buyer@example.com" || msgs[1].To != "seller@example.com" {
		t.Errorf("wrong recipients: %s, %s", msgs[0].To, msgs[1].To)
	}
	if !strings.Contains(msgs[1].HTML, "Discrete Mathematics") {
		t.Error("seller mail missing book title")
	}
}

func TestComposeIssueReported_EscapesUserContent(t *testing.T) {
	msgs, err := ComposeIssueReported(OrderDetails{
		OrderID:      "ord-9",
		BuyerEmail:   "buyer@example.com",
		SellerEmail:  "seller@example.com",
		IssueDetails: `<script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	for _, msg := range msgs {
		if strings.Contains(msg.HTML, "<script>") {
			t.Error("user-supplied issue details reached HTML unescaped")
		}
	}
}
