package checkout

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Skotchmaster/plugtech/internal/cart"
	"github.com/Skotchmaster/plugtech/internal/models"
)

const (
	DefaultNumber = "254711448398"
	linkBase      = "https://wa.me/"
	inquiry       = "Hello, I'm interested in your computer products. Please send me your catalog. Thank you!"
)

// Bridge renders order messages and wraps them in a WhatsApp deep link.
// Nothing is sent; the customer's client opens the link.
type Bridge struct {
	number string
}

func New(number string) *Bridge {
	number = strings.TrimPrefix(strings.TrimSpace(number), "+")
	if number == "" {
		number = DefaultNumber
	}
	return &Bridge{number: number}
}

func (b *Bridge) Number() string { return b.number }

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// Price formats whole shillings with thousands separators: "KSh 50,000".
func Price(amount int64) string {
	return newPrinter().Sprintf("KSh %d", amount)
}

func (b *Bridge) CartMessage(items []cart.Item) string {
	p := newPrinter()
	var sb strings.Builder
	sb.WriteString("Hello, I want to purchase:\n\n")

	var total int64
	for _, it := range items {
		sub := it.Subtotal()
		total += sub
		sb.WriteString(p.Sprintf("*%s*\n*Quantity:* %d\n*Price:* KSh %d\n*Subtotal:* KSh %d\n\n",
			it.Name, it.Quantity, it.Price, sub))
	}

	sb.WriteString(p.Sprintf("*TOTAL:* KSh %d\n\nThank you!", total))
	return sb.String()
}

// ProductMessage is the single product "quick order" text. pageURL is optional.
func (b *Bridge) ProductMessage(prod models.Product, pageURL string) string {
	p := newPrinter()
	var sb strings.Builder
	sb.WriteString(p.Sprintf("Hello, I want to purchase:\n\n*%s*\n*Price:* KSh %d", prod.Name, prod.Price))
	if pageURL != "" {
		sb.WriteString("\n*URL:* ")
		sb.WriteString(pageURL)
	}
	sb.WriteString("\n\nThank you!")
	return sb.String()
}

func InquiryMessage() string {
	return inquiry
}

// Link percent-encodes the message the way encodeURIComponent does, so
// spaces become %20 rather than "+".
func (b *Bridge) Link(msg string) string {
	return linkBase + b.number + "?text=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}
