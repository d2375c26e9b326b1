package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type leadSubmittedEmailData struct {
	baseEmailData
	Lead LeadSubmitted
}

type leadStatusEmailData struct {
	baseEmailData
	Lead LeadStatusChanged
}

type payoutEmailData struct {
	baseEmailData
	PayeeName       string
	AmountFormatted string
	LeadCount       int
	TransferID      string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderLeadSubmitted(msg LeadSubmitted) (string, string, error) {
	content, err := renderEmailTemplate("lead_submitted.html", leadSubmittedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New lead submitted",
			Heading:  "New lead submitted",
			CTALabel: "Review lead",
			CTAURL:   msg.LeadURL,
		},
		Lead: msg,
	})
	return fmt.Sprintf(subjectLeadSubmittedFmt, msg.Title), content, err
}

func renderLeadStatus(msg LeadStatusChanged) (string, string, error) {
	subjectFmt, heading := subjectLeadUpdatedFmt, "Lead updated"
	switch msg.Status {
	case "approved":
		subjectFmt, heading = subjectLeadApprovedFmt, "Lead approved"
	case "rejected":
		subjectFmt, heading = subjectLeadRejectedFmt, "Lead not accepted"
	case "sold":
		subjectFmt, heading = subjectLeadSoldFmt, "Lead sold"
	}
	content, err := renderEmailTemplate("lead_status.html", leadStatusEmailData{
		baseEmailData: baseEmailData{
			Title:    heading,
			Heading:  heading,
			CTALabel: "View lead",
			CTAURL:   msg.LeadURL,
		},
		Lead: msg,
	})
	return fmt.Sprintf(subjectFmt, msg.Title), content, err
}

func renderPayout(msg PayoutSent) (string, string, error) {
	content, err := renderEmailTemplate("payout_sent.html", payoutEmailData{
		baseEmailData: baseEmailData{
			Title:   "Commission payout sent",
			Heading: "Commission payout sent",
		},
		PayeeName:       msg.PayeeName,
		AmountFormatted: formatCurrency(msg.AmountCents, msg.Currency),
		LeadCount:       msg.LeadCount,
		TransferID:      msg.TransferID,
	})
	return subjectPayoutSent, content, err
}

func formatCurrency(cents int64, currency string) string {
	amount := decimal.New(cents, -2).StringFixed(2)
	if currency == "" || strings.EqualFold(currency, "usd") {
		return "$" + amount
	}
	return amount + " " + strings.ToUpper(currency)
}
