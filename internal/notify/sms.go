package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// smsMaxLen is the single-segment SMS limit; gateways truncate or split
// anything longer, so we truncate ourselves.
const smsMaxLen = 140

// smsGateways maps US carrier names to their email-to-SMS gateway domains.
var smsGateways = map[string]string{
	"att":        "@txt.att.net",
	"tmobile":    "@tmomail.net",
	"verizon":    "@vtext.com",
	"sprint":     "@messaging.sprintpcs.com",
	"uscellular": "@email.uscc.net",
	"cricket":    "@sms.cricketwireless.net",
	"boost":      "@sms.myboostmobile.com",
	"metro":      "@mymetropcs.com",
	"mint":       "@tmomail.net",
	"google_fi":  "@msg.fi.google.com",
	"xfinity":    "@vtext.com",
	"visible":    "@vtext.com",
}

// Carriers returns the supported carrier names, sorted.
func Carriers() []string {
	names := make([]string, 0, len(smsGateways))
	for name := range smsGateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SMSAddress builds the email-to-SMS gateway address for a phone number and
// carrier. Non-digit characters in the phone number are dropped.
func SMSAddress(phone, carrier string) (string, error) {
	gateway, ok := smsGateways[strings.ToLower(carrier)]
	if !ok {
		return "", fmt.Errorf("unknown carrier %q (supported: %s)",
			carrier, strings.Join(Carriers(), ", "))
	}

	var digits strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return "", fmt.Errorf("phone number %q contains no digits", phone)
	}

	return digits.String() + gateway, nil
}

// SMSNotifier delivers notifications as SMS through a carrier email-to-SMS
// gateway, reusing the email notifier's SMTP connection settings.
type SMSNotifier struct {
	email *EmailNotifier
	addr  string
}

// NewSMSNotifier creates an SMS notifier for the given phone and carrier.
func NewSMSNotifier(email *EmailNotifier, phone, carrier string) (*SMSNotifier, error) {
	addr, err := SMSAddress(phone, carrier)
	if err != nil {
		return nil, err
	}
	return &SMSNotifier{email: email, addr: addr}, nil
}

// Kind returns ChannelSMS.
func (s *SMSNotifier) Kind() Channel {
	return ChannelSMS
}

// Send delivers a truncated message to the gateway address.
func (s *SMSNotifier) Send(_ context.Context, title, message string) (string, error) {
	return s.email.sendTo(s.addr, title, truncate(message, smsMaxLen))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
