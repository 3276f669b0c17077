package notify

import "strings"

// NormalizePhone turns a stored phone number into a channel recipient.
//
//	"whatsapp:+4917..." -> unchanged
//	"+4917..."          -> "whatsapp:+4917..."
//	"05251123456"       -> "whatsapp:+495251123456"
//
// It assumes a single national trunk prefix "0" and the configured country
// code; it is not an E.164 parser.
func NormalizePhone(raw, channelPrefix, countryCode string) string {
	if strings.HasPrefix(raw, channelPrefix) {
		return raw
	}
	if strings.HasPrefix(raw, "+") {
		return channelPrefix + raw
	}
	return channelPrefix + countryCode + strings.TrimPrefix(raw, "0")
}
