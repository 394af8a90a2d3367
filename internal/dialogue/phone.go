package dialogue

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone formats phone as E.164 using region for national numbers.
// Input that does not parse is returned trimmed but otherwise unchanged.
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
