package billable

import (
	"strings"

	"github.com/samber/lo"
)

// Owner is an entity that can hold Fastspring subscriptions.
type Owner interface {
	GetID() string
	GetName() string
	GetEmail() string
	GetCompany() string
	GetPhone() string
	GetLanguage() string
	GetCountry() string
	GetFastspringID() string
	SetFastspringID(id string)
}

// UnknownLastName is sent when the owner has a single-word name; Fastspring
// refuses accounts without a last name.
const UnknownLastName = "Unknown"

func nameParts(name string) []string {
	return lo.Compact(strings.Split(name, " "))
}

// ExtractFirstName returns every word of name but the last.
func ExtractFirstName(name string) string {
	parts := nameParts(name)
	if len(parts) <= 1 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts[:len(parts)-1], " ")
}

func ExtractLastName(name string) string {
	parts := nameParts(name)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return UnknownLastName
	default:
		return parts[len(parts)-1]
	}
}
