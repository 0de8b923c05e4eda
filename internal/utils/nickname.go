package utils

import (
	"fmt"

	"github.com/mr-tron/base58"
)

var adjectives = []string{
	"Swift", "Brave", "Clever", "Bold", "Mighty",
	"Silent", "Wild", "Golden", "Iron", "Silver",
	"Dark", "Bright", "Storm", "Shadow", "Fire",
	"Ice", "Thunder", "Wind", "Steel", "Diamond",
}

var nouns = []string{
	"Falcon", "Tiger", "Dragon", "Wolf", "Eagle",
	"Bear", "Lion", "Hawk", "Phoenix", "Panther",
	"Fox", "Raven", "Viper", "Shark", "Lynx",
	"Cobra", "Stallion", "Jaguar", "Orca", "Leopard",
}

// PlaceholderNickname derives a nickname in the format "Adjective_Noun_XXXX"
// deterministically from a wallet address, so concurrent lazy registrations
// of the same address always race toward the same username.
func PlaceholderNickname(address string) string {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) < 4 {
		raw = []byte(address)
	}
	if len(raw) < 4 {
		raw = append(raw, make([]byte, 4-len(raw))...)
	}

	adjIdx := int(raw[0]) % len(adjectives)
	nounIdx := int(raw[1]) % len(nouns)
	suffix := (int(raw[len(raw)-2])<<8 | int(raw[len(raw)-1])) % 10000

	return fmt.Sprintf("%s_%s_%04d", adjectives[adjIdx], nouns[nounIdx], suffix)
}
