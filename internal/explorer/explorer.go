package explorer

import "strings"

// Links builds block-explorer URLs for user-facing responses. The explorer
// is presentation only, never a functional dependency.
type Links struct {
	baseURL string
}

func New(baseURL string) *Links {
	return &Links{baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *Links) TxURL(txHash string) string {
	if txHash == "" {
		return ""
	}
	return l.baseURL + "/tx/" + txHash
}

func (l *Links) AddressURL(address string) string {
	if address == "" {
		return ""
	}
	return l.baseURL + "/address/" + address
}
