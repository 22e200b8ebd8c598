package explorer

import "testing"

func TestLinks(t *testing.T) {
	l := New("https://explorer.gobob.xyz/")

	if got := l.TxURL("0xabc123"); got != "https://explorer.gobob.xyz/tx/0xabc123" {
		t.Errorf("TxURL = %s", got)
	}
	if got := l.AddressURL("0xdef456"); got != "https://explorer.gobob.xyz/address/0xdef456" {
		t.Errorf("AddressURL = %s", got)
	}
	if got := l.TxURL(""); got != "" {
		t.Errorf("empty hash must yield empty link, got %s", got)
	}
}
