package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name        string
		cb          *tele.Callback
		key, rest string
	}{
		{"nil", nil, "", ""},
		{"raw", &tele.Callback{Data: "ITEM:IPHONE_15"}, "ITEM:IPHONE_15", ""},
		{"unique encoded", &tele.Callback{Data: "\fadm|ADD"}, "adm", "ADD"},
		{"routed unique", &tele.Callback{Unique: "adm", Data: "ADD"}, "adm", "ADD"},
		{"raw with separator", &tele.Callback{Data: "A|B|C"}, "A", "B|C"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, rest := ParseCallbackData(tc.cb)
			if key != tc.key || rest != tc.rest {
				t.Fatalf("got (%q, %q), want (%q, %q)", key, rest, tc.key, tc.rest)
			}
		})
	}
}
