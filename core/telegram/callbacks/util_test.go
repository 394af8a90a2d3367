package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		cb      *tele.Callback
		unique  string
		payload string
	}{
		{&tele.Callback{Data: Data("timing", "2")}, "timing", "2"},
		{&tele.Callback{Data: Data("contacts", "")}, "contacts", ""},
		{&tele.Callback{Unique: "transfer", Data: "1"}, "transfer", "1"},
		{&tele.Callback{Data: "tour"}, "tour", ""},
		{nil, "", ""},
	}
	for _, tc := range cases {
		u, p := ParseCallbackData(tc.cb)
		if u != tc.unique || p != tc.payload {
			t.Fatalf("ParseCallbackData(%+v) = (%q, %q), want (%q, %q)", tc.cb, u, p, tc.unique, tc.payload)
		}
	}
}
