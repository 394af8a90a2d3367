package keyboard

import "testing"

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"Museum"}, nil, []string{"Sign up", "Back"})
	if !m.ResizeKeyboard {
		t.Fatal("reply keyboard should be resized")
	}
	if len(m.ReplyKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(m.ReplyKeyboard))
	}
	if got := m.ReplyKeyboard[1][1].Text; got != "Back" {
		t.Fatalf("second row label = %q", got)
	}
}

func TestInlineButtonsRows(t *testing.T) {
	m := InlineButtonsRows(
		[]InlineBtn{{Text: "Day 1", Unique: "timing", Data: "1"}, {Text: "Transfer 1", Unique: "transfer", Data: "1"}},
		nil,
		[]InlineBtn{{Text: "Contacts", Unique: "contacts"}},
	)
	if len(m.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(m.InlineKeyboard))
	}
	first := m.InlineKeyboard[0][1]
	if first.Unique != "transfer" || first.Data != "1" {
		t.Fatalf("button = %+v", first)
	}
}

func TestRemoveKeyboard(t *testing.T) {
	if !RemoveKeyboard().RemoveKeyboard {
		t.Fatal("RemoveKeyboard flag not set")
	}
}
