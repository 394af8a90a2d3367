package dialogue

// Keyboard tells the renderer what to do with the reply keyboard.
type Keyboard int

const (
	// KeepKeyboard leaves the current keyboard untouched.
	KeepKeyboard Keyboard = iota
	// RemoveKeyboard hides the reply keyboard.
	RemoveKeyboard
	// OptionsKeyboard shows Reply.Options, one row per entry.
	OptionsKeyboard
)

// Reply is one message produced by the machine.
type Reply struct {
	Text     string
	HTML     bool
	Keyboard Keyboard
	// Options are the rows of reply buttons shown with OptionsKeyboard.
	Options [][]string
	// ChatID routes the reply to another chat when non-zero.
	ChatID int64
	// MainMenu asks the renderer to show the main menu instead of Text.
	MainMenu bool
}

func textReply(s string) Reply { return Reply{Text: s} }

func htmlReply(s string) Reply { return Reply{Text: s, HTML: true} }

func removeKeyboard(r Reply) Reply {
	r.Keyboard = RemoveKeyboard
	return r
}

func withOptions(r Reply, rows ...[]string) Reply {
	r.Keyboard = OptionsKeyboard
	r.Options = rows
	return r
}

func mainMenu() Reply { return Reply{MainMenu: true} }
