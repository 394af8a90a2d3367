package format

import "testing"

func TestBoldEscapes(t *testing.T) {
	if got := Bold(`<script>&"`); got != "<b>&lt;script&gt;&amp;&#34;</b>" {
		t.Fatalf("Bold = %q", got)
	}
}

func TestLinesSkipsBlank(t *testing.T) {
	if got := Lines("a", "", "  ", "b"); got != "a\nb" {
		t.Fatalf("Lines = %q", got)
	}
}
