package synth

import (
	"fmt"
	"strings"
)

// LanguageMulti selects the provider's per-segment language auto-detection.
// The markup then carries no explicit <lang> tag.
const LanguageMulti = "multi"

// BuildSSML wraps the request text in the provider's speech-markup
// envelope. Pitch is a relative percentage, rate a multiplier; both are
// rendered with %v so that equal requests produce byte-identical markup.
func BuildSSML(req Request) string {
	var b strings.Builder
	b.WriteString(`<speak version='1.0' xml:lang='da-DK' xmlns='http://www.w3.org/2001/10/synthesis' xmlns:mstts='http://www.w3.org/2001/mstts'>`)
	fmt.Fprintf(&b, "<voice name='%s'>", req.Voice)
	fmt.Fprintf(&b, "<prosody rate='%v' pitch='%v%%'>", req.Rate, req.Pitch)
	if req.Language == LanguageMulti {
		b.WriteString(escapeText(req.Text))
	} else {
		fmt.Fprintf(&b, "<lang xml:lang='%s'>%s</lang>", req.Language, escapeText(req.Text))
	}
	b.WriteString("</prosody></voice></speak>")
	return b.String()
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
