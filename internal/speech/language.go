package speech

import "github.com/fjelby/sayboard/internal/synth"

// Language selects which configured locale a speak request uses. It is
// resolved to a provider locale code once, at the CLI boundary, so the
// pipeline only ever sees plain locale strings.
type Language int

const (
	LanguagePrimary Language = iota
	LanguageSecondary
	LanguageMulti
)

// String returns the selection name.
func (l Language) String() string {
	switch l {
	case LanguageSecondary:
		return "secondary"
	case LanguageMulti:
		return "multi"
	default:
		return "primary"
	}
}

// Resolve maps the selection to a locale code. LanguageMulti resolves to
// the provider's auto-detection mode rather than a concrete locale.
func (l Language) Resolve(primary, secondary string) string {
	switch l {
	case LanguageSecondary:
		return secondary
	case LanguageMulti:
		return synth.LanguageMulti
	default:
		return primary
	}
}
