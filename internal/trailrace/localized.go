package trailrace

import "golang.org/x/text/language"

// Languages supported by the site, in matcher preference order.
var Languages = []language.Tag{
	language.Romanian,
	language.English,
	language.French,
	language.German,
}

var matcher = language.NewMatcher(Languages)

// Localized is a piece of text in every supported language.
type Localized struct {
	RO string `json:"ro" yaml:"ro"`
	EN string `json:"en" yaml:"en"`
	FR string `json:"fr,omitempty" yaml:"fr"`
	DE string `json:"de,omitempty" yaml:"de"`
}

// In returns the text for lang, falling back to English, then Romanian.
func (l Localized) In(lang string) string {
	var s string
	switch lang {
	case "ro":
		s = l.RO
	case "en":
		s = l.EN
	case "fr":
		s = l.FR
	case "de":
		s = l.DE
	}
	if s != "" {
		return s
	}
	if l.EN != "" {
		return l.EN
	}
	return l.RO
}

// MatchLanguage picks the best supported language. An explicit choice
// (for example a ?lang= parameter) wins over the Accept-Language header.
// Romanian is the default.
func MatchLanguage(explicit, acceptLanguage string) string {
	var prefs []language.Tag
	if explicit != "" {
		if t, err := language.Parse(explicit); err == nil {
			prefs = append(prefs, t)
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
		prefs = append(prefs, tags...)
	}
	if len(prefs) == 0 {
		return "ro"
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return "ro"
	}
	base, _ := Languages[idx].Base()
	return base.String()
}
