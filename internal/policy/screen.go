package policy

// ScreenPolicy is the vocabulary used by the classifier on screen descriptions.
// Generic markers such as "adult", "cam" and "intimate" are intentionally broad
// and will also hit words like "camera" or "adult education".
type ScreenPolicy struct{}

// NewScreenPolicy creates the screen classifier vocabulary.
func NewScreenPolicy() *ScreenPolicy {
	return &ScreenPolicy{}
}

func (p *ScreenPolicy) ID() string {
	return "screen"
}

func (p *ScreenPolicy) Name() string {
	return "Screen content classifier"
}

// Keywords returns Spanish and English terms plus known adult-site names.
// Terms listed in both languages appear twice and count twice when scoring.
func (p *ScreenPolicy) Keywords() []string {
	return []string{
		// Spanish
		"desnudo", "desnuda", "pornografia", "porno", "sexo", "erotico", "erotica",
		"masturbacion", "masturbandose", "orgasmo", "penetracion", "fellatio", "cunnilingus",
		"bondage", "bdsm", "fetiche", "fetish", "lenceria", "bikini", "tanga", "sujetador",
		"pechos", "senos", "vagina", "penis", "genital", "nalgas", "trasero", "culo",
		"prostituta", "escort", "stripper", "webcam", "cam", "onlyfans", "chaturbate",

		// English
		"nude", "naked", "porn", "pornography", "sex", "erotic", "masturbation",
		"orgasm", "penetration", "fellatio", "cunnilingus", "bondage", "bdsm", "fetish",
		"lingerie", "bikini", "thong", "bra", "breasts", "boobs", "vagina", "penis",
		"genital", "buttocks", "ass", "prostitute", "escort", "stripper", "webcam",
		"cam", "adult", "xxx", "explicit", "intimate", "sexual", "sensual",

		// Sites
		"pornhub", "xvideos", "redtube", "youporn", "tube8", "xhamster", "spankbang",
		"chaturbate", "cam4", "myfreecams", "onlyfans", "manyvids", "clips4sale",
	}
}

// Phrases returns multi-word suspicious phrases.
func (p *ScreenPolicy) Phrases() []string {
	return []string{
		"sin ropa", "sin vestimenta", "cuerpo desnudo", "partes intimas", "acto sexual",
		"contenido adulto", "solo para adultos", "mayores de edad", "contenido explicito",
		"without clothes", "naked body", "private parts", "sexual act", "adult content",
		"adults only", "explicit content", "intimate moment", "sexual position",
	}
}

// Patterns returns the regex heuristics. The first match wins.
func (p *ScreenPolicy) Patterns() []string {
	return []string{
		`\b(18\+|adult|nsfw|not safe for work)\b`,
		`\b(only fans|onlyfans|webcam|cam show)\b`,
		`\b(strip|stripping|undress|undressing)\b`,
		`\b(naked|nude|undressed)\b`,
	}
}

// Ensure ScreenPolicy implements VocabularyPolicy.
var _ VocabularyPolicy = (*ScreenPolicy)(nil)
