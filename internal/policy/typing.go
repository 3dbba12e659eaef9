package policy

// TypingPolicy is the vocabulary the keyboard monitor checks typed text against.
// It carries keywords only; phrases and patterns belong to the screen classifier.
type TypingPolicy struct{}

// NewTypingPolicy creates the keyboard vocabulary.
func NewTypingPolicy() *TypingPolicy {
	return &TypingPolicy{}
}

func (p *TypingPolicy) ID() string {
	return "typing"
}

func (p *TypingPolicy) Name() string {
	return "Typed search terms"
}

// Keywords returns the search terms. Order matters: the first hit is reported.
func (p *TypingPolicy) Keywords() []string {
	return []string{
		"porno", "porn", "xxx", "sexo", "desnudo", "desnuda", "erotico", "erotica",
		"masturbacion", "masturbar", "pornografia", "pornhub", "xvideos", "redtube",
		"youporn", "tube8", "amateur", "webcam", "cam4", "chaturbate", "onlyfans",
		"nude", "naked", "strip", "stripper", "escort", "prostituta", "fetish",
		"bondage", "bdsm", "anal", "oral", "vaginal", "penis", "vagina", "clitoris",
	}
}

func (p *TypingPolicy) Phrases() []string {
	return nil
}

func (p *TypingPolicy) Patterns() []string {
	return nil
}

// Ensure TypingPolicy implements VocabularyPolicy.
var _ VocabularyPolicy = (*TypingPolicy)(nil)
