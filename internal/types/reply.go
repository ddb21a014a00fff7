package types

// =============================================================================
// ORACLE REPLY VARIANTS
// =============================================================================

// ReplyKind tags a parsed oracle reply. Downstream logic switches on this
// instead of optional-chaining through raw JSON.
type ReplyKind int

const (
	// ReplyValid carries a usable question and zero or more guesses.
	ReplyValid ReplyKind = iota
	// ReplyEmpty means the oracle returned nothing usable (blank question,
	// no guesses).
	ReplyEmpty
	// ReplyMalformed means the oracle response could not be decoded at all.
	ReplyMalformed
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyValid:
		return "valid"
	case ReplyEmpty:
		return "empty"
	case ReplyMalformed:
		return "malformed"
	}
	return "unknown"
}

// ParsedReply is the validated form of an oracle question/guess proposal.
// Question and Guesses are only meaningful when Kind is ReplyValid.
type ParsedReply struct {
	Kind     ReplyKind
	Question string
	Guesses  []GuessCandidate
}

// TraitProposal is the oracle's raw candidate trait for one Q&A pair,
// before any validation. Untrusted until the extractor accepts it.
type TraitProposal struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}
