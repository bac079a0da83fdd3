package stream

// Observer receives forwarded tokens on two independent append-only
// channels — visible content and provider-emitted reasoning — plus one
// flush signal at successful call completion. Implementations are invoked
// from the call's single consuming goroutine, in arrival order.
type Observer interface {
	// OnToken receives one visible content token.
	OnToken(text string)

	// OnReasoning receives one reasoning token. Reasoning is an
	// independent side channel, never filtered for thinking tags.
	OnReasoning(text string)

	// Flush signals that the call completed and no further tokens follow.
	Flush()
}

// NopObserver discards all tokens. Useful when only the aggregated result
// is of interest.
type NopObserver struct{}

func (NopObserver) OnToken(string)     {}
func (NopObserver) OnReasoning(string) {}
func (NopObserver) Flush()             {}
