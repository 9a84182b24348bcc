// Package transcript accumulates recognised and translated text for one session.
package transcript

import "strings"

// Separator follows every finalized fragment in the aggregated buffers
const Separator = " "

// Aggregator holds the finalized transcript of a session and the in-flight
// partial pair. It performs no I/O and is not safe for concurrent use.
type Aggregator struct {
	source     strings.Builder
	translated strings.Builder

	partialSource     string
	partialTranslated string
}

// New returns an empty aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Reset clears finalized and partial text
func (a *Aggregator) Reset() {
	a.source.Reset()
	a.translated.Reset()
	a.ClearPartial()
}

// AppendFinal appends one finalized utterance to both buffers.
// Each call is one utterance; callers must not replay it.
func (a *Aggregator) AppendFinal(source, translated string) {
	a.source.WriteString(source)
	a.source.WriteString(Separator)
	a.translated.WriteString(translated)
	a.translated.WriteString(Separator)
}

// SetPartial replaces the in-flight partial pair
func (a *Aggregator) SetPartial(source, translated string) {
	a.partialSource = source
	a.partialTranslated = translated
}

// ClearPartial drops the in-flight partial pair
func (a *Aggregator) ClearPartial() {
	a.partialSource = ""
	a.partialTranslated = ""
}

// SourceText returns the finalized spoken-language transcript
func (a *Aggregator) SourceText() string {
	return a.source.String()
}

// TranslatedText returns the finalized translation
func (a *Aggregator) TranslatedText() string {
	return a.translated.String()
}

// Partial returns the current in-flight source and translated text
func (a *Aggregator) Partial() (source, translated string) {
	return a.partialSource, a.partialTranslated
}
