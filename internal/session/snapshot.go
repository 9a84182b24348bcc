package session

// Output property names exchanged with the host
const (
	OutputState                     = "state"
	OutputSpokenText                = "spokenText"
	OutputTranslatedText            = "translatedText"
	OutputSpokenRecognisingText     = "spokenRecognisingText"
	OutputTranslatedRecognisingText = "translatedRecognisingText"
	OutputErrorText                 = "errorText"
)

// Snapshot is a consistent view of the control outputs after one transition
type Snapshot struct {
	State                     State
	SourceText                string
	TranslatedText            string
	SpokenRecognisingText     string
	TranslatedRecognisingText string
	ErrorText                 string
}

// Outputs returns the snapshot keyed by host output property name
func (s Snapshot) Outputs() map[string]string {
	return map[string]string{
		OutputState:                     s.State.String(),
		OutputSpokenText:                s.SourceText,
		OutputTranslatedText:            s.TranslatedText,
		OutputSpokenRecognisingText:     s.SpokenRecognisingText,
		OutputTranslatedRecognisingText: s.TranslatedRecognisingText,
		OutputErrorText:                 s.ErrorText,
	}
}
