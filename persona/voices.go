// Package persona provides the seed assistant identities, the catalog of
// prebuilt voices and the system instruction builders for live and
// standard chat.
package persona

// Voice describes one prebuilt voice available for live sessions and TTS.
type Voice struct {
	Name   string `json:"name"`
	Gender string `json:"ssmlGender"`
	Style  string `json:"style"`
}

var voices = []Voice{
	{Name: "Achernar", Gender: "FEMALE", Style: "Soft"},
	{Name: "Achird", Gender: "MALE", Style: "Friendly"},
	{Name: "Algenib", Gender: "MALE", Style: "Gravelly"},
	{Name: "Algieba", Gender: "MALE", Style: "Smooth"},
	{Name: "Alnilam", Gender: "MALE", Style: "Firm"},
	{Name: "Aoede", Gender: "FEMALE", Style: "Breezy"},
	{Name: "Autonoe", Gender: "FEMALE", Style: "Bright"},
	{Name: "Callirrhoe", Gender: "FEMALE", Style: "Easy-going"},
	{Name: "Charon", Gender: "MALE", Style: "Informative"},
	{Name: "Despina", Gender: "FEMALE", Style: "Smooth"},
	{Name: "Enceladus", Gender: "MALE", Style: "Breathy"},
	{Name: "Erinome", Gender: "FEMALE", Style: "Clear"},
	{Name: "Fenrir", Gender: "MALE", Style: "Excitable"},
	{Name: "Gacrux", Gender: "FEMALE", Style: "Mature"},
	{Name: "Iapetus", Gender: "MALE", Style: "Clear"},
	{Name: "Kore", Gender: "FEMALE", Style: "Firm"},
	{Name: "Laomedeia", Gender: "FEMALE", Style: "Upbeat"},
	{Name: "Leda", Gender: "FEMALE", Style: "Youthful"},
	{Name: "Orus", Gender: "MALE", Style: "Firm"},
	{Name: "Puck", Gender: "MALE", Style: "Upbeat"},
	{Name: "Pulcherrima", Gender: "FEMALE", Style: "Forward"},
	{Name: "Rasalgethi", Gender: "MALE", Style: "Informative"},
	{Name: "Sadachbia", Gender: "MALE", Style: "Lively"},
	{Name: "Sadaltager", Gender: "MALE", Style: "Knowledgeable"},
	{Name: "Schedar", Gender: "MALE", Style: "Even"},
	{Name: "Sulafat", Gender: "FEMALE", Style: "Warm"},
	{Name: "Umbriel", Gender: "MALE", Style: "Easy-going"},
	{Name: "Vindemiatrix", Gender: "FEMALE", Style: "Gentle"},
	{Name: "Zephyr", Gender: "FEMALE", Style: "Bright"},
	{Name: "Zubenelgenubi", Gender: "MALE", Style: "Casual"},
}

// Voices returns the full catalog of prebuilt voices.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// ValidVoice reports whether name is a known prebuilt voice.
func ValidVoice(name string) bool {
	for _, v := range voices {
		if v.Name == name {
			return true
		}
	}
	return false
}
