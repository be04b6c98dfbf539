package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceCatalog(t *testing.T) {
	catalog := Voices()
	require.Len(t, catalog, 30)

	seen := make(map[string]bool)
	for _, v := range catalog {
		assert.NotEmpty(t, v.Name)
		assert.Contains(t, []string{"MALE", "FEMALE"}, v.Gender)
		assert.False(t, seen[v.Name], "duplicate voice %s", v.Name)
		seen[v.Name] = true
	}

	// Callers get a copy, not the backing slice.
	catalog[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Voices()[0].Name)
}

func TestValidVoice(t *testing.T) {
	assert.True(t, ValidVoice("Puck"))
	assert.True(t, ValidVoice("Zubenelgenubi"))
	assert.False(t, ValidVoice("puck"))
	assert.False(t, ValidVoice(""))
	assert.False(t, ValidVoice("Narrator"))
}

func TestDefaultPersonasUseCatalogVoices(t *testing.T) {
	for _, p := range Defaults() {
		assert.True(t, ValidVoice(p.VoiceName), "persona %s has unknown voice %s", p.ID, p.VoiceName)
	}
}

func TestLiveInstructionMentionsPersonaAndContext(t *testing.T) {
	p := Defaults()[0]

	instruction := LiveInstruction(p, "")
	assert.Contains(t, instruction, p.FirstName)
	assert.Contains(t, instruction, strings.Join(p.Interests, ", "))
	assert.NotContains(t, instruction, "ADDITIONAL CONTEXT")

	withContext := LiveInstruction(p, "The sky is green today.")
	assert.Contains(t, withContext, "ADDITIONAL CONTEXT")
	assert.Contains(t, withContext, "The sky is green today.")
}
