package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/knowlegather/dominivoice/persona"
)

func TestVoicesHandlerServesCatalog(t *testing.T) {
	s := &Server{logger: zaptest.NewLogger(t)}

	rec := httptest.NewRecorder()
	s.handleVoices(rec, httptest.NewRequest(http.MethodGet, "/voices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var voices []persona.Voice
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &voices))
	require.Len(t, voices, len(persona.Voices()))
	assert.True(t, persona.ValidVoice(voices[0].Name))
}
