package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentsCoalescePerSpeaker(t *testing.T) {
	tr := NewTracker()

	tr.AppendFragment(SenderAvatar, "Hola, ")
	tr.AppendFragment(SenderAvatar, "bienvenido ")
	tr.AppendFragment(SenderAvatar, "al servicio.")

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hola, bienvenido al servicio.", msgs[0].Content)
	assert.Equal(t, SenderAvatar, msgs[0].Sender)
}

func TestSpeakerChangeStartsNewEntry(t *testing.T) {
	tr := NewTracker()

	tr.AppendFragment(SenderAvatar, "Hola")
	tr.AppendFragment(SenderUser, "buenos días")
	tr.AppendFragment(SenderUser, ", quisiera información")

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hola", msgs[0].Content)
	assert.Equal(t, "buenos días, quisiera información", msgs[1].Content)
}

func TestEndTurnBreaksCoalescing(t *testing.T) {
	tr := NewTracker()

	tr.AppendFragment(SenderAvatar, "Primera respuesta.")
	tr.EndTurn()
	tr.AppendFragment(SenderAvatar, "Segunda respuesta.")

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Primera respuesta.", msgs[0].Content)
	assert.Equal(t, "Segunda respuesta.", msgs[1].Content)
}

func TestAddUserMessageAlwaysStartsEntry(t *testing.T) {
	tr := NewTracker()

	tr.AddUserMessage("primera pregunta")
	tr.AddUserMessage("segunda pregunta")
	tr.AppendFragment(SenderUser, " con detalle")

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "primera pregunta", msgs[0].Content)
	assert.Equal(t, "segunda pregunta con detalle", msgs[1].Content)
}

func TestUserEchoFilterDropsBackendPrompts(t *testing.T) {
	tr := NewTracker()
	tr.SetUserEchoFilter([]string{"Selecciona una opción"})

	tr.AppendFragment(SenderUser, "Selecciona una opción: 1) Fondo A 2) Fondo B")
	tr.AppendFragment(SenderUser, "quiero el fondo A")

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "quiero el fondo A", msgs[0].Content)
}

func TestEchoFilterOnlyAppliesToUserChannel(t *testing.T) {
	tr := NewTracker()
	tr.SetUserEchoFilter([]string{"Selecciona"})

	tr.AppendFragment(SenderAvatar, "Selecciona una opción")

	assert.Equal(t, 1, tr.Len())
}

func TestAttachImageTargetsLastAvatarEntry(t *testing.T) {
	tr := NewTracker()

	tr.AppendFragment(SenderAvatar, "Aquí está la gráfica")
	tr.AddUserMessage("gracias")
	tr.AttachImage("aW1n")

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "aW1n", msgs[0].ImageB64)
	assert.Empty(t, msgs[1].ImageB64)
}

func TestAttachImageOnEmptyTranscriptCreatesEntry(t *testing.T) {
	tr := NewTracker()

	tr.AttachImage("aW1n")

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderAvatar, msgs[0].Sender)
	assert.Equal(t, "aW1n", msgs[0].ImageB64)
	assert.Empty(t, msgs[0].Content)
}

func TestClear(t *testing.T) {
	tr := NewTracker()

	tr.AddUserMessage("hola")
	tr.AppendFragment(SenderAvatar, "hola")
	tr.Clear()

	assert.Zero(t, tr.Len())

	// Coalescing state resets with the transcript.
	tr.AppendFragment(SenderAvatar, "de nuevo")
	assert.Equal(t, 1, tr.Len())
}

func TestMessagesReturnsCopy(t *testing.T) {
	tr := NewTracker()
	tr.AddUserMessage("hola")

	msgs := tr.Messages()
	msgs[0].Content = "mutado"

	assert.Equal(t, "hola", tr.Messages()[0].Content)
}
