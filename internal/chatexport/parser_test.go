package chatexport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketmoney/chatledger/internal/common"
)

const sampleIOSExport = `[02/01/2024, 10:15:03] Ali: Nak 2 nasi lemak rm15
[02/01/2024, 10:15:45] Ali: alamat: 12 Jalan Melati
Taman Desa
[02/01/2024, 10:16:10] Siti: <Media omitted>
[02/01/2024, 10:17:00] +60 12-345 6789: dah transfer rm50
[02/01/2024, 10:18:00] Ali added Siti`

const sampleAndroidExport = `02/01/2024, 10:15 - Messages and calls are end-to-end encrypted. No one outside of this chat, not even WhatsApp, can read or listen to them.
02/01/2024, 10:16 - Ali: Nak 2 kek batik
02/01/2024, 10:17 - Ali: <Media omitted>
02/01/2024, 10:20 - Siti: dah bayar ye
3/1/24, 9:05 AM - Ali: ok terima kasih`

func TestParseIOSExport(t *testing.T) {
	p := NewParser()
	messages, err := p.ParseFile(context.Background(), strings.NewReader(sampleIOSExport))
	require.NoError(t, err)
	require.Len(t, messages, 3)

	first := messages[0]
	assert.Equal(t, "Ali", first.SenderName)
	assert.Empty(t, first.SenderPhone)
	assert.Equal(t, "Nak 2 nasi lemak rm15", first.Content)
	assert.True(t, first.Timestamp.Equal(time.Date(2024, 1, 2, 10, 15, 3, 0, time.UTC)))

	// The bare address line belongs to the previous message.
	assert.Equal(t, "alamat: 12 Jalan Melati\nTaman Desa", messages[1].Content)

	// Unsaved contacts show up as phone numbers.
	third := messages[2]
	assert.Empty(t, third.SenderName)
	assert.Equal(t, "+60123456789", third.SenderPhone)
	assert.Equal(t, "dah transfer rm50", third.Content)
}

func TestParseAndroidExport(t *testing.T) {
	p := NewParser()
	messages, err := p.ParseFile(context.Background(), strings.NewReader(sampleAndroidExport))
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "Nak 2 kek batik", messages[0].Content)
	assert.True(t, messages[0].Timestamp.Equal(time.Date(2024, 1, 2, 10, 16, 0, 0, time.UTC)))

	// Two-digit year with meridiem.
	assert.Equal(t, "ok terima kasih", messages[2].Content)
	assert.True(t, messages[2].Timestamp.Equal(time.Date(2024, 1, 3, 9, 5, 0, 0, time.UTC)))
}

func TestParseStripsInvisibleMarks(t *testing.T) {
	input := "‎[02/01/2024, 10:15:03] Ali: ‎ok siap boss"

	p := NewParser()
	messages, err := p.ParseFile(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "ok siap boss", messages[0].Content)
}

func TestParseMediaPlaceholderWithCaptionKeepsCaption(t *testing.T) {
	input := "[02/01/2024, 10:16:10] Siti: ‎image omitted\nnak tanya, ada lagi tak?"

	p := NewParser()
	messages, err := p.ParseFile(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "nak tanya, ada lagi tak?", messages[0].Content)
}

func TestParseDropsDeletedMessages(t *testing.T) {
	input := `[02/01/2024, 10:15:03] Ali: Nak 2 kek
[02/01/2024, 10:16:00] Siti: This message was deleted.`

	p := NewParser()
	messages, err := p.ParseFile(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Nak 2 kek", messages[0].Content)
}

func TestParseDropsSystemNoticeWithSender(t *testing.T) {
	// iOS attributes the encryption notice to the chat name.
	input := `[02/01/2024, 10:14:00] Kuih Corner: Messages and calls are end-to-end encrypted. No one outside of this chat, not even WhatsApp, can read or listen to them.
[02/01/2024, 10:15:03] Ali: Nak 2 kek`

	p := NewParser()
	messages, err := p.ParseFile(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Ali", messages[0].SenderName)
}

func TestParseUnrecognizedContent(t *testing.T) {
	p := NewParser()
	_, err := p.ParseFile(context.Background(), strings.NewReader("just some notes\nnothing chat shaped"))
	require.ErrorIs(t, err, common.ErrInvalidMessage)
}

func TestParseEmptyFile(t *testing.T) {
	p := NewParser()
	messages, err := p.ParseFile(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestParsePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleIOSExport), 0o600))

	p := NewParser()
	messages, err := p.ParsePath(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, messages, 3)

	_, err = p.ParsePath(context.Background(), filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}

func TestParseCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewParser()
	_, err := p.ParseFile(ctx, strings.NewReader(sampleIOSExport))
	require.ErrorIs(t, err, context.Canceled)
}
