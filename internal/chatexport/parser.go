// Package chatexport parses WhatsApp chat export text files into messages.
// Both export layouts are recognized: the iOS form
// "[02/01/2024, 10:15:03] Name: text" and the Android form
// "02/01/2024, 10:15 - Name: text", with dates read day-first.
package chatexport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/phone"
)

// maxLineSize caps a single export line; forwarded walls of text can exceed
// bufio's default token size.
const maxLineSize = 1024 * 1024

var (
	iosLineRe = regexp.MustCompile(
		`^\[(\d{1,2}/\d{1,2}/\d{2,4}),\s+(\d{1,2}:\d{2}(?::\d{2})?(?:\s?(?:AM|PM|am|pm))?)\]\s+(.*)$`)
	androidLineRe = regexp.MustCompile(
		`^(\d{1,2}/\d{1,2}/\d{2,4}),\s+(\d{1,2}:\d{2}(?::\d{2})?(?:\s?(?:AM|PM|am|pm))?)\s+-\s+(.*)$`)

	// Senders that are phone numbers rather than saved contact names.
	phoneSenderRe = regexp.MustCompile(`^\+?\d[\d\s()-]{6,}$`)

	invisibleReplacer = strings.NewReplacer(
		"‎", "", // left-to-right mark, iOS sprinkles these
		"‏", "", // right-to-left mark
		"\uFEFF", "", // BOM
		" ", " ", // no-break space
		" ", " ", // narrow no-break space before AM/PM
	)
)

var timestampLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 3:04:05 PM",
	"2/1/2006 3:04 PM",
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2/1/06 3:04:05 PM",
	"2/1/06 3:04 PM",
}

// Parser reads WhatsApp export files.
type Parser struct{}

// NewParser creates a new chat export parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParsePath parses the export file at path.
func (p *Parser) ParsePath(ctx context.Context, path string) ([]model.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat export: %w", err)
	}
	defer func() { _ = f.Close() }()

	messages, err := p.ParseFile(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return messages, nil
}

// ParseFile parses a chat export and returns its messages in file order.
// Media placeholders, deleted messages and system notices are dropped. A
// file with content but no recognizable chat lines yields ErrInvalidMessage.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Message, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		messages   []model.Message
		cur        *pendingMessage
		skipped    int
		sawContent bool
	)

	flush := func() {
		if cur == nil {
			return
		}
		if msg, ok := cur.build(); ok {
			messages = append(messages, msg)
		} else {
			skipped++
		}
		cur = nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := invisibleReplacer.Replace(scanner.Text())
		if strings.TrimSpace(line) != "" {
			sawContent = true
		}

		ts, rest, ok := matchHeader(line)
		if !ok {
			// Not a header: either a continuation of the current message
			// or stray text outside any message.
			if cur != nil {
				cur.lines = append(cur.lines, line)
			}
			continue
		}

		flush()

		sender, content, found := strings.Cut(rest, ": ")
		if !found {
			// Group notices ("Ali added Siti") carry no sender separator.
			skipped++
			continue
		}

		cur = &pendingMessage{
			ts:     ts,
			sender: strings.TrimSpace(sender),
			lines:  []string{content},
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat export: %w", err)
	}
	flush()

	if len(messages) == 0 && sawContent {
		return nil, fmt.Errorf("no WhatsApp chat lines recognized: %w", common.ErrInvalidMessage)
	}

	slog.Info("parsed chat export",
		"messages", len(messages),
		"skipped", skipped)

	return messages, nil
}

type pendingMessage struct {
	ts     time.Time
	sender string
	lines  []string
}

// build assembles the buffered lines into a message, dropping media
// placeholder lines. It reports false when nothing worth keeping remains.
func (m *pendingMessage) build() (model.Message, bool) {
	kept := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		if isMediaPlaceholder(line) {
			continue
		}
		kept = append(kept, line)
	}

	content := strings.TrimSpace(strings.Join(kept, "\n"))
	if content == "" || isSystemNotice(content) {
		return model.Message{}, false
	}

	msg := model.Message{
		Timestamp: m.ts,
		Content:   content,
	}
	if phoneSenderRe.MatchString(m.sender) {
		msg.SenderPhone = phone.Normalize(m.sender)
	} else {
		msg.SenderName = m.sender
	}
	return msg, true
}

func matchHeader(line string) (time.Time, string, bool) {
	for _, re := range []*regexp.Regexp{iosLineRe, androidLineRe} {
		parts := re.FindStringSubmatch(line)
		if parts == nil {
			continue
		}
		ts, err := parseTimestamp(parts[1], parts[2])
		if err != nil {
			continue
		}
		return ts, parts[3], true
	}
	return time.Time{}, "", false
}

func parseTimestamp(date, clock string) (time.Time, error) {
	// Layouts with PM need the meridiem uppercased; dates carry no letters.
	stamp := strings.ToUpper(date + " " + strings.TrimSpace(clock))
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, stamp); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", stamp)
}

func isMediaPlaceholder(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	if strings.HasPrefix(l, "<attached:") {
		return true
	}
	switch l {
	case "<media omitted>",
		"image omitted",
		"video omitted",
		"audio omitted",
		"sticker omitted",
		"gif omitted",
		"document omitted",
		"contact card omitted",
		"missed voice call",
		"missed video call",
		"this message was deleted",
		"this message was deleted.",
		"you deleted this message",
		"you deleted this message.",
		"null":
		return true
	}
	return false
}

func isSystemNotice(content string) bool {
	l := strings.ToLower(content)
	return strings.HasPrefix(l, "messages and calls are end-to-end encrypted") ||
		strings.HasPrefix(l, "messages to this chat and calls are now secured")
}
