package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/sgbot/internal/cleanup"
	"github.com/iamwavecut/sgbot/internal/config"
)

type sentMessage struct {
	chatID int64
	text   string
}

type editedMessage struct {
	chatID    int64
	messageID int
	text      string
}

type restrictCall struct {
	chatID  int64
	userID  int64
	allowed bool
	until   time.Time
}

// recordingGateway is a bot.Gateway that records every call and can fail
// selected operations. Guarded by a mutex because the cleaner and the admin
// fan-out call it from their own goroutines.
type recordingGateway struct {
	mu sync.Mutex

	sent    []sentMessage
	markups []sentMessage
	deleted []editedMessage
	edits   []editedMessage

	restricts []restrictCall
	banned    []int64
	unbanned  []int64
	callbacks []string

	nextMessageID int

	sendErr      error
	deleteErr    error
	banErr       error
	markupErrFor map[int64]error
}

func (g *recordingGateway) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, editedMessage{chatID: chatID, messageID: messageID})
	return nil
}

func (g *recordingGateway) SendMessage(_ context.Context, chatID int64, text string) (api.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return api.Message{}, g.sendErr
	}
	g.nextMessageID++
	g.sent = append(g.sent, sentMessage{chatID: chatID, text: text})
	return api.Message{MessageID: g.nextMessageID}, nil
}

func (g *recordingGateway) SendMessageWithMarkup(_ context.Context, chatID int64, text string, _ api.InlineKeyboardMarkup) (api.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.markupErrFor[chatID]; err != nil {
		return api.Message{}, err
	}
	g.nextMessageID++
	g.markups = append(g.markups, sentMessage{chatID: chatID, text: text})
	return api.Message{MessageID: g.nextMessageID}, nil
}

func (g *recordingGateway) EditMessageText(_ context.Context, chatID int64, messageID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edits = append(g.edits, editedMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (g *recordingGateway) RestrictSending(_ context.Context, chatID, userID int64, allowed bool, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restricts = append(g.restricts, restrictCall{chatID: chatID, userID: userID, allowed: allowed, until: until})
	return nil
}

func (g *recordingGateway) BanMember(_ context.Context, _, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.banErr != nil {
		return g.banErr
	}
	g.banned = append(g.banned, userID)
	return nil
}

func (g *recordingGateway) UnbanMember(_ context.Context, _, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unbanned = append(g.unbanned, userID)
	return nil
}

func (g *recordingGateway) AnswerCallback(_ context.Context, callbackQueryID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = append(g.callbacks, callbackQueryID)
	return nil
}

func (g *recordingGateway) sentTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	texts := make([]string, 0, len(g.sent))
	for _, m := range g.sent {
		texts = append(texts, m.text)
	}
	return texts
}

func (g *recordingGateway) markupChats() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	chats := make([]int64, 0, len(g.markups))
	for _, m := range g.markups {
		chats = append(chats, m.chatID)
	}
	return chats
}

func (g *recordingGateway) deletedIDs() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]int, 0, len(g.deleted))
	for _, m := range g.deleted {
		ids = append(ids, m.messageID)
	}
	return ids
}

func (g *recordingGateway) deletedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.deleted)
}

func testConfig() config.Config {
	return config.Config{
		GroupID:         100,
		AdminIDs:        []int64{1, 2},
		DefaultLanguage: "en",
		MaxWarnings:     3,
		BannerTTL:       10 * time.Millisecond,
		WelcomeTTL:      10 * time.Millisecond,
	}
}

func newTestCleaner(t *testing.T, gw *recordingGateway) *cleanup.Cleaner {
	t.Helper()
	cleaner := cleanup.NewCleaner(gw)
	if err := cleaner.Start(context.Background()); err != nil {
		t.Fatalf("start cleaner: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = cleaner.Stop(ctx)
	})
	return cleaner
}

// commandMessage builds a message whose text starts with a bot command, the
// way Telegram marks one up.
func commandMessage(text string) *api.Message {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return &api.Message{
		MessageID: 500,
		Text:      text,
		Entities: []api.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: cmdLen},
		},
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s", msg)
}
