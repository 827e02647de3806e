package chatbot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
	"github.com/dgnsrekt/heatmap_agent/internal/dispatch"
	"github.com/dgnsrekt/heatmap_agent/internal/telegram"
)

type sentMessage struct {
	chatID  string
	text    string
	replyTo int
}

type sentPhoto struct {
	chatID   string
	data     []byte
	filename string
	caption  string
}

type fakeMessenger struct {
	mu       sync.Mutex
	messages []sentMessage
	photos   []sentPhoto
	photoErr error
	batches  [][]telegram.Update
	offsets  []int
}

func (f *fakeMessenger) GetUpdates(ctx context.Context, offset, timeoutSec int) ([]telegram.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	if len(f.batches) > 0 {
		next := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return next, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID, text string, replyTo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{chatID, text, replyTo})
	return nil
}

func (f *fakeMessenger) SendPhoto(ctx context.Context, chatID string, photo []byte, filename, caption string, replyTo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		return f.photoErr
	}
	f.photos = append(f.photos, sentPhoto{chatID, photo, filename, caption})
	return nil
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.text)
	}
	return out
}

type fakeMaps struct {
	symbol, timeframe string
	path              string
	err               error
	price             string
	captures          int
	quotes            int
}

func (f *fakeMaps) CaptureMap(ctx context.Context, symbol, timeframe string) (dispatch.Heatmap, error) {
	f.symbol, f.timeframe = symbol, timeframe
	f.captures++
	if f.err != nil {
		return dispatch.Heatmap{Message: "Error capturing heatmap"}, f.err
	}
	return dispatch.Heatmap{Path: f.path, Message: "captured", Price: f.price}, nil
}

func (f *fakeMaps) Price(ctx context.Context, symbol string) (string, bool) {
	f.quotes++
	if f.price == "" {
		return "Failed to fetch price for " + symbol, false
	}
	return "Current " + symbol + " price: " + f.price, true
}

type fakeTaker struct {
	taken []string
	data  []byte
	err   error
}

func (f *fakeTaker) Take(path string) ([]byte, error) {
	f.taken = append(f.taken, path)
	return f.data, f.err
}

func message(text string) telegram.Message {
	return telegram.Message{MessageID: 11, Text: text, Chat: telegram.Chat{ID: 99}}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{"/map BTC", "map", []string{"BTC"}, true},
		{"/map@HeatmapBot eth 1 month", "map", []string{"eth", "1", "month"}, true},
		{"  /HELP  ", "help", []string{}, true},
		{"hello there", "", nil, false},
		{"", "", nil, false},
		{"/", "", []string{}, false},
	}
	for _, tt := range tests {
		cmd, args, ok := ParseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		if tt.ok {
			assert.Equal(t, tt.args, args, tt.text)
		}
	}
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "ETH Liquidation Heatmap - 1 month\n💰 ETH Price: $2,300.10", Caption("ETH", "1 month", "$2,300.10"))
	assert.Equal(t, "ETH Liquidation Heatmap - 1 month", Caption("ETH", "1 month", ""))
}

func TestMapDeliversPhoto(t *testing.T) {
	tg := &fakeMessenger{}
	maps := &fakeMaps{path: "/out/eth_liquidation_heatmap_20250314_092653_1_month.png", price: "$2,300.10"}
	taker := &fakeTaker{data: []byte("png")}
	b := New(tg, maps, taker, 0, 0)

	b.Handle(context.Background(), message("/map eth 1 month"))

	assert.Equal(t, "ETH", maps.symbol)
	assert.Equal(t, "1 month", maps.timeframe)
	assert.Equal(t, []string{"Capturing ETH liquidation heatmap (1 month)..."}, tg.texts())
	require.Len(t, tg.photos, 1)
	p := tg.photos[0]
	assert.Equal(t, "99", p.chatID)
	assert.Equal(t, "eth_liquidation_heatmap_20250314_092653_1_month.png", p.filename)
	assert.Equal(t, "ETH Liquidation Heatmap - 1 month\n💰 ETH Price: $2,300.10", p.caption)
	assert.Equal(t, []string{maps.path}, taker.taken)
	assert.Equal(t, 1, maps.captures)
	assert.Zero(t, maps.quotes, "caption reuses the price quoted during capture")
}

func TestMapDefaultsTimeframe(t *testing.T) {
	tg := &fakeMessenger{}
	maps := &fakeMaps{path: "/out/a.png"}
	b := New(tg, maps, &fakeTaker{data: []byte("png")}, 0, 0)

	b.Handle(context.Background(), message("/map btc"))

	assert.Equal(t, "24 hour", maps.timeframe)
	require.Len(t, tg.photos, 1)
	assert.Equal(t, "BTC Liquidation Heatmap - 24 hour", tg.photos[0].caption)
}

func TestMapReplies(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maps     *fakeMaps
		photoErr error
		want     []string
	}{
		{"usage", "/map", &fakeMaps{}, nil, []string{usageMap}},
		{"bad timeframe", "/map BTC 2 weeks", &fakeMaps{}, nil, []string{"Invalid timeframe. Use: 12 hour, 24 hour, 1 month, 3 month"}},
		{"unsupported symbol", "/map PEPE", &fakeMaps{err: &capture.CodedError{Code: capture.CodeValidation, Field: "symbol", Message: "Unsupported symbol 'PEPE'."}}, nil,
			[]string{"Capturing PEPE liquidation heatmap (24 hour)...", "Error: Unsupported symbol 'PEPE'."}},
		{"capture failed", "/map BTC", &fakeMaps{err: &capture.CodedError{Code: capture.CodeNotFound, Message: "chart element not found"}}, nil,
			[]string{"Capturing BTC liquidation heatmap (24 hour)...", msgFailed}},
		{"send failed", "/map BTC", &fakeMaps{path: "/out/a.png"}, errors.New("network"),
			[]string{"Capturing BTC liquidation heatmap (24 hour)...", msgGeneric}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &fakeMessenger{photoErr: tt.photoErr}
			b := New(tg, tt.maps, &fakeTaker{data: []byte("png")}, 0, 0)
			b.Handle(context.Background(), message(tt.text))
			assert.Equal(t, tt.want, tg.texts())
		})
	}
}

func TestPriceAndHelp(t *testing.T) {
	tg := &fakeMessenger{}
	b := New(tg, &fakeMaps{price: "$43,250.50"}, &fakeTaker{}, 0, 0)
	ctx := context.Background()

	b.Handle(ctx, message("/price btc"))
	b.Handle(ctx, message("/price"))
	b.Handle(ctx, message("/start"))
	b.Handle(ctx, message("not a command"))

	got := tg.texts()
	require.Len(t, got, 3)
	assert.Equal(t, "Current btc price: $43,250.50", got[0])
	assert.Equal(t, usagePrice, got[1])
	assert.Contains(t, got[2], "/map <SYMBOL> [TIMEFRAME]")
	assert.Contains(t, got[2], "Supported timeframes: 12 hour, 24 hour, 1 month, 3 month")
	assert.Equal(t, 11, tg.messages[0].replyTo)
}

func TestRunAdvancesOffset(t *testing.T) {
	tg := &fakeMessenger{batches: [][]telegram.Update{
		{{UpdateID: 4, Message: &telegram.Message{MessageID: 1, Text: "/help", Chat: telegram.Chat{ID: 5}}}, {UpdateID: 5}},
	}}
	b := New(tg, &fakeMaps{}, &fakeTaker{}, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		tg.mu.Lock()
		defer tg.mu.Unlock()
		return len(tg.messages) == 1 && len(tg.offsets) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	tg.mu.Lock()
	defer tg.mu.Unlock()
	assert.Equal(t, []int{0, 6}, tg.offsets)
}
