package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
	"github.com/dgnsrekt/heatmap_agent/internal/dispatch"
	"github.com/dgnsrekt/heatmap_agent/internal/telegram"
)

const (
	usageMap   = "Usage: /map <SYMBOL> [TIMEFRAME]\nExample: /map BTC 24 hour"
	usagePrice = "Usage: /price <SYMBOL>\nExample: /price ETH"
	msgFailed  = "Failed to capture heatmap. Please try again."
	msgGeneric = "An error occurred while processing your request."
)

// HelpText is the reply to /start and /help.
var HelpText = fmt.Sprintf(`🔥 Liquidation Heatmap Bot

Commands:
/map <SYMBOL> [TIMEFRAME] - Get liquidation heatmap
/price <SYMBOL> - Get current price

Examples:
/map BTC
/map ETH 12 hour
/map BTC 24 hour
/map ETH 1 month
/price SOL

Supported timeframes: %s`, strings.Join(capture.Timeframes, ", "))

// Messenger is the Telegram API surface the bot uses.
type Messenger interface {
	GetUpdates(ctx context.Context, offset, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID, text string, replyTo int) error
	SendPhoto(ctx context.Context, chatID string, photo []byte, filename, caption string, replyTo int) error
}

// Heatmaps captures heatmaps and quotes prices.
type Heatmaps interface {
	CaptureMap(ctx context.Context, symbol, timeframe string) (dispatch.Heatmap, error)
	Price(ctx context.Context, symbol string) (string, bool)
}

// ArtifactTaker reads a saved heatmap and removes it.
type ArtifactTaker interface {
	Take(path string) ([]byte, error)
}

// Bot answers chat commands and delivers heatmaps.
type Bot struct {
	tg          Messenger
	maps        Heatmaps
	artifacts   ArtifactTaker
	pollTimeout int
	retryDelay  time.Duration
	workers     chan struct{}
}

func New(tg Messenger, maps Heatmaps, artifacts ArtifactTaker, pollTimeoutSec, maxConcurrent int) *Bot {
	if pollTimeoutSec <= 0 {
		pollTimeoutSec = 30
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Bot{
		tg:          tg,
		maps:        maps,
		artifacts:   artifacts,
		pollTimeout: pollTimeoutSec,
		retryDelay:  5 * time.Second,
		workers:     make(chan struct{}, maxConcurrent),
	}
}

// ParseCommand splits "/map@SomeBot ETH 1 month" into "map" and its
// arguments. ok is false for text that is not a command.
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:], cmd != ""
}

// Caption is the photo caption for a delivered heatmap.
func Caption(symbol, timeframe, price string) string {
	caption := fmt.Sprintf("%s Liquidation Heatmap - %s", symbol, timeframe)
	if price != "" {
		caption += fmt.Sprintf("\n💰 %s Price: %s", symbol, price)
	}
	return caption
}

// Run long-polls for updates until ctx is cancelled. Commands are handled
// concurrently up to the worker limit.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("telegram polling started")
	var wg sync.WaitGroup
	defer wg.Wait()

	offset := 0
	for {
		if ctx.Err() != nil {
			slog.Info("telegram polling stopped")
			return nil
		}
		updates, err := b.tg.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("telegram polling stopped")
				return nil
			}
			slog.Warn("telegram polling failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(b.retryDelay):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
				continue
			}
			msg := *u.Message
			select {
			case b.workers <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-b.workers }()
				b.Handle(ctx, msg)
			}()
		}
	}
}

// Handle answers one message.
func (b *Bot) Handle(ctx context.Context, msg telegram.Message) {
	cmd, args, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	slog.Info("telegram command", "command", cmd, "chat_id", msg.ChatID(), "args", args)
	switch cmd {
	case "map":
		b.handleMap(ctx, msg, args)
	case "price":
		b.handlePrice(ctx, msg, args)
	case "start", "help":
		b.reply(ctx, msg, HelpText)
	}
}

func (b *Bot) handleMap(ctx context.Context, msg telegram.Message, args []string) {
	if len(args) == 0 {
		b.reply(ctx, msg, usageMap)
		return
	}
	req := capture.NewRequest(args[0], strings.Join(args[1:], " "))
	if !slices.Contains(capture.Timeframes, req.Timeframe) {
		b.reply(ctx, msg, "Invalid timeframe. Use: "+strings.Join(capture.Timeframes, ", "))
		return
	}

	b.reply(ctx, msg, fmt.Sprintf("Capturing %s liquidation heatmap (%s)...", req.Symbol, req.Timeframe))
	err := b.Deliver(ctx, msg.ChatID(), req.Symbol, req.Timeframe, msg.MessageID)
	if err == nil {
		return
	}
	slog.Error("map command failed", "symbol", req.Symbol, "timeframe", req.Timeframe, "error", err)
	var coded *capture.CodedError
	switch {
	case errors.As(err, &coded) && coded.Code == capture.CodeValidation:
		b.reply(ctx, msg, "Error: "+coded.Message)
	case errors.As(err, &coded):
		b.reply(ctx, msg, msgFailed)
	default:
		b.reply(ctx, msg, msgGeneric)
	}
}

func (b *Bot) handlePrice(ctx context.Context, msg telegram.Message, args []string) {
	if len(args) == 0 {
		b.reply(ctx, msg, usagePrice)
		return
	}
	text, _ := b.maps.Price(ctx, args[0])
	b.reply(ctx, msg, text)
}

// Deliver captures a heatmap and posts it to chatID as a photo. Capture
// failures are returned unwrapped so callers can inspect their code; the
// artifact is removed once read.
func (b *Bot) Deliver(ctx context.Context, chatID, symbol, timeframe string, replyTo int) error {
	hm, err := b.maps.CaptureMap(ctx, symbol, timeframe)
	if err != nil {
		return err
	}
	data, err := b.artifacts.Take(hm.Path)
	if err != nil {
		return fmt.Errorf("read heatmap: %w", err)
	}
	if err := b.tg.SendPhoto(ctx, chatID, data, filepath.Base(hm.Path), Caption(symbol, timeframe, hm.Price), replyTo); err != nil {
		return fmt.Errorf("send heatmap: %w", err)
	}
	slog.Info("heatmap delivered", "chat_id", chatID, "symbol", symbol, "timeframe", timeframe, "bytes", len(data))
	return nil
}

func (b *Bot) reply(ctx context.Context, msg telegram.Message, text string) {
	if err := b.tg.SendMessage(ctx, msg.ChatID(), text, msg.MessageID); err != nil {
		slog.Error("telegram reply failed", "chat_id", msg.ChatID(), "error", err)
	}
}
