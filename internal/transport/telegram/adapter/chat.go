package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "stockrelay/internal/transport"
	logx "stockrelay/pkg/logx"
)

// CanDeliver checks the bot's own membership in the target chat.
func (a *Adapter) CanDeliver(ctx context.Context, to kit.ChatTarget) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	chat, err := a.bot.ChatByID(to.ChatID)
	if err != nil {
		return false, fmt.Errorf("lookup chat %d: %w", to.ChatID, err)
	}
	if chat.Type == tele.ChatPrivate {
		return true, nil
	}
	if a.bot.Me == nil {
		return false, fmt.Errorf("bot identity unknown")
	}
	mem, err := a.bot.ChatMemberOf(chat, a.bot.Me)
	if err != nil {
		return false, fmt.Errorf("lookup bot membership in %d: %w", to.ChatID, err)
	}
	switch mem.Role {
	case tele.Creator:
		return true, nil
	case tele.Administrator:
		if chat.Type == tele.ChatChannel || chat.Type == tele.ChatChannelPrivate {
			return mem.CanPostMessages, nil
		}
		return true, nil
	case tele.Member:
		return chat.Type != tele.ChatChannel && chat.Type != tele.ChatChannelPrivate, nil
	case tele.Restricted:
		return mem.CanSendMessages, nil
	default:
		return false, nil
	}
}

// IsChatAdmin reports whether userID is the creator or an administrator of chatID.
// A private chat is administered by its only human member.
func (a *Adapter) IsChatAdmin(ctx context.Context, chatID int64, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if chatID == userID {
		return true, nil
	}
	chat, err := a.bot.ChatByID(chatID)
	if err != nil {
		return false, fmt.Errorf("lookup chat %d: %w", chatID, err)
	}
	if chat.Type == tele.ChatPrivate {
		return false, nil
	}
	mem, err := a.bot.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		return false, fmt.Errorf("lookup member %d in %d: %w", userID, chatID, err)
	}
	return mem.Role == tele.Creator || mem.Role == tele.Administrator, nil
}

// UpdateMenuCommands updates Telegram's global /menu command list (setMyCommands).
// Best-effort: it only performs a network call when the command list changes.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	a.menuMu.Lock()
	defer a.menuMu.Unlock()

	h := fnv.New64a()
	for _, c := range cmds {
		h.Write([]byte(c.Command))
		h.Write([]byte{0})
		h.Write([]byte(c.Description))
		h.Write([]byte{0})
	}
	sum := h.Sum64()
	if sum == a.menuHash {
		return nil
	}

	type cmd struct {
		Command     string `json:"command"`
		Description string `json:"description"`
	}
	payload := struct {
		Commands []cmd `json:"commands"`
	}{Commands: make([]cmd, 0, len(cmds))}

	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		d := c.Description
		if d == "" {
			d = c.Command
		}
		if len(d) > 256 {
			d = d[:256]
		}
		payload.Commands = append(payload.Commands, cmd{Command: c.Command, Description: d})
		if len(payload.Commands) >= 100 {
			break
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := "https://api.telegram.org/bot" + strings.TrimSpace(a.cfg.Token) + "/setMyCommands"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := a.http
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		OK          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode/100 != 2 || !out.OK {
		if out.Description != "" {
			return fmt.Errorf("telegram setMyCommands failed: %s (code=%d http=%d)", out.Description, out.ErrorCode, resp.StatusCode)
		}
		return fmt.Errorf("telegram setMyCommands failed: http=%d", resp.StatusCode)
	}

	a.menuHash = sum
	a.log.Info("menu commands updated", logx.Int("count", len(payload.Commands)))
	return nil
}
