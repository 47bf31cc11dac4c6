package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// Token is the bot token issued by BotFather.
	Token string
	// BaseURL is the Bot API root. Defaults to https://api.telegram.org.
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	// Its Timeout bounds every call since the underlying bot library does not
	// take a context.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// Client adapts tgbotapi.BotAPI to the request types the notifier speaks.
// It is safe for concurrent use and meant to be constructed once and shared.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewClient builds the bot and verifies the token with getMe.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("telegram: Token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("telegram: invalid BaseURL %q: %w", baseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/bot%s/%s"
	bot, err := tgbotapi.NewBotAPIWithClient(config.Token, endpoint, httpClient)
	if err != nil {
		return nil, wrap("getMe", err)
	}

	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return &Client{bot: bot, logger: logger}, nil
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := tgbotapi.MessageConfig{
		BaseChat:              baseChat(req.ChatID, req.ReplyMarkup),
		Text:                  req.Text,
		ParseMode:             req.ParseMode,
		DisableWebPagePreview: req.DisableWebPagePreview,
	}
	msg, err := c.bot.Send(cfg)
	if err != nil {
		return nil, c.fail("sendMessage", err)
	}
	return fromBotMessage(msg), nil
}

// SendPhoto uploads req.Photo as a multipart file.
func (c *Client) SendPhoto(ctx context.Context, req SendPhotoRequest) (*Message, error) {
	if len(req.Photo) == 0 {
		return nil, fmt.Errorf("telegram: sendPhoto requires photo bytes")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "photo.jpg"
	}
	cfg := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{
			BaseChat: baseChat(req.ChatID, req.ReplyMarkup),
			File:     tgbotapi.FileBytes{Name: fileName, Bytes: req.Photo},
		},
		Caption:   req.Caption,
		ParseMode: req.ParseMode,
	}
	msg, err := c.bot.Send(cfg)
	if err != nil {
		return nil, c.fail("sendPhoto", err)
	}
	return fromBotMessage(msg), nil
}

func (c *Client) EditMessageText(ctx context.Context, req EditMessageTextRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.EditMessageTextConfig{
		BaseEdit:  baseEdit(req.ChatID, req.MessageID, req.ReplyMarkup),
		Text:      req.Text,
		ParseMode: req.ParseMode,
	}
	if _, err := c.bot.Request(cfg); err != nil {
		return c.fail("editMessageText", err)
	}
	return nil
}

func (c *Client) EditMessageCaption(ctx context.Context, req EditMessageCaptionRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.EditMessageCaptionConfig{
		BaseEdit:  baseEdit(req.ChatID, req.MessageID, req.ReplyMarkup),
		Caption:   req.Caption,
		ParseMode: req.ParseMode,
	}
	if _, err := c.bot.Request(cfg); err != nil {
		return c.fail("editMessageCaption", err)
	}
	return nil
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, req AnswerCallbackQueryRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.CallbackConfig{
		CallbackQueryID: req.CallbackQueryID,
		Text:            req.Text,
		ShowAlert:       req.ShowAlert,
	}
	if _, err := c.bot.Request(cfg); err != nil {
		return c.fail("answerCallbackQuery", err)
	}
	return nil
}

// SetWebhook goes through MakeRequest because the library's WebhookConfig
// has no secret_token field.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := tgbotapi.Params{"url": req.URL}
	params.AddNonEmpty("secret_token", req.SecretToken)
	if len(req.AllowedUpdates) > 0 {
		if err := params.AddInterface("allowed_updates", req.AllowedUpdates); err != nil {
			return fmt.Errorf("telegram: encode allowed updates: %w", err)
		}
	}
	if _, err := c.bot.MakeRequest("setWebhook", params); err != nil {
		return c.fail("setWebhook", err)
	}
	return nil
}

func (c *Client) fail(method string, err error) error {
	err = wrap(method, err)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.logger.Debug("telegram api error",
			zap.String("method", method),
			zap.Int("error_code", apiErr.ErrorCode),
			zap.String("description", apiErr.Description))
	}
	return err
}

// wrap converts library errors into *APIError and strips the token-bearing
// URL from transport failures.
func wrap(method string, err error) error {
	var botErr *tgbotapi.Error
	if errors.As(err, &botErr) {
		return fromBotError(method, *botErr)
	}
	var botErrValue tgbotapi.Error
	if errors.As(err, &botErrValue) {
		return fromBotError(method, botErrValue)
	}
	return fmt.Errorf("telegram: %s request failed: %w", method, redact(err))
}

func fromBotError(method string, e tgbotapi.Error) *APIError {
	return &APIError{
		Method:      method,
		StatusCode:  e.Code,
		ErrorCode:   e.Code,
		Description: e.Message,
		RetryAfter:  e.RetryAfter,
	}
}

func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// baseChat routes numeric ids to ChatID and anything else (such as
// "@channel") to ChannelUsername.
func baseChat(chatID string, markup *InlineKeyboardMarkup) tgbotapi.BaseChat {
	chat := tgbotapi.BaseChat{}
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		chat.ChatID = id
	} else {
		chat.ChannelUsername = chatID
	}
	if markup != nil {
		chat.ReplyMarkup = toBotMarkup(markup)
	}
	return chat
}

func baseEdit(chatID string, messageID int64, markup *InlineKeyboardMarkup) tgbotapi.BaseEdit {
	edit := tgbotapi.BaseEdit{MessageID: int(messageID)}
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		edit.ChatID = id
	} else {
		edit.ChannelUsername = chatID
	}
	if markup != nil {
		m := toBotMarkup(markup)
		edit.ReplyMarkup = &m
	}
	return edit
}

func toBotMarkup(markup *InlineKeyboardMarkup) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(markup.InlineKeyboard))
	for _, row := range markup.InlineKeyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func fromBotMessage(msg tgbotapi.Message) *Message {
	out := &Message{
		MessageID: int64(msg.MessageID),
		Date:      int64(msg.Date),
		Text:      msg.Text,
		Caption:   msg.Caption,
	}
	if msg.Chat != nil {
		out.Chat = Chat{ID: msg.Chat.ID, Type: msg.Chat.Type, Title: msg.Chat.Title, Username: msg.Chat.UserName}
	}
	for _, p := range msg.Photo {
		out.Photo = append(out.Photo, PhotoSize{FileID: p.FileID, Width: p.Width, Height: p.Height, FileSize: p.FileSize})
	}
	return out
}

// ChatIDString formats a numeric chat id the way the API accepts it in
// string-typed fields.
func ChatIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
