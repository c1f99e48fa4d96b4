package bot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"polling_contract/internal/config"
	"polling_contract/internal/handler"

	"github.com/mattermost/mattermost-server/v5/model"
	"github.com/rs/zerolog"
)

const genericErrorMessage = "Could not process the command, try again later"

var errEventsClosed = errors.New("websocket event stream closed")

// MattermostClient is the part of *model.Client4 the bot uses.
type MattermostClient interface {
	GetMe(etag string) (*model.User, *model.Response)
	CreatePost(post *model.Post) (*model.Post, *model.Response)
}

// EventSource is a websocket subscription to channel events.
type EventSource interface {
	Listen()
	Close()
	Events() <-chan *model.WebSocketEvent
}

type websocketSource struct {
	*model.WebSocketClient
}

func (s websocketSource) Events() <-chan *model.WebSocketEvent {
	return s.EventChannel
}

// Bot relays `!poll` commands posted in Mattermost to the poll contract.
type Bot struct {
	cfg     config.Config
	logger  zerolog.Logger
	client  MattermostClient
	events  EventSource
	self    *model.User
	handler handler.CommandHandler
}

func NewBot(cfg config.Config, logger zerolog.Logger, h handler.CommandHandler) *Bot {
	if !strings.Contains(cfg.MattermostURL, "://") {
		cfg.MattermostURL = "http://" + cfg.MattermostURL
	}
	return &Bot{
		cfg:     cfg,
		logger:  logger.With().Str("component", "bot").Logger(),
		handler: h,
	}
}

// Start serves events until ctx is done or the websocket closes. In-flight commands finish first.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.connect(); err != nil {
		return err
	}

	var inflight sync.WaitGroup
	defer func() {
		inflight.Wait()
		b.events.Close()
	}()

	b.events.Listen()
	b.logger.Info().Str("user_id", b.self.Id).Msg("Bot started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-b.events.Events():
			if !ok {
				return errEventsClosed
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				b.dispatch(ctx, event)
			}()
		}
	}
}

// connect fills in whichever of the REST client, identity and websocket is still missing.
func (b *Bot) connect() error {
	if b.client == nil {
		client := model.NewAPIv4Client(b.cfg.MattermostURL)
		client.SetToken(b.cfg.BotToken)
		client.HttpClient = &http.Client{Timeout: b.cfg.HTTPTimeout}
		b.client = client
	}

	me, resp := b.client.GetMe("")
	if resp.Error != nil {
		return resp.Error
	}
	b.self = me

	if b.events == nil {
		ws, appErr := model.NewWebSocketClient4(strings.Replace(b.cfg.MattermostURL, "http", "ws", 1), b.cfg.BotToken)
		if appErr != nil {
			return appErr
		}
		b.events = websocketSource{ws}
	}
	return nil
}

func (b *Bot) dispatch(ctx context.Context, event *model.WebSocketEvent) {
	post := b.incomingPost(event)
	if post == nil {
		return
	}

	command, args, ok := b.handler.ParseCommand(post.Message)
	if !ok {
		return
	}

	text, err := b.handler.HandleCommand(ctx, command, args, post.UserId)
	if err != nil {
		b.logger.Err(err).
			Str("command", command).
			Str("user_id", post.UserId).
			Msg("Command failed")
		text = genericErrorMessage
	}

	b.reply(&model.Post{ChannelId: post.ChannelId, RootId: post.RootId, Message: text})
}

// incomingPost returns the post carried by a "posted" event unless the bot wrote it.
func (b *Bot) incomingPost(event *model.WebSocketEvent) *model.Post {
	if event.EventType() != model.WEBSOCKET_EVENT_POSTED {
		return nil
	}
	raw, ok := event.GetData()["post"].(string)
	if !ok {
		return nil
	}
	post := model.PostFromJson(strings.NewReader(raw))
	if post == nil || post.UserId == b.self.Id {
		return nil
	}
	return post
}

func (b *Bot) reply(post *model.Post) {
	if post.Message == "" {
		b.logger.Error().Str("channel_id", post.ChannelId).Msg("Refusing to send an empty message")
		return
	}
	if _, resp := b.client.CreatePost(post); resp.Error != nil {
		b.logger.Err(resp.Error).Str("channel_id", post.ChannelId).Msg("Failed to send message")
		return
	}
	b.logger.Debug().Str("channel_id", post.ChannelId).Msg("Reply sent")
}
