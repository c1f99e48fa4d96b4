package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"polling_contract/internal/config"
	"polling_contract/internal/handler"
	"polling_contract/internal/models"

	"github.com/mattermost/mattermost-server/v5/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ########################
// ### Mocks and Fixtures
// ########################

type fakeClient struct {
	getMeFunc      func(string) (*model.User, *model.Response)
	createPostFunc func(*model.Post) (*model.Post, *model.Response)
}

func (f *fakeClient) GetMe(param string) (*model.User, *model.Response) {
	return f.getMeFunc(param)
}

func (f *fakeClient) CreatePost(post *model.Post) (*model.Post, *model.Response) {
	return f.createPostFunc(post)
}

type fakeEvents struct {
	ch chan *model.WebSocketEvent
}

func (f *fakeEvents) Listen() {}

func (f *fakeEvents) Close() {
	close(f.ch)
}

func (f *fakeEvents) Events() <-chan *model.WebSocketEvent {
	return f.ch
}

// closedEvents tolerates Close on an already closed stream.
type closedEvents struct {
	*fakeEvents
}

func (closedEvents) Close() {}

// fakeContract keeps tallies in a map; enough to drive the real command handler.
type fakeContract struct {
	mu    sync.Mutex
	polls map[string]*models.Poll
	err   error
}

func (f *fakeContract) Execute(_ context.Context, _ string, msg models.ExecuteMsg) (models.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Response{}, f.err
	}
	switch m := msg.(type) {
	case models.CreatePoll:
		f.polls[m.Question] = &models.Poll{Question: m.Question}
	case models.Vote:
		f.polls[m.Question].YesVotes++
	}
	return models.NewResponse(), nil
}

func (f *fakeContract) GetPoll(_ context.Context, question string) (models.PollResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.PollResponse{Poll: f.polls[question]}, f.err
}

func newFakeContract() *fakeContract {
	return &fakeContract{polls: make(map[string]*models.Poll)}
}

func postedEvent(t *testing.T, post *model.Post) *model.WebSocketEvent {
	t.Helper()
	event := model.NewWebSocketEvent(model.WEBSOCKET_EVENT_POSTED, "", post.ChannelId, "", nil)
	event.Add("post", post.ToJson())
	return event
}

type sentPosts struct {
	mu    sync.Mutex
	posts []*model.Post
}

func (s *sentPosts) client() *fakeClient {
	return &fakeClient{
		getMeFunc: func(string) (*model.User, *model.Response) {
			return &model.User{Id: "bot123"}, &model.Response{}
		},
		createPostFunc: func(post *model.Post) (*model.Post, *model.Response) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.posts = append(s.posts, post)
			return post, &model.Response{}
		},
	}
}

func (s *sentPosts) all() []*model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Post(nil), s.posts...)
}

func newTestBot(fc MattermostClient, contract handler.PollContract) *Bot {
	return &Bot{
		logger:  zerolog.Nop(),
		client:  fc,
		self:    &model.User{Id: "bot123"},
		handler: handler.NewPollCommandHandler(contract),
	}
}

// ########################
// ### TestCases
// ########################

func TestNewBot_MattermostURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "bare host gets http", url: "mattermost.example.com", want: "http://mattermost.example.com"},
		{name: "scheme kept", url: "https://mattermost.example.com", want: "https://mattermost.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := NewBot(config.Config{MattermostURL: tt.url, HTTPTimeout: time.Second}, zerolog.Nop(), nil)
			assert.Equal(t, tt.want, bot.cfg.MattermostURL)
		})
	}
}

func TestConnect(t *testing.T) {
	t.Run("keeps injected clients", func(t *testing.T) {
		sent := &sentPosts{}
		bot := NewBot(config.Config{MattermostURL: "http://dummy", HTTPTimeout: time.Second}, zerolog.Nop(), nil)
		bot.client = sent.client()
		events := &fakeEvents{ch: make(chan *model.WebSocketEvent)}
		bot.events = events

		require.NoError(t, bot.connect())
		assert.Equal(t, "bot123", bot.self.Id)
		assert.Equal(t, events, bot.events)
	})

	t.Run("authentication error", func(t *testing.T) {
		bot := &Bot{logger: zerolog.Nop(), client: &fakeClient{
			getMeFunc: func(string) (*model.User, *model.Response) {
				return nil, &model.Response{Error: &model.AppError{Message: "authentication failed"}}
			},
		}}

		assert.Error(t, bot.connect())
		assert.Nil(t, bot.self)
	})
}

func TestStart_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sent := &sentPosts{}
	cfg := config.Config{MattermostURL: "http://dummy", BotToken: "dummy", HTTPTimeout: time.Second}

	bot := NewBot(cfg, zerolog.Nop(), handler.NewPollCommandHandler(newFakeContract()))
	bot.client = sent.client()
	bot.events = &fakeEvents{ch: make(chan *model.WebSocketEvent)}

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Start(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestStart_EventStreamClosed(t *testing.T) {
	sent := &sentPosts{}
	events := &fakeEvents{ch: make(chan *model.WebSocketEvent)}
	close(events.ch)

	bot := newTestBot(sent.client(), newFakeContract())
	bot.events = &closedEvents{events}

	assert.ErrorIs(t, bot.Start(context.Background()), errEventsClosed)
}

func TestStart_ProcessesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sent := &sentPosts{}
	contract := newFakeContract()
	events := &fakeEvents{ch: make(chan *model.WebSocketEvent, 1)}

	bot := newTestBot(sent.client(), contract)
	bot.events = events
	events.ch <- postedEvent(t, &model.Post{ChannelId: "c1", UserId: "u1", Message: `!poll create "Tea?"`})

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return len(sent.all()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-errCh

	posts := sent.all()
	require.Len(t, posts, 1)
	assert.Equal(t, "c1", posts[0].ChannelId)
	assert.Equal(t, "Poll created: Tea?", posts[0].Message)
}

func TestDispatch_Commands(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		contractErr error
		wantMessage string
	}{
		{name: "create", message: `!poll create "Tea?"`, wantMessage: "Poll created: Tea?"},
		{name: "help", message: `!poll`, wantMessage: "**Poll commands:**"},
		{name: "usage", message: `!poll vote "Tea?"`, wantMessage: `Usage: !poll vote "Question" yes|no`},
		{name: "host failure", message: `!poll create "Tea?"`, contractErr: errors.New("boom"), wantMessage: genericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := &sentPosts{}
			contract := newFakeContract()
			contract.err = tt.contractErr

			bot := newTestBot(sent.client(), contract)
			bot.dispatch(context.Background(), postedEvent(t, &model.Post{
				ChannelId: "channel456",
				UserId:    "user789",
				Message:   tt.message,
			}))

			posts := sent.all()
			require.Len(t, posts, 1)
			assert.Equal(t, "channel456", posts[0].ChannelId)
			assert.Contains(t, posts[0].Message, tt.wantMessage)
		})
	}
}

func TestDispatch_Ignored(t *testing.T) {
	tests := []struct {
		name  string
		event func(t *testing.T) *model.WebSocketEvent
	}{
		{
			name: "non posted event",
			event: func(t *testing.T) *model.WebSocketEvent {
				event := model.NewWebSocketEvent(model.WEBSOCKET_EVENT_TYPING, "", "c", "", nil)
				event.Add("post", "{}")
				return event
			},
		},
		{
			name: "own message",
			event: func(t *testing.T) *model.WebSocketEvent {
				return postedEvent(t, &model.Post{ChannelId: "c", UserId: "bot123", Message: "!poll help"})
			},
		},
		{
			name: "not a poll command",
			event: func(t *testing.T) *model.WebSocketEvent {
				return postedEvent(t, &model.Post{ChannelId: "c", UserId: "u", Message: "hello bot"})
			},
		},
		{
			name: "missing post payload",
			event: func(t *testing.T) *model.WebSocketEvent {
				return model.NewWebSocketEvent(model.WEBSOCKET_EVENT_POSTED, "", "c", "", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := &sentPosts{}
			bot := newTestBot(sent.client(), newFakeContract())

			bot.dispatch(context.Background(), tt.event(t))
			assert.Empty(t, sent.all())
		})
	}
}

func TestReply_CreatePostError(t *testing.T) {
	called := false
	fc := &fakeClient{
		createPostFunc: func(post *model.Post) (*model.Post, *model.Response) {
			called = true
			return nil, &model.Response{Error: &model.AppError{Message: "forbidden"}}
		},
	}
	bot := &Bot{logger: zerolog.Nop(), client: fc}

	bot.reply(&model.Post{ChannelId: "c", Message: "hi"})
	assert.True(t, called)
}

func TestReply_EmptyMessage(t *testing.T) {
	called := false
	fc := &fakeClient{
		createPostFunc: func(post *model.Post) (*model.Post, *model.Response) {
			called = true
			return post, &model.Response{}
		},
	}
	bot := &Bot{logger: zerolog.Nop(), client: fc}

	bot.reply(&model.Post{ChannelId: "c"})
	assert.False(t, called)
}
