package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/chatbridge/internal/types"
)

type mockSlackAPI struct {
	postMessageFunc func(channelID string, options ...slack.MsgOption) (string, string, error)
	historyFunc     func(params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	addReactionFunc func(name string, item slack.ItemRef) error
	uploadFunc      func(params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
	conversationsFn func(params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	authTestFunc    func() (*slack.AuthTestResponse, error)
	fileInfoFunc    func(fileID string) (*slack.File, []slack.Comment, *slack.Paging, error)
}

func (m *mockSlackAPI) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if m.postMessageFunc != nil {
		return m.postMessageFunc(channelID, options...)
	}
	return "", "", errors.New("not implemented")
}

func (m *mockSlackAPI) GetConversationHistoryContext(_ context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	if m.historyFunc != nil {
		return m.historyFunc(params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSlackAPI) AddReactionContext(_ context.Context, name string, item slack.ItemRef) error {
	if m.addReactionFunc != nil {
		return m.addReactionFunc(name, item)
	}
	return errors.New("not implemented")
}

func (m *mockSlackAPI) UploadFileV2Context(_ context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSlackAPI) GetConversationsContext(_ context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	if m.conversationsFn != nil {
		return m.conversationsFn(params)
	}
	return nil, "", errors.New("not implemented")
}

func (m *mockSlackAPI) AuthTestContext(_ context.Context) (*slack.AuthTestResponse, error) {
	if m.authTestFunc != nil {
		return m.authTestFunc()
	}
	return nil, errors.New("not implemented")
}

func (m *mockSlackAPI) GetFileInfoContext(_ context.Context, fileID string, _, _ int) (*slack.File, []slack.Comment, *slack.Paging, error) {
	if m.fileInfoFunc != nil {
		return m.fileInfoFunc(fileID)
	}
	return nil, nil, nil, errors.New("not implemented")
}

func newTestSlackAdapter(mock *mockSlackAPI) *SlackAdapter {
	return NewSlackAdapter("xoxb-test", WithSlackAPI(mock))
}

func TestSlackSendMessage(t *testing.T) {
	mock := &mockSlackAPI{
		postMessageFunc: func(channelID string, options ...slack.MsgOption) (string, string, error) {
			assert.Equal(t, "C123", channelID)
			return "C123", "1700000000.000100", nil
		},
	}

	result := newTestSlackAdapter(mock).SendMessage(context.Background(), "C123", "hello", "", nil)
	assert.True(t, result.Success)
	assert.Equal(t, "1700000000.000100", result.MessageID)
	assert.Equal(t, "C123", result.Channel)
	assert.Empty(t, result.ThreadID)
}

func TestSlackSendMessageEchoesThread(t *testing.T) {
	mock := &mockSlackAPI{
		postMessageFunc: func(channelID string, options ...slack.MsgOption) (string, string, error) {
			return "C123", "1700000001.000200", nil
		},
	}

	result := newTestSlackAdapter(mock).SendMessage(context.Background(), "C123", "reply", "1700000000.000100", nil)
	assert.True(t, result.Success)
	assert.Equal(t, "1700000000.000100", result.ThreadID)
}

func TestSlackSendMessageAPIError(t *testing.T) {
	mock := &mockSlackAPI{
		postMessageFunc: func(channelID string, options ...slack.MsgOption) (string, string, error) {
			return "", "", errors.New("channel_not_found")
		},
	}

	result := newTestSlackAdapter(mock).SendMessage(context.Background(), "CBAD", "hello", "", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "channel_not_found", result.Error)
}

func TestSlackSendMessageInvalidBlocks(t *testing.T) {
	adapter := newTestSlackAdapter(&mockSlackAPI{
		postMessageFunc: func(channelID string, options ...slack.MsgOption) (string, string, error) {
			t.Fatal("post should not run with invalid blocks")
			return "", "", nil
		},
	})

	result := adapter.SendMessage(context.Background(), "C123", "hi", "", &types.SendOptions{
		Blocks: []byte("{not json"),
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid blocks payload")
}

func TestSlackGetMessagesFiltersSubtypes(t *testing.T) {
	mock := &mockSlackAPI{
		historyFunc: func(params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			assert.Equal(t, "C123", params.ChannelID)
			return &slack.GetConversationHistoryResponse{
				Messages: []slack.Message{
					{Msg: slack.Msg{User: "U1", Text: "normal", Timestamp: "1700000002.000001"}},
					{Msg: slack.Msg{SubType: "channel_join", Text: "joined", Timestamp: "1700000001.000001"}},
					{Msg: slack.Msg{SubType: "bot_message", BotID: "B1", Text: "from a bot", Timestamp: "1700000000.000001"}},
				},
			}, nil
		},
	}

	messages, err := newTestSlackAdapter(mock).GetMessages(context.Background(), "C123", 10, "")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "normal", messages[0].Content)
	assert.Equal(t, "U1", messages[0].Author)
	assert.Equal(t, "from a bot", messages[1].Content)
	assert.Equal(t, "B1", messages[1].Author)
}

func TestSlackGetMessagesMapping(t *testing.T) {
	mock := &mockSlackAPI{
		historyFunc: func(params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			return &slack.GetConversationHistoryResponse{
				Messages: []slack.Message{
					{Msg: slack.Msg{
						Text:            "threaded",
						Timestamp:       "1700000000.123456",
						ThreadTimestamp: "1699999999.000001",
						ReplyCount:      4,
						Reactions: []slack.ItemReaction{
							{Name: "rocket", Count: 2},
						},
						Files: []slack.File{{Name: "report.txt"}},
					}},
				},
			}, nil
		},
	}

	messages, err := newTestSlackAdapter(mock).GetMessages(context.Background(), "C123", 1, "")
	require.NoError(t, err)
	require.Len(t, messages, 1)

	msg := messages[0]
	assert.Equal(t, "1700000000.123456", msg.ID)
	assert.Equal(t, "C123", msg.Channel)
	assert.Equal(t, "unknown", msg.Author)
	assert.Equal(t, "2023-11-14T22:13:20.123456", msg.Timestamp)
	assert.Equal(t, "1699999999.000001", msg.ThreadID)
	assert.Equal(t, 4, msg.Metadata.ReplyCount)
	require.Len(t, msg.Metadata.Reactions, 1)
	assert.Equal(t, "rocket", msg.Metadata.Reactions[0].Name)
	assert.Equal(t, []string{"report.txt"}, msg.Metadata.Files)
}

func TestSlackGetMessagesClampAndBefore(t *testing.T) {
	var captured *slack.GetConversationHistoryParameters
	mock := &mockSlackAPI{
		historyFunc: func(params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			captured = params
			return &slack.GetConversationHistoryResponse{}, nil
		},
	}
	adapter := newTestSlackAdapter(mock)

	_, err := adapter.GetMessages(context.Background(), "C123", 500, "1700000000.000100")
	require.NoError(t, err)
	assert.Equal(t, 100, captured.Limit)
	assert.Equal(t, "1700000000.000100", captured.Latest)

	_, err = adapter.GetMessages(context.Background(), "C123", 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, captured.Limit)
	assert.Empty(t, captured.Latest)
}

func TestSlackGetMessagesAPIError(t *testing.T) {
	mock := &mockSlackAPI{
		historyFunc: func(params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			return nil, errors.New("channel_not_found")
		},
	}

	_, err := newTestSlackAdapter(mock).GetMessages(context.Background(), "CBAD", 10, "")
	require.Error(t, err)
	assert.Equal(t, "channel_not_found", err.Error())
}

func TestSlackTsToISO(t *testing.T) {
	assert.Equal(t, "2023-11-14T22:13:20.123456", slackTsToISO("1700000000.123456"))
	assert.Equal(t, "2023-11-14T22:13:20.000000", slackTsToISO("1700000000"))
	assert.Equal(t, "2023-11-14T22:13:20.100000", slackTsToISO("1700000000.1"))
	assert.Equal(t, "not-a-timestamp", slackTsToISO("not-a-timestamp"))
	assert.Equal(t, "1700000000.12cd56", slackTsToISO("1700000000.12cd56"))
	assert.Equal(t, "", slackTsToISO(""))
}

func TestSlackAddReactionStripsColons(t *testing.T) {
	var gotName string
	var gotItem slack.ItemRef
	mock := &mockSlackAPI{
		addReactionFunc: func(name string, item slack.ItemRef) error {
			gotName = name
			gotItem = item
			return nil
		},
	}

	result := newTestSlackAdapter(mock).AddReaction(context.Background(), "C123", "1700000000.000100", ":rocket:")
	assert.True(t, result.Success)
	assert.Equal(t, "rocket", gotName)
	assert.Equal(t, "C123", gotItem.Channel)
	assert.Equal(t, "1700000000.000100", gotItem.Timestamp)
}

func TestSlackAddReactionAlreadyReacted(t *testing.T) {
	mock := &mockSlackAPI{
		addReactionFunc: func(name string, item slack.ItemRef) error {
			return errors.New("already_reacted")
		},
	}

	result := newTestSlackAdapter(mock).AddReaction(context.Background(), "C123", "1700000000.000100", "thumbsup")
	assert.True(t, result.Success)
	assert.Equal(t, "Already reacted", result.Note)
	assert.Empty(t, result.Error)
}

func TestSlackAddReactionAPIError(t *testing.T) {
	mock := &mockSlackAPI{
		addReactionFunc: func(name string, item slack.ItemRef) error {
			return errors.New("invalid_name")
		},
	}

	result := newTestSlackAdapter(mock).AddReaction(context.Background(), "C123", "1700000000.000100", "nope")
	assert.False(t, result.Success)
	assert.Equal(t, "invalid_name", result.Error)
}

func TestSlackUploadFile(t *testing.T) {
	var captured slack.UploadFileV2Parameters
	mock := &mockSlackAPI{
		uploadFunc: func(params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
			captured = params
			return &slack.FileSummary{ID: "F123"}, nil
		},
		fileInfoFunc: func(fileID string) (*slack.File, []slack.Comment, *slack.Paging, error) {
			assert.Equal(t, "F123", fileID)
			return &slack.File{ID: "F123", Permalink: "https://example.slack.com/files/F123"}, nil, nil, nil
		},
	}

	result := newTestSlackAdapter(mock).UploadFile(context.Background(), "C123", "report.txt", []byte("contents"), "Weekly Report", "fresh numbers")
	assert.True(t, result.Success)
	assert.Equal(t, "F123", result.FileID)
	assert.Equal(t, "https://example.slack.com/files/F123", result.URL)

	assert.Equal(t, "C123", captured.Channel)
	assert.Equal(t, "report.txt", captured.Filename)
	assert.Equal(t, "contents", captured.Content)
	assert.Equal(t, len("contents"), captured.FileSize)
	assert.Equal(t, "Weekly Report", captured.Title)
	assert.Equal(t, "fresh numbers", captured.InitialComment)
}

func TestSlackUploadFileToleratesMissingPermalink(t *testing.T) {
	mock := &mockSlackAPI{
		uploadFunc: func(params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
			return &slack.FileSummary{ID: "F456"}, nil
		},
		fileInfoFunc: func(fileID string) (*slack.File, []slack.Comment, *slack.Paging, error) {
			return nil, nil, nil, errors.New("file_not_found")
		},
	}

	result := newTestSlackAdapter(mock).UploadFile(context.Background(), "C123", "notes.txt", []byte("x"), "", "")
	assert.True(t, result.Success)
	assert.Equal(t, "F456", result.FileID)
	assert.Empty(t, result.URL)
}

func TestSlackUploadFileAPIError(t *testing.T) {
	mock := &mockSlackAPI{
		uploadFunc: func(params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
			return nil, errors.New("not_in_channel")
		},
	}

	result := newTestSlackAdapter(mock).UploadFile(context.Background(), "C123", "notes.txt", []byte("x"), "", "")
	assert.False(t, result.Success)
	assert.Equal(t, "not_in_channel", result.Error)
}

func TestSlackListChannels(t *testing.T) {
	var captured *slack.GetConversationsParameters
	mock := &mockSlackAPI{
		conversationsFn: func(params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
			captured = params
			return []slack.Channel{
				newSlackChannel("C1", "general", false, 42),
				newSlackChannel("C2", "secrets", true, 3),
			}, "", nil
		},
	}
	adapter := newTestSlackAdapter(mock)

	channels, err := adapter.ListChannels(context.Background(), false, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"public_channel"}, captured.Types)
	assert.True(t, captured.ExcludeArchived)
	assert.Equal(t, 100, captured.Limit)

	require.Len(t, channels, 2)
	assert.Equal(t, "C1", channels[0].ID)
	assert.Equal(t, "general", channels[0].Name)
	assert.False(t, channels[0].IsPrivate)
	assert.Equal(t, 42, channels[0].MemberCount)
	assert.True(t, channels[1].IsPrivate)

	_, err = adapter.ListChannels(context.Background(), true, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"public_channel", "private_channel"}, captured.Types)
	assert.Equal(t, 1000, captured.Limit)
}

func TestSlackValidateCredentials(t *testing.T) {
	mock := &mockSlackAPI{
		authTestFunc: func() (*slack.AuthTestResponse, error) {
			return &slack.AuthTestResponse{
				User:   "chatbridge-bot",
				UserID: "U999",
				Team:   "Acme",
				TeamID: "T777",
			}, nil
		},
	}

	result := newTestSlackAdapter(mock).ValidateCredentials(context.Background())
	assert.True(t, result.Valid)
	assert.Equal(t, "chatbridge-bot", result.User)
	assert.Equal(t, "U999", result.UserID)
	assert.Equal(t, "Acme", result.Team)
	assert.Equal(t, "T777", result.TeamID)
}

func TestSlackValidateCredentialsInvalidToken(t *testing.T) {
	mock := &mockSlackAPI{
		authTestFunc: func() (*slack.AuthTestResponse, error) {
			return nil, errors.New("invalid_auth")
		},
	}

	result := newTestSlackAdapter(mock).ValidateCredentials(context.Background())
	assert.False(t, result.Valid)
	assert.Equal(t, "invalid_auth", result.Error)
}

func newSlackChannel(id, name string, private bool, members int) slack.Channel {
	return slack.Channel{
		GroupConversation: slack.GroupConversation{
			Conversation: slack.Conversation{
				ID:         id,
				IsPrivate:  private,
				NumMembers: members,
			},
			Name: name,
		},
		IsChannel: true,
	}
}
