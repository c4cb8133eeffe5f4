package mailer

import (
	"context"
	"errors"
	"testing"

	"blog_api/internal/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*ses.SendEmailOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSESSender_Send(t *testing.T) {
	client := new(mockSES)
	sender := &SESSender{client: client}

	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "Blog <noreply@example.com>" &&
			len(in.Destination.ToAddresses) == 1 &&
			in.Destination.ToAddresses[0] == "owner@example.com" &&
			aws.ToString(in.Message.Subject.Data) == "New comment on your blog post" &&
			in.Message.Body.Html != nil && in.Message.Body.Text == nil
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("id-1")}, nil)

	err := sender.Send(context.Background(), Message{
		From:    "Blog <noreply@example.com>",
		To:      []string{"owner@example.com"},
		Subject: "New comment on your blog post",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSESSender_SendError(t *testing.T) {
	client := new(mockSES)
	sender := &SESSender{client: client}
	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := sender.Send(context.Background(), Message{From: "a@b.c", To: []string{"d@e.f"}, Subject: "s", Text: "t"})
	assert.ErrorContains(t, err, "throttled")
}

func TestNew(t *testing.T) {
	s, err := New(config.MailConfig{Enabled: false, Provider: "ses"})
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	_, err = New(config.MailConfig{Enabled: true, Provider: "pigeon"})
	assert.Error(t, err)

	assert.NoError(t, NewLogSender().Send(context.Background(), Message{Subject: "x"}))
}
