package mailer

import (
	"context"
	"fmt"
	"time"

	"blog_api/internal/pkg/config"
	"blog_api/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Message 一封邮件
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender 邮件发送接口
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New 根据配置选择发送方式
func New(cfg config.MailConfig) (Sender, error) {
	if !cfg.Enabled || cfg.Provider == "log" {
		return NewLogSender(), nil
	}

	switch cfg.Provider {
	case "ses":
		return NewSESSender(cfg.Region)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.Provider)
	}
}

// sesAPI 便于测试替换的 SES 客户端
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender AWS SES 发送实现
type SESSender struct {
	client sesAPI
}

// NewSESSender 使用默认凭证链创建 SES 客户端
func NewSESSender(region string) (*SESSender, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESSender{client: ses.NewFromConfig(cfg)}, nil
}

// Send 发送邮件
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(msg.From),
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender 只记录日志，用于开发环境或关闭邮件时
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	logger.Log.Info("mail skipped (log sender)",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
