package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"

	"blog_api/internal/pkg/mailer"
	"blog_api/pkg/metrics"
)

const (
	SubjectComment = "New comment on your blog post"
	SubjectReply   = "New reply to your comment"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Person 邮件中展示的用户
type Person struct {
	Name  string
	Image string
}

// PostRef 被评论的文章
type PostRef struct {
	Slug  string
	Title string
}

// CommentEvent 新的顶级评论
type CommentEvent struct {
	Post      PostRef
	CommentID string
	Commenter Person
	Comment   string
	Date      string
}

// ReplyEvent 新的回复
type ReplyEvent struct {
	Post     PostRef
	ParentID string
	ReplyID  string
	ToEmail  string
	Replier  Person
	Comment  string // 被回复的评论内容
	Reply    string
	Date     string
}

// Notifier 评论通知
type Notifier interface {
	CommentPosted(ctx context.Context, ev CommentEvent) error
	ReplyPosted(ctx context.Context, ev ReplyEvent) error
}

// Options 通知配置
type Options struct {
	From       string // "Name <addr>" 或纯地址
	OwnerEmail string // 站长邮箱，接收顶级评论通知
	AppURL     string
	SiteName   string
}

// Dispatcher 通过邮件发送评论通知
type Dispatcher struct {
	sender mailer.Sender
	opts   Options
}

// NewDispatcher 创建通知分发器
func NewDispatcher(sender mailer.Sender, opts Options) *Dispatcher {
	return &Dispatcher{sender: sender, opts: opts}
}

// CommentPosted 通知站长有新评论
func (d *Dispatcher) CommentPosted(ctx context.Context, ev CommentEvent) (err error) {
	defer func() { metrics.RecordNotification("comment", err) }()

	if d.opts.OwnerEmail == "" {
		return fmt.Errorf("owner email is not configured")
	}

	link := d.link(ev.Post.Slug, ev.CommentID, "")
	body, err := render("comment.html", map[string]any{
		"Post":      ev.Post,
		"Commenter": ev.Commenter,
		"Comment":   ev.Comment,
		"Date":      ev.Date,
		"Link":      link,
		"SiteName":  d.opts.SiteName,
	})
	if err != nil {
		return err
	}

	return d.sender.Send(ctx, mailer.Message{
		From:    d.opts.From,
		To:      []string{d.opts.OwnerEmail},
		Subject: SubjectComment,
		HTML:    body,
	})
}

// ReplyPosted 通知被回复的评论作者
func (d *Dispatcher) ReplyPosted(ctx context.Context, ev ReplyEvent) (err error) {
	defer func() { metrics.RecordNotification("reply", err) }()

	if ev.ToEmail == "" {
		return fmt.Errorf("recipient email is empty")
	}

	link := d.link(ev.Post.Slug, ev.ParentID, ev.ReplyID)
	body, err := render("reply.html", map[string]any{
		"Post":     ev.Post,
		"Replier":  ev.Replier,
		"Comment":  ev.Comment,
		"Reply":    ev.Reply,
		"Date":     ev.Date,
		"Link":     link,
		"SiteName": d.opts.SiteName,
	})
	if err != nil {
		return err
	}

	return d.sender.Send(ctx, mailer.Message{
		From:    d.opts.From,
		To:      []string{ev.ToEmail},
		Subject: SubjectReply,
		HTML:    body,
	})
}

// link <app_url>/blog/<slug>?comment=<id>[&reply=<id>]
func (d *Dispatcher) link(slug, commentID, replyID string) string {
	u := d.opts.AppURL + "/blog/" + url.PathEscape(slug) + "?comment=" + url.QueryEscape(commentID)
	if replyID != "" {
		u += "&reply=" + url.QueryEscape(replyID)
	}
	return u
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
