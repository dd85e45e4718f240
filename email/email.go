// Package email delivers a crawl result as a single HTML message over
// SMTP. The transport is always encrypted (STARTTLS is mandatory) and
// failures are returned, never raised past the sink boundary.
package email

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/sjlee/hanmicrawl/article"
)

// Config holds SMTP delivery settings. All five fields are required
// together; validation lives in the config package so a partially
// filled block is rejected before a run starts.
type Config struct {
	Host      string
	Port      int
	Sender    string
	Password  string
	Recipient string
}

// contentLimit caps how much of an article body the message includes.
// Counted in runes so Korean text is not cut mid-character.
const contentLimit = 500

const (
	authorUnknown = "저자 미상"
	dateUnknown   = "날짜 미상"
)

// Sink delivers crawl results by email.
type Sink struct {
	cfg Config
	// send is swapped in tests; the default dials the configured
	// SMTP server.
	send func(cfg Config, subject, htmlBody string) error
}

// NewSink builds an email sink for the given configuration.
func NewSink(cfg Config) *Sink {
	return &Sink{cfg: cfg, send: smtpSend}
}

// Name identifies the sink in progress output and run history.
func (s *Sink) Name() string { return "email" }

// Deliver composes and sends one message containing every collected
// article in discovery order.
func (s *Sink) Deliver(result *article.CrawlResult) error {
	if result.Empty() {
		return errors.New("refusing to send an empty article collection")
	}

	body, err := renderBody(result)
	if err != nil {
		return fmt.Errorf("render email body: %w", err)
	}
	subject := fmt.Sprintf("한미일보 기사 모음 - %s", result.Target.Date.Format("2006년 01월 02일"))

	if err := s.send(s.cfg, subject, body); err != nil {
		return fmt.Errorf("send email to %s: %w", s.cfg.Recipient, err)
	}
	return nil
}

func smtpSend(cfg Config, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(cfg.Sender); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(cfg.Recipient); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSend(msg)
}

// bodyTemplate renders the summary block followed by one block per
// article. html/template escapes extracted text, so hostile markup in
// an article title cannot leak into the message.
var bodyTemplate = template.Must(template.New("articles").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family:'Malgun Gothic',Arial,sans-serif;color:#333;max-width:800px;margin:0 auto;padding:20px;">
  <h1 style="color:#2c3e50;border-bottom:3px solid #3498db;padding-bottom:10px;">한미일보 기사 모음</h1>
  <div style="background-color:#ecf0f1;padding:15px;border-radius:5px;margin-bottom:30px;">
    <strong>날짜:</strong> {{.Date}}<br>
    <strong>총 기사 수:</strong> {{len .Articles}}개<br>
    <strong>수집 시간:</strong> {{.CollectedAt}}
  </div>
{{- range .Articles}}
  <div style="margin-bottom:40px;padding-bottom:30px;border-bottom:1px solid #e0e0e0;">
    <span style="background-color:#3498db;color:white;padding:5px 12px;border-radius:20px;font-size:14px;font-weight:bold;">기사 {{.Index}}</span>
    <div style="font-size:22px;font-weight:bold;color:#2c3e50;margin:10px 0;">{{.Title}}</div>
    <div style="color:#7f8c8d;font-size:14px;margin:10px 0;">
      <strong>저자:</strong> {{.Author}} | <strong>등록:</strong> {{.Date}}
    </div>
    <div style="margin:15px 0;line-height:1.8;color:#555;white-space:pre-wrap;">{{.Content}}</div>
    <a href="{{.URL}}" target="_blank" style="display:inline-block;margin-top:10px;padding:8px 15px;background-color:#3498db;color:white;text-decoration:none;border-radius:5px;font-size:14px;">전체 기사 보기 →</a>
  </div>
{{- end}}
  <div style="margin-top:40px;padding-top:20px;border-top:2px solid #e0e0e0;text-align:center;color:#7f8c8d;font-size:12px;">
    이 이메일은 한미일보 기사 크롤러에 의해 자동으로 생성되었습니다.
  </div>
</body>
</html>
`))

type bodyData struct {
	Date        string
	CollectedAt string
	Articles    []articleBlock
}

type articleBlock struct {
	Index   int
	Title   string
	Author  string
	Date    string
	Content string
	URL     string
}

func renderBody(result *article.CrawlResult) (string, error) {
	data := bodyData{
		Date:        result.Target.Date.Format("2006년 01월 02일"),
		CollectedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	for i, a := range result.Articles {
		block := articleBlock{
			Index:   i + 1,
			Title:   a.Title,
			Author:  authorUnknown,
			Date:    dateUnknown,
			Content: truncate(a.Content, contentLimit),
			URL:     a.URL,
		}
		if a.Author != nil {
			block.Author = *a.Author
		}
		if a.PublishedAt != nil {
			block.Date = *a.PublishedAt
		}
		data.Articles = append(data.Articles, block)
	}

	var b strings.Builder
	if err := bodyTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// truncate cuts s to at most limit runes, appending an ellipsis when
// anything was removed.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
