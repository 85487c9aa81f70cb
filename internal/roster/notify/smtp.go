package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
}

// SMTPNotifier sends HTML mail through a single relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(ctx context.Context, from string, to string, msg []byte) error
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg}
	n.send = n.deliver
	return n
}

var (
	invitationTmpl = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html><body>
<p>{{.Name}} 様</p>
<p>{{.Organization}} のメンバーとして登録されました。</p>
<p>以下のリンクからパスワードを設定してください。</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>このリンクは {{.Expires}} まで有効です。</p>
</body></html>
`))

	resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html><body>
<p>{{.Name}} 様</p>
<p>パスワード再設定のリクエストを受け付けました。</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>このリンクは {{.Expires}} まで有効です。心当たりがない場合はこのメールを破棄してください。</p>
</body></html>
`))
)

func (n *SMTPNotifier) SendInvitation(ctx context.Context, msg Message) error {
	return n.render(ctx, "【Mind Status】アカウント登録のご案内", invitationTmpl, msg)
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, msg Message) error {
	return n.render(ctx, "【Mind Status】パスワード再設定のご案内", resetTmpl, msg)
}

func (n *SMTPNotifier) render(ctx context.Context, subject string, tmpl *template.Template, msg Message) error {
	var body bytes.Buffer
	err := tmpl.Execute(&body, struct {
		Message
		Expires string
	}{msg, msg.ExpiresAt.In(jst).Format("2006-01-02 15:04")})
	if err != nil {
		return fmt.Errorf("notify: render %s: %w", tmpl.Name(), err)
	}

	raw := compose(n.cfg.From, msg.To, subject, body.Bytes())
	if err := n.send(ctx, n.cfg.From, msg.To, raw); err != nil {
		return fmt.Errorf("notify: send %s to %s: %w", tmpl.Name(), msg.To, err)
	}
	return nil
}

// jst renders expiry times the way recipients read them.
var jst = time.FixedZone("JST", 9*60*60)

func compose(from, to, subject string, html []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	encoded := base64.StdEncoding.EncodeToString(html)
	for len(encoded) > 76 {
		b.WriteString(encoded[:76] + "\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded + "\r\n")
	return b.Bytes()
}

func (n *SMTPNotifier) deliver(ctx context.Context, from, to string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if n.cfg.StartTLS {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if n.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return err
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(strings.TrimSpace(to)); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
