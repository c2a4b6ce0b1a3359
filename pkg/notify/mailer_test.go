package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"tax-portal/pkg/config"
)

type recordingSender struct {
	sent []*mail.Msg
	ctx  context.Context
	err  error
}

func (r *recordingSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	r.ctx = ctx
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, messages...)
	return nil
}

func newTestMailer(s *recordingSender) *SMTPMailer {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.local", Port: 2525, From: "billing@firm.in"})
	m.newSender = func() (sender, error) { return s, nil }
	return m
}

func TestSMTPMailer_SendWithAttachment(t *testing.T) {
	s := &recordingSender{}
	m := newTestMailer(s)
	pdf := []byte("%PDF-1.3 bill")

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "req")
	err := m.Send(ctx, Message{
		To:          []string{"asha@example.com"},
		Subject:     "Your bill",
		Body:        "Amount due",
		Attachments: []Attachment{{FileName: "bill.pdf", ContentType: "application/pdf", Data: pdf}},
	})
	require.NoError(t, err)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "req", s.ctx.Value(ctxKey{}))

	msg := s.sent[0]
	to := msg.GetToString()
	assert.Equal(t, []string{"<asha@example.com>"}, to)
	require.Len(t, msg.GetAttachments(), 1)
	assert.Equal(t, "bill.pdf", msg.GetAttachments()[0].Name)

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	out := raw.String()
	assert.Contains(t, out, "Subject: Your bill")
	assert.Contains(t, out, "billing@firm.in")
	assert.Contains(t, out, "application/pdf")
	assert.Contains(t, out, base64.StdEncoding.EncodeToString(pdf))
	assert.Contains(t, out, "Amount due")
}

func TestSMTPMailer_Failures(t *testing.T) {
	s := &recordingSender{err: errors.New("421 service not available")}
	m := newTestMailer(s)

	err := m.Send(context.Background(), Message{To: []string{"a@b.in"}, Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@b.in")

	assert.Error(t, m.Send(context.Background(), Message{}))
	assert.Error(t, m.Send(context.Background(), Message{To: []string{"not an address"}}))
	assert.Empty(t, s.sent)
}

func TestSMTPMailer_ClientError(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.local", Port: 2525, From: "billing@firm.in"})
	m.newSender = func() (sender, error) { return nil, errors.New("bad host") }

	assert.Error(t, m.Send(context.Background(), Message{To: []string{"a@b.in"}}))
}
