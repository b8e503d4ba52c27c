package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yamdb/yamdb-api/internal/config"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisOutbox_QueuesMessage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	outbox := NewRedisOutboxWithClient(client, "noreply@yamdb.local")
	defer outbox.Close()

	err := outbox.SendConfirmationCode(context.Background(), "a@x.com", "alice", "123456")
	require.NoError(t, err)

	items, err := mr.List(OutboxKey)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(items[0]), &msg))
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "noreply@yamdb.local", msg.From)
	assert.Equal(t, confirmationSubject, msg.Subject)
	assert.Contains(t, msg.Body, "123456")
	assert.Contains(t, msg.Body, "alice")
}

func TestRedisOutbox_ReportsRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	outbox := NewRedisOutboxWithClient(client, "noreply@yamdb.local")
	defer outbox.Close()

	mr.Close()

	err := outbox.SendConfirmationCode(context.Background(), "a@x.com", "alice", "123456")
	assert.Error(t, err)
}

func TestNewRedisOutbox_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	outbox, err := NewRedisOutbox("redis://"+mr.Addr(), "noreply@yamdb.local")
	require.NoError(t, err)
	assert.NoError(t, outbox.Close())

	_, err = NewRedisOutbox("not a url", "noreply@yamdb.local")
	assert.Error(t, err)
}

func TestSMTPMailer_SendsRenderedMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     2525,
		Username: "mailer",
		Password: "secret",
		From:     "noreply@yamdb.local",
	})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, m.SendConfirmationCode(context.Background(), "a@x.com", "alice", "654321"))

	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: noreply@yamdb.local\r\n"))
	assert.Contains(t, gotMsg, "Subject: "+confirmationSubject+"\r\n")
	assert.Contains(t, gotMsg, "654321")
}

func TestSMTPMailer_WrapsSendError(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "noreply@yamdb.local"})
	refused := errors.New("connection refused")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return refused }

	err := m.SendConfirmationCode(context.Background(), "a@x.com", "alice", "654321")
	assert.ErrorIs(t, err, refused)
}

func TestSMTPMailer_RespectsCancelledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendConfirmationCode(ctx, "a@x.com", "alice", "1"), context.Canceled)
}

func TestNew_SelectsTransport(t *testing.T) {
	mr := miniredis.RunT(t)

	m, err := New(&config.Config{MailTransport: TransportLog})
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)
	assert.NoError(t, m.SendConfirmationCode(context.Background(), "a@x.com", "alice", "1"))

	m, err = New(&config.Config{MailTransport: TransportSMTP, SMTPHost: "smtp.example.com", SMTPPort: 25})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	m, err = New(&config.Config{MailTransport: TransportRedis, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisOutbox{}, m)
	m.Close()

	_, err = New(&config.Config{MailTransport: TransportSMTP})
	assert.Error(t, err)
	_, err = New(&config.Config{MailTransport: TransportRedis})
	assert.Error(t, err)
	_, err = New(&config.Config{MailTransport: "pigeon"})
	assert.Error(t, err)
}

func TestNew_RejectsLogTransportInProduction(t *testing.T) {
	for _, transport := range []string{"", TransportLog} {
		_, err := New(&config.Config{MailTransport: transport, Environment: "production"})
		assert.Error(t, err, "transport %q", transport)
	}
}

func TestLogMailer_KeepsCodeOutOfInfoLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = previous })

	require.NoError(t, NewLogMailer("noreply@yamdb.local").SendConfirmationCode(context.Background(), "a@x.com", "alice", "482913"))

	for _, entry := range logs.All() {
		if entry.Level >= zapcore.InfoLevel {
			for _, f := range entry.Context {
				assert.NotContains(t, f.String, "482913", "code leaked at %s", entry.Level)
			}
		}
	}
	bodies := logs.FilterMessage("Outbound email body").All()
	require.Len(t, bodies, 1)
	assert.Equal(t, zapcore.DebugLevel, bodies[0].Level)
	assert.Contains(t, bodies[0].ContextMap()["body"], "482913")
}
