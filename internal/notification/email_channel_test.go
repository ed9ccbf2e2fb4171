package notification

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
)

// fakeSMTP accepts a single session and records the commands and message data.
type fakeSMTP struct {
	ln       net.Listener
	mu       sync.Mutex
	commands []string
	data     string
	done     chan struct{}
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTP{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	defer close(s.done)
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			reply("250-localhost")
			reply("250 AUTH PLAIN")
		case "AUTH":
			reply("235 2.7.0 Authentication successful")
		case "MAIL", "RCPT":
			reply("250 OK")
		case "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.mu.Lock()
			s.data = b.String()
			s.mu.Unlock()
			reply("250 OK queued")
		case "QUIT":
			reply("221 Bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func TestEmailChannel_Send(t *testing.T) {
	srv := startFakeSMTP(t)
	ch := NewEmailChannel(config.EmailConfig{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		Username: "shop",
		Password: "secret",
		From:     "orders@shop.test",
		To:       "owner@shop.test, manager@shop.test",
	})
	n := domain.Notification{Order: sampleOrder(), Body: FormatOrder(sampleOrder())}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ch.Send(ctx, n))
	<-srv.done

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.commands, "MAIL FROM:<orders@shop.test>")
	assert.Contains(t, srv.commands, "RCPT TO:<owner@shop.test>")
	assert.Contains(t, srv.commands, "RCPT TO:<manager@shop.test>")
	assert.Contains(t, srv.data, "Subject: New order "+n.Order.ID+"\r\n")
	assert.Contains(t, srv.data, "Customer: Asha\r\n")
	assert.Contains(t, srv.data, "Total: 85\r\n")
	assert.Equal(t, "email", ch.Name())
}

func TestEmailChannel_MissingConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.EmailConfig
	}{
		{"no host", config.EmailConfig{Port: 25, From: "a@b", To: "c@d"}},
		{"no sender", config.EmailConfig{Host: "localhost", Port: 25, To: "c@d"}},
		{"no recipient", config.EmailConfig{Host: "localhost", Port: 25, From: "a@b", To: " , "}},
		{"username without password", config.EmailConfig{Host: "localhost", Port: 25, From: "a@b", To: "c@d", Username: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEmailChannel(tt.cfg).Send(context.Background(), domain.Notification{Order: sampleOrder()})

			var perm *backoff.PermanentError
			assert.True(t, errors.As(err, &perm))
		})
	}
}

func TestEmailChannel_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ch := NewEmailChannel(config.EmailConfig{Host: "127.0.0.1", Port: port, From: "a@b", To: "c@d"})
	err = ch.Send(context.Background(), domain.Notification{Order: sampleOrder()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to smtp server")
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}
