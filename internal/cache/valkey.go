package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyProvider implements Provider against a Valkey/Redis-compatible server
// using a minimal RESP client. Connections are dialed per operation; the
// provider itself is stateless and safe for concurrent use.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// ValkeyConfig holds connection parameters for the Valkey server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewValkeyProvider creates a Provider using the supplied configuration. It
// pings the target once to fail fast on bad credentials or connectivity.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	provider := &ValkeyProvider{cfg: cfg}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := provider.ping(ctx); err != nil {
		return nil, err
	}
	return provider, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.withConn(ctx, func(conn *respConn) error {
		if err := conn.send("GET", key); err != nil {
			return err
		}
		value, isNil, err := conn.readBulk()
		if err != nil {
			return err
		}
		if isNil {
			return ErrCacheMiss
		}
		payload = value
		return nil
	})
	return payload, err
}

// Set stores bytes with the provided TTL; ttl <= 0 stores without expiry.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.withConn(ctx, func(conn *respConn) error {
		args := []string{key, string(value)}
		if ttl > 0 {
			args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
		}
		if err := conn.send("SET", args...); err != nil {
			return err
		}
		return conn.expectOK("SET")
	})
}

// Del removes a key from the cache.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	return p.withConn(ctx, func(conn *respConn) error {
		if err := conn.send("DEL", key); err != nil {
			return err
		}
		_, err := conn.readLine()
		return err
	})
}

// Close is a no-op for the per-operation connection model.
func (p *ValkeyProvider) Close() error { return nil }

func (p *ValkeyProvider) ping(ctx context.Context) error {
	return p.withConn(ctx, func(conn *respConn) error {
		if err := conn.send("PING"); err != nil {
			return err
		}
		line, err := conn.readLine()
		if err != nil {
			return err
		}
		if line != "+PONG" {
			return fmt.Errorf("unexpected PING response: %s", line)
		}
		return nil
	})
}

func (p *ValkeyProvider) withConn(ctx context.Context, fn func(*respConn) error) error {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := p.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || attempt == p.cfg.MaxRetries-1 {
			return err
		}
		time.Sleep(time.Duration(1<<attempt) * 25 * time.Millisecond)
	}
	return lastErr
}

func (p *ValkeyProvider) attempt(ctx context.Context, fn func(*respConn) error) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.close()

	if err := p.authenticate(conn); err != nil {
		return err
	}
	return fn(conn)
}

func (p *ValkeyProvider) dial(ctx context.Context) (*respConn, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if p.cfg.TLS {
		host, _, splitErr := net.SplitHostPort(p.cfg.Addr)
		if splitErr != nil {
			host = p.cfg.Addr
		}
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
		conn, err = tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, tlsCfg)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	return &respConn{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writer:       bufio.NewWriter(conn),
		readTimeout:  p.cfg.ReadTimeout,
		writeTimeout: p.cfg.WriteTimeout,
	}, nil
}

func (p *ValkeyProvider) authenticate(conn *respConn) error {
	if p.cfg.Password != "" {
		args := []string{p.cfg.Password}
		if p.cfg.Username != "" {
			args = []string{p.cfg.Username, p.cfg.Password}
		}
		if err := conn.send("AUTH", args...); err != nil {
			return err
		}
		if err := conn.expectOK("AUTH"); err != nil {
			return err
		}
	}
	if p.cfg.DB > 0 {
		if err := conn.send("SELECT", strconv.Itoa(p.cfg.DB)); err != nil {
			return err
		}
		if err := conn.expectOK("SELECT"); err != nil {
			return err
		}
	}
	return nil
}

func retryable(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// respConn wraps a network connection with the RESP framing the provider
// needs: array-of-bulk-string commands out, simple/bulk strings back.
type respConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	writer       *bufio.Writer
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *respConn) close() {
	_ = c.conn.Close()
}

func (c *respConn) send(command string, args ...string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	fmt.Fprintf(c.writer, "*%d\r\n", len(args)+1)
	for _, part := range append([]string{command}, args...) {
		fmt.Fprintf(c.writer, "$%d\r\n%s\r\n", len(part), part)
	}
	return c.writer.Flush()
}

// readLine reads one CRLF-terminated reply line including its type prefix.
// Server error replies come back as Go errors.
func (c *respConn) readLine() (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return "", err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if strings.HasPrefix(line, "-") {
		return "", errors.New(strings.TrimPrefix(line, "-"))
	}
	return line, nil
}

// readBulk reads a bulk-string reply. The bool is true for the nil reply.
func (c *respConn) readBulk() ([]byte, bool, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, false, err
	}
	if !strings.HasPrefix(line, "$") {
		return nil, false, fmt.Errorf("unexpected reply %q", line)
	}
	size, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, false, err
	}
	if size < 0 {
		return nil, true, nil
	}
	buf := make([]byte, size+2)
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return nil, false, err
	}
	return buf[:size], false, nil
}

func (c *respConn) expectOK(op string) error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if line != "+OK" {
		return fmt.Errorf("unexpected %s response: %s", op, line)
	}
	return nil
}
