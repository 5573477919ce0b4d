package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/metrics"
	"github.com/book-expert/logger"
)

// Authentication headers of the bidirectional endpoint.
const (
	HeaderAppKey     = "X-Api-App-Key"
	HeaderAccessKey  = "X-Api-Access-Key"
	HeaderResourceID = "X-Api-Resource-Id"
	HeaderConnectID  = "X-Api-Connect-Id"
)

// Credentials authenticate a connection.
type Credentials struct {
	AppID       string
	AccessToken string
	ResourceID  string
}

// Header builds the handshake headers for one connection.
func (c Credentials) Header(connectID string) http.Header {
	header := http.Header{}
	header.Set(HeaderAppKey, c.AppID)
	header.Set(HeaderAccessKey, c.AccessToken)
	header.Set(HeaderResourceID, c.ResourceID)
	header.Set(HeaderConnectID, connectID)

	return header
}

// Target is where a Client connects.
type Target struct {
	Endpoint string
	Header   http.Header
}

// Client opens one connection per synthesis request.
type Client struct {
	dialer  core.Dialer
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewClient creates a Client. m may be nil.
func NewClient(dialer core.Dialer, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{dialer: dialer, log: log, metrics: m}
}

// Synthesize dials target, runs req to completion and closes the
// connection. Cancelling ctx closes the connection, which unblocks any
// pending read.
func (c *Client) Synthesize(ctx context.Context, target Target, req Request) (*Result, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("synthesis cancelled: %w", err)
	}

	started := time.Now()

	conn, err := c.dialer.Dial(ctx, target.Endpoint, target.Header)
	if err != nil {
		return nil, err
	}

	c.metrics.SessionOpened()

	outcome := metrics.OutcomeFailure

	defer func() {
		closeErr := conn.Close()
		if closeErr != nil {
			c.log.Warn("Failed to close connection: %v", closeErr)
		}

		c.metrics.SessionClosed(outcome, time.Since(started).Seconds())
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	result, err := NewMachine(conn, c.log, c.metrics).Run(req)
	if err != nil {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, fmt.Errorf("synthesis cancelled: %w", ctxErr)
		}

		return nil, err
	}

	outcome = metrics.OutcomeSuccess

	return result, nil
}
