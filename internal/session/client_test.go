package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/book-expert/doubao-tts-service/internal/core"
	"github.com/book-expert/doubao-tts-service/internal/metrics"
	"github.com/book-expert/doubao-tts-service/internal/protocol"
	"github.com/book-expert/doubao-tts-service/internal/session"
	"github.com/book-expert/doubao-tts-service/internal/session/sessiontest"
	"github.com/book-expert/doubao-tts-service/internal/transport"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(context.Context, string, http.Header) (core.Conn, error) {
	if d.err != nil {
		return nil, d.err
	}

	return d.conn, nil
}

func TestClient_Synthesize_EndToEnd(t *testing.T) {
	t.Parallel()

	server := sessiontest.NewServer(t, "AAAA", "BBBB")
	recorder := metrics.New()

	client := session.NewClient(transport.NewDialer(5*time.Second, 0), newTestLogger(t), recorder)
	credentials := session.Credentials{AppID: "1234567890", AccessToken: "token", ResourceID: "volc.service_type.10029"}

	result, err := client.Synthesize(context.Background(), session.Target{
		Endpoint: server.Endpoint(),
		Header:   credentials.Header("conn-e2e"),
	}, newRequest(t))
	require.NoError(t, err)

	assert.Equal(t, []byte("AAAABBBB"), result.Audio)
	assert.Equal(t, "conn-e2e", result.ConnectID)

	assert.InDelta(t, 1.0, testutil.ToFloat64(recorder.SessionsStarted), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(recorder.SessionsFinished.WithLabelValues(metrics.OutcomeSuccess)), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(recorder.ActiveSessions), 0)
	assert.InDelta(t, 8.0, testutil.ToFloat64(recorder.AudioBytes), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(recorder.FramesSent.WithLabelValues(protocol.EventTaskRequest.String())), 0)
}

func TestClient_Synthesize_RejectedHandshake(t *testing.T) {
	t.Parallel()

	server := sessiontest.NewServer(t, "AAAA")
	client := session.NewClient(transport.NewDialer(5*time.Second, 0), newTestLogger(t), nil)

	_, err := client.Synthesize(context.Background(), session.Target{
		Endpoint: server.Endpoint(),
		Header:   http.Header{},
	}, newRequest(t))
	require.ErrorIs(t, err, core.ErrTransport)
}

func TestClient_Synthesize_ClosesConnectionOnFailure(t *testing.T) {
	t.Parallel()

	conn := newScriptedConn(script(handshake(t), [][]byte{errorFrame(t, 1003, "bad request")})...)
	recorder := metrics.New()
	client := session.NewClient(&fakeDialer{conn: conn}, newTestLogger(t), recorder)

	_, err := client.Synthesize(context.Background(), session.Target{}, newRequest(t))
	require.ErrorIs(t, err, core.ErrProtocol)
	assert.True(t, conn.isClosed())
	assert.InDelta(t, 1.0, testutil.ToFloat64(recorder.SessionsFinished.WithLabelValues(metrics.OutcomeFailure)), 0)
}

func TestClient_Synthesize_Cancellation(t *testing.T) {
	t.Parallel()

	conn := newBlockingConn()
	client := session.NewClient(&fakeDialer{conn: conn}, newTestLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.Synthesize(ctx, session.Target{}, newRequest(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, conn.isClosed())
}

func TestClient_Synthesize_AlreadyCancelled(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{err: errors.New("must not dial")}
	client := session.NewClient(dialer, newTestLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Synthesize(ctx, session.Target{}, newRequest(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCredentials_Header(t *testing.T) {
	t.Parallel()

	header := session.Credentials{AppID: "123", AccessToken: "tok", ResourceID: "res"}.Header("cid")
	assert.Equal(t, "123", header.Get("X-Api-App-Key"))
	assert.Equal(t, "tok", header.Get("X-Api-Access-Key"))
	assert.Equal(t, "res", header.Get("X-Api-Resource-Id"))
	assert.Equal(t, "cid", header.Get("X-Api-Connect-Id"))
}
