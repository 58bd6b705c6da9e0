package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalpay/pkg/requestcontext"
	"portalpay/pkg/testutil"
)

func TestEmitAssignsDefaults(t *testing.T) {
	p := NewPublisher(4, testutil.DiscardLogger())

	p.Emit(context.Background(), Entry{Action: ActionPaymentInitiated})

	entry := <-p.Inbox()
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestEmitFoldsInRequestContext(t *testing.T) {
	p := NewPublisher(4, testutil.DiscardLogger())

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithClientIP(ctx, "203.0.113.9")
	ctx = requestcontext.WithUserAgent(ctx, "curl/8.5.0")

	p.Emit(ctx, Entry{Action: ActionPaymentVerified})

	entry := <-p.Inbox()
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "203.0.x.x", entry.ClientIP)
	assert.Equal(t, "curl/8.5.0", entry.UserAgent)
}

func TestEmitAnonymizesExplicitIP(t *testing.T) {
	p := NewPublisher(4, testutil.DiscardLogger())

	p.Emit(context.Background(), Entry{Action: ActionPaymentVerified, ClientIP: "198.51.100.23"})

	entry := <-p.Inbox()
	assert.Equal(t, "198.51.x.x", entry.ClientIP)
}

func TestEmitNeverBlocksWhenQueueFull(t *testing.T) {
	p := NewPublisher(2, testutil.DiscardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			p.Emit(context.Background(), Entry{Action: ActionPaymentInitiated})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	assert.Equal(t, int64(8), p.Dropped())
	assert.Len(t, p.Inbox(), 2)
}

func TestNewPublisherDefaultsQueueSize(t *testing.T) {
	p := NewPublisher(0, testutil.DiscardLogger())
	require.NotNil(t, p)
	assert.Equal(t, 1024, cap(p.Inbox()))
}
