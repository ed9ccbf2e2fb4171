package notification

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-ordering-system/internal/core/domain"
)

func TestLogChannel_AppendsBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.log")
	ch := NewLogChannel(path, discardLogger())
	n := domain.Notification{Order: sampleOrder(), Body: FormatOrder(sampleOrder())}

	require.NoError(t, ch.Send(context.Background(), n))
	require.NoError(t, ch.Send(context.Background(), n))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, n.Body+"\n\n"+n.Body+"\n\n", string(data))
	assert.Equal(t, "log", ch.Name())
}

func TestLogChannel_ConcurrentSendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.log")
	ch := NewLogChannel(path, discardLogger())
	n := domain.Notification{Order: sampleOrder(), Body: FormatOrder(sampleOrder())}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ch.Send(context.Background(), n))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 20*len(n.Body+"\n\n"))
}

func TestLogChannel_NoPathOnlyLogs(t *testing.T) {
	ch := NewLogChannel("", discardLogger())
	assert.NoError(t, ch.Send(context.Background(), domain.Notification{Order: sampleOrder(), Body: "x"}))
}

func TestLogChannel_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "notifications.log")
	ch := NewLogChannel(path, discardLogger())

	err := ch.Send(context.Background(), domain.Notification{Order: sampleOrder(), Body: "x"})
	assert.Error(t, err)
}
