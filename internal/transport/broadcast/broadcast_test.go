package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigWithDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
	assert.Equal(t, 2, cfg.MaxPingsOut)
	assert.Equal(t, 2*time.Minute, cfg.PingInterval)
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{
		MaxReconnects:   5,
		ReconnectWait:   10 * time.Second,
		MaxPingsOut:     3,
		PingInterval:    1 * time.Minute,
		ReconnectJitter: 500 * time.Millisecond,
	}.withDefaults()

	assert.Equal(t, 5, cfg.MaxReconnects)
	assert.Equal(t, 10*time.Second, cfg.ReconnectWait)
	assert.Equal(t, 3, cfg.MaxPingsOut)
	assert.Equal(t, 1*time.Minute, cfg.PingInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectJitter)
}

func TestSubjectForNamespacesByInbox(t *testing.T) {
	assert.Equal(t, "peersync.inbox.abc123", subjectFor("abc123"))
}
