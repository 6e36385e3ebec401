package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceName(t *testing.T) {
	t.Run("empty user agent", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", DeviceName(""))
	})

	t.Run("chrome on desktop", func(t *testing.T) {
		ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		name := DeviceName(ua)
		assert.Contains(t, name, "Chrome")
		assert.Contains(t, name, "on")
	})

	t.Run("safari on iphone", func(t *testing.T) {
		ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		name := DeviceName(ua)
		assert.Contains(t, name, "on")
	})

	t.Run("unparseable agent still reads", func(t *testing.T) {
		name := DeviceName("curl/8.5.0")
		assert.Contains(t, name, "on")
		assert.NotEmpty(t, name)
	})
}
