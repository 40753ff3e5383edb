package interceptor_test

import (
	"testing"
	"time"
	"urlguard/internal/interceptor"

	"github.com/stretchr/testify/require"
)

func TestBlockPageURL(t *testing.T) {
	at := time.UnixMilli(1_736_000_000_123)

	got, err := interceptor.BlockPageURL("http://127.0.0.1:8085/blocked", "http://evil-bank-login.tk/", at)
	require.NoError(t, err)
	require.Equal(t,
		"http://127.0.0.1:8085/blocked?url=http%3A%2F%2Fevil-bank-login.tk%2F&reason=malicious&timestamp=1736000000123",
		got)

	got, err = interceptor.BlockPageURL("chrome-extension://abc/blocked.html?lang=en", "https://x.example/?a=1&b=2", at)
	require.NoError(t, err)
	require.Equal(t,
		"chrome-extension://abc/blocked.html?lang=en&url=https%3A%2F%2Fx.example%2F%3Fa%3D1%26b%3D2&reason=malicious&timestamp=1736000000123",
		got)

	_, err = interceptor.BlockPageURL("http://[::1", "https://x.example/", at)
	require.Error(t, err)
}
