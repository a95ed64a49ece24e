package cryptox

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer(hex.EncodeToString(randKey(t, MasterKeySize)))
	require.NoError(t, err)
	return s
}

// flipSegmentBit decodes the n-th compact segment, flips one bit and
// re-encodes it.
func flipSegmentBit(t *testing.T, token string, n int) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 5)
	raw, err := base64.RawURLEncoding.DecodeString(parts[n])
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	raw[len(raw)/2] ^= 0x01
	parts[n] = base64.RawURLEncoding.EncodeToString(raw)
	return strings.Join(parts, ".")
}

func TestSealer_RoundTrip(t *testing.T) {
	s := newTestSealer(t)

	payloads := []map[string]string{
		{"smtpKey": "90abbc5a6b3aa0068e0ba6e424a56e707d0ba4c2f2039d3f3d289c285048af2d"},
		{},
		{"a": "", "b": "ünïcode", "c": strings.Repeat("x", 4096)},
	}
	for _, p := range payloads {
		token, err := s.Seal(p)
		require.NoError(t, err)

		got, err := s.Open(token)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestSealer_CompactDirA256GCM(t *testing.T) {
	s := newTestSealer(t)

	token, err := s.Seal(map[string]string{"k": "v"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 5)
	assert.Empty(t, parts[1], "dir mode carries no encrypted key")

	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	var header map[string]any
	require.NoError(t, json.Unmarshal(rawHeader, &header))
	assert.Equal(t, "dir", header["alg"])
	assert.Equal(t, "A256GCM", header["enc"])
}

func TestSealer_FreshIVPerCall(t *testing.T) {
	s := newTestSealer(t)
	payload := map[string]string{"smtpKey": "same"}

	t1, err := s.Seal(payload)
	require.NoError(t, err)
	t2, err := s.Seal(payload)
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
	assert.NotEqual(t, strings.Split(t1, ".")[2], strings.Split(t2, ".")[2])
}

func TestSealer_WrongKeyFailsClosed(t *testing.T) {
	token, err := newTestSealer(t).Seal(map[string]string{"k": "v"})
	require.NoError(t, err)

	got, err := newTestSealer(t).Open(token)
	require.ErrorIs(t, err, ErrEnvelopeInvalid)
	assert.Nil(t, got)
}

func TestSealer_TamperingDetected(t *testing.T) {
	s := newTestSealer(t)
	token, err := s.Seal(map[string]string{"smtpKey": "deadbeef"})
	require.NoError(t, err)

	for name, segment := range map[string]int{"iv": 2, "ciphertext": 3, "tag": 4} {
		t.Run(name, func(t *testing.T) {
			got, err := s.Open(flipSegmentBit(t, token, segment))
			require.ErrorIs(t, err, ErrEnvelopeInvalid)
			assert.Nil(t, got)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Open("not.a.jwe")
		require.ErrorIs(t, err, ErrEnvelopeInvalid)
	})
}

func TestNewSealer_Validation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{name: "32 bytes", key: strings.Repeat("ab", 32), ok: true},
		{name: "surrounding whitespace", key: " " + strings.Repeat("ab", 32) + "\n", ok: true},
		{name: "16 bytes", key: strings.Repeat("ab", 16)},
		{name: "33 bytes", key: strings.Repeat("ab", 33)},
		{name: "not hex", key: strings.Repeat("zz", 32)},
		{name: "empty", key: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSealer(tt.key)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidMasterKey)
		})
	}
}
