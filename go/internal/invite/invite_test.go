package invite

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := uuid.New()
		code := Encode(id)

		decoded, err := Decode(code)
		require.NoError(t, err)
		require.Equal(t, id, decoded)
	}
}

func TestEncodeIsURLSafe(t *testing.T) {
	code := Encode(uuid.New())
	require.NotContains(t, code, "+")
	require.NotContains(t, code, "/")
	require.NotContains(t, code, "=")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"x" + Encode(uuid.New())[1:], // wrong prefix
		"m!!!not-base64!!!",
		"m",
		"mQUJD", // valid base64, wrong length
	}
	for _, code := range cases {
		_, err := Decode(code)
		require.Error(t, err, "code %q should not decode", code)
	}
}
