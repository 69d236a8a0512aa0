package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLogMessage_Success(t *testing.T) {
	msg, err := DecodeLogMessage([]byte(`{"log":"2022-07-25 [INFO]: Ride - duration = 1.0; resistance = 30","ts":1}`))
	require.NoError(t, err)
	assert.Equal(t, "2022-07-25 [INFO]: Ride - duration = 1.0; resistance = 30", msg.Log)
}

func TestDecodeLogMessage_Errors(t *testing.T) {
	cases := map[string][]byte{
		"not json":       []byte(`log=hello`),
		"not an object":  []byte(`["log"]`),
		"log not string": []byte(`{"log": 12}`),
		"invalid utf8":   {0x7b, 0xff, 0x7d},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeLogMessage(raw)
			var formatErr *DataFormatError
			assert.True(t, errors.As(err, &formatErr), "expected DataFormatError, got %v", err)
		})
	}
}

func TestDecodeLogMessage_MissingLog(t *testing.T) {
	_, err := DecodeLogMessage([]byte(`{"message":"x"}`))
	assert.ErrorIs(t, err, ErrMissingLogField)
}
