package json_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffcc/pact/model/messages"
	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/network/codec"
	"github.com/riffcc/pact/network/codec/json"
	"github.com/riffcc/pact/utils/unittest"
)

func TestCodecRoundtrip(t *testing.T) {
	c := json.NewCodec()

	original := &messages.Proposal{
		Round: 7,
		Value: []byte("candidate value"),
	}

	data, err := c.Encode(original)
	require.NoError(t, err)
	require.Equal(t, codec.CodeProposal, data[0])

	decoded, err := c.Decode(data)
	require.NoError(t, err)
	require.IsType(t, &messages.Proposal{}, decoded)
	assert.Equal(t, original, decoded)
}

func TestCodecRoundtripReceiptHalf(t *testing.T) {
	c := json.NewCodec()

	original := &messages.ReceiptHalf{
		ReceiptHalf: &pact.ReceiptHalf{
			Party:      unittest.IdentifierFixture(),
			OwnTriple:  unittest.IdentifierFixture(),
			PeerTriple: unittest.IdentifierFixture(),
			Sig:        []byte{0xde, 0xad, 0xbe, 0xef},
		},
	}

	data, err := c.Encode(original)
	require.NoError(t, err)
	require.Equal(t, codec.CodeReceiptHalf, data[0])

	decoded, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestCodecRejectsMalformed(t *testing.T) {
	c := json.NewCodec()

	t.Run("empty", func(t *testing.T) {
		_, err := c.Decode(nil)
		assert.ErrorIs(t, err, codec.ErrInvalidEncoding)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := c.Decode([]byte{codec.CodeMax, '{', '}'})
		assert.True(t, codec.IsErrUnknownMsgCode(err))
	})

	t.Run("garbage payload", func(t *testing.T) {
		_, err := c.Decode([]byte{codec.CodeProposal, 0xff, 0xff})
		assert.True(t, codec.IsErrMsgUnmarshal(err))
	})
}
