package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeErrorString builds a well-formed Error(string) revert payload for a given message.
func encodeErrorString(t *testing.T, msg string) []byte {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Type: stringType}}
	packed, err := args.Pack(msg)
	require.NoError(t, err)
	return append(append([]byte{}, errorStringSelector[:]...), packed...)
}

// encodePanic builds a well-formed Panic(uint256) revert payload for a given code.
func encodePanic(t *testing.T, code uint64) []byte {
	t.Helper()
	uint256Type, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Type: uint256Type}}
	packed, err := args.Pack(new(big.Int).SetUint64(code))
	require.NoError(t, err)
	return append(append([]byte{}, panicUint256Selector[:]...), packed...)
}

// TestDecodeRevertReasonEmptyData verifies a bare require(false) with no return data decodes to a fixed message.
func TestDecodeRevertReasonEmptyData(t *testing.T) {
	assert.Equal(t, "require(false)", DecodeRevertReason(nil))
	assert.Equal(t, "require(false)", DecodeRevertReason([]byte{}))
}

// TestDecodeRevertReasonErrorString verifies a standard Error(string) revert decodes to its embedded message.
func TestDecodeRevertReasonErrorString(t *testing.T) {
	data := encodeErrorString(t, "insufficient balance")
	assert.Equal(t, "insufficient balance", DecodeRevertReason(data))
}

// TestDecodeRevertReasonPanicKnownCode verifies a Panic(uint256) revert with a defined code decodes to its symbolic
// name.
func TestDecodeRevertReasonPanicKnownCode(t *testing.T) {
	data := encodePanic(t, 0x11)
	assert.Equal(t, "Panic(0x11): OVERFLOW", DecodeRevertReason(data))

	data = encodePanic(t, 0x32)
	assert.Equal(t, "Panic(0x32): ARRAY_RANGE_ERROR", DecodeRevertReason(data))
}

// TestDecodeRevertReasonPanicUnknownCode verifies a Panic(uint256) revert with a code outside the known table still
// decodes without error, falling back to an UNKNOWN label.
func TestDecodeRevertReasonPanicUnknownCode(t *testing.T) {
	data := encodePanic(t, 0x99)
	assert.Equal(t, "Panic(0x99): UNKNOWN", DecodeRevertReason(data))
}

// TestDecodeRevertReasonUnknownSelector verifies return data with a selector that is neither Error(string) nor
// Panic(uint256) is reported as an unknown custom error rather than misdecoded.
func TestDecodeRevertReasonUnknownSelector(t *testing.T) {
	data := append([]byte{0xde, 0xad, 0xbe, 0xef}, make([]byte, 32)...)
	assert.Equal(t, "unknown custom error", DecodeRevertReason(data))
}

// TestDecodeRevertReasonInvalidLength verifies return data whose length doesn't fit the selector+32*n shape is
// reported as undecodable rather than panicking.
func TestDecodeRevertReasonInvalidLength(t *testing.T) {
	assert.Equal(t, "could not decode reason; invalid data length", DecodeRevertReason([]byte{0x01, 0x02, 0x03}))
}
