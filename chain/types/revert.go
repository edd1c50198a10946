package types

import (
	"encoding/binary"
	"fmt"

	"github.com/crytic/forksim/compilation/abiutils"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// errorStringSelector is the 4-byte selector of Solidity's built-in `Error(string)` revert reason.
var errorStringSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}

// panicUint256Selector is the 4-byte selector of Solidity's built-in `Panic(uint256)` revert reason.
var panicUint256Selector = [4]byte{0x4e, 0x48, 0x7b, 0x71}

// panicSymbol maps a Solidity Panic(uint256) code to the symbolic name spec §4.5 defines for it. The numeric codes
// themselves are shared with compilation/abiutils' PanicCodeXXX constants; this table exists alongside that one
// because abiutils.GetPanicReason returns a human sentence ("panic: arithmetic underflow"), not the short symbol
// this decoder's callers expect ("OVERFLOW").
var panicSymbol = map[uint64]string{
	abiutils.PanicCodeCompilerInserted:              "GENERIC_PANIC",
	abiutils.PanicCodeAssertFailed:                   "ASSERT_FALSE",
	abiutils.PanicCodeArithmeticUnderOverflow:        "OVERFLOW",
	abiutils.PanicCodeDivideByZero:                   "DIVIDE_BY_ZERO",
	abiutils.PanicCodeEnumTypeConversionOutOfBounds:  "ENUM_RANGE_ERROR",
	abiutils.PanicCodeIncorrectStorageAccess:         "BAD_STORAGE_DATA",
	abiutils.PanicCodePopEmptyArray:                  "STACK_UNDERFLOW",
	abiutils.PanicCodeOutOfBoundsArrayAccess:         "ARRAY_RANGE_ERROR",
	abiutils.PanicCodeAllocateTooMuchMemory:          "OUT_OF_MEMORY",
	abiutils.PanicCodeCallUninitializedVariable:      "UNINITIALIZED_FUNCTION_CALL",
}

// DecodeRevertReason produces a human-readable message from a failed execution's return data, per spec §4.5.
func DecodeRevertReason(returnValue []byte) string {
	if len(returnValue) == 0 {
		return "require(false)"
	}

	if len(returnValue)%32 != 4 {
		return "could not decode reason; invalid data length"
	}

	var selector [4]byte
	copy(selector[:], returnValue[:4])

	switch selector {
	case errorStringSelector:
		return decodeErrorString(returnValue)
	case panicUint256Selector:
		return decodePanic(returnValue)
	default:
		return "unknown custom error"
	}
}

func decodeErrorString(returnValue []byte) string {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		return "could not decode reason; invalid data length"
	}
	args := abi.Arguments{{Type: stringType}}
	values, err := args.Unpack(returnValue[4:])
	if err != nil || len(values) == 0 {
		return "could not decode reason; invalid data length"
	}
	msg, ok := values[0].(string)
	if !ok {
		return "could not decode reason; invalid data length"
	}
	return msg
}

func decodePanic(returnValue []byte) string {
	if len(returnValue) != 4+32 {
		return "could not decode reason; invalid data length"
	}
	// The panic code is a uint256 but every defined code fits in the low 8 bytes.
	code := binary.BigEndian.Uint64(returnValue[4+24 : 4+32])
	symbol, ok := panicSymbol[code]
	if !ok {
		symbol = "UNKNOWN"
	}
	return fmt.Sprintf("Panic(0x%02x): %s", code, symbol)
}
