package core

// MaxFrame is the maximum size, in bytes, of a single wire frame, header
// included. Matches the server-side limit documented in the original
// client's connection.h (16 * 1024).
const MaxFrame = 16 * 1024

// DefaultPort is the TCP port assumed when a connection string omits one.
const DefaultPort = 8338

// headerLen is the fixed size of every wire frame's header.
const headerLen = 16

// BlockHandle is a connection-scoped opaque reference to a block on the
// server. Zero means "none"; it is never portable across connections.
type BlockHandle uint32

// BlockID is the 32-byte content hash of a committed block. All-zero means
// "uncommitted".
type BlockID [32]byte

// UCID is the server-assigned persistent identifier of an open
// (uncommitted) block, used to re-attach to it after a reconnect.
type UCID [16]byte

// Outpoint uniquely identifies a transaction output.
type Outpoint struct {
	TxID  [32]byte
	Index int32
}

// Coin flag bits (persisted, within Coin.Flags).
const (
	CoinFlagsCoinbase uint8 = 0x01
)

// Coin status bits (client-facing, within Coin.Status). These are distinct
// from the small per-request wire status enum: the wire carries 0..3, the
// client-facing Status is the bitmask below, matching terab.h's
// TERAB_COIN_STATUS_* defines.
const (
	CoinStatusNone               uint8 = 0
	CoinStatusSuccess            uint8 = 1
	CoinStatusOutpointNotFound   uint8 = 2
	CoinStatusInvalidContext     uint8 = 4
	CoinStatusInvalidBlockHandle uint8 = 8
	CoinStatusStorageTooShort    uint8 = 16
)

// Coin describes a UTXO entry. Its script is stored out-of-band in a
// caller-owned storage buffer; ScriptOffset/ScriptLength index into it.
type Coin struct {
	Outpoint     Outpoint
	Production   BlockHandle
	Consumption  BlockHandle
	Satoshis     uint64
	NLockTime    uint32
	ScriptOffset int32
	ScriptLength int32
	Flags        uint8
	Status       uint8
}

// Block flag bits (within BlockInfo.Flags).
const (
	BlockFlagFrozen    uint32 = 0x01
	BlockFlagCommitted uint32 = 0x02
)

// BlockInfo describes a block's metadata, as returned by GetBlockInfo.
type BlockInfo struct {
	Parent      BlockHandle
	Flags       uint32
	BlockHeight int32
	BlockID     BlockID
}

// requestKind identifies a request frame's body shape.
type requestKind uint32

const (
	kindAuthenticateRequest     requestKind = 2
	kindCloseConnectionRequest  requestKind = 4
	kindOpenBlockRequest        requestKind = 16
	kindCommitBlockRequest      requestKind = 18
	kindGetBlockHandleRequest   requestKind = 20
	kindGetBlockInfoRequest     requestKind = 22
	kindGetCoinRequest          requestKind = 64
	kindProduceCoinRequest      requestKind = 66
	kindConsumeCoinRequest      requestKind = 68
	kindRemoveCoinRequest       requestKind = 70
)

// responseKind identifies a response frame's body shape. Each is the
// corresponding request kind + 1.
type responseKind uint32

const (
	kindAuthenticateResponse    responseKind = 3
	kindCloseConnectionResponse responseKind = 5
	kindOpenBlockResponse       responseKind = 17
	kindCommitBlockResponse     responseKind = 19
	kindGetBlockHandleResponse  responseKind = 21
	kindGetBlockInfoResponse    responseKind = 23
	kindGetCoinResponse         responseKind = 65
	kindProduceCoinResponse     responseKind = 67
	kindConsumeCoinResponse     responseKind = 69
	kindRemoveCoinResponse      responseKind = 71
)

// header is the 16-byte frame header common to every request and response.
type header struct {
	size      uint32
	requestID uint32
	clientID  uint32
	kind      uint32
}
