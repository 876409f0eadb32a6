package core

import "fmt"

// classifyCoin decides which request a coin's mutation maps to and
// validates it, mirroring protocol.c's set_coins loop precedence exactly:
// a non-zero Production always means "produce" (even if Consumption is
// also set), a non-zero Consumption with zero Production means "consume",
// and both zero means "remove". Any other shape — a negative ScriptOffset,
// or a produce coin with a non-positive ScriptLength — aborts the whole
// batch with StatusInvalidRequest before any bytes are sent for it.
func classifyCoin(c Coin) (requestKind, error) {
	if c.ScriptOffset < 0 {
		return 0, fmt.Errorf("script_offset %d is negative", c.ScriptOffset)
	}

	switch {
	case c.Production != 0:
		if c.ScriptLength <= 0 {
			return 0, fmt.Errorf("produce coin has non-positive script_length %d", c.ScriptLength)
		}
		return kindProduceCoinRequest, nil
	case c.Consumption != 0:
		return kindConsumeCoinRequest, nil
	case c.Production == 0 && c.Consumption == 0:
		return kindRemoveCoinRequest, nil
	default:
		return 0, fmt.Errorf("coin matches no valid produce/consume/remove combination")
	}
}

// SetCoins applies a batch of coin mutations against block context in a
// single round trip. Each element of coins is independently routed to a
// produce, consume, or remove request (see classifyCoin) and may succeed
// or fail independently; SetCoins writes each outcome back into
// coins[i].Status and returns an error only if the batch as a whole could
// not be validated, sent, or received (a connectivity or protocol failure,
// not a per-coin rejection). Idempotent on the server: retrying the same
// batch after a reconnect produces the same effect.
//
// storage backs every produce request's script payload: coins[i].Script
// is not a Go byte slice on Coin itself, it is storage[ScriptOffset :
// ScriptOffset+ScriptLength], exactly as protocol.c's set_coins reads the
// script out of its caller-owned storage buffer.
func (c *Connection) SetCoins(context BlockHandle, coins []Coin, storage []byte) error {
	if len(coins) == 0 {
		return nil
	}
	if err := c.ensureOpen("SetCoins"); err != nil {
		return err
	}

	c.BatchBegin()

	firstID := uint32(0)
	haveFirst := false
	for i := range coins {
		kind, err := classifyCoin(coins[i])
		if err != nil {
			return newError("SetCoins", StatusInvalidRequest, DetailUser, err)
		}

		buf := c.getSendBuffer()
		if err := writeHeader(&buf, kind); err != nil {
			return newError("SetCoins", StatusInternalError, DetailRuntime, err)
		}
		if err := writeOutpoint(&buf, coins[i].Outpoint); err != nil {
			return newError("SetCoins", StatusInternalError, DetailRuntime, err)
		}

		switch kind {
		case kindProduceCoinRequest:
			if err := writeProduceBody(&buf, context, coins[i], storage); err != nil {
				return newError("SetCoins", StatusInvalidRequest, DetailUser, err)
			}
		case kindConsumeCoinRequest:
			if err := buf.WriteUint32(uint32(context)); err != nil {
				return newError("SetCoins", StatusInternalError, DetailRuntime, err)
			}
		case kindRemoveCoinRequest:
			if err := writeRemoveBody(&buf, context); err != nil {
				return newError("SetCoins", StatusInternalError, DetailRuntime, err)
			}
		}

		reqID, err := c.SendRequest(buf.Begin())
		if err != nil {
			return err
		}
		if !haveFirst {
			firstID = reqID
			haveFirst = true
		}
	}

	if err := c.BatchEnd(); err != nil {
		return err
	}

	pending := make([]bool, len(coins))
	for i := range pending {
		pending[i] = true
	}
	remaining := len(coins)

	for remaining > 0 {
		resp, err := c.WaitResponse()
		if err != nil {
			return err
		}
		h, err := readResponseHeader(&resp)
		if err != nil {
			wrapped := newError("SetCoins", StatusInternalError, DetailRuntime, err)
			c.poison(wrapped)
			return wrapped
		}
		switch responseKind(h.kind) {
		case kindProduceCoinResponse, kindConsumeCoinResponse, kindRemoveCoinResponse:
		default:
			wrapped := newError("SetCoins", StatusInternalError, DetailConnectivity, fmt.Errorf("unexpected response kind %d", h.kind))
			c.poison(wrapped)
			return wrapped
		}

		idx := int(h.requestID - firstID)
		if idx < 0 || idx >= len(coins) || !pending[idx] {
			wrapped := newError("SetCoins", StatusInternalError, DetailConnectivity, fmt.Errorf("response request_id %d does not map to a pending coin", h.requestID))
			c.poison(wrapped)
			return wrapped
		}

		wireStatus, err := resp.ReadUint8()
		if err != nil {
			wrapped := newError("SetCoins", StatusInternalError, DetailRuntime, err)
			c.poison(wrapped)
			return wrapped
		}

		status, err := setCoinStatusFromWire(wireStatus)
		if err != nil {
			wrapped := newError("SetCoins", StatusInternalError, DetailConnectivity, err)
			c.poison(wrapped)
			return wrapped
		}

		coins[idx].Status = status
		pending[idx] = false
		remaining--
	}

	return nil
}

// writeProduceBody writes a produce_coin_request body (protocol.c:289-296):
// context, flags, satoshis, nLockTime, then the script bytes sliced out of
// storage at [ScriptOffset, ScriptOffset+ScriptLength).
func writeProduceBody(r *Range, context BlockHandle, coin Coin, storage []byte) error {
	if int(coin.ScriptOffset)+int(coin.ScriptLength) > len(storage) {
		return fmt.Errorf("script [%d:%d] exceeds storage of length %d", coin.ScriptOffset, coin.ScriptOffset+coin.ScriptLength, len(storage))
	}

	if err := r.WriteUint32(uint32(context)); err != nil {
		return err
	}
	if err := r.WriteUint8(coin.Flags); err != nil {
		return err
	}
	if err := r.WriteUint64(coin.Satoshis); err != nil {
		return err
	}
	if err := r.WriteUint32(coin.NLockTime); err != nil {
		return err
	}
	script := storage[coin.ScriptOffset : coin.ScriptOffset+coin.ScriptLength]
	return r.WriteBytes(script)
}

// writeRemoveBody writes a remove_coin_request body (protocol.c:311-316):
// context followed by the remove-production and remove-consumption flags,
// both unconditionally 1 since this client only ever removes a coin
// entirely.
func writeRemoveBody(r *Range, context BlockHandle) error {
	if err := r.WriteUint32(uint32(context)); err != nil {
		return err
	}
	if err := r.WriteUint8(1); err != nil {
		return err
	}
	return r.WriteUint8(1)
}

// setCoinStatusFromWire maps the small per-request wire status enum
// (produce/consume/remove share the same 0..3 shape: success, outpoint not
// found, invalid context, invalid block handle) onto the client-facing
// bitmask in terab.h. Any other wire value is a protocol violation.
func setCoinStatusFromWire(wire uint8) (uint8, error) {
	switch wire {
	case 0:
		return CoinStatusSuccess, nil
	case 1:
		return CoinStatusOutpointNotFound, nil
	case 2:
		return CoinStatusInvalidContext, nil
	case 3:
		return CoinStatusInvalidBlockHandle, nil
	default:
		return 0, fmt.Errorf("unknown change_coin_status wire value %d", wire)
	}
}

// GetCoins resolves a batch of outpoints against the given block context,
// writing each coin's metadata back into coins[i] and its script bytes into
// storage. storage is a caller-owned buffer; ScriptOffset/ScriptLength index
// into it on return.
//
// ScriptOffset advances by the full script length unconditionally, even
// when the script itself does not fit in storage and
// CoinStatusStorageTooShort is set. This is not a choice made by this
// package: it is what protocol.c's get_coins does, so that a caller
// replaying the batch with a larger buffer gets the same offsets back.
func (c *Connection) GetCoins(context BlockHandle, coins []Coin, storage []byte) error {
	if len(coins) == 0 {
		return nil
	}
	if err := c.ensureOpen("GetCoins"); err != nil {
		return err
	}

	c.BatchBegin()

	firstID := uint32(0)
	haveFirst := false
	for i := range coins {
		buf := c.getSendBuffer()
		if err := writeHeader(&buf, kindGetCoinRequest); err != nil {
			return newError("GetCoins", StatusInternalError, DetailRuntime, err)
		}
		if err := writeOutpoint(&buf, coins[i].Outpoint); err != nil {
			return newError("GetCoins", StatusInternalError, DetailRuntime, err)
		}
		if err := buf.WriteUint32(uint32(context)); err != nil {
			return newError("GetCoins", StatusInternalError, DetailRuntime, err)
		}

		reqID, err := c.SendRequest(buf.Begin())
		if err != nil {
			return err
		}
		if !haveFirst {
			firstID = reqID
			haveFirst = true
		}
	}

	if err := c.BatchEnd(); err != nil {
		return err
	}

	pending := make([]bool, len(coins))
	for i := range pending {
		pending[i] = true
	}
	results := make([]getCoinResult, len(coins))
	remaining := len(coins)

	// Responses may arrive in any order (the server is free to answer a
	// later request before an earlier one); they are demultiplexed onto
	// results[] by request id and only turned into coins[]/storage writes
	// afterward, in coin order, so that ScriptOffset is assigned
	// deterministically regardless of arrival order.
	for remaining > 0 {
		resp, err := c.WaitResponse()
		if err != nil {
			return err
		}
		h, err := readResponseHeader(&resp)
		if err != nil {
			wrapped := newError("GetCoins", StatusInternalError, DetailRuntime, err)
			c.poison(wrapped)
			return wrapped
		}
		if responseKind(h.kind) != kindGetCoinResponse {
			wrapped := newError("GetCoins", StatusInternalError, DetailConnectivity, fmt.Errorf("unexpected response kind %d", h.kind))
			c.poison(wrapped)
			return wrapped
		}

		idx := int(h.requestID - firstID)
		if idx < 0 || idx >= len(coins) || !pending[idx] {
			wrapped := newError("GetCoins", StatusInternalError, DetailConnectivity, fmt.Errorf("response request_id %d does not map to a pending coin", h.requestID))
			c.poison(wrapped)
			return wrapped
		}

		res, err := decodeGetCoinResponse(h, &resp)
		if err != nil {
			wrapped := newError("GetCoins", StatusInternalError, DetailConnectivity, err)
			c.poison(wrapped)
			return wrapped
		}
		results[idx] = res

		pending[idx] = false
		remaining--
	}

	storageOffset := int32(0)
	for i := range coins {
		applyGetCoinResult(&coins[i], results[i], storage, &storageOffset)
	}

	return nil
}

// getCoinResult holds one get_coin response's decoded fields before they
// are applied to a Coin and storage buffer in index order.
type getCoinResult struct {
	wireStatus   uint8
	outpoint     Outpoint
	flags        uint8
	context      uint32
	production   uint32
	consumption  uint32
	satoshis     uint64
	nLockTime    uint32
	scriptLength int32
	script       []byte
}

// decodeGetCoinResponse decodes a get_coin_response body in the order
// protocol.c reads it (protocol.c:421-429): status, outpoint, flags,
// context, production, consumption, satoshis, nLockTime. The script that
// follows has no explicit length field on the wire; its length is the
// frame's declared size minus everything already consumed from the start
// of the frame (header included), exactly as protocol.c computes
// `header.size - (buffer.begin - response_origin)`.
func decodeGetCoinResponse(h header, resp *Range) (getCoinResult, error) {
	var res getCoinResult
	var err error

	if res.wireStatus, err = resp.ReadUint8(); err != nil {
		return res, err
	}
	if res.outpoint, err = readOutpoint(resp); err != nil {
		return res, err
	}
	if res.flags, err = resp.ReadUint8(); err != nil {
		return res, err
	}
	if res.context, err = resp.ReadUint32(); err != nil {
		return res, err
	}
	if res.production, err = resp.ReadUint32(); err != nil {
		return res, err
	}
	if res.consumption, err = resp.ReadUint32(); err != nil {
		return res, err
	}
	if res.satoshis, err = resp.ReadUint64(); err != nil {
		return res, err
	}
	if res.nLockTime, err = resp.ReadUint32(); err != nil {
		return res, err
	}

	scriptLength := int32(h.size) - int32(resp.Begin())
	if scriptLength < 0 {
		return res, fmt.Errorf("frame size %d is shorter than the fields already read", h.size)
	}
	res.scriptLength = scriptLength
	if scriptLength > 0 {
		if res.script, err = resp.ReadBytes(int(scriptLength)); err != nil {
			return res, err
		}
	}

	switch res.wireStatus {
	case 0, 1: // gcs_success, gcs_outpoint_not_found
	default:
		return res, fmt.Errorf("unknown get_coin_status wire value %d", res.wireStatus)
	}

	return res, nil
}

// applyGetCoinResult writes one coin's decoded result into coin and, if its
// script fits, into storage at *storageOffset. storageOffset always
// advances by the full script length regardless of whether it fit.
func applyGetCoinResult(coin *Coin, res getCoinResult, storage []byte, storageOffset *int32) {
	coin.Outpoint = res.outpoint
	coin.Production = BlockHandle(res.production)
	coin.Consumption = BlockHandle(res.consumption)
	coin.Satoshis = res.satoshis
	coin.NLockTime = res.nLockTime
	coin.Flags = res.flags
	coin.ScriptLength = res.scriptLength
	coin.ScriptOffset = *storageOffset

	switch res.wireStatus {
	case 0:
		coin.Status = CoinStatusSuccess
	case 1:
		coin.Status = CoinStatusOutpointNotFound
	}

	fits := int(*storageOffset)+int(res.scriptLength) <= len(storage)
	if res.scriptLength > 0 {
		if fits {
			copy(storage[*storageOffset:], res.script)
		} else {
			coin.Status |= CoinStatusStorageTooShort
		}
	}

	*storageOffset += res.scriptLength
}
