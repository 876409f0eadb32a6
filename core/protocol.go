package core

import "fmt"

// sendSimple writes header+body into the connection's send buffer, sends
// it as a single request, and waits for the response, returning a Range
// positioned right after the response header. It is the skeleton shared by
// every non-batched protocol operation (SPEC_FULL.md §4.4.1).
func (c *Connection) sendSimple(op string, kind requestKind, expected responseKind, writeBody func(*Range) error) (Range, error) {
	buf := c.getSendBuffer()
	if err := writeHeader(&buf, kind); err != nil {
		return Range{}, newError(op, StatusInternalError, DetailRuntime, err)
	}
	if err := writeBody(&buf); err != nil {
		return Range{}, newError(op, StatusInternalError, DetailRuntime, err)
	}

	if _, err := c.SendRequest(buf.Begin()); err != nil {
		return Range{}, err
	}

	resp, err := c.WaitResponse()
	if err != nil {
		return Range{}, err
	}

	h, err := readResponseHeader(&resp)
	if err != nil {
		wrapped := newError(op, StatusInternalError, DetailRuntime, err)
		c.poison(wrapped)
		return Range{}, wrapped
	}
	if responseKind(h.kind) != expected {
		wrapped := newError(op, StatusInternalError, DetailConnectivity, fmt.Errorf("unexpected response kind %d, wanted %d", h.kind, expected))
		c.poison(wrapped)
		return Range{}, wrapped
	}

	return resp, nil
}

// OpenBlock starts the write sequence for a new block whose parent is
// parentID, returning the new block's connection-scoped handle and its
// server-assigned uncommitted-block identifier. Idempotent on the server:
// retrying after a reconnect produces the same effect.
func (c *Connection) OpenBlock(parentID BlockID) (BlockHandle, UCID, error) {
	resp, err := c.sendSimple("OpenBlock", kindOpenBlockRequest, kindOpenBlockResponse, func(r *Range) error {
		return writeBlockID(r, parentID)
	})
	if err != nil {
		return 0, UCID{}, err
	}

	status, err := resp.ReadUint8()
	if err != nil {
		return 0, UCID{}, newError("OpenBlock", StatusInternalError, DetailRuntime, err)
	}
	handle, err := resp.ReadUint32()
	if err != nil {
		return 0, UCID{}, newError("OpenBlock", StatusInternalError, DetailRuntime, err)
	}
	ucid, err := readUCID(&resp)
	if err != nil {
		return 0, UCID{}, newError("OpenBlock", StatusInternalError, DetailRuntime, err)
	}

	switch status {
	case 0: // obs_success
		return BlockHandle(handle), ucid, nil
	case 1: // obs_parent_not_found
		return 0, UCID{}, newError("OpenBlock", StatusBlockUnknown, DetailUnspecified, nil)
	default:
		return 0, UCID{}, newError("OpenBlock", StatusInternalError, DetailConnectivity, fmt.Errorf("unknown open_block status %d", status))
	}
}

// CommitBlock commits the open block identified by handle under blockID.
// Idempotent on the server.
func (c *Connection) CommitBlock(handle BlockHandle, blockID BlockID) error {
	resp, err := c.sendSimple("CommitBlock", kindCommitBlockRequest, kindCommitBlockResponse, func(r *Range) error {
		if err := r.WriteUint32(uint32(handle)); err != nil {
			return err
		}
		return writeBlockID(r, blockID)
	})
	if err != nil {
		return err
	}

	status, err := resp.ReadUint8()
	if err != nil {
		return newError("CommitBlock", StatusInternalError, DetailRuntime, err)
	}

	switch status {
	case 0: // cbs_success
		return nil
	case 1: // cbs_block_not_found
		return newError("CommitBlock", StatusBlockUnknown, DetailUnspecified, nil)
	case 2: // cbs_block_id_mismatch
		return newError("CommitBlock", StatusBlockCommitted, DetailUnspecified, nil)
	default:
		return newError("CommitBlock", StatusInternalError, DetailConnectivity, fmt.Errorf("unknown commit_block status %d", status))
	}
}

func (c *Connection) getBlockHandle(op string, committedID BlockID, ucid UCID, isCommitted bool) (BlockHandle, error) {
	resp, err := c.sendSimple(op, kindGetBlockHandleRequest, kindGetBlockHandleResponse, func(r *Range) error {
		if err := writeBlockID(r, committedID); err != nil {
			return err
		}
		if err := writeUCID(r, ucid); err != nil {
			return err
		}
		var b uint8
		if isCommitted {
			b = 1
		}
		return r.WriteUint8(b)
	})
	if err != nil {
		return 0, err
	}

	status, err := resp.ReadUint8()
	if err != nil {
		return 0, newError(op, StatusInternalError, DetailRuntime, err)
	}
	handle, err := resp.ReadUint32()
	if err != nil {
		return 0, newError(op, StatusInternalError, DetailRuntime, err)
	}

	switch status {
	case 0: // gbh_success
		return BlockHandle(handle), nil
	case 1: // gbh_block_not_found
		return 0, newError(op, StatusBlockUnknown, DetailUnspecified, nil)
	default:
		return 0, newError(op, StatusInternalError, DetailConnectivity, fmt.Errorf("unknown get_block_handle status %d", status))
	}
}

// GetCommittedBlockHandle resolves a committed block's content hash to its
// connection-scoped handle.
func (c *Connection) GetCommittedBlockHandle(blockID BlockID) (BlockHandle, error) {
	return c.getBlockHandle("GetCommittedBlockHandle", blockID, UCID{}, true)
}

// GetUncommittedBlockHandle resolves an open block's server-assigned ucid
// to its connection-scoped handle.
func (c *Connection) GetUncommittedBlockHandle(ucid UCID) (BlockHandle, error) {
	return c.getBlockHandle("GetUncommittedBlockHandle", BlockID{}, ucid, false)
}

// GetBlockInfo returns the metadata of the block identified by handle.
func (c *Connection) GetBlockInfo(handle BlockHandle) (BlockInfo, error) {
	resp, err := c.sendSimple("GetBlockInfo", kindGetBlockInfoRequest, kindGetBlockInfoResponse, func(r *Range) error {
		return r.WriteUint32(uint32(handle))
	})
	if err != nil {
		return BlockInfo{}, err
	}

	blockID, err := readBlockID(&resp)
	if err != nil {
		return BlockInfo{}, newError("GetBlockInfo", StatusInternalError, DetailRuntime, err)
	}
	if _, err := readUCID(&resp); err != nil { // block_ucid, unused by BlockInfo
		return BlockInfo{}, newError("GetBlockInfo", StatusInternalError, DetailRuntime, err)
	}
	if _, err := resp.ReadUint32(); err != nil { // handle, echoed, unused
		return BlockInfo{}, newError("GetBlockInfo", StatusInternalError, DetailRuntime, err)
	}
	parent, err := resp.ReadUint32()
	if err != nil {
		return BlockInfo{}, newError("GetBlockInfo", StatusInternalError, DetailRuntime, err)
	}
	height, err := resp.ReadInt32()
	if err != nil {
		return BlockInfo{}, newError("GetBlockInfo", StatusInternalError, DetailRuntime, err)
	}
	isCommitted, err := resp.ReadUint8()
	if err != nil {
		return BlockInfo{}, newError("GetBlockInfo", StatusInternalError, DetailRuntime, err)
	}

	var flags uint32
	if isCommitted == 1 {
		flags |= BlockFlagCommitted
	}

	return BlockInfo{
		Parent:      BlockHandle(parent),
		Flags:       flags,
		BlockHeight: height,
		BlockID:     blockID,
	}, nil
}

// Authenticate sends an opaque credential payload over the connection
// controller's authenticate request (wire kind 2). The wire protocol
// reserves this request kind (protocol.h's request_kind enum); this
// library does not mandate any particular credential format, matching
// spec.md's non-goal of specifying authentication semantics.
func (c *Connection) Authenticate(credential []byte) error {
	resp, err := c.sendSimple("Authenticate", kindAuthenticateRequest, kindAuthenticateResponse, func(r *Range) error {
		return r.WriteBytes(credential)
	})
	if err != nil {
		return err
	}
	status, err := resp.ReadUint8()
	if err != nil {
		return newError("Authenticate", StatusInternalError, DetailRuntime, err)
	}
	if status != 0 {
		return newError("Authenticate", StatusAuthenticationFailed, DetailUnspecified, nil)
	}
	return nil
}

// CloseConnection sends the connection controller's close request (wire
// kind 4) before the caller tears down the socket itself via Close. It
// exists on the wire even though SPEC_FULL.md does not assign it a richer
// semantic beyond "politely tell the server we are leaving".
func (c *Connection) CloseConnection() error {
	_, err := c.sendSimple("CloseConnection", kindCloseConnectionRequest, kindCloseConnectionResponse, func(r *Range) error {
		return nil
	})
	return err
}
