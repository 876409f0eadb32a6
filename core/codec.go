package core

// writeHeader reserves the 16-byte frame header: four zero-filled uint32
// slots (size, request_id, client_id, kind), then overwrites the fourth
// slot with kind. size and request_id are patched in place by
// Connection.SendRequest once the body length and sequence number are
// known (see accept()); client_id is always 0 from the client.
func writeHeader(r *Range, kind requestKind) error {
	if err := r.ClearBytes(4); err != nil { // size, patched later
		return err
	}
	if err := r.ClearBytes(4); err != nil { // request_id, patched later
		return err
	}
	if err := r.ClearBytes(4); err != nil { // client_id, always 0
		return err
	}
	return r.WriteUint32(uint32(kind))
}

// readResponseHeader consumes the 16-byte header of a response frame.
func readResponseHeader(r *Range) (header, error) {
	var h header
	var err error
	if h.size, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.requestID, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.clientID, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.kind, err = r.ReadUint32(); err != nil {
		return h, err
	}
	return h, nil
}

func writeOutpoint(r *Range, o Outpoint) error {
	if err := r.WriteBytes(o.TxID[:]); err != nil {
		return err
	}
	return r.WriteInt32(o.Index)
}

func readOutpoint(r *Range) (Outpoint, error) {
	var o Outpoint
	b, err := r.ReadBytes(32)
	if err != nil {
		return o, err
	}
	copy(o.TxID[:], b)
	o.Index, err = r.ReadInt32()
	return o, err
}

func writeBlockID(r *Range, id BlockID) error { return r.WriteBytes(id[:]) }

func readBlockID(r *Range) (BlockID, error) {
	var id BlockID
	b, err := r.ReadBytes(32)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

func writeUCID(r *Range, id UCID) error { return r.WriteBytes(id[:]) }

func readUCID(r *Range) (UCID, error) {
	var id UCID
	b, err := r.ReadBytes(16)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}
