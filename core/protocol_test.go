package core

import (
	"testing"

	"github.com/Lokad/Terab/internal/testutil"
)

func TestCommitBlockStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		wireStatus byte
		wantErr    StatusCode
		wantOK     bool
	}{
		{"success", 0, StatusSuccess, true},
		{"block not found", 1, StatusBlockUnknown, false},
		{"block id mismatch", 2, StatusBlockCommitted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := testutil.NewServer(t)
			defer srv.Close()
			go srv.Serve(func(frame []byte) []byte {
				reqID := testutil.FrameRequestID(frame)
				return testutil.BuildFrame(reqID, 0, uint32(kindCommitBlockResponse), []byte{tc.wireStatus})
			})

			conn := mustOpenConnection(t, srv.Addr())
			defer conn.Close()

			err := conn.CommitBlock(BlockHandle(1), BlockID{})
			if tc.wantOK {
				if err != nil {
					t.Fatalf("CommitBlock: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if got := StatusOf(err); got != tc.wantErr {
				t.Fatalf("StatusOf = %v, want %v", got, tc.wantErr)
			}
		})
	}
}

func TestGetBlockInfoDecodesFlags(t *testing.T) {
	srv := testutil.NewServer(t)
	defer srv.Close()

	var blockID BlockID
	for i := range blockID {
		blockID[i] = byte(i)
	}

	go srv.Serve(func(frame []byte) []byte {
		reqID := testutil.FrameRequestID(frame)
		body := make([]byte, 0, 32+16+4+4+4+1)
		body = append(body, blockID[:]...)
		body = append(body, make([]byte, 16)...) // block_ucid, unused
		body = append(body, 0, 0, 0, 0)           // echoed handle
		body = append(body, 7, 0, 0, 0)           // parent = 7
		body = append(body, 100, 0, 0, 0)         // block_height = 100
		body = append(body, 1)                    // is_committed = true
		return testutil.BuildFrame(reqID, 0, uint32(kindGetBlockInfoResponse), body)
	})

	conn := mustOpenConnection(t, srv.Addr())
	defer conn.Close()

	info, err := conn.GetBlockInfo(BlockHandle(42))
	if err != nil {
		t.Fatalf("GetBlockInfo: %v", err)
	}
	if info.Parent != 7 {
		t.Fatalf("Parent = %d, want 7", info.Parent)
	}
	if info.BlockHeight != 100 {
		t.Fatalf("BlockHeight = %d, want 100", info.BlockHeight)
	}
	if info.Flags&BlockFlagCommitted == 0 {
		t.Fatalf("expected BlockFlagCommitted to be set")
	}
	if info.BlockID != blockID {
		t.Fatalf("BlockID = %v, want %v", info.BlockID, blockID)
	}
}

func TestAuthenticateFailure(t *testing.T) {
	srv := testutil.NewServer(t)
	defer srv.Close()
	go srv.Serve(func(frame []byte) []byte {
		reqID := testutil.FrameRequestID(frame)
		return testutil.BuildFrame(reqID, 0, uint32(kindAuthenticateResponse), []byte{1})
	})

	conn := mustOpenConnection(t, srv.Addr())
	defer conn.Close()

	err := conn.Authenticate([]byte("bad-credential"))
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if got := StatusOf(err); got != StatusAuthenticationFailed {
		t.Fatalf("StatusOf = %v, want StatusAuthenticationFailed", got)
	}
}

func TestSendSimplePoisonsOnWrongResponseKind(t *testing.T) {
	srv := testutil.NewServer(t)
	defer srv.Close()
	go srv.Serve(func(frame []byte) []byte {
		reqID := testutil.FrameRequestID(frame)
		// Respond with the wrong kind entirely.
		return testutil.BuildFrame(reqID, 0, uint32(kindCommitBlockResponse), []byte{0})
	})

	conn := mustOpenConnection(t, srv.Addr())
	defer conn.Close()

	if err := conn.Authenticate([]byte("x")); err == nil {
		t.Fatalf("expected error for mismatched response kind, got nil")
	}
	if conn.state != statePoisoned {
		t.Fatalf("state = %v, want poisoned", conn.state)
	}
}
