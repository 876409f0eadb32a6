package core

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/Lokad/Terab/internal/testutil"
)

func TestClassifyCoin(t *testing.T) {
	cases := []struct {
		name    string
		coin    Coin
		want    requestKind
		wantErr bool
	}{
		{"produce", Coin{Production: 1, ScriptLength: 1}, kindProduceCoinRequest, false},
		{"produce takes precedence over consume", Coin{Production: 1, Consumption: 2, ScriptLength: 1}, kindProduceCoinRequest, false},
		{"consume", Coin{Consumption: 2}, kindConsumeCoinRequest, false},
		{"remove", Coin{}, kindRemoveCoinRequest, false},
		{"negative script offset aborts", Coin{Production: 1, ScriptLength: 1, ScriptOffset: -1}, 0, true},
		{"produce with non-positive script length aborts", Coin{Production: 1, ScriptLength: 0}, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := classifyCoin(tc.coin)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("classifyCoin: expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("classifyCoin: %v", err)
			}
			if got != tc.want {
				t.Fatalf("classifyCoin = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetCoinsAppliesPerCoinStatus(t *testing.T) {
	srv := testutil.NewServer(t)
	defer srv.Close()

	go srv.Serve(func(frame []byte) []byte {
		kind := testutil.FrameKind(frame)
		reqID := testutil.FrameRequestID(frame)
		var status byte
		if kind == uint32(kindConsumeCoinRequest) {
			status = 1 // outpoint not found
		}
		return testutil.BuildFrame(reqID, 0, responseKindFor(kind), []byte{status})
	})

	conn := mustOpenConnection(t, srv.Addr())
	defer conn.Close()

	script := []byte("deadbeef")
	storage := script

	coins := []Coin{
		{Production: 5, ScriptOffset: 0, ScriptLength: int32(len(script))}, // produce
		{Consumption: 9},                                                  // consume, server says not found
		{},                                                                // remove
	}
	if err := conn.SetCoins(BlockHandle(42), coins, storage); err != nil {
		t.Fatalf("SetCoins: %v", err)
	}

	if coins[0].Status != CoinStatusSuccess {
		t.Fatalf("coins[0].Status = %d, want success", coins[0].Status)
	}
	if coins[1].Status != CoinStatusOutpointNotFound {
		t.Fatalf("coins[1].Status = %d, want outpoint not found", coins[1].Status)
	}
	if coins[2].Status != CoinStatusSuccess {
		t.Fatalf("coins[2].Status = %d, want success", coins[2].Status)
	}
}

func responseKindFor(kind uint32) uint32 { return kind + 1 }

func TestGetCoinsDemultiplexesOutOfOrderResponses(t *testing.T) {
	srv := testutil.NewServer(t)
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := srv.AcceptRaw()
		if err != nil {
			return
		}
		defer conn.Close()

		frames := make([][]byte, 3)
		for i := range frames {
			frames[i] = readOneFrame(conn)
		}

		// Reply out of order: 2, 0, 1.
		order := []int{2, 0, 1}
		scripts := [][]byte{
			[]byte("short"),
			[]byte("also-short"),
			[]byte("this-script-does-not-fit-storage"),
		}
		for _, i := range order {
			reqID := testutil.FrameRequestID(frames[i])
			outpoint := Outpoint{Index: int32(i)}
			body := buildGetCoinResponseBody(0, outpoint, 0, uint32(100+i), uint32(200+i), uint64(1000+i), 0, scripts[i])
			conn.Write(testutil.BuildFrame(reqID, 0, uint32(kindGetCoinResponse), body))
		}
	}()

	conn := mustOpenConnection(t, srv.Addr())
	defer conn.Close()

	coins := []Coin{{Outpoint: Outpoint{Index: 0}}, {Outpoint: Outpoint{Index: 1}}, {Outpoint: Outpoint{Index: 2}}}
	storage := make([]byte, 20) // large enough for the first two scripts, not the third

	if err := conn.GetCoins(BlockHandle(1), coins, storage); err != nil {
		t.Fatalf("GetCoins: %v", err)
	}
	<-done

	for i, c := range coins {
		if c.Production != BlockHandle(100+i) {
			t.Fatalf("coins[%d].Production = %d, want %d", i, c.Production, 100+i)
		}
		if c.Consumption != BlockHandle(200+i) {
			t.Fatalf("coins[%d].Consumption = %d, want %d", i, c.Consumption, 200+i)
		}
	}

	if coins[0].Status&CoinStatusStorageTooShort != 0 {
		t.Fatalf("coins[0] should have fit in storage")
	}
	if coins[1].Status&CoinStatusStorageTooShort != 0 {
		t.Fatalf("coins[1] should have fit in storage")
	}
	if coins[2].Status&CoinStatusStorageTooShort == 0 {
		t.Fatalf("coins[2] should have been flagged storage too short")
	}

	// Offsets are assigned in coin order, not arrival order, each one the
	// sum of the earlier scripts' lengths; the coin whose script did not fit
	// still gets its offset.
	if coins[0].ScriptOffset != 0 {
		t.Fatalf("coins[0].ScriptOffset = %d, want 0", coins[0].ScriptOffset)
	}
	if coins[1].ScriptOffset != int32(len(scripts[0])) {
		t.Fatalf("coins[1].ScriptOffset = %d, want %d", coins[1].ScriptOffset, len(scripts[0]))
	}
	wantOffset2 := int32(len(scripts[0]) + len(scripts[1]))
	if coins[2].ScriptOffset != wantOffset2 {
		t.Fatalf("coins[2].ScriptOffset = %d, want %d", coins[2].ScriptOffset, wantOffset2)
	}
}

// buildGetCoinResponseBody encodes a get_coin_response body in the real
// wire order: status, outpoint, flags, context, production, consumption,
// satoshis, nLockTime, then the script bytes verbatim. There is no explicit
// script-length field — testutil.BuildFrame derives the frame's size field
// from 16+len(body), and the client recovers scriptLength the same way the
// server encoded it: from the frame size.
func buildGetCoinResponseBody(status byte, outpoint Outpoint, flags byte, production, consumption uint32, satoshis uint64, nLockTime uint32, script []byte) []byte {
	body := make([]byte, 0, 1+36+1+4+4+4+8+4+len(script))
	body = append(body, status)
	body = append(body, outpoint.TxID[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], uint32(outpoint.Index))
	body = append(body, idx[:]...)
	body = append(body, flags)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], 0) // context, unused by the client
	body = append(body, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], production)
	body = append(body, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], consumption)
	body = append(body, u32[:]...)
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], satoshis)
	body = append(body, u64[:]...)
	binary.LittleEndian.PutUint32(u32[:], nLockTime)
	body = append(body, u32[:]...)
	body = append(body, script...)
	return body
}

func readOneFrame(r io.Reader) []byte {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil
	}
	size := binary.LittleEndian.Uint32(lenBuf[:])
	frame := make([]byte, size)
	copy(frame, lenBuf[:])
	io.ReadFull(r, frame[4:])
	return frame
}
