package kvmswitch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEscapeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		body := rapid.SliceOfN(rapid.Byte(), 0, 128).Draw(t, "body")

		escaped := Escape(body)
		for _, b := range escaped {
			require.NotEqual(t, byte(frameStart), b, "escaped output must not contain a raw start byte")
		}

		back, err := Unescape(escaped)
		require.NoError(t, err)
		require.Equal(t, body, back)
	})
}

func TestWrapFrameHasNoRawDelimitersInBody(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		body := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "body")
		frame := WrapFrame(body)

		require.Equal(t, byte(frameStart), frame[0])
		require.Equal(t, byte(frameEnd), frame[len(frame)-1])

		inner := frame[1 : len(frame)-1]
		require.Equal(t, -1, bytes.IndexByte(inner, frameStart))
		require.Equal(t, -1, bytes.IndexByte(inner, frameEnd))
	})
}

func TestUnescapeRejectsTruncatedEscape(t *testing.T) {
	_, err := Unescape([]byte{0x01, frameEsc})
	require.Error(t, err)
}

func TestHeaderRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := Header{
			Proto: byte(rapid.IntRange(0, 255).Draw(t, "proto")),
			RID:   uint16(rapid.IntRange(0, 0xFFFF).Draw(t, "rid")),
			Op:    Opcode(rapid.IntRange(0, 255).Draw(t, "op")),
			Unit:  byte(rapid.IntRange(0, 255).Draw(t, "unit")),
		}
		enc := EncodeHeader(h)
		decoded, rest, err := DecodeHeader(enc[:])
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, h, decoded)
	})
}

func TestColorCRC16StableUnderIdenticalInput(t *testing.T) {
	c := Color{R: 10, G: 20, B: 30, Brightness: 40, BlinkMS: 500}
	require.Equal(t, c.CRC16(), c.CRC16())

	other := c
	other.BlinkMS++
	require.NotEqual(t, c.CRC16(), other.CRC16())
}

func TestColorsCRC16IsCRCOfRoleCRCs(t *testing.T) {
	colors := DefaultColors()
	require.Equal(t, colors.CRC16(), colors.CRC16())

	tweaked := colors
	tweaked.Beacon.R ^= 0xFF
	require.NotEqual(t, colors.CRC16(), tweaked.CRC16())
}

func TestEdidValidity(t *testing.T) {
	invalid := Edid{Name: "blank", Data: make([]byte, 256)}
	require.False(t, invalid.Valid())

	data := make([]byte, 256)
	copy(data, []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00})
	valid := Edid{Name: "real", Data: data}
	require.True(t, valid.Valid())
	require.Len(t, valid.Packed(), edidWireSize)
}

func TestEdidsAssignAndRemove(t *testing.T) {
	e := NewEdids()
	id := e.Add(Edid{Name: "HD"})
	e.Assign(0, id)
	require.Equal(t, id, e.IDForPort(0))

	e.Remove(id)
	require.Equal(t, DefaultEdidID, e.IDForPort(0))
}

func TestUnitStateDecodeRejectsShortBody(t *testing.T) {
	_, err := DecodeUnitState(make([]byte, 10))
	require.Error(t, err)
}

func TestUnitStateDecodesChannelAndFlags(t *testing.T) {
	body := make([]byte, unitStateWireSize)
	body[4] = 0x02 // has_downlink bit
	body[6] = 2    // ch

	state, err := DecodeUnitState(body)
	require.NoError(t, err)
	require.Equal(t, byte(2), state.Ch)
	require.True(t, state.Flags.HasDownlink)
	require.False(t, state.Flags.ChangingBusy)
}

func TestVirtualPortAndRealUnitChannelRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unit := rapid.IntRange(0, 15).Draw(t, "unit")
		ch := rapid.IntRange(0, NumChannels-1).Draw(t, "ch")

		port := VirtualPort(unit, ch)
		gotUnit, gotCh := RealUnitChannel(port)
		require.Equal(t, unit, gotUnit)
		require.Equal(t, ch, gotCh)
	})
}

func TestUnitTargetChannelPicksDownlinkForOtherUnits(t *testing.T) {
	require.Equal(t, 2, UnitTargetChannel(0, VirtualPort(0, 2)))
	require.Equal(t, NumChannels, UnitTargetChannel(0, VirtualPort(1, 2)))
}

func TestUnitContextCanBeChangedExpiresAfterDeadline(t *testing.T) {
	u := newUnitContext()
	u.State = &UnitState{}
	require.True(t, u.CanBeChanged())

	u.SetChangingRID(7)
	require.False(t, u.CanBeChanged())
	require.Equal(t, int32(7), u.ChangingRID())

	u.changingDeadline = u.changingDeadline.Add(-2 * changingDeadline)
	require.Equal(t, int32(-1), u.ChangingRID())
	require.True(t, u.CanBeChanged())
}

func TestUnitContextIsATXAllowed(t *testing.T) {
	u := newUnitContext()
	allowed, _ := u.IsATXAllowed(0)
	require.False(t, allowed, "no state yet means no click allowed")

	state := UnitState{}
	state.ATXBusy[0] = true
	leds := UnitAtxLeds{}
	leds.Power[0] = true
	u.State = &state
	u.ATXLeds = &leds

	allowed, powered := u.IsATXAllowed(0)
	require.False(t, allowed)
	require.True(t, powered)

	state.ATXBusy[0] = false
	allowed, _ = u.IsATXAllowed(0)
	require.True(t, allowed)
}

func TestStateCacheTracksChangedSubtrees(t *testing.T) {
	cache := NewStateCache(nil)
	cache.ApplyUnitState(0, UnitState{Ch: 1})

	mask := cache.Poll()
	require.NotZero(t, mask&SubtreeSummary)

	require.Zero(t, cache.Poll(), "mask clears after being polled")
}

func TestStateCacheSummarySnapshot(t *testing.T) {
	cache := NewStateCache(nil)
	cache.ApplyUnitState(0, UnitState{Ch: 3, Flags: UnitFlags{ChangingBusy: true}})
	cache.SetActivePort(3)

	units, active := cache.Summary()
	require.Equal(t, 3, active)
	require.True(t, units[0].Busy)
	require.Equal(t, byte(3), units[0].Ch)
}

type fakeStore struct{ values map[string]any }

func (f *fakeStore) Set(key string, value any) error {
	f.values[key] = value
	return nil
}

func TestStateCachePersistsAfterQuiescence(t *testing.T) {
	store := &fakeStore{values: map[string]any{}}
	cache := NewStateCache(store)
	cache.SetActivePort(5)

	cache.flush()
	require.Equal(t, 5, store.values["switch.active_port"])
}
