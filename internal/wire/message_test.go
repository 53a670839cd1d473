package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventFrame(t *testing.T) {
	raw := []byte(`["EVENT", {"id":"abc","pubkey":"deadbeef","created_at":1000,"kind":1,"tags":[["e","ref1"]],"content":"hi","sig":"x"}]`)
	f, err := DecodeClientFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, EventFrame, f.Kind)
	require.NotNil(t, f.Event)
	assert.Equal(t, "abc", f.Event.ID)
	assert.Equal(t, int64(1), f.Event.Kind)

	view := f.Event.View()
	assert.True(t, view.Tags.Exists('e'))
	assert.Equal(t, "ref1", view.Tags.Value('e'))
}

func TestDecodeReqFrameCollectsFilterKinds(t *testing.T) {
	raw := []byte(`["REQ", "sub1", {"kinds":[1,6]}, {"kinds":[7]}]`)
	f, err := DecodeClientFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, ReqFrame, f.Kind)
	assert.Equal(t, "sub1", f.SubID)
	assert.ElementsMatch(t, []int64{1, 6, 7}, f.FilterKinds)
}

func TestDecodeCloseFrame(t *testing.T) {
	raw := []byte(`["CLOSE", "sub1"]`)
	f, err := DecodeClientFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, CloseFrame, f.Kind)
	assert.Equal(t, "sub1", f.SubID)
}

func TestDecodeUnknownFrameIsNotAnError(t *testing.T) {
	raw := []byte(`["AUTH", "challenge"]`)
	f, err := DecodeClientFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, UnknownFrame, f.Kind)
}

func TestDecodeMalformedFrame(t *testing.T) {
	_, err := DecodeClientFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeOK(t *testing.T) {
	b := EncodeOK("abc", false, "filter_rule")
	assert.JSONEq(t, `["OK","abc",false,"filter_rule"]`, string(b))
}

func TestIsKind1Event(t *testing.T) {
	raw := []byte(`["EVENT", "sub1", {"id":"e1","pubkey":"deadbeef","created_at":500,"kind":1,"tags":[],"content":"","sig":"x"}]`)
	ev, ok := IsKind1Event(raw)
	require.True(t, ok)
	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, int64(500), ev.CreatedAt)

	rawKind6 := []byte(`["EVENT", "sub1", {"id":"e2","kind":6}]`)
	_, ok = IsKind1Event(rawKind6)
	assert.False(t, ok)
}
