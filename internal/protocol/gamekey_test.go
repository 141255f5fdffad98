package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGameKey(t *testing.T) {
	key := "abcdefghijklmnopqrst" + "41c64e6d" + "00003039" + "7fffffff" + "5a5a5a5a" + "gamestats2"

	cfg, err := ParseGameKey(key)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnopqrst", cfg.Salt)
	assert.Equal(t, uint32(0x41C64E6D), cfg.RNGMul)
	assert.Equal(t, uint32(0x3039), cfg.RNGAdd)
	assert.Equal(t, uint32(0x7FFFFFFF), cfg.RNGMod)
	assert.Equal(t, uint32(0x5A5A5A5A), cfg.HashMask)
	assert.Equal(t, "gamestats2", cfg.GameID)
}

func TestParseGameKeyErrors(t *testing.T) {
	// Too short: salt and constants but no game ID.
	_, err := ParseGameKey("abcdefghijklmnopqrst41c64e6d000030397fffffff5a5a5a5a")
	assert.Error(t, err)

	// Non-hex constant.
	_, err = ParseGameKey("abcdefghijklmnopqrst" + "41c64ezz" + "00003039" + "7fffffff" + "5a5a5a5a" + "g")
	assert.Error(t, err)

	// Zero modulus would make the keystream divide by zero.
	_, err = ParseGameKey("abcdefghijklmnopqrst" + "41c64e6d" + "00003039" + "00000000" + "5a5a5a5a" + "g")
	assert.Error(t, err)
}

func TestGameConfigValidate(t *testing.T) {
	valid := func() *GameConfig {
		return &GameConfig{
			Salt:            "abcdefghijklmnopqrst",
			RNGMul:          1,
			RNGAdd:          1,
			RNGMod:          0x7FFFFFFF,
			GameID:          "g",
			RequestVersion:  RequestV2,
			ResponseVersion: ResponseV2,
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Salt = "short"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.RNGMod = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.GameID = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.RequestVersion = 9
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.ResponseVersion = 0
	assert.Error(t, cfg.Validate())
}

func TestVersionJSON(t *testing.T) {
	var req RequestVersion
	require.NoError(t, req.UnmarshalJSON([]byte(`"v3"`)))
	assert.Equal(t, RequestV3, req)

	out, err := RequestV2.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, string(out))

	assert.Error(t, req.UnmarshalJSON([]byte(`"v9"`)))

	var resp ResponseVersion
	require.NoError(t, resp.UnmarshalJSON([]byte(`"v1"`)))
	assert.Equal(t, ResponseV1, resp)
}
