package tts_test

import (
	"testing"

	"github.com/book-expert/doubao-tts-service/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoices(t *testing.T) {
	t.Parallel()

	voices := tts.Voices()
	require.Len(t, voices, 12)
	assert.Equal(t, tts.DefaultVoice, voices[0].DisplayName)

	// The returned slice is a copy.
	voices[0].VoiceType = "changed"
	assert.Equal(t, "zh_female_vv_uranus_bigtts", tts.Voices()[0].VoiceType)
}

func TestResolveVoice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		wantType    string
		wantDisplay string
	}{
		{name: "display name", input: "知性灿灿 (角色扮演-女声)", wantType: "saturn_zh_female_cancan_tob", wantDisplay: "知性灿灿 (角色扮演-女声)"},
		{name: "catalogued voice type", input: "zh_female_mizai_saturn_bigtts", wantType: "zh_female_mizai_saturn_bigtts", wantDisplay: "黑猫侦探社咪仔 (视频配音-女声)"},
		{name: "unknown passes through", input: "en_male_custom_v2", wantType: "en_male_custom_v2", wantDisplay: "en_male_custom_v2"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			voice := tts.ResolveVoice(testCase.input)
			assert.Equal(t, testCase.wantType, voice.VoiceType)
			assert.Equal(t, testCase.wantDisplay, voice.DisplayName)
		})
	}
}

func TestValidateVoice(t *testing.T) {
	t.Parallel()

	require.NoError(t, tts.ValidateVoice(tts.DefaultVoice))
	require.NoError(t, tts.ValidateVoice("saturn_zh_male_tiancaitongzhuo_tob"))
	require.NoError(t, tts.ValidateVoice("en_male_custom_v2"))
	require.ErrorIs(t, tts.ValidateVoice("  "), tts.ErrVoiceEmpty)
	require.ErrorIs(t, tts.ValidateVoice("rm -rf /"), tts.ErrUnsupportedVoice)
}
