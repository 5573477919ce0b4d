package tts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultVoice is used when neither the request nor the configuration names one.
const DefaultVoice = "vivi (通用场景，可配英语)"

var (
	// ErrVoiceEmpty indicates that the voice is empty.
	ErrVoiceEmpty = errors.New("voice cannot be empty")
	// ErrUnsupportedVoice indicates a voice that is neither a catalogue name
	// nor a well-formed voice type.
	ErrUnsupportedVoice = errors.New("unsupported voice")
)

// Voice pairs the name shown to people with the voice_type the service expects.
type Voice struct {
	DisplayName string `json:"display_name"`
	VoiceType   string `json:"voice_type"`
}

var catalogue = []Voice{
	{DisplayName: "vivi (通用场景，可配英语)", VoiceType: "zh_female_vv_uranus_bigtts"},
	{DisplayName: "大壹 (视频配音-男声)", VoiceType: "zh_male_dayi_saturn_bigtts"},
	{DisplayName: "黑猫侦探社咪仔 (视频配音-女声)", VoiceType: "zh_female_mizai_saturn_bigtts"},
	{DisplayName: "鸡汤女 (视频配音-女声)", VoiceType: "zh_female_jitangnv_saturn_bigtts"},
	{DisplayName: "魅力女友 (视频配音-女声)", VoiceType: "zh_female_meilinvyou_saturn_bigtts"},
	{DisplayName: "流畅女声 (视频配音-女声)", VoiceType: "zh_female_santongyongns_saturn_bigtts"},
	{DisplayName: "儒雅逸辰 (视频配音-男声)", VoiceType: "zh_male_ruyayichen_saturn_bigtts"},
	{DisplayName: "可爱女生 (角色扮演-女声)", VoiceType: "saturn_zh_female_keainvsheng_tob"},
	{DisplayName: "调皮公主 (角色扮演-女声)", VoiceType: "saturn_zh_female_tiaopigongzhu_tob"},
	{DisplayName: "爽朗少年 (角色扮演-男声)", VoiceType: "saturn_zh_male_shuanglangshaonian_tob"},
	{DisplayName: "天才同桌 (角色扮演-男声)", VoiceType: "saturn_zh_male_tiancaitongzhuo_tob"},
	{DisplayName: "知性灿灿 (角色扮演-女声)", VoiceType: "saturn_zh_female_cancan_tob"},
}

var voiceTypePattern = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)

// Voices returns the catalogue in display order.
func Voices() []Voice {
	return append([]Voice(nil), catalogue...)
}

// ResolveVoice maps a display name to its voice. A name that is already a
// catalogued voice_type resolves to that entry; anything else passes through
// unchanged as a raw voice_type.
func ResolveVoice(name string) Voice {
	for _, voice := range catalogue {
		if voice.DisplayName == name || voice.VoiceType == name {
			return voice
		}
	}

	return Voice{DisplayName: name, VoiceType: name}
}

// ValidateVoice accepts catalogue names and well-formed raw voice types.
func ValidateVoice(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrVoiceEmpty
	}

	for _, voice := range catalogue {
		if voice.DisplayName == name || voice.VoiceType == name {
			return nil
		}
	}

	if !voiceTypePattern.MatchString(name) {
		return fmt.Errorf("%w: '%s'", ErrUnsupportedVoice, name)
	}

	return nil
}
