package speech

// Language is a two letter code for a supported synthesis language.
type Language string

const (
	LangVietnamese Language = "vi"
	LangEnglish    Language = "en"
)

// Speaking rate modifiers per language. Vietnamese is sped up slightly to
// sound natural next to the English voices.
const (
	RateVietnamese = "+15%"
	RateEnglish    = "+0%"
)

// Voice describes one entry of the synthesis voice catalog.
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// AvailableVoices is the fixed catalog exposed to clients.
var AvailableVoices = map[Language][]Voice{
	LangVietnamese: {
		{ID: "vi-VN-HoaiMyNeural", Name: "Hoài My (Nữ)", Gender: "Female"},
		{ID: "vi-VN-NamMinhNeural", Name: "Nam Minh (Nam)", Gender: "Male"},
	},
	LangEnglish: {
		{ID: "en-US-JennyNeural", Name: "Jenny (Nữ - US)", Gender: "Female"},
		{ID: "en-US-GuyNeural", Name: "Guy (Nam - US)", Gender: "Male"},
		{ID: "en-US-AriaNeural", Name: "Aria (Nữ - US)", Gender: "Female"},
		{ID: "en-GB-SoniaNeural", Name: "Sonia (Nữ - UK)", Gender: "Female"},
		{ID: "en-GB-RyanNeural", Name: "Ryan (Nam - UK)", Gender: "Male"},
	},
}

var validVoiceIDs = func() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, voices := range AvailableVoices {
		for _, v := range voices {
			ids[v.ID] = struct{}{}
		}
	}
	return ids
}()

// IsValidVoiceID reports whether id belongs to the catalog.
func IsValidVoiceID(id string) bool {
	_, ok := validVoiceIDs[id]
	return ok
}

// VoiceConfig maps each supported language to the voice a user selected.
// It travels explicitly through the synthesis call chain.
type VoiceConfig struct {
	Vietnamese string `json:"vi"`
	English    string `json:"en"`
}

// DefaultVoiceConfig returns the catalog defaults.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		Vietnamese: "vi-VN-HoaiMyNeural",
		English:    "en-US-JennyNeural",
	}
}

// VoiceFor resolves the configured voice for lang, falling back to the
// default when the config slot is empty.
func (c VoiceConfig) VoiceFor(lang Language) string {
	defaults := DefaultVoiceConfig()
	switch lang {
	case LangVietnamese:
		if c.Vietnamese != "" {
			return c.Vietnamese
		}
		return defaults.Vietnamese
	default:
		if c.English != "" {
			return c.English
		}
		return defaults.English
	}
}

// RateFor returns the fixed speaking rate modifier for lang.
func RateFor(lang Language) string {
	if lang == LangVietnamese {
		return RateVietnamese
	}
	return RateEnglish
}

// NormalizeLanguage coerces arbitrary client input to a supported language,
// defaulting to Vietnamese.
func NormalizeLanguage(s string) Language {
	if s == string(LangEnglish) {
		return LangEnglish
	}
	return LangVietnamese
}
