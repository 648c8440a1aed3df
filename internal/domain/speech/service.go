package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"
)

// CacheKey digests (text, language, rate) into the cache key for one clip.
func CacheKey(text string, lang Language, rate string) string {
	sum := sha256.Sum256([]byte(text + "|" + string(lang) + "|" + rate))
	return hex.EncodeToString(sum[:])
}

// Service is the synthesis front door: it resolves voices and rates, serves
// warm audio from the cache, and owns the background prefetcher.
type Service struct {
	cache  *AudioCache
	bridge *Bridge
	log    zerolog.Logger
}

// NewService wires the cache and bridge together.
func NewService(cache *AudioCache, bridge *Bridge, log zerolog.Logger) *Service {
	return &Service{cache: cache, bridge: bridge, log: log}
}

// Cache exposes the underlying audio cache.
func (s *Service) Cache() *AudioCache {
	return s.cache
}

// Speak returns audio for one already-cleaned utterance, synthesizing on a
// cache miss and storing the result.
func (s *Service) Speak(ctx context.Context, text string, lang Language, voices VoiceConfig) ([]byte, error) {
	rate := RateFor(lang)
	key := CacheKey(text, lang, rate)

	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	data, err := s.bridge.Synthesize(ctx, text, voices.VoiceFor(lang), rate)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, data)
	return data, nil
}

// Prefetch warms the cache for every language segment of a finished
// assistant reply. It runs detached from the calling request; failures are
// logged per segment and never surface to the caller.
func (s *Service) Prefetch(ctx context.Context, reply string, voices VoiceConfig) {
	go s.prefetch(context.WithoutCancel(ctx), reply, voices)
}

func (s *Service) prefetch(ctx context.Context, reply string, voices VoiceConfig) {
	for _, seg := range SplitByLanguage(reply) {
		rate := RateFor(seg.Lang)
		key := CacheKey(seg.Text, seg.Lang, rate)

		if _, ok := s.cache.Get(key); ok {
			continue
		}

		data, err := s.bridge.Synthesize(ctx, seg.Text, voices.VoiceFor(seg.Lang), rate)
		if err != nil {
			s.log.Warn().Err(err).Str("lang", string(seg.Lang)).Msg("prefetch segment failed")
			continue
		}
		s.cache.Set(key, data)
	}
}
