package speech

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestService(synth Synthesizer) *Service {
	cache := NewAudioCache(100, time.Hour)
	bridge := NewBridge(synth, time.Second, zerolog.Nop())
	return NewService(cache, bridge, zerolog.Nop())
}

func TestCacheKeyDeterministic(t *testing.T) {
	k1 := CacheKey("xin chào", LangVietnamese, "+15%")
	k2 := CacheKey("xin chào", LangVietnamese, "+15%")
	if k1 != k2 {
		t.Errorf("CacheKey() not deterministic: %s != %s", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("CacheKey() length = %d, want 64", len(k1))
	}
}

func TestCacheKeyDistinguishesInputs(t *testing.T) {
	base := CacheKey("hello", LangEnglish, "+0%")
	if CacheKey("hello!", LangEnglish, "+0%") == base {
		t.Error("CacheKey() ignored text")
	}
	if CacheKey("hello", LangVietnamese, "+0%") == base {
		t.Error("CacheKey() ignored language")
	}
	if CacheKey("hello", LangEnglish, "+15%") == base {
		t.Error("CacheKey() ignored rate")
	}
}

func TestSpeakCachesSynthesizedAudio(t *testing.T) {
	synth := &stubSynth{data: []byte("audio")}
	svc := newTestService(synth)
	voices := DefaultVoiceConfig()

	for i := 0; i < 3; i++ {
		data, err := svc.Speak(context.Background(), "hello there", LangEnglish, voices)
		if err != nil {
			t.Fatalf("Speak() error = %v", err)
		}
		if string(data) != "audio" {
			t.Errorf("Speak() = %q, want %q", data, "audio")
		}
	}

	if synth.callCount() != 1 {
		t.Errorf("engine calls = %d, want 1 (warm cache must short-circuit)", synth.callCount())
	}
}

func TestSpeakPropagatesEngineError(t *testing.T) {
	synth := &stubSynth{err: ErrNoAudio}
	svc := newTestService(synth)

	if _, err := svc.Speak(context.Background(), "quiet", LangEnglish, DefaultVoiceConfig()); err == nil {
		t.Error("Speak() expected error from engine")
	}
	if svc.Cache().Len() != 0 {
		t.Error("failed synthesis must not populate the cache")
	}
}

func TestPrefetchWarmsAllSegments(t *testing.T) {
	synth := &stubSynth{data: []byte("audio")}
	cache := NewAudioCache(100, time.Hour)
	bridge := NewBridge(synth, time.Second, zerolog.Nop())
	svc := NewService(cache, bridge, zerolog.Nop())

	reply := "[Vietsub] xin chào các bạn [Engsub] hello everyone [Actions] a|b"
	svc.prefetch(context.Background(), reply, DefaultVoiceConfig())

	viKey := CacheKey("xin chào các bạn", LangVietnamese, RateVietnamese)
	enKey := CacheKey("hello everyone", LangEnglish, RateEnglish)

	if _, ok := cache.Get(viKey); !ok {
		t.Error("vietnamese segment not cached under its language rate")
	}
	if _, ok := cache.Get(enKey); !ok {
		t.Error("english segment not cached under its language rate")
	}
	if synth.callCount() != 2 {
		t.Errorf("engine calls = %d, want 2", synth.callCount())
	}
}

func TestPrefetchSkipsWarmSegments(t *testing.T) {
	synth := &stubSynth{data: []byte("audio")}
	cache := NewAudioCache(100, time.Hour)
	bridge := NewBridge(synth, time.Second, zerolog.Nop())
	svc := NewService(cache, bridge, zerolog.Nop())

	cache.Set(CacheKey("hello everyone", LangEnglish, RateEnglish), []byte("warm"))

	svc.prefetch(context.Background(), "[Engsub] hello everyone", DefaultVoiceConfig())

	if synth.callCount() != 0 {
		t.Errorf("engine calls = %d, want 0 for warm segment", synth.callCount())
	}
}

func TestPrefetchSegmentFailuresAreIndependent(t *testing.T) {
	synth := &flakySynth{failOn: "xin chào các bạn"}
	cache := NewAudioCache(100, time.Hour)
	bridge := NewBridge(synth, time.Second, zerolog.Nop())
	svc := NewService(cache, bridge, zerolog.Nop())

	reply := "[Vietsub] xin chào các bạn [Engsub] hello everyone"
	svc.prefetch(context.Background(), reply, DefaultVoiceConfig())

	if _, ok := cache.Get(CacheKey("hello everyone", LangEnglish, RateEnglish)); !ok {
		t.Error("segment after a failing one was not synthesized")
	}
}

type flakySynth struct {
	failOn string
}

func (f *flakySynth) Synthesize(ctx context.Context, text, voiceID, rate string) ([]byte, error) {
	if text == f.failOn {
		return nil, ErrNoAudio
	}
	return []byte("audio"), nil
}
