package server

import (
	"bytes"
	"context"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/pkg/config"
	"github.com/bastiangx/nextword/pkg/dictionary"
	"github.com/bastiangx/nextword/pkg/engine"
	"github.com/bastiangx/nextword/pkg/storage"
	"github.com/bastiangx/nextword/pkg/tokenize"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dict := dictionary.FromWords(tokenize.NewFolder("tr"), []string{"merhaba", "merak", "mektup", "nasılsın"})
	e, err := engine.New(context.Background(), engine.Options{
		KV:         storage.NewMemoryKV(),
		Dictionary: dict,
		Logger:     logger.Discard("engine"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close(context.Background()) })
	return e
}

// session runs the server over reqs and returns a decoder positioned after
// the ready message.
func session(t *testing.T, cfg config.ServerConfig, reqs ...Request) (*msgpack.Decoder, error) {
	t.Helper()
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range reqs {
		if err := enc.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	var out bytes.Buffer
	s := NewServer(newTestEngine(t), cfg, &in, &out)
	s.SetLogger(logger.Discard("server"))
	runErr := s.Start(context.Background())

	dec := msgpack.NewDecoder(&out)
	var ready map[string]string
	if err := dec.Decode(&ready); err != nil || ready["status"] != "ready" {
		t.Fatalf("expected ready message, got %v (%v)", ready, err)
	}
	return dec, runErr
}

func decode[T any](t *testing.T, dec *msgpack.Decoder) T {
	t.Helper()
	var v T
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decoding %T: %v", v, err)
	}
	return v
}

func TestPredictAndLearn(t *testing.T) {
	dec, err := session(t, config.ServerConfig{},
		Request{ID: "p1", Op: OpPredict, Text: "me"},
		Request{ID: "w1", Op: OpWord, Text: "merhaba"},
		Request{ID: "w2", Op: OpWord, Text: "nasılsın"},
		Request{ID: "b1", Op: OpBackspace},
		Request{ID: "p2", Op: OpPredict, Verbose: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := decode[PredictResponse](t, dec)
	if first.ID != "p1" || first.Count != 3 {
		t.Fatalf("unexpected response %+v", first)
	}
	for i, s := range first.Suggestions {
		if int(s.Rank) != i+1 {
			t.Errorf("expected rank %d, got %d", i+1, s.Rank)
		}
		if s.Score != 0 || s.Sources != nil {
			t.Errorf("expected no breakdown without verbose, got %+v", s)
		}
	}

	if ack := decode[AckResponse](t, dec); ack.ID != "w1" || ack.Learned != 1 || len(ack.Context) != 1 {
		t.Errorf("unexpected ack %+v", ack)
	}
	if ack := decode[AckResponse](t, dec); len(ack.Context) != 2 || ack.Context[1] != "nasılsın" {
		t.Errorf("unexpected ack %+v", ack)
	}
	if ack := decode[AckResponse](t, dec); ack.ID != "b1" || len(ack.Context) != 1 {
		t.Errorf("expected backspace to shrink context, got %+v", ack)
	}

	next := decode[PredictResponse](t, dec)
	if next.Count != 1 || next.Suggestions[0].Word != "nasılsın" {
		t.Fatalf("expected learned successor, got %+v", next)
	}
	if next.Suggestions[0].Score != 120 || len(next.Suggestions[0].Sources) != 1 {
		t.Errorf("expected verbose bigram breakdown, got %+v", next.Suggestions[0])
	}
}

func TestRejectedRequests(t *testing.T) {
	tests := []struct {
		description string
		req         Request
		code        int
	}{
		{"Unknown op", Request{ID: "x", Op: "complete"}, 400},
		{"Missing op", Request{ID: "x"}, 400},
		{"Prefix too long", Request{ID: "x", Op: OpPredict, Text: "abcdefghijk"}, 400},
		{"Negative limit", Request{ID: "x", Op: OpPredict, Text: "me", Limit: -1}, 400},
		{"Negative age", Request{ID: "x", Op: OpMaintain, MaxAgeDays: -3}, 400},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			dec, err := session(t, config.ServerConfig{MaxPrefix: 10}, test.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp := decode[ErrorResponse](t, dec)
			if resp.ID != "x" || resp.Code != test.code || resp.Error == "" {
				t.Errorf("unexpected error response %+v", resp)
			}
		})
	}
}

func TestLimitIsClamped(t *testing.T) {
	dec, err := session(t, config.ServerConfig{MaxLimit: 2},
		Request{ID: "p", Op: OpPredict, Text: "me", Limit: 50},
	)
	if err != nil {
		t.Fatal(err)
	}
	if resp := decode[PredictResponse](t, dec); resp.Count != 2 {
		t.Errorf("expected 2 suggestions, got %+v", resp)
	}
}

func TestHousekeepingOps(t *testing.T) {
	dec, err := session(t, config.ServerConfig{},
		Request{ID: "s", Op: OpSentence, Text: "merhaba dünya nasılsın."},
		Request{ID: "st", Op: OpStats},
		Request{ID: "m", Op: OpMaintain, MaxAgeDays: 30},
		Request{ID: "c", Op: OpClear},
		Request{ID: "st2", Op: OpStats},
		Request{ID: "h", Op: OpHealth},
	)
	if err != nil {
		t.Fatal(err)
	}

	if ack := decode[AckResponse](t, dec); ack.Learned != 3 || len(ack.Context) != 0 {
		t.Errorf("unexpected sentence ack %+v", ack)
	}
	stats := decode[StatsResponse](t, dec)
	if stats.Stats.Bigrams != 2 || stats.Stats.Trigrams != 1 || stats.Stats.Unigrams != 3 {
		t.Errorf("unexpected stats %+v", stats.Stats)
	}
	if stats.Stats.DictionaryWords != 4 {
		t.Errorf("expected 4 dictionary words, got %d", stats.Stats.DictionaryWords)
	}
	if m := decode[MaintainResponse](t, dec); m.ID != "m" || m.Bigrams+m.Trigrams+m.Unigrams != 0 {
		t.Errorf("expected fresh entries to survive, got %+v", m)
	}
	if ack := decode[AckResponse](t, dec); ack.ID != "c" || ack.Status != "ok" {
		t.Errorf("unexpected clear ack %+v", ack)
	}
	if after := decode[StatsResponse](t, dec); after.Stats.Unigrams != 0 {
		t.Errorf("expected empty history after clear, got %+v", after.Stats)
	}
	if health := decode[map[string]string](t, dec); health["status"] != "ok" || health["id"] != "h" {
		t.Errorf("unexpected health %v", health)
	}
}

func TestMalformedStreamEndsSession(t *testing.T) {
	in := bytes.NewReader([]byte{0xc1})
	var out bytes.Buffer
	s := NewServer(newTestEngine(t), config.ServerConfig{}, in, &out)
	s.SetLogger(logger.Discard("server"))

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
	dec := msgpack.NewDecoder(&out)
	decode[map[string]string](t, dec)
	if resp := decode[ErrorResponse](t, dec); resp.Code != 400 {
		t.Errorf("expected 400, got %+v", resp)
	}
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewServer(newTestEngine(t), config.ServerConfig{}, bytes.NewReader(nil), &bytes.Buffer{})
	s.SetLogger(logger.Discard("server"))
	if err := s.Start(ctx); err == nil {
		t.Error("expected context error")
	}
}
