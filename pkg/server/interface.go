/*
Package server implements msgpack IPC for the prediction engine.

Clients write a stream of msgpack encoded requests to stdin and read one
msgpack response per request from stdout. Logs go to stderr so they never
interleave with the protocol.

# IPC

Every request carries an ID, echoed back in its response, and an op:

	{"id": "req_001", "op": "predict", "p": "mer", "l": 5}

Prediction responses list words best first with 1-based ranks:

	{"id": "req_001", "s": [{"w": "merhaba", "r": 1}, {"w": "merak", "r": 2}], "c": 2, "t": 85}

An empty "p" asks for the next word from the session context alone.
Setting "v" adds each suggestion's score and per tier breakdown.

Learning events feed the session and return the context after the update:

	{"id": "w1", "op": "word", "p": "merhaba"}
	{"id": "s1", "op": "sentence", "p": "merhaba nasılsın?"}
	{"id": "b1", "op": "backspace"}

Other ops: "clear" wipes learned history, "stats" reports table sizes,
"maintain" prunes stale entries ("days" overrides the configured age) and
"health" answers with status ok.

# Message Types

Request is the single inbound message. PredictResponse, AckResponse,
StatsResponse and MaintainResponse are the successful replies and
ErrorResponse reports a rejected request with an HTTP-like code.
*/
package server

import (
	"github.com/bastiangx/nextword/pkg/engine"
	"github.com/bastiangx/nextword/pkg/predict"
)

// Ops understood by the server.
const (
	OpPredict   = "predict"
	OpWord      = "word"
	OpSentence  = "sentence"
	OpBackspace = "backspace"
	OpClear     = "clear"
	OpStats     = "stats"
	OpMaintain  = "maintain"
	OpHealth    = "health"
)

// Request - any inbound message
type Request struct {
	ID         string `msgpack:"id"`
	Op         string `msgpack:"op"`
	Text       string `msgpack:"p,omitempty"`
	Limit      int    `msgpack:"l,omitempty"`
	MaxAgeDays int    `msgpack:"days,omitempty"`
	Verbose    bool   `msgpack:"v,omitempty"`
}

// Suggestion - one ranked word
type Suggestion struct {
	Word    string                 `msgpack:"w"`
	Rank    uint16                 `msgpack:"r"`
	Score   int                    `msgpack:"sc,omitempty"`
	Sources []predict.Contribution `msgpack:"src,omitempty"`
}

// PredictResponse - prediction results, TimeTaken in microseconds
type PredictResponse struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
}

// AckResponse - reply to learning and housekeeping ops
type AckResponse struct {
	ID      string   `msgpack:"id"`
	Status  string   `msgpack:"status"`
	Learned int      `msgpack:"n,omitempty"`
	Context []string `msgpack:"ctx,omitempty"`
}

// StatsResponse - engine statistics
type StatsResponse struct {
	ID     string       `msgpack:"id"`
	Status string       `msgpack:"status"`
	Stats  engine.Stats `msgpack:"stats"`
}

// MaintainResponse - pruning counts
type MaintainResponse struct {
	ID       string `msgpack:"id"`
	Status   string `msgpack:"status"`
	Bigrams  int    `msgpack:"bigrams"`
	Trigrams int    `msgpack:"trigrams"`
	Unigrams int    `msgpack:"unigrams"`
}

// ErrorResponse holds basic error information for a rejected request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
