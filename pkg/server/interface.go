/*
Package server implements msgpack IPC for the keylex lookup services.

The server speaks binary msgpack over stdin/stdout. A keyboard frontend
keeps one keylex process alive and streams request objects in; the server
answers each with exactly one response object, synchronously and in order.
Messages carry no outer framing: msgpack objects are self-delimiting, so
both sides simply decode the stream.

Each request is a single envelope with an op discriminator:

	{"id": "req_001", "op": "predict", "ctx": "我 想 食", "l": 5}
	{"id": "req_002", "op": "complete", "p": "ame", "l": 24}
	{"id": "req_003", "op": "define", "word": "amenity"}
	{"id": "req_004", "op": "unihan", "cp": 0x4E00}
	{"id": "req_005", "op": "health"}

Responses echo the request id and carry elapsed time in microseconds:

	{"id": "req_002", "s": [{"w": "amenity", "r": 1, "f": 120}], "c": 1, "t": 145}

An unknown op or invalid payload produces an error response with the same
id, never a crash. Ops whose backing data was not loaded at startup answer
with code 503, so a frontend can probe capabilities through health or just
try.

The hot ops, predict and complete, use single-letter field tags to keep
per-keystroke messages small. Lookup ops use readable tags; they run at
human speed.
*/
package server

// Request is the single envelope for all client messages. Only the fields
// named by the op need to be set.
type Request struct {
	ID        string `msgpack:"id"`
	Op        string `msgpack:"op"`
	Context   string `msgpack:"ctx,omitempty"`  // predict: typed context
	Prefix    string `msgpack:"p,omitempty"`    // complete: typed prefix
	Word      string `msgpack:"word,omitempty"` // define: exact word
	Codepoint uint32 `msgpack:"cp,omitempty"`   // unihan: code point
	Char      string `msgpack:"char,omitempty"` // unihan: first rune, alternative to cp
	Limit     int    `msgpack:"l,omitempty"`
}

// PredictionItem is one ranked next-word candidate.
type PredictionItem struct {
	Token string `msgpack:"w"`
	Score int    `msgpack:"f"`
	Rank  uint16 `msgpack:"r"`
}

// PredictResponse answers a predict op.
type PredictResponse struct {
	ID          string           `msgpack:"id"`
	Predictions []PredictionItem `msgpack:"s"`
	Count       int              `msgpack:"c"`
	TimeTaken   int64            `msgpack:"t"`
}

// CompletionSuggestion is one ranked prefix completion.
type CompletionSuggestion struct {
	Word      string `msgpack:"w"`
	Rank      uint16 `msgpack:"r"`
	Frequency int    `msgpack:"f,omitempty"`
}

// CompletionResponse answers a complete op. When the prefix completed to
// nothing and the typo corrector stepped in, WasCorrected is set and
// CorrectedPrefix names the word the suggestions were drawn from.
type CompletionResponse struct {
	ID              string                 `msgpack:"id"`
	Suggestions     []CompletionSuggestion `msgpack:"s"`
	Count           int                    `msgpack:"c"`
	TimeTaken       int64                  `msgpack:"t"`
	WasCorrected    bool                   `msgpack:"wc,omitempty"`
	CorrectedPrefix string                 `msgpack:"cw,omitempty"`
}

// DefineResponse answers a define op. A word that is not in the store is
// Found false, not an error.
type DefineResponse struct {
	ID         string `msgpack:"id"`
	Word       string `msgpack:"word"`
	Definition string `msgpack:"def,omitempty"`
	Found      bool   `msgpack:"found"`
	TimeTaken  int64  `msgpack:"t"`
}

// UnihanResponse answers a unihan op. An unassigned code point is Found
// false, not an error.
type UnihanResponse struct {
	ID            string `msgpack:"id"`
	Codepoint     uint32 `msgpack:"cp"`
	Found         bool   `msgpack:"found"`
	Radical       uint8  `msgpack:"rad,omitempty"`
	RadicalStroke uint8  `msgpack:"rst,omitempty"`
	TotalStroke   uint8  `msgpack:"tst,omitempty"`
	Simplified    bool   `msgpack:"simp,omitempty"`
	TimeTaken     int64  `msgpack:"t"`
}

// HealthResponse answers a health op and doubles as the ready signal sent
// once at startup. The booleans report which surfaces were loaded.
type HealthResponse struct {
	ID       string `msgpack:"id,omitempty"`
	Status   string `msgpack:"status"`
	Predict  bool   `msgpack:"predict"`
	Complete bool   `msgpack:"complete"`
	Define   bool   `msgpack:"define"`
	Unihan   bool   `msgpack:"unihan"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
