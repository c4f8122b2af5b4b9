package scoutrag

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// MaxInputChars is the per-input truncation applied before embedding.
	MaxInputChars = 800
	// BatchSize is the maximum number of inputs sent per provider call.
	BatchSize = 64
	// SemanticMaxChars bounds a split chunk; chunks longer than twice this are oversized.
	SemanticMaxChars = 800
	// SemanticMinChars is the size below which a semantic chunk keeps growing.
	SemanticMinChars = 150
	// SemanticThreshold is the sentence similarity needed to stay in the same chunk.
	SemanticThreshold = 0.75
	// DefaultTopK is the number of passages returned when k is not positive.
	DefaultTopK = 5
)

// Insight is one free-text scouting section, kept in source order.
type Insight struct {
	Section string
	Text    string
}

// TeamRecord is the per-team output of the match analysis pipeline.
//
// Metrics is kept as raw JSON so that chunk text can mirror the source
// representation of every number and iterate objects in source order.
type TeamRecord struct {
	TeamName        string
	MatchesAnalyzed int
	Metrics         json.RawMessage
	Insights        []Insight
}

// UnmarshalJSON decodes a team file without losing key order.
func (t *TeamRecord) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid json")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return errors.New("team record must be a json object")
	}

	name := doc.Get("team_name")
	if name.Type != gjson.String || strings.TrimSpace(name.Str) == "" {
		return errors.New("missing team_name")
	}

	rec := TeamRecord{
		TeamName:        name.Str,
		MatchesAnalyzed: int(doc.Get("matches_analyzed").Int()),
	}

	if m := doc.Get("metrics"); m.IsObject() {
		rec.Metrics = json.RawMessage(m.Raw)
	}

	if ins := doc.Get("insights"); ins.IsObject() {
		ins.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				rec.Insights = append(rec.Insights, Insight{Section: key.String(), Text: value.Str})
			}
			return true
		})
	}

	*t = rec
	return nil
}

// MarshalJSON writes the record back in the team file layout, insights in order.
func (t TeamRecord) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"team_name":`)
	writeJSONString(&b, t.TeamName)
	fmt.Fprintf(&b, `,"matches_analyzed":%d`, t.MatchesAnalyzed)
	if len(t.Metrics) > 0 {
		b.WriteString(`,"metrics":`)
		b.Write(t.Metrics)
	}
	b.WriteString(`,"insights":{`)
	for i, in := range t.Insights {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(&b, in.Section)
		b.WriteByte(':')
		writeJSONString(&b, in.Text)
	}
	b.WriteString("}}")
	return []byte(b.String()), nil
}

func writeJSONString(b *strings.Builder, s string) {
	enc, _ := json.Marshal(s)
	b.Write(enc)
}

// Chunk is a bounded piece of retrievable text attributed to a team.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// EmbeddedChunk is a Chunk plus its passage embedding. Embedding is empty
// when the provider could not embed it.
type EmbeddedChunk struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"embedding"`
}

// CacheArtifact is the on-disk form of an embedded corpus.
type CacheArtifact struct {
	Fingerprint string          `json:"hash"`
	Chunks      []EmbeddedChunk `json:"chunks"`
}

// Corpus is the built, read-only knowledge base.
type Corpus struct {
	Fingerprint string
	Chunks      []EmbeddedChunk
}

// Embedded reports how many chunks carry a non-empty embedding.
func (c *Corpus) Embedded() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, ch := range c.Chunks {
		if len(ch.Embedding) > 0 {
			n++
		}
	}
	return n
}

// HasEmbeddings reports whether semantic scoring is possible at all.
func (c *Corpus) HasEmbeddings() bool {
	if c == nil {
		return false
	}
	for _, ch := range c.Chunks {
		if len(ch.Embedding) > 0 {
			return true
		}
	}
	return false
}

// Len returns the number of chunks.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Chunks)
}
