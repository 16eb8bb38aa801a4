package model

import (
	"encoding/binary"
	"math"
	"time"
)

// Passage is one chunk of a document together with its embedding.
// SpanStart and SpanEnd are byte offsets into the extracted document text.
type Passage struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	DocumentID string    `gorm:"size:36;not null;index" json:"document_id"`
	BotID      string    `gorm:"size:36;not null;index" json:"bot_id"`
	Ordinal    int       `gorm:"not null" json:"ordinal"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	TokenCount int       `gorm:"not null" json:"token_count"`
	SpanStart  int       `gorm:"not null" json:"span_start"`
	SpanEnd    int       `gorm:"not null" json:"span_end"`
	Embedding  []byte    `gorm:"type:blob" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the decoded embedding; nil when none is stored.
func (p *Passage) EmbeddingVector() []float32 {
	return DecodeVector(p.Embedding)
}

func (p *Passage) SetEmbedding(vec []float32) {
	p.Embedding = EncodeVector(vec)
}

// EncodeVector packs a vector as little-endian float32 values.
func EncodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func DecodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec
}
