package db

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"
)

// scoreField is the synthetic field FT.SEARCH attaches to every KNN hit when
// the vector alias is "vector".
const scoreField = "__vector_score"

// VectorQuery describes one KNN search against a course index.
type VectorQuery struct {
	Index  string
	Vector []float32
	Limit  int
	Return []string // payload fields to fetch; the blob itself is never returned
}

// Args renders the FT.SEARCH argument list for this query.
func (q *VectorQuery) Args() ([]string, error) {
	switch {
	case q.Index == "":
		return nil, errors.New("index is required")
	case len(q.Vector) == 0:
		return nil, errors.New("query vector is required")
	case q.Limit <= 0:
		return nil, errors.New("limit must be positive")
	}

	args := []string{q.Index, fmt.Sprintf("*=>[KNN %d @vector $BLOB]", q.Limit)}
	if len(q.Return) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.Return)))
		args = append(args, q.Return...)
	}
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"PARAMS", "2", "BLOB", VectorBlob(q.Vector),
		"DIALECT", "2",
	)
	return args, nil
}

// Hit is a single search result: document key, cosine similarity in [0,1]
// and the requested payload fields.
type Hit struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult holds hits plus the server-reported total.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// VectorBlob encodes float32s little-endian, the byte layout FT.SEARCH
// PARAMS and hash-stored vectors both use.
func VectorBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// ParseSearchReply decodes the RESP2 FT.SEARCH reply shape
// [total, key1, fields1, key2, fields2, ...] shared by both drivers.
func ParseSearchReply(raw []rueidis.RedisMessage) (*SearchResult, error) {
	if len(raw) == 0 {
		return &SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse search total: %w", err)
	}
	result := &SearchResult{Total: int(total)}
	if total == 0 {
		return result, nil
	}

	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		hit := Hit{Key: key, Fields: make(map[string]string, len(pairs)/2)}
		for j := 0; j+1 < len(pairs); j += 2 {
			name, nameErr := pairs[j].ToString()
			value, valueErr := pairs[j+1].ToString()
			if nameErr != nil || valueErr != nil {
				continue
			}
			hit.Fields[name] = value
		}

		if scoreRaw, ok := hit.Fields[scoreField]; ok {
			if dist, err := strconv.ParseFloat(scoreRaw, 64); err == nil {
				hit.Score = similarityFromDistance(dist)
			}
			delete(hit.Fields, scoreField)
		}

		result.Hits = append(result.Hits, hit)
	}

	return result, nil
}

// similarityFromDistance maps cosine distance to similarity clamped to [0,1].
func similarityFromDistance(dist float64) float64 {
	sim := 1.0 - dist
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
