package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryMatch(t *testing.T) {
	doc := Document{
		"id":        "a1",
		"balance":   float64(20),
		"tags":      []any{"hot", "eth"},
		"meta":      map[string]any{"chain": "base"},
		"createdAt": "2024-01-15T10:00:00Z",
	}

	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"nil query", nil, true},
		{"empty query", Query{}, true},
		{"eq string", Query{"id": "a1"}, true},
		{"eq string miss", Query{"id": "a2"}, false},
		{"eq int against float", Query{"balance": 20}, true},
		{"eq uint8", Query{"balance": uint8(20)}, true},
		{"eq json.Number", Query{"balance": json.Number("20")}, true},
		{"eq slice", Query{"tags": []string{"hot", "eth"}}, true},
		{"eq map", Query{"meta": map[string]string{"chain": "base"}}, true},
		{"eq missing", Query{"nope": "x"}, false},
		{"gt", Query{"balance": Gt(19.5)}, true},
		{"gt equal", Query{"balance": Gt(20)}, false},
		{"gte equal", Query{"balance": Gte(20)}, true},
		{"lte", Query{"balance": Lte(int64(20))}, true},
		{"lt", Query{"balance": Lt(20)}, false},
		{"type mismatch", Query{"id": Gt(1)}, false},
		{"string order", Query{"id": Lt("b")}, true},
		{"ne", Query{"id": Ne("a2")}, true},
		{"ne equal", Query{"id": Ne("a1")}, false},
		{"ne missing", Query{"nope": Ne("x")}, true},
		{"in", Query{"balance": In(1, 20)}, true},
		{"in miss", Query{"balance": In(1, 2)}, false},
		{"in empty", Query{"balance": In()}, false},
		{"in missing", Query{"nope": In("x")}, false},
		{"time gte", Query{"createdAt": Gte(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))}, true},
		{"time lt", Query{"createdAt": Lt(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))}, false},
		{"time eq other zone", Query{"createdAt": time.Date(2024, 1, 15, 12, 0, 0, 0, time.FixedZone("EET", 7200))}, true},
		{"time string gt fraction", Query{"createdAt": Gt("2024-01-15T10:00:00.5Z")}, false},
		{"time string lt fraction", Query{"createdAt": Lt("2024-01-15T10:00:00.5Z")}, true},
		{"time string eq other zone", Query{"createdAt": "2024-01-15T12:00:00+02:00"}, true},
		{"time against number", Query{"balance": Gt(time.Now())}, false},
		{"conds", Query{"balance": []Cond{Gt(10), Lt(30)}}, true},
		{"conds one fails", Query{"balance": []Cond{Gt(10), Lt(15)}}, false},
		{"all fields", Query{"id": "a1", "balance": Gt(30)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.q.Match(doc))
		})
	}
}
