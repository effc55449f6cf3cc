package model

import (
	"encoding/json"
	"time"
)

// Segment pairs a name with a rule tree encoded as JSON. The tree is
// parsed into the typed sum type defined in internal/segment before use.
type Segment struct {
	ID        int             `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	RuleTree  json.RawMessage `db:"rule_tree" json:"rule_tree"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
