package model

import "time"

// Template holds message content with {name}-style placeholders. Every
// placeholder appearing in Content must also appear in Variables.
type Template struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Channel   string    `db:"channel" json:"channel"`
	Locale    string    `db:"locale" json:"locale"`
	Content   string    `db:"content" json:"content"`
	Variables []string  `db:"variables" json:"variables"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
