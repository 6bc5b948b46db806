package models

import (
	"time"

	"github.com/lib/pq"
)

// BlogPost is a CMS article surfaced on the public blog page.
type BlogPost struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Content   string         `db:"content" json:"content"`
	Excerpt   string         `db:"excerpt" json:"excerpt"`
	Author    string         `db:"author" json:"author"`
	AuthorID  string         `db:"author_id" json:"author_id"`
	Published bool           `db:"published" json:"published"`
	Tags      pq.StringArray `db:"tags" json:"tags"`
	ReadCount int            `db:"read_count" json:"read_count"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
