package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"anonchat/internal/models"
)

var ErrPostNotFound = errors.New("blog post not found")

// BlogPostInput carries the writable fields of a blog post.
type BlogPostInput struct {
	Title     string
	Content   string
	Excerpt   string
	Author    string
	AuthorID  string
	Published bool
	Tags      []string
}

// BlogRepository abstracts blog/CMS persistence.
type BlogRepository interface {
	ListPublished(ctx context.Context) ([]models.BlogPost, error)
	ListAll(ctx context.Context) ([]models.BlogPost, error)
	Get(ctx context.Context, postID string) (models.BlogPost, error)
	Create(ctx context.Context, in BlogPostInput) (models.BlogPost, error)
	Update(ctx context.Context, postID string, in BlogPostInput) (models.BlogPost, error)
	Delete(ctx context.Context, postID string) error
	IncrementReadCount(ctx context.Context, postID string) error
}

// BlogRepo is a sqlx implementation of BlogRepository.
type BlogRepo struct {
	db *sqlx.DB
}

// NewBlogRepo constructs a BlogRepo.
func NewBlogRepo(db *sqlx.DB) *BlogRepo {
	return &BlogRepo{db: db}
}

// ListPublished returns published posts, newest first.
func (r *BlogRepo) ListPublished(ctx context.Context) ([]models.BlogPost, error) {
	var posts []models.BlogPost
	err := r.db.SelectContext(ctx, &posts,
		`SELECT * FROM blog_posts WHERE published=TRUE ORDER BY created_at DESC`)
	return posts, err
}

// ListAll returns every post for the admin console.
func (r *BlogRepo) ListAll(ctx context.Context) ([]models.BlogPost, error) {
	var posts []models.BlogPost
	err := r.db.SelectContext(ctx, &posts, `SELECT * FROM blog_posts ORDER BY created_at DESC`)
	return posts, err
}

// Get fetches a single post.
func (r *BlogRepo) Get(ctx context.Context, postID string) (models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.GetContext(ctx, &post, `SELECT * FROM blog_posts WHERE id=$1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BlogPost{}, ErrPostNotFound
	}
	return post, err
}

// Create inserts a new post.
func (r *BlogRepo) Create(ctx context.Context, in BlogPostInput) (models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO blog_posts (id, title, content, excerpt, author, author_id, published, tags)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING *`,
		uuid.NewString(), in.Title, in.Content, in.Excerpt, in.Author, in.AuthorID, in.Published,
		pq.StringArray(in.Tags)).StructScan(&post)
	return post, err
}

// Update replaces the writable fields of a post.
func (r *BlogRepo) Update(ctx context.Context, postID string, in BlogPostInput) (models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.QueryRowxContext(ctx,
		`UPDATE blog_posts SET title=$2, content=$3, excerpt=$4, published=$5, tags=$6, updated_at=NOW()
         WHERE id=$1 RETURNING *`,
		postID, in.Title, in.Content, in.Excerpt, in.Published, pq.StringArray(in.Tags)).
		StructScan(&post)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BlogPost{}, ErrPostNotFound
	}
	return post, err
}

// Delete removes a post.
func (r *BlogRepo) Delete(ctx context.Context, postID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id=$1`, postID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrPostNotFound)
}

// IncrementReadCount bumps the read counter for a post.
func (r *BlogRepo) IncrementReadCount(ctx context.Context, postID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blog_posts SET read_count = read_count + 1 WHERE id=$1`, postID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrPostNotFound)
}
