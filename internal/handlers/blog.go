package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"anonchat/internal/repositories"
)

// BlogHandler serves the public side of the blog.
type BlogHandler struct {
	blogRepo repositories.BlogRepository
}

// NewBlogHandler builds a BlogHandler.
func NewBlogHandler(blogRepo repositories.BlogRepository) *BlogHandler {
	return &BlogHandler{blogRepo: blogRepo}
}

// ListPosts returns published posts, newest first.
func (h *BlogHandler) ListPosts(c *gin.Context) {
	posts, err := h.blogRepo.ListPublished(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetPost returns one published post and bumps its read count.
func (h *BlogHandler) GetPost(c *gin.Context) {
	postID := c.Param("post_id")
	post, err := h.blogRepo.Get(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}
	if !post.Published {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	// Best effort; a lost increment is not worth failing the read.
	_ = h.blogRepo.IncrementReadCount(c.Request.Context(), postID)
	post.ReadCount++
	c.JSON(http.StatusOK, post)
}
