package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/versecraft/versecraft/internal/content"
	"github.com/versecraft/versecraft/internal/reviews"
	"github.com/versecraft/versecraft/pkg/middleware"
	"github.com/versecraft/versecraft/pkg/validation"
)

// ReviewRequest is the review form. Ratings use the site's 1..5 stars.
type ReviewRequest struct {
	Rating float64 `form:"rating" json:"rating" binding:"required,gte=1,lte=5"`
	Body   string  `form:"body" json:"body" binding:"required"`
}

// ReviewHandler serves the review routes nested under both content
// kinds.
type ReviewHandler struct {
	reviewsSvc *reviews.Service
	contentSvc *content.Service
}

func NewReviewHandler(rs *reviews.Service, cs *content.Service) *ReviewHandler {
	return &ReviewHandler{reviewsSvc: rs, contentSvc: cs}
}

// mount nests the review routes under one content group.
func (h *ReviewHandler) mount(g *gin.RouterGroup, base string) {
	g.GET("/:id/reviews", h.list)
	g.POST("/:id/reviews", middleware.RequireLogin(), h.create(base))
	g.PUT("/:id/reviews/:reviewId", middleware.RequireLogin(), h.update(base))
	g.DELETE("/:id/reviews/:reviewId", middleware.RequireLogin(), h.delete(base))
}

func (h *ReviewHandler) list(c *gin.Context) {
	item, err := h.contentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	revs, err := h.reviewsSvc.ListForContent(c.Request.Context(), item)
	if err != nil {
		serviceError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"reviews": revs, "rating": item.Rating})
}

func (h *ReviewHandler) create(base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReviewRequest
		if err := c.ShouldBind(&req); err != nil {
			respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
			return
		}
		item, err := h.contentSvc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			serviceError(c, err)
			return
		}
		rev, err := h.reviewsSvc.Create(c.Request.Context(), middleware.CurrentUser(c), item, req.Rating, req.Body)
		if err != nil {
			if errors.Is(err, reviews.ErrAlreadyReviewed) {
				respond(c, http.StatusBadRequest, gin.H{
					"error":    "You already reviewed this piece",
					"redirect": base + "/" + item.ID,
				})
				return
			}
			serviceError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{
			"message":  "Successfully added your review",
			"review":   rev,
			"redirect": base + "/" + item.ID,
		})
	}
}

func (h *ReviewHandler) update(base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReviewRequest
		if err := c.ShouldBind(&req); err != nil {
			respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
			return
		}
		rev, err := h.reviewsSvc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("reviewId"), req.Rating, req.Body)
		if err != nil {
			serviceError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"message":  "Successfully updated your review",
			"review":   rev,
			"redirect": base + "/" + rev.ContentID,
		})
	}
}

func (h *ReviewHandler) delete(base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.reviewsSvc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("reviewId")); err != nil {
			serviceError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"message":  "Successfully deleted your review",
			"redirect": base + "/" + c.Param("id"),
		})
	}
}
