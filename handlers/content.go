package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/versecraft/versecraft/internal/access"
	"github.com/versecraft/versecraft/internal/content"
	"github.com/versecraft/versecraft/internal/models"
	"github.com/versecraft/versecraft/internal/notifications"
	"github.com/versecraft/versecraft/internal/reviews"
	"github.com/versecraft/versecraft/internal/storage"
	"github.com/versecraft/versecraft/pkg/logger"
	"github.com/versecraft/versecraft/pkg/middleware"
	"github.com/versecraft/versecraft/pkg/validation"
)

// ContentRequest is the create/update form for a poem or prose piece.
// The image arrives either as a multipart file or as a plain URL field.
type ContentRequest struct {
	Name  string `form:"name" json:"name" binding:"required"`
	Body  string `form:"body" json:"body" binding:"required"`
	Image string `form:"image" json:"image"`
}

// ContentHandler serves both content kinds; the kind is bound per
// route group so /poems and /proses share one implementation.
type ContentHandler struct {
	contentSvc *content.Service
	reviewsSvc *reviews.Service
	notifsSvc  *notifications.Service
	uploader   Uploader
}

func NewContentHandler(cs *content.Service, rs *reviews.Service, ns *notifications.Service, up Uploader) *ContentHandler {
	return &ContentHandler{contentSvc: cs, reviewsSvc: rs, notifsSvc: ns, uploader: up}
}

// Register mounts /poems and /proses with identical route shapes.
func (h *ContentHandler) Register(r gin.IRouter, rh *ReviewHandler) {
	for path, kind := range map[string]models.Kind{
		"/poems":  models.KindPoem,
		"/proses": models.KindProse,
	} {
		g := r.Group(path)
		g.GET("", h.index(kind))
		g.GET("/:id", h.show(kind))
		g.POST("", middleware.RequireLogin(), h.create(kind, path))
		g.PUT("/:id", middleware.RequireLogin(), h.update(kind, path))
		g.DELETE("/:id", middleware.RequireLogin(), h.delete(kind, path))
		if rh != nil {
			rh.mount(g, path)
		}
	}
}

// index lists one page, newest first, with an optional name search.
func (h *ContentHandler) index(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		search := c.Query("search")
		p, err := h.contentSvc.List(c.Request.Context(), kind, search, page, content.DefaultPerPage)
		if err != nil {
			serviceError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"kind":    kind,
			"search":  search,
			"items":   p.Items,
			"total":   p.Total,
			"current": p.Current,
			"pages":   p.Pages,
		})
	}
}

// getKinded loads the item and hides it when it lives in the other
// kind's URL space.
func (h *ContentHandler) getKinded(c *gin.Context, kind models.Kind) (*models.ContentItem, error) {
	item, err := h.contentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if item.Kind != kind {
		return nil, content.ErrNotFound
	}
	return item, nil
}

// show returns the item with its reviews newest-first and, for a
// logged-in visitor, whether the review form should be offered.
func (h *ContentHandler) show(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := h.getKinded(c, kind)
		if err != nil {
			serviceError(c, err)
			return
		}
		revs, err := h.reviewsSvc.ListForContent(c.Request.Context(), item)
		if err != nil {
			serviceError(c, err)
			return
		}
		canReview := false
		if u := middleware.CurrentUser(c); u != nil {
			canReview, err = h.reviewsSvc.CanReview(c.Request.Context(), u.ID, item)
			if err != nil {
				serviceError(c, err)
				return
			}
		}
		respond(c, http.StatusOK, gin.H{
			"item":      item,
			"reviews":   revs,
			"canReview": canReview,
		})
	}
}

func (h *ContentHandler) create(kind models.Kind, base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ContentRequest
		if err := c.ShouldBind(&req); err != nil {
			respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
			return
		}
		image, err := uploadImage(c, h.uploader, "image")
		if err != nil {
			if errors.Is(err, storage.ErrBadImageType) {
				respond(c, http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			serviceError(c, err)
			return
		}
		if image == "" {
			image = req.Image
		}
		author := middleware.CurrentUser(c)
		item, err := h.contentSvc.Create(c.Request.Context(), author, content.CreateInput{
			Kind:  kind,
			Name:  req.Name,
			Body:  req.Body,
			Image: image,
		})
		if err != nil {
			serviceError(c, err)
			return
		}
		// fan-out is best effort: a notification failure never fails
		// the publish itself
		if results, err := h.notifsSvc.NotifyFollowers(c.Request.Context(), author, item); err != nil {
			logger.Errorf("follower fan-out for %s: %v", item.ID, err)
		} else {
			for _, res := range results {
				if res.Err != nil {
					logger.Errorf("notify follower %s about %s: %v", res.FollowerID, item.ID, res.Err)
				}
			}
		}
		respond(c, http.StatusCreated, gin.H{
			"message":  "Successfully published " + item.Name,
			"item":     item,
			"redirect": base + "/" + item.ID,
		})
	}
}

func (h *ContentHandler) update(kind models.Kind, base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ContentRequest
		if err := c.ShouldBind(&req); err != nil {
			respond(c, http.StatusBadRequest, gin.H{"error": "invalid form", "details": validation.ToDetails(err)})
			return
		}
		item, err := h.getKinded(c, kind)
		if err != nil {
			serviceError(c, err)
			return
		}
		if err := access.Check(middleware.CurrentUser(c), item.Author.ID); err != nil {
			serviceError(c, err)
			return
		}
		image, err := uploadImage(c, h.uploader, "image")
		if err != nil {
			if errors.Is(err, storage.ErrBadImageType) {
				respond(c, http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			serviceError(c, err)
			return
		}
		if image == "" {
			image = req.Image
		}
		item, err = h.contentSvc.Update(c.Request.Context(), item.ID, content.UpdateInput{
			Name:  req.Name,
			Body:  req.Body,
			Image: image,
		})
		if err != nil {
			serviceError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"message":  "Successfully updated " + item.Name,
			"item":     item,
			"redirect": base + "/" + item.ID,
		})
	}
}

func (h *ContentHandler) delete(kind models.Kind, base string) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := h.getKinded(c, kind)
		if err != nil {
			serviceError(c, err)
			return
		}
		if err := access.Check(middleware.CurrentUser(c), item.Author.ID); err != nil {
			serviceError(c, err)
			return
		}
		if err := h.contentSvc.Delete(c.Request.Context(), item.ID); err != nil {
			serviceError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{
			"message":  "Successfully deleted " + item.Name,
			"redirect": base,
		})
	}
}
