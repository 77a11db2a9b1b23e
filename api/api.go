package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/byte4ever/lyra/message"
	"github.com/byte4ever/lyra/pipeline"
)

// Pipeline is the subset of *pipeline.Pipeline served
// over HTTP.
type Pipeline interface {
	Statuses() []pipeline.Status
	Status(name string) (pipeline.Status, error)
	Sync(ctx context.Context, name string) (pipeline.Status, error)
	Messages(name string) ([]message.Message, error)
	Translations(name, language string) (map[string]any, error)
	SetTranslation(
		ctx context.Context,
		name string,
		language string,
		messageID string,
		text string,
	) error
	CreatePullRequest(ctx context.Context, name string) (string, error)
}

type handler struct {
	p        Pipeline
	upstream *keyedLimiter
}

// NewHandler returns the HTTP handler serving p.
func NewHandler(p Pipeline, opts ...Option) http.Handler {
	h := &handler{
		p: p,
		upstream: newKeyedLimiter(
			rate.Every(defaultUpstreamEvery), defaultUpstreamBurst,
		),
	}

	for _, opt := range opts {
		opt(h)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logRequests())

	g := r.Group("/api")
	g.GET("/projects", h.listProjects)
	g.POST("/projects/:project/sync", h.limitUpstream, h.syncProject)
	g.GET("/messages/:project", h.listMessages)
	g.GET("/translations/:project/:lang", h.getTranslations)
	g.PUT("/translations/:project/:lang/:id", h.putTranslation)
	g.POST("/pull-request/:project", h.limitUpstream, h.createPullRequest)

	return r
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		slog.Info(
			"request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (h *handler) listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.p.Statuses()})
}

func (h *handler) syncProject(c *gin.Context) {
	st, err := h.p.Sync(c.Request.Context(), c.Param("project"))
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, st)
}

type messagesResponse struct {
	Data  []message.Message `json:"data"`
	Total int               `json:"total"`
}

// listMessages serves the extracted messages. With lang,
// untranslated messages come first and q also matches
// translations.
func (h *handler) listMessages(c *gin.Context) {
	name := c.Param("project")

	offset, limit, err := paging(c)
	if err != nil {
		invalid(c, err)

		return
	}

	msgs, err := h.p.Messages(name)
	if err != nil {
		h.fail(c, err)

		return
	}

	var translations map[string]any

	if lang := c.Query("lang"); lang != "" {
		translations, err = h.p.Translations(name, lang)
		if err != nil {
			h.fail(c, err)

			return
		}

		msgs = pipeline.OrderForReview(msgs, translations)
	}

	msgs = pipeline.Filter(msgs, translations, c.Query("q"))
	total := len(msgs)

	msgs = msgs[min(offset, total):]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}

	if msgs == nil {
		msgs = []message.Message{}
	}

	c.JSON(http.StatusOK, messagesResponse{Data: msgs, Total: total})
}

func paging(c *gin.Context) (offset, limit int, err error) {
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errBadOffset
		}
	}

	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errBadLimit
		}
	}

	return offset, limit, nil
}

func (h *handler) getTranslations(c *gin.Context) {
	lang := c.Param("lang")

	translations, err := h.p.Translations(c.Param("project"), lang)
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lang":         lang,
		"translations": translations,
	})
}

type translationBody struct {
	Text *string `json:"text" binding:"required"`
}

func (h *handler) putTranslation(c *gin.Context) {
	var body translationBody

	if err := c.ShouldBindJSON(&body); err != nil {
		invalid(c, err)

		return
	}

	if err := h.p.SetTranslation(
		c.Request.Context(),
		c.Param("project"),
		c.Param("lang"),
		c.Param("id"),
		*body.Text,
	); err != nil {
		h.fail(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) createPullRequest(c *gin.Context) {
	url, err := h.p.CreatePullRequest(
		c.Request.Context(), c.Param("project"),
	)
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"pullRequestUrl": url})
}
