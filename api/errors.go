package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/byte4ever/lyra/pipeline"
)

// KindInvalidRequest marks a malformed request.
const KindInvalidRequest = "InvalidRequest"

var (
	errBadOffset = errors.New("offset must be a non-negative integer")
	errBadLimit  = errors.New("limit must be a non-negative integer")
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	// State is set when the project is not ready.
	State pipeline.State `json:"state,omitempty"`
	// Status is set when a sync failed.
	Status *pipeline.Status `json:"status,omitempty"`
}

// statusCode maps an error kind to an HTTP status.
func statusCode(kind string) int {
	switch kind {
	case pipeline.KindUnknownProject,
		pipeline.KindUnknownLanguage,
		pipeline.KindUnknownMessage:
		return http.StatusNotFound
	case pipeline.KindNotReady:
		return http.StatusConflict
	case pipeline.KindCloneFailure,
		pipeline.KindSyncConflict,
		pipeline.KindPushFailure,
		pipeline.KindDuplicatePullRequest,
		pipeline.KindProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	kind := pipeline.Kind(err)
	code := statusCode(kind)
	body := errorBody{Error: err.Error(), Kind: kind}

	if name := c.Param("project"); name != "" {
		if st, stErr := h.p.Status(name); stErr == nil {
			switch {
			case kind == pipeline.KindNotReady:
				body.State = st.State
			case st.State == pipeline.StateFailed:
				body.Status = &st
			}
		}
	}

	if code >= http.StatusInternalServerError {
		slog.Error(
			"request failed",
			"path", c.FullPath(),
			"kind", kind,
			"error", err,
		)
	}

	c.AbortWithStatusJSON(code, body)
}

func invalid(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorBody{
		Error: err.Error(),
		Kind:  KindInvalidRequest,
	})
}
