package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/agentstation/attrmap/internal/server/response"
	"github.com/agentstation/attrmap/internal/validation"
	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/flatten"
	"github.com/agentstation/attrmap/pkg/logging"
	"github.com/agentstation/attrmap/pkg/schema"
)

// BuildRequest is the body of POST /api/v1/build. Document is a JSON
// object; its key order is kept. Schema, when set, replaces the schema
// of the category and takes either the attribute array or the compact
// map form.
type BuildRequest struct {
	CategoryID string          `json:"category_id" validate:"required"`
	Document   json.RawMessage `json:"document" validate:"required"`
	Schema     json.RawMessage `json:"schema,omitempty"`
}

// HandleBuild handles POST /api/v1/build.
func (h *Handlers) HandleBuild(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)

	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			response.PayloadTooLarge(w, tooLarge.Limit)
			return
		}
		response.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	doc, err := flatten.Decode(req.Document)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	var override *schema.Schema
	if len(req.Schema) > 0 && string(req.Schema) != "null" {
		if override, err = schema.Decode(req.Schema); err != nil {
			response.ErrorFromType(w, err)
			return
		}
	}

	ctx := logging.WithCategory(r.Context(), req.CategoryID)
	logger := logging.FromContext(ctx)

	h.buildMu.Lock()
	var res *attributes.Result
	if override != nil {
		res, err = h.client.BuildWithSchema(ctx, req.CategoryID, doc, override)
	} else {
		res, err = h.client.Build(ctx, req.CategoryID, doc)
	}
	h.buildMu.Unlock()
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	logger.Info().
		Str("run_id", res.RunID).
		Int("attributes", len(res.Attributes)).
		Int("missing", len(res.Missing)).
		Msg("Build served")
	response.OK(w, res)
}

// HandleGetBuild handles GET /api/v1/builds/{run_id}.
func (h *Handlers) HandleGetBuild(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	res, ok := h.results.Get(runID)
	if !ok {
		response.NotFound(w, "Build not found", "No recent build with run id "+runID)
		return
	}
	response.OK(w, res)
}
