package webhook

import (
	"net/http"
	"strconv"

	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleLeadCapture creates a lead from a website form or integration.
// POST /api/v1/webhook/leads
// Authenticated via X-API-Key header. Accepts JSON objects and form posts.
func (h *Handler) HandleLeadCapture(c *gin.Context) {
	submission, ok := h.parseSubmission(c)
	if !ok {
		return
	}

	resp, err := h.service.Capture(c.Request.Context(), submission)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, resp)
}

func (h *Handler) parseSubmission(c *gin.Context) (Submission, bool) {
	fields := make(map[string]string)

	if c.ContentType() == "application/json" {
		if !h.collectJSONFields(c, fields) {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
			return Submission{}, false
		}
	} else {
		if err := c.Request.ParseMultipartForm(1 << 20); err != nil {
			if err := c.Request.ParseForm(); err != nil {
				httpkit.Error(c, http.StatusBadRequest, "unable to parse form data", nil)
				return Submission{}, false
			}
		}
		h.collectFormFields(c, fields)
	}

	if len(fields) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "no form data received", nil)
		return Submission{}, false
	}

	return Submission{
		Fields:       fields,
		SourceDomain: c.GetHeader("Origin"),
	}, true
}

func (h *Handler) collectFormFields(c *gin.Context, fields map[string]string) {
	if c.Request.MultipartForm != nil {
		for key, values := range c.Request.MultipartForm.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
	}
	for key, values := range c.Request.PostForm {
		if _, exists := fields[key]; !exists && len(values) > 0 {
			fields[key] = values[0]
		}
	}
}

func (h *Handler) collectJSONFields(c *gin.Context, fields map[string]string) bool {
	var jsonBody map[string]interface{}
	if err := c.ShouldBindJSON(&jsonBody); err != nil {
		return false
	}
	for key, val := range jsonBody {
		switch v := val.(type) {
		case string:
			fields[key] = v
		case float64:
			fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case []interface{}:
			fields[key] = joinStrings(v)
		}
	}
	return true
}

func joinStrings(values []interface{}) string {
	out := ""
	for _, v := range values {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		if out != "" {
			out += ","
		}
		out += s
	}
	return out
}
