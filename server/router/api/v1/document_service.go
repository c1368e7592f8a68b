package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/timextag/plugin/temporal"
	apierrors "github.com/hrygo/timextag/server/internal/errors"
	"github.com/hrygo/timextag/server/service/tagger"
	"github.com/hrygo/timextag/store"
)

// TagDocumentRequest is the body of POST /api/v1/documents:tag.
type TagDocumentRequest struct {
	// DocumentID re-tags an existing document when set.
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	// ReferenceDate is a strategy selector ("today", "annotation", ...) or a YYYY-MM-DD date.
	// The server default is used when empty.
	ReferenceDate      string                `json:"referenceDate"`
	WriteReferenceDate *bool                 `json:"writeReferenceDate"`
	InputAnnotations   []temporal.Annotation `json:"inputAnnotations"`
}

// AnnotationResponse is a stored annotation.
type AnnotationResponse struct {
	ID       int64             `json:"id"`
	Set      string            `json:"set"`
	Type     string            `json:"type"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Features map[string]string `json:"features"`
}

// ListAnnotationsResponse is the body of GET /api/v1/documents/:id/annotations.
type ListAnnotationsResponse struct {
	DocumentID  string                `json:"documentId"`
	Annotations []*AnnotationResponse `json:"annotations"`
}

// TagDocument tags a posted document and returns its annotations.
// POST /api/v1/documents:tag
func (s *APIV1Service) TagDocument(c echo.Context) error {
	var request TagDocumentRequest
	if err := c.Bind(&request); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}
	if request.Text == "" {
		return writeError(c, tagger.ErrNoDocumentText)
	}

	ctx := c.Request().Context()
	if err := s.tagSemaphore.Acquire(ctx, 1); err != nil {
		return writeError(c, err)
	}
	defer s.tagSemaphore.Release(1)

	tagRequest := &tagger.TagRequest{
		DocumentID:         request.DocumentID,
		Name:               request.Name,
		ContentType:        "text/plain",
		Text:               request.Text,
		WriteReferenceDate: request.WriteReferenceDate,
		InputAnnotations:   request.InputAnnotations,
	}
	if request.ReferenceDate != "" {
		tagRequest.Strategy = temporal.ParseStrategy(request.ReferenceDate, temporal.FromAnnotation{
			AnnotationSet:  s.Profile.InputAnnotationSet,
			AnnotationType: s.Profile.InputAnnotationName,
			FeatureName:    s.Profile.InputFeatureName,
		})
	}

	result, err := s.Tagger.Tag(ctx, tagRequest)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListAnnotations lists the annotations of a document.
// GET /api/v1/documents/:id/annotations?set=&type=&filter=&limit=
func (s *APIV1Service) ListAnnotations(c echo.Context) error {
	ctx := c.Request().Context()
	documentID := c.Param("id")
	if _, err := s.Store.GetDocument(ctx, documentID); err != nil {
		return writeError(c, err)
	}

	find := &store.FindAnnotation{DocumentID: documentID}
	if set := c.QueryParam("set"); set != "" {
		find.SetName = &set
	}
	if typ := c.QueryParam("type"); typ != "" {
		find.Type = &typ
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return writeError(c, apierrors.InvalidArgument("limit must be a positive integer"))
		}
		find.Limit = &limit
	}

	filter, err := store.CompileAnnotationFilter(c.QueryParam("filter"))
	if err != nil {
		return writeError(c, apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "invalid filter"))
	}

	list, err := s.Store.ListAnnotationsFiltered(ctx, find, filter)
	if err != nil {
		return writeError(c, err)
	}

	response := &ListAnnotationsResponse{
		DocumentID:  documentID,
		Annotations: make([]*AnnotationResponse, 0, len(list)),
	}
	for _, a := range list {
		response.Annotations = append(response.Annotations, &AnnotationResponse{
			ID:       a.ID,
			Set:      a.SetName,
			Type:     a.Type,
			Start:    a.StartOffset,
			End:      a.EndOffset,
			Features: a.Features,
		})
	}
	return c.JSON(http.StatusOK, response)
}
