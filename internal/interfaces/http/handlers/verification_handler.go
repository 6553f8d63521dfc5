package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/interfaces/http/middleware"
	"hostelhub.backend/internal/interfaces/http/response"
	"hostelhub.backend/internal/usecases"
)

// multipartOverhead leaves room for form boundaries and headers on top of
// the three document files.
const multipartOverhead = 1 << 20

type verificationService interface {
	GetStatus(ctx context.Context, userID uuid.UUID) (*entities.VerificationSummary, error)
	Submit(ctx context.Context, userID uuid.UUID, docs entities.IdentityDocuments) (*entities.User, error)
	SubmitUploads(ctx context.Context, userID uuid.UUID, files usecases.DocumentUploads) (*entities.User, error)
}

// VerificationHandler serves the caller's own identity verification
type VerificationHandler struct {
	verificationUsecase verificationService
	maxUploadBytes      int64
}

// NewVerificationHandler creates a new verification handler. maxUploadBytes
// bounds a single document file.
func NewVerificationHandler(verificationUsecase *usecases.VerificationUsecase, maxUploadBytes int64) *VerificationHandler {
	return &VerificationHandler{
		verificationUsecase: verificationUsecase,
		maxUploadBytes:      maxUploadBytes,
	}
}

// GetStatus returns the caller's verification status, documents and remarks
// GET /api/v1/verification
func (h *VerificationHandler) GetStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	summary, err := h.verificationUsecase.GetStatus(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verification": summary})
}

// Submit records already-uploaded document references
// POST /api/v1/verification
func (h *VerificationHandler) Submit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	var input entities.SubmitVerificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	user, err := h.verificationUsecase.Submit(c.Request.Context(), userID, input.Documents())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verification": user.Summary()})
}

// Upload accepts idFront, idBack and an optional passport as multipart files
// POST /api/v1/verification/upload
func (h *VerificationHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 3*h.maxUploadBytes+multipartOverhead)
	}
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, domainerrors.Validation("upload exceeds the allowed size"))
			return
		}
		response.Error(c, domainerrors.BadRequest("multipart form is required"))
		return
	}

	var files usecases.DocumentUploads
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for kind, dst := range map[entities.DocumentKind]**usecases.DocumentUpload{
		entities.DocumentIDFront:  &files.IDFront,
		entities.DocumentIDBack:   &files.IDBack,
		entities.DocumentPassport: &files.Passport,
	} {
		header, err := c.FormFile(string(kind))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			response.Error(c, domainerrors.BadRequest("invalid "+string(kind)+" file"))
			return
		}
		if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
			response.Error(c, domainerrors.Validation(string(kind)+" exceeds the allowed size"))
			return
		}
		f, err := header.Open()
		if err != nil {
			response.Error(c, err)
			return
		}
		opened = append(opened, f)
		*dst = &usecases.DocumentUpload{Name: header.Filename, Content: f}
	}

	user, err := h.verificationUsecase.SubmitUploads(c.Request.Context(), userID, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verification": user.Summary()})
}
