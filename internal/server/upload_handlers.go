package server

import (
	"fmt"
	"io"

	"earthhome/internal/models"
	"earthhome/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadResponse lists the stored objects of one upload request.
type UploadResponse struct {
	Success bool                   `json:"success"`
	Files   []service.UploadedFile `json:"files"`
}

// UploadPropertyImages handles POST /api/uploads/property-images
// @Summary Upload listing images
// @Description Up to 10 images of at most 50MB each, stored under the listing's title folder
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "Images"
// @Param propertyTitle formData string false "Listing title"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /uploads/property-images [post]
func (s *Server) UploadPropertyImages(c *fiber.Ctx) error {
	return s.handleUpload(c, service.PropertyImagesRule)
}

// UploadPropertyDocuments handles POST /api/uploads/property-documents
// @Summary Upload listing documents
// @Description Up to 5 PDF or Word documents of at most 10MB each
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "Documents"
// @Param propertyTitle formData string false "Listing title"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /uploads/property-documents [post]
func (s *Server) UploadPropertyDocuments(c *fiber.Ctx) error {
	return s.handleUpload(c, service.PropertyDocumentsRule)
}

func (s *Server) handleUpload(c *fiber.Ctx, rule service.UploadRule) error {
	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Expected a multipart form"))
	}

	headers := form.File["files"]
	if len(headers) > rule.MaxFiles {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("Too many files. Maximum is %d", rule.MaxFiles)))
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read uploaded file"))
		}
		// One byte past the limit is enough for the service to reject it.
		content, err := io.ReadAll(io.LimitReader(src, rule.MaxFileSize+1))
		_ = src.Close()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read uploaded file"))
		}
		files = append(files, service.UploadFile{
			Name:         fh.Filename,
			DeclaredType: fh.Header.Get(fiber.HeaderContentType),
			Content:      content,
		})
	}

	var title string
	if titles := form.Value["propertyTitle"]; len(titles) > 0 {
		title = titles[0]
	}

	uploaded, err := s.uploadService.Upload(c.UserContext(), currentUser(c), rule, title, files)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(UploadResponse{Success: true, Files: uploaded})
}
