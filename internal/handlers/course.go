package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/coursehub-lms/apiserver/internal/services"
	"github.com/coursehub-lms/apiserver/internal/store"
	"github.com/coursehub-lms/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory = 32 << 20
	maxMaterialBytes   = 64 << 20
	formFieldFile      = "file"
)

// CourseHandler provides HTTP handlers for courses and their materials.
type CourseHandler struct {
	courseService *services.CourseService
	logger        *slog.Logger
}

// NewCourseHandler constructs a handler with the provided service.
func NewCourseHandler(courseService *services.CourseService, logger *slog.Logger) *CourseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseHandler{
		courseService: courseService,
		logger:        logger,
	}
}

// CourseRouter registers course routes on the given router. Reads are
// public; writes require an authenticated instructor or admin.
func CourseRouter(r chi.Router, courseService *services.CourseService, logger *slog.Logger, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCourseHandler(courseService, logger)
	manage := requireRole(types.RoleInstructor, types.RoleAdmin)

	r.Get("/", handler.ListCourses)
	r.With(authMiddleware, manage).Post("/", handler.CreateCourse)
	r.Route("/{courseID}", func(r chi.Router) {
		r.Get("/", handler.GetCourse)
		r.With(authMiddleware, manage).Put("/", handler.UpdateCourse)
		r.With(authMiddleware, manage).Delete("/", handler.DeleteCourse)

		if courseService.HasStorage() {
			r.With(authMiddleware, manage).Post("/materials", handler.UploadMaterial)
			r.With(authMiddleware).Get("/materials/{sha256}", handler.DownloadMaterial)
		}
	})
}

// requireRole builds middleware that gates a route on the roles carried
// by the verified token claims. It runs after RequireAuth.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, msgTokenMissing)
				return
			}
			for _, role := range roles {
				if strings.EqualFold(claims.Role, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "instructor access required")
		})
	}
}

func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.courseService.List(r.Context(), offset, limit)
	if err != nil {
		h.logger.Error("list courses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list courses")
		return
	}

	writeJSON(w, http.StatusOK, CourseListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courseService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("get course failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch course")
		return
	}

	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCourseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.courseService.Create(r.Context(), types.Course{
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		Price:       req.Price,
	})
	if err != nil {
		h.logger.Error("create course failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create course")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := decodeCourseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.courseService.Update(r.Context(), types.Course{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		Price:       req.Price,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("update course failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update course")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.courseService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("delete course failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete course")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CourseHandler) UploadMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, err := parseMaterialFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	material, err := h.courseService.StoreMaterial(r.Context(), id, file.Filename, file.ContentType, file.Data)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("store material failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store material")
		return
	}

	writeJSON(w, http.StatusCreated, material)
}

func (h *CourseHandler) DownloadMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	digest := strings.TrimSpace(chi.URLParam(r, "sha256"))
	if digest == "" {
		writeError(w, http.StatusBadRequest, "invalid material hash")
		return
	}

	material, reader, err := h.courseService.OpenMaterial(r.Context(), id, digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "material not found")
			return
		}
		h.logger.Error("open material failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to open material")
		return
	}
	defer reader.Close()

	if material.ContentType != "" {
		w.Header().Set("Content-Type", material.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", material.Name))
	if material.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(material.Size, 10))
	}
	_, _ = io.Copy(w, reader)
}

// CourseUpsertRequest is the JSON payload for creating or updating a course.
type CourseUpsertRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Price       string `json:"price"`
}

// CourseListResponse is the paginated list response payload.
type CourseListResponse struct {
	Items []types.Course `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

// MaterialFile represents an uploaded course material.
type MaterialFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

func decodeCourseRequest(r *http.Request) (CourseUpsertRequest, error) {
	var req CourseUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return CourseUpsertRequest{}, errors.New("invalid request")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return CourseUpsertRequest{}, errors.New("name is required")
	}
	req.Description = strings.TrimSpace(req.Description)
	req.Level = strings.TrimSpace(req.Level)
	req.Price = strings.TrimSpace(req.Price)
	if req.Price == "" {
		return CourseUpsertRequest{}, errors.New("price is required")
	}

	return req, nil
}

func parseCourseID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "courseID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid course id")
	}
	return id, nil
}

func parseMaterialFile(r *http.Request) (MaterialFile, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return MaterialFile{}, errors.New("invalid multipart form")
	}
	if r.MultipartForm == nil {
		return MaterialFile{}, errors.New("missing form data")
	}

	files := r.MultipartForm.File[formFieldFile]
	if len(files) == 0 {
		return MaterialFile{}, errors.New("material file is required")
	}
	if len(files) > 1 {
		return MaterialFile{}, errors.New("only one material file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return MaterialFile{}, fmt.Errorf("failed to read material file: %w", err)
	}

	data, err := readFileLimited(file, maxMaterialBytes)
	_ = file.Close()
	if err != nil {
		return MaterialFile{}, err
	}

	return MaterialFile{
		Filename:    fileHeader.Filename,
		ContentType: contentTypeOf(fileHeader),
		Data:        data,
	}, nil
}

func contentTypeOf(header *multipart.FileHeader) string {
	if header.Header == nil {
		return ""
	}
	return header.Header.Get("Content-Type")
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
