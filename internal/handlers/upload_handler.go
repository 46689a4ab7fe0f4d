package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/services/auth"
)

const maxCaseNameLength = 100

// UploadHandler accepts unified uploads: a batch of evidence files plus
// optional suspects, atomically becoming one job.
type UploadHandler struct {
	storage  interfaces.StorageManager
	blobs    interfaces.BlobStore
	fabric   interfaces.QueueFabric
	bus      interfaces.StatusBus
	auth     *auth.Service
	config   *common.Config
	logger   arbor.ILogger
}

// NewUploadHandler creates the upload handler
func NewUploadHandler(
	storage interfaces.StorageManager,
	blobs interfaces.BlobStore,
	fabric interfaces.QueueFabric,
	bus interfaces.StatusBus,
	authService *auth.Service,
	config *common.Config,
	logger arbor.ILogger,
) *UploadHandler {
	return &UploadHandler{
		storage: storage,
		blobs:   blobs,
		fabric:  fabric,
		bus:     bus,
		auth:    authService,
		config:  config,
		logger:  logger,
	}
}

type suspectPayload struct {
	Fields []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"fields"`
}

// Upload handles POST /api/upload. The multipart form carries parallel
// arrays: files[], media_types[], languages[] (position-aligned), plus
// case_name and an optional suspects JSON array.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := Principal(r)

	maxBody := int64(h.config.Upload.MaxFiles)*h.config.Upload.MaxFileSize + 10<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	caseName := strings.TrimSpace(r.FormValue("case_name"))
	if caseName == "" {
		WriteError(w, http.StatusBadRequest, "case_name is required")
		return
	}
	if len(caseName) > maxCaseNameLength {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("case_name exceeds %d characters", maxCaseNameLength))
		return
	}

	files := r.MultipartForm.File["files[]"]
	mediaTypes := r.MultipartForm.Value["media_types[]"]
	languages := r.MultipartForm.Value["languages[]"]

	if len(files) == 0 {
		// A job must carry evidence; suspects alone have nothing to match
		WriteError(w, http.StatusBadRequest, "at least one file is required")
		return
	}
	if len(files) > h.config.Upload.MaxFiles {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("too many files: max %d", h.config.Upload.MaxFiles))
		return
	}
	if len(mediaTypes) != len(files) {
		WriteError(w, http.StatusBadRequest, "media_types[] must align with files[]")
		return
	}
	if len(languages) > len(files) {
		WriteError(w, http.StatusBadRequest, "languages[] must align with files[]")
		return
	}

	// Per-file validation happens before any write so a bad batch is
	// rejected whole
	seen := make(map[string]bool, len(files))
	for i, fh := range files {
		filename := path.Base(fh.Filename)
		if filename == "" || filename == "." || filename == "/" {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("file %d has no name", i))
			return
		}
		if seen[filename] {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("duplicate filename in batch: %s", filename))
			return
		}
		seen[filename] = true

		if fh.Size > h.config.Upload.MaxFileSize {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s exceeds max file size", filename))
			return
		}
		mediaType := models.MediaType(mediaTypes[i])
		if !mediaType.Valid() {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown media type for %s: %s", filename, mediaTypes[i]))
			return
		}
		if !h.config.Upload.AllowedExtension(string(mediaType), filename) {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("extension of %s not allowed for %s", filename, mediaType))
			return
		}
		if mediaType.RequiresLanguage() && languageAt(languages, i) == "" {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s uploads require a source language (%s)", mediaType, filename))
			return
		}
	}

	var suspects []suspectPayload
	if raw := r.FormValue("suspects"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &suspects); err != nil {
			WriteError(w, http.StatusBadRequest, "suspects must be a JSON array")
			return
		}
		for i, s := range suspects {
			if len(s.Fields) == 0 {
				WriteError(w, http.StatusBadRequest, fmt.Sprintf("suspect %d has no fields", i))
				return
			}
		}
	}

	ctx := r.Context()
	jobID := h.auth.JobIDFor(user)
	now := time.Now()
	job := &models.Job{
		ID:            jobID,
		OwnerUserID:   user.ID,
		CaseName:      caseName,
		StoragePrefix: jobID,
		TotalFiles:    len(files),
		Status:        models.JobStatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.storage.JobStorage().SaveJob(ctx, job); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create job")
		WriteError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	// Everything past the job row shares one failure path: mark the job
	// failed so nothing half-created looks live, and surface the terminal
	// status on the job's channel for anyone already streaming
	fail := func(stage string, err error) {
		h.logger.Error().Err(err).Str("job_id", jobID).Str("stage", stage).Msg("Upload transaction failed")
		h.storage.JobStorage().UpdateJob(ctx, jobID, func(j *models.Job) error {
			j.Status = models.JobStatusFailed
			j.Error = fmt.Sprintf("upload failed: %s", stage)
			return nil
		})
		h.bus.Publish(jobID, models.StatusEvent{
			Type:         models.EventTypeJobStatus,
			JobID:        jobID,
			Status:       string(models.JobStatusFailed),
			ErrorMessage: fmt.Sprintf("upload failed: %s", stage),
		})
		WriteError(w, http.StatusInternalServerError, "Upload failed")
	}

	suspectRows := make([]*models.Suspect, 0, len(suspects))
	for _, s := range suspects {
		row := &models.Suspect{
			ID:        common.NewSuspectID(),
			JobID:     jobID,
			CreatedAt: now,
		}
		for _, f := range s.Fields {
			row.Fields = append(row.Fields, models.SuspectField{
				ID:    uuid.New().String(),
				Key:   f.Key,
				Value: f.Value,
			})
		}
		suspectRows = append(suspectRows, row)
	}
	if len(suspectRows) > 0 {
		if err := h.storage.SuspectStorage().SaveSuspects(ctx, suspectRows); err != nil {
			fail("suspects", err)
			return
		}
	}

	artifactIDs := make([]string, 0, len(files))
	for i, fh := range files {
		filename := path.Base(fh.Filename)
		mediaType := models.MediaType(mediaTypes[i])
		language := languageAt(languages, i)

		src, err := fh.Open()
		if err != nil {
			fail("blob", err)
			return
		}
		blobPath := jobID + "/" + filename
		err = h.blobs.Put(ctx, blobPath, src)
		src.Close()
		if err != nil {
			fail("blob", err)
			return
		}

		artifact := &models.Artifact{
			ID:               common.NewArtifactID(),
			JobID:            jobID,
			OriginalFilename: filename,
			MediaType:        mediaType,
			SourceLanguage:   language,
			Status:           models.ArtifactStatusQueued,
			StageTimings:     make(map[string]float64),
			BlobPaths:        map[string]string{"original": blobPath},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := h.storage.ArtifactStorage().SaveArtifact(ctx, artifact); err != nil {
			fail("artifact", err)
			return
		}

		item := models.WorkItem{
			JobID:      jobID,
			ArtifactID: artifact.ID,
			BlobPath:   blobPath,
			Filename:   filename,
			MediaType:  string(mediaType),
			Metadata:   models.WorkItemMetadata{Language: language},
		}
		if err := h.fabric.Publish(ctx, mediaType.QueueName(), item); err != nil {
			fail("enqueue", err)
			return
		}
		artifactIDs = append(artifactIDs, artifact.ID)
	}

	h.storage.ActivityStorage().Append(ctx, &models.ActivityLogEntry{
		UserID:  user.ID,
		Kind:    "upload",
		Role:    string(user.Role),
		Details: fmt.Sprintf("job=%s case=%s files=%d suspects=%d", jobID, caseName, len(files), len(suspectRows)),
	})
	h.logger.Info().
		Str("job_id", jobID).
		Str("case", caseName).
		Int("files", len(files)).
		Int("suspects", len(suspectRows)).
		Msg("Upload accepted")

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":         jobID,
		"status":         string(models.JobStatusQueued),
		"total_files":    len(files),
		"suspects_count": len(suspectRows),
		"artifact_ids":   artifactIDs,
		"message":        fmt.Sprintf("accepted %d files for case %s", len(files), caseName),
	})
}

func languageAt(languages []string, i int) string {
	if i >= len(languages) {
		return ""
	}
	return strings.TrimSpace(languages[i])
}
