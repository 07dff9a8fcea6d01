package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/camden-git/mememanager/config"
	"github.com/camden-git/mememanager/database"
	"github.com/camden-git/mememanager/models"
	"github.com/camden-git/mememanager/repository"
	"github.com/camden-git/mememanager/utils"
)

const (
	createdAtFormat = "2006-01-02 15:04:05"

	// room for the metadata field and multipart framing around the image
	multipartOverhead = 1 << 20
)

// ImageSummary is one entry of an image listing
type ImageSummary struct {
	ID       uint     `json:"id"`
	ImgType  string   `json:"img_type"`
	Tags     []string `json:"tags"`
	Group    *string  `json:"group"`
	CreateAt string   `json:"create_at"`
}

type Pagination struct {
	Pages   int   `json:"pages"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

type ImageListResponse struct {
	Data       []ImageSummary `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// ImageMetadata is the JSON carried in the "metadata" form field of an upload
type ImageMetadata struct {
	ImgType string   `json:"img_type"`
	Tags    []string `json:"tags"`
	Group   *string  `json:"group"`
}

type UpdateImageRequest struct {
	ID    uint    `json:"id"`
	Group *string `json:"group"`
}

func summarize(img *models.Image) ImageSummary {
	return ImageSummary{
		ID:       img.ID,
		ImgType:  img.ImgType,
		Tags:     img.TagList(),
		Group:    img.GroupName(),
		CreateAt: img.CreatedAt.UTC().Format(createdAtFormat),
	}
}

type ImageHandler struct {
	Images repository.ImageRepositoryInterface
	Groups repository.GroupRepositoryInterface
	Cfg    config.Config
}

// parseID reads a positive integer query parameter
func parseID(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return uint(id), nil
}

// parseOptionalInt returns 0 for an absent parameter
func parseOptionalInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return n, nil
}

// ListImages serves GET /api/images/. With ?id it returns the raw image
// bytes, otherwise a filtered, paginated listing.
func (ih *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("id") {
		ih.serveImageData(w, r)
		return
	}

	page, err := parseOptionalInt(r, "page")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	perPage, err := parseOptionalInt(r, "per_page")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if perPage == 0 {
		perPage = ih.Cfg.DefaultPerPage
	}
	if ih.Cfg.MaxPerPage > 0 && perPage > ih.Cfg.MaxPerPage {
		perPage = ih.Cfg.MaxPerPage
	}

	match := r.URL.Query().Get("match")
	if match == "" {
		match = ih.Cfg.TagSearchMode
	}
	if match != "" && !database.IsValidTagMatch(match) {
		writeBadRequest(w, "invalid match mode: "+match)
		return
	}

	result, err := ih.Images.Search(repository.SearchFilter{
		Tag:     r.URL.Query().Get("tag"),
		Group:   r.URL.Query().Get("group"),
		Match:   match,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		writeError(w, err, "Failed to search images")
		return
	}

	resp := ImageListResponse{
		Data: make([]ImageSummary, 0, len(result.Images)),
		Pagination: Pagination{
			Pages:   result.PageInfo.Pages,
			Page:    result.PageInfo.Page,
			PerPage: result.PageInfo.PerPage,
			Total:   result.PageInfo.Total,
		},
	}
	for i := range result.Images {
		resp.Data = append(resp.Data, summarize(&result.Images[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ih *ImageHandler) serveImageData(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	img, err := ih.Images.GetByID(id)
	if err != nil {
		writeError(w, err, "Failed to retrieve image")
		return
	}

	w.Header().Set("Content-Type", "image/"+img.ImgType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		log.Printf("Error writing image %d: %v", id, err)
	}
}

func (ih *ImageHandler) uploadLimit() int64 {
	limit := int64(models.MaxImageBytes)
	if ih.Cfg.MaxImageBytes > 0 && int64(ih.Cfg.MaxImageBytes) < limit {
		limit = int64(ih.Cfg.MaxImageBytes)
	}
	return limit
}

// AddImage serves POST /api/images/add (multipart "image" + "metadata")
func (ih *ImageHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	limit := ih.uploadLimit()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Upload too large"})
			return
		}
		writeBadRequest(w, "Invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeBadRequest(w, "Missing image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeBadRequest(w, "Could not read image file")
		return
	}
	if int64(len(data)) > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: fmt.Sprintf("Image exceeds %d bytes", limit)})
		return
	}

	var meta ImageMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			writeBadRequest(w, "Invalid metadata: "+err.Error())
			return
		}
	}
	if meta.ImgType == "" {
		_, meta.ImgType = utils.SplitFilename(header.Filename)
	}
	if meta.ImgType == "" {
		writeBadRequest(w, "Missing img_type")
		return
	}

	var groupID *uint
	if meta.Group != nil {
		group, err := ih.Groups.GetByName(*meta.Group)
		if errors.Is(err, repository.ErrNotFound) {
			writeBadRequest(w, fmt.Sprintf("Group %q does not exist", *meta.Group))
			return
		}
		if err != nil {
			writeError(w, err, "Failed to look up group")
			return
		}
		groupID = &group.ID
	}

	img, err := ih.Images.Create(data, meta.ImgType, meta.Tags, groupID)
	if err != nil {
		writeError(w, err, "Failed to add image")
		return
	}
	writeMessage(w, fmt.Sprintf("Added image %d", img.ID))
}

// DeleteImage serves GET /api/images/delete?id=
func (ih *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := ih.Images.Delete(id); err != nil {
		writeError(w, err, "Failed to delete image")
		return
	}
	writeMessage(w, fmt.Sprintf("Deleted image %d", id))
}

// UpdateImage serves POST /api/images/update, moving an image into a group
// by name or out of every group when group is null.
func (ih *ImageHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	var req UpdateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.ID == 0 {
		writeBadRequest(w, "Missing required field: id")
		return
	}

	var groupID *uint
	if req.Group != nil {
		group, err := ih.Groups.GetByName(*req.Group)
		if err != nil {
			writeError(w, err, "Failed to look up group")
			return
		}
		groupID = &group.ID
	}

	if _, err := ih.Images.ReassignGroup(req.ID, groupID); err != nil {
		writeError(w, err, "Failed to update image")
		return
	}
	if req.Group == nil {
		writeMessage(w, fmt.Sprintf("Moved image %d out of its group", req.ID))
		return
	}
	writeMessage(w, fmt.Sprintf("Moved image %d to group %q", req.ID, *req.Group))
}
