package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/camden-git/mememanager/repository"
)

type AddTagsRequest struct {
	ImageID uint     `json:"image_id"`
	Tags    []string `json:"tags"`
}

type DeleteTagRequest struct {
	ImageID uint   `json:"image_id"`
	Tag     string `json:"tag"`
}

type TagHandler struct {
	Images repository.ImageRepositoryInterface
}

// ListTags serves GET /api/tags/?image_id=
func (th *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "image_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	img, err := th.Images.GetByID(id)
	if err != nil {
		writeError(w, err, "Failed to retrieve tags")
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: img.TagList()})
}

// AddTags serves POST /api/tags/add
func (th *TagHandler) AddTags(w http.ResponseWriter, r *http.Request) {
	var req AddTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.ImageID == 0 {
		writeBadRequest(w, "Missing required field: image_id")
		return
	}

	if _, err := th.Images.AddTags(req.ImageID, req.Tags); err != nil {
		writeError(w, err, "Failed to add tags")
		return
	}
	writeMessage(w, fmt.Sprintf("Added tags [%s] to image %d", strings.Join(req.Tags, ", "), req.ImageID))
}

// DeleteTag serves POST /api/tags/delete, removing the first occurrence of a tag
func (th *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	var req DeleteTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.ImageID == 0 || req.Tag == "" {
		writeBadRequest(w, "Missing required fields: image_id and tag")
		return
	}

	if _, err := th.Images.RemoveTag(req.ImageID, req.Tag); err != nil {
		writeError(w, err, "Failed to delete tag")
		return
	}
	writeMessage(w, fmt.Sprintf("Removed tag %q from image %d", req.Tag, req.ImageID))
}
