package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/camden-git/mememanager/models"
	"github.com/camden-git/mememanager/repository"
)

type AddGroupRequest struct {
	Name string `json:"name"`
}

// GroupRef identifies a group by id or, when id is absent, by name
type GroupRef struct {
	ID   *uint  `json:"id"`
	Name string `json:"name"`
}

type UpdateGroupRequest struct {
	GroupRef
	NewName string `json:"new_name"`
}

type GroupHandler struct {
	Groups repository.GroupRepositoryInterface
}

func (gh *GroupHandler) resolve(ref GroupRef) (*models.Group, error) {
	if ref.ID != nil {
		return gh.Groups.GetByID(*ref.ID)
	}
	return gh.Groups.GetByName(ref.Name)
}

// ListGroups serves GET /api/groups/ with every group name in ascending order
func (gh *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := gh.Groups.ListAll()
	if err != nil {
		writeError(w, err, "Failed to retrieve groups")
		return
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: names})
}

func (gh *GroupHandler) AddGroup(w http.ResponseWriter, r *http.Request) {
	var req AddGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}

	group, err := gh.Groups.Create(req.Name)
	if err != nil {
		writeError(w, err, "Failed to create group")
		return
	}
	writeMessage(w, fmt.Sprintf("Added group %q", group.Name))
}

// DeleteGroup serves POST /api/groups/delete; the group's images go with it
func (gh *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.ID == nil && req.Name == "" {
		writeBadRequest(w, "Missing required field: id or name")
		return
	}

	group, err := gh.resolve(req)
	if err != nil {
		writeError(w, err, "Failed to find group")
		return
	}
	if err := gh.Groups.Delete(group.ID); err != nil {
		writeError(w, err, "Failed to delete group")
		return
	}
	writeMessage(w, fmt.Sprintf("Deleted group %q", group.Name))
}

// UpdateGroup serves POST /api/groups/update, renaming a group
func (gh *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.ID == nil && req.Name == "" {
		writeBadRequest(w, "Missing required field: id or name")
		return
	}

	group, err := gh.resolve(req.GroupRef)
	if err != nil {
		writeError(w, err, "Failed to find group")
		return
	}
	oldName := group.Name

	group, err = gh.Groups.Rename(group.ID, req.NewName)
	if err != nil {
		writeError(w, err, "Failed to rename group")
		return
	}
	writeMessage(w, fmt.Sprintf("Renamed group %q to %q", oldName, group.Name))
}
