package httpapi

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"kasirinaja/backoffice/internal/domain"
)

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusCreated, user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.UpdateUser(r.Context(), pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	source, err := a.service.DeleteUser(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeDeleted(w, source)
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.AssignRole(r.Context(), pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, user)
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.service.Roles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, roles)
}

func (a *API) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := a.service.ListBackups(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, backups)
}

func (a *API) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := a.service.CreateBackup(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusCreated, backup)
}

// handleDownloadBackup streams the backend's file straight to the client.
func (a *API) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	download, err := a.service.DownloadBackup(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer download.Body.Close()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	if download.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.Size, 10))
	}
	setSourceHeaders(w, domain.SourceAPI, "")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, download.Body); err != nil {
		log.Printf("[httpapi] WARN: stream backup %s: %v", r.PathValue("id"), err)
	}
}

func (a *API) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteBackup(r.Context(), pathID(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeDeleted(w, domain.SourceAPI)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.GetSettings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, settings)
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.Settings
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := a.service.UpdateSettings(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, settings)
}

func (a *API) handleReference(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ReferenceList(r.Context(), r.PathValue("kind"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, items)
}

func (a *API) handleSystemLogs(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.SystemLogs(r.Context(), r.URL.Query().Get("level"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, logs)
}
