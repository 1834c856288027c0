package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/triage/pkg/triage/stats"
	"github.com/jamesainslie/triage/pkg/triage/types"
	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

// pageData is passed to the HTML templates.
type pageData struct {
	View  types.View
	Stats *stats.Summary
	Flash string
	Error string
	Path  string
}

// apiResponse is the JSON body of every /api endpoint.
type apiResponse struct {
	View    types.View        `json:"view"`
	Stats   *stats.Summary    `json:"stats,omitempty"`
	Action  *types.MoveAction `json:"action,omitempty"`
	Undo    *types.UndoResult `json:"undo,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}

// workspaceFor resolves the request's session, issuing a cookie if needed.
func (srv *Server) workspaceFor(w http.ResponseWriter, r *http.Request) (string, *workspace.Session, error) {
	id := srv.sessionID(w, r)
	ws, err := srv.registry.Get(id)
	if err != nil {
		return "", nil, err
	}
	return id, ws, nil
}

func (srv *Server) save(id string) {
	if err := srv.registry.Save(id); err != nil {
		srv.logger.Warn("persisting session failed", "id", id, "error", err)
	}
}

func (srv *Server) summary(root string) *stats.Summary {
	if root == "" {
		return nil
	}
	sum, err := stats.Collect(root, srv.extensions)
	if err != nil {
		srv.logger.Debug("collecting stats failed", "root", root, "error", err)
		return nil
	}
	return sum
}

func (srv *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := srv.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		srv.logger.Error("rendering template failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirectView sends the browser back to the view of root.
func redirectView(w http.ResponseWriter, r *http.Request, root, flash string) {
	if root == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	q := url.Values{}
	q.Set("path", root)
	if flash != "" {
		q.Set("flash", flash)
	}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

func (srv *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, ws, err := srv.workspaceFor(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		hadRoot := ws.Root() != ""
		if err := srv.registry.Forget(id); err != nil {
			srv.logger.Warn("clearing session failed", "id", id, "error", err)
		}
		if hadRoot {
			srv.rootsChanged()
		}
		srv.render(w, http.StatusOK, "select_folder.html", pageData{Path: srv.defaultRoot})
		return
	}

	before := ws.Root()
	if err := ws.Activate(path); err != nil {
		srv.logger.Debug("activate failed", "path", path, "error", err)
		srv.render(w, types.StatusCode(err), "select_folder.html", pageData{
			Path:  path,
			Error: types.UserMessage(err),
		})
		return
	}
	srv.save(id)
	if ws.Root() != before {
		srv.rootsChanged()
	}

	view := ws.CurrentView()
	srv.render(w, http.StatusOK, "index.html", pageData{
		View:  view,
		Stats: srv.summary(view.Root),
		Flash: r.URL.Query().Get("flash"),
		Path:  view.Root,
	})
}

// handleImageFile serves a regular file under the session's active root.
func (srv *Server) handleImageFile(w http.ResponseWriter, r *http.Request) {
	_, ws, err := srv.workspaceFor(w, r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	root := ws.Root()
	path := r.URL.Query().Get("path")
	if root == "" || path == "" || !within(root, path) {
		http.NotFound(w, r)
		return
	}

	clean := filepath.Clean(path)
	info, err := os.Lstat(clean)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, clean)
}

// within reports whether path lies under root after cleaning.
func within(root, path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// classify runs a classify request. An empty image_path classifies the
// current image.
func classify(ws *workspace.Session, r *http.Request) (types.MoveAction, error) {
	tag := r.FormValue("tag")
	if image := r.FormValue("image_path"); image != "" {
		return ws.ClassifyImage(types.ImagePath(image), tag)
	}
	return ws.Classify(tag)
}

func undoMessage(res types.UndoResult) string {
	switch {
	case !res.Performed:
		return "Nothing to undo."
	case res.Skipped:
		return fmt.Sprintf("%s was no longer in %s; removed it from history.",
			res.Action.Destination.Base(), filepath.Base(res.Action.Destination.Dir()))
	default:
		return "Restored " + res.Action.Source.Base() + "."
	}
}

func (srv *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	id, ws, err := srv.workspaceFor(w, r)
	if err != nil || ws.Root() == "" {
		redirectView(w, r, "", "")
		return
	}

	action, err := classify(ws, r)
	switch {
	case errors.Is(err, types.ErrNothingToClassify):
		redirectView(w, r, ws.Root(), "")
	case err != nil:
		srv.logger.Info("classify rejected", "error", err)
		redirectView(w, r, ws.Root(), types.UserMessage(err))
	default:
		srv.save(id)
		redirectView(w, r, ws.Root(), fmt.Sprintf("Moved %s to %s.", action.Source.Base(), action.Tag))
	}
}

func (srv *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	id, ws, err := srv.workspaceFor(w, r)
	if err != nil || ws.Root() == "" {
		redirectView(w, r, "", "")
		return
	}
	ws.Skip()
	srv.save(id)
	redirectView(w, r, ws.Root(), "")
}

func (srv *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	id, ws, err := srv.workspaceFor(w, r)
	if err != nil || ws.Root() == "" {
		redirectView(w, r, "", "")
		return
	}

	res, err := ws.Undo()
	if err != nil {
		srv.logger.Info("undo failed", "error", err)
		redirectView(w, r, ws.Root(), types.UserMessage(err))
		return
	}
	srv.save(id)
	redirectView(w, r, ws.Root(), undoMessage(res))
}

func (srv *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	id, ws, err := srv.workspaceFor(w, r)
	if err != nil || ws.Root() == "" {
		redirectView(w, r, "", "")
		return
	}

	if err := ws.Reconcile(); err != nil {
		redirectView(w, r, ws.Root(), types.UserMessage(err))
		return
	}
	srv.save(id)
	redirectView(w, r, ws.Root(), "Rescanned folder.")
}

func (srv *Server) writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		srv.logger.Debug("writing response failed", "error", err)
	}
}

func (srv *Server) writeAPIError(w http.ResponseWriter, ws *workspace.Session, err error) {
	body := apiResponse{Error: err.Error(), Message: types.UserMessage(err)}
	if ws != nil {
		body.View = ws.CurrentView()
	}
	srv.writeJSON(w, types.StatusCode(err), body)
}

// apiWorkspace resolves the session for an /api request. A "path" form or
// query value activates that root first.
func (srv *Server) apiWorkspace(w http.ResponseWriter, r *http.Request) (string, *workspace.Session, bool) {
	id, ws, err := srv.workspaceFor(w, r)
	if err != nil {
		srv.writeJSON(w, http.StatusBadRequest, apiResponse{Error: err.Error()})
		return "", nil, false
	}
	if path := strings.TrimSpace(r.FormValue("path")); path != "" {
		before := ws.Root()
		if err := ws.Activate(path); err != nil {
			srv.writeAPIError(w, ws, err)
			return "", nil, false
		}
		if ws.Root() != before {
			srv.save(id)
			srv.rootsChanged()
		}
	}
	if ws.Root() == "" {
		srv.writeAPIError(w, ws, fmt.Errorf("no active folder: %w", types.ErrWorkspaceNotFound))
		return "", nil, false
	}
	return id, ws, true
}

func (srv *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := srv.apiWorkspace(w, r)
	if !ok {
		return
	}
	view := ws.CurrentView()
	srv.writeJSON(w, http.StatusOK, apiResponse{View: view, Stats: srv.summary(view.Root)})
}

func (srv *Server) handleAPIClassify(w http.ResponseWriter, r *http.Request) {
	id, ws, ok := srv.apiWorkspace(w, r)
	if !ok {
		return
	}
	action, err := classify(ws, r)
	if err != nil {
		srv.writeAPIError(w, ws, err)
		return
	}
	srv.save(id)
	srv.writeJSON(w, http.StatusOK, apiResponse{View: ws.CurrentView(), Action: &action})
}

func (srv *Server) handleAPISkip(w http.ResponseWriter, r *http.Request) {
	id, ws, ok := srv.apiWorkspace(w, r)
	if !ok {
		return
	}
	ws.Skip()
	srv.save(id)
	srv.writeJSON(w, http.StatusOK, apiResponse{View: ws.CurrentView()})
}

func (srv *Server) handleAPIUndo(w http.ResponseWriter, r *http.Request) {
	id, ws, ok := srv.apiWorkspace(w, r)
	if !ok {
		return
	}
	res, err := ws.Undo()
	if err != nil {
		srv.writeAPIError(w, ws, err)
		return
	}
	srv.save(id)
	srv.writeJSON(w, http.StatusOK, apiResponse{View: ws.CurrentView(), Undo: &res, Message: undoMessage(res)})
}

func (srv *Server) handleAPIReconcile(w http.ResponseWriter, r *http.Request) {
	id, ws, ok := srv.apiWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.Reconcile(); err != nil {
		srv.writeAPIError(w, ws, err)
		return
	}
	srv.save(id)
	srv.writeJSON(w, http.StatusOK, apiResponse{View: ws.CurrentView()})
}
