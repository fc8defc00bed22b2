package server

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/bitterfly/go-chaos/fabrica/database"
	"github.com/bitterfly/go-chaos/fabrica/embed"
	"github.com/bitterfly/go-chaos/fabrica/game"
	"github.com/bitterfly/go-chaos/fabrica/portal"
	"github.com/bitterfly/go-chaos/fabrica/schema"
	"github.com/bitterfly/go-chaos/fabrica/server/containers"
	"github.com/bitterfly/go-chaos/fabrica/utils"
	"github.com/gorilla/mux"
	"gorm.io/datatypes"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	slugAttempts     = 3
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, game.Layouts())
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	kinds := schema.Kinds()
	resp := make([]containers.Kind, 0, len(kinds))
	for _, k := range kinds {
		resp = append(resp, containers.Kind{
			Kind:    k,
			Embed:   k.EmbedID(),
			Address: embed.Resolve(k.EmbedID()),
		})
	}
	writeData(w, http.StatusOK, resp)
}

// kindVar reads the kind path variable, answering 404 when it is unknown.
func kindVar(w http.ResponseWriter, r *http.Request) (schema.Kind, bool) {
	name, err := utils.ParseString(mux.Vars(r), "kind")
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_kind", err.Error())
		return "", false
	}
	kind, ok := schema.ParseKind(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_kind", "unknown game type "+name)
		return "", false
	}
	return kind, true
}

func slugVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	slug, err := utils.ParseString(mux.Vars(r), "slug")
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return "", false
	}
	return slug, true
}

// validGame checks the request and returns the resolved layout and the
// normalized options.
func validGame(w http.ResponseWriter, kind schema.Kind, req *containers.GameRequest) (int, datatypes.JSON, bool) {
	if req.Name == "" || utf8.RuneCountInString(req.Name) > containers.MaxNameLength {
		writeError(w, http.StatusBadRequest, "invalid_name", "name must have between 1 and 255 characters")
		return 0, nil, false
	}
	layout, err := game.ResolveLayout(req.Layout)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_layout", err.Error())
		return 0, nil, false
	}
	options, err := game.Normalize(kind, req.Options)
	if err != nil {
		var verr *game.ValidationError
		switch {
		case errors.As(err, &verr), errors.Is(err, game.ErrOptionsTooLarge):
			writeError(w, http.StatusBadRequest, "invalid_options", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return 0, nil, false
	}
	return layout, datatypes.JSON(options), true
}

func (s *Server) writeDatabaseError(w http.ResponseWriter, handler string, derr *database.DatabaseError) {
	switch derr.ErrorType {
	case database.NotFoundError:
		writeError(w, http.StatusNotFound, "not_found", "game not found")
	case database.ConflictError:
		writeError(w, http.StatusConflict, "conflict", derr.Error())
	default:
		s.Logger.Errorf("[%s] %s", handler, derr)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not access the database")
	}
}

// portalOrigin is the origin claim of a verified token. Claims of unverified
// tokens are not trusted and the configured portal is used instead.
func (s *Server) portalOrigin(payload *Payload) string {
	if !s.Token.Verifies() {
		return ""
	}
	return payload.Origin
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindVar(w, r)
	if !ok {
		return
	}
	req, err := containers.ParseGameRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "bad game json: "+err.Error())
		return
	}
	layout, options, ok := validGame(w, kind, req)
	if !ok {
		return
	}

	obj := &schema.GameObject{
		Kind:    kind,
		Name:    req.Name,
		Layout:  layout,
		Options: options,
	}
	var derr *database.DatabaseError
	for attempt := 0; attempt < slugAttempts; attempt++ {
		obj.Slug = s.newSlug(req.Name)
		derr = database.AddGame(s.DB, obj)
		if derr == nil || derr.ErrorType != database.ConflictError {
			break
		}
		s.Logger.Debugf("[handleCreate] slug %s taken, retrying", obj.Slug)
	}
	if derr != nil {
		s.writeDatabaseError(w, "handleCreate", derr)
		return
	}
	resp := containers.NewGame(obj, s.Config.GameAddress)

	if req.DisciplinaID != nil {
		payload := payloadFrom(r.Context())
		_, err := s.Portal.CreateGameObject(r.Context(), s.portalOrigin(payload), payload.Raw, portal.GameObject{
			Name:         obj.Name,
			Slug:         kind.Path(obj.Slug),
			Material:     resp.URL,
			DisciplinaID: *req.DisciplinaID,
			Series:       req.Series,
		})
		if err != nil {
			s.Logger.Warnf("[handleCreate] could not register %s with the portal: %s", obj.Slug, err)
			writeJSON(w, http.StatusBadGateway, APIError{
				Error:   http.StatusText(http.StatusBadGateway),
				Code:    "portal_error",
				Message: err.Error(),
				Data:    resp,
			})
			return
		}
	}

	s.Logger.Infof("[handleCreate] created %s %s", kind, obj.Slug)
	writeData(w, http.StatusCreated, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindVar(w, r)
	if !ok {
		return
	}
	limit, err := utils.ParseLimit(r.URL.Query(), "limit", defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	games, derr := database.ListGames(s.DB, kind, limit)
	if derr != nil {
		s.writeDatabaseError(w, "handleList", derr)
		return
	}
	resp := make([]containers.Game, 0, len(games))
	for i := range games {
		resp = append(resp, containers.NewGame(&games[i], s.Config.GameAddress))
	}
	writeData(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindVar(w, r)
	if !ok {
		return
	}
	slug, ok := slugVar(w, r)
	if !ok {
		return
	}
	obj, derr := database.GetGameBySlug(s.DB, kind, slug)
	if derr != nil {
		s.writeDatabaseError(w, "handleGet", derr)
		return
	}
	writeData(w, http.StatusOK, containers.NewGame(obj, s.Config.GameAddress))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindVar(w, r)
	if !ok {
		return
	}
	slug, ok := slugVar(w, r)
	if !ok {
		return
	}
	req, err := containers.ParseGameRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "bad game json: "+err.Error())
		return
	}
	layout, options, ok := validGame(w, kind, req)
	if !ok {
		return
	}
	obj, derr := database.UpdateGame(s.DB, kind, slug, req.Name, layout, options)
	if derr != nil {
		s.writeDatabaseError(w, "handleUpdate", derr)
		return
	}
	writeData(w, http.StatusOK, containers.NewGame(obj, s.Config.GameAddress))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindVar(w, r)
	if !ok {
		return
	}
	slug, ok := slugVar(w, r)
	if !ok {
		return
	}
	if derr := database.DeleteGame(s.DB, kind, slug); derr != nil {
		s.writeDatabaseError(w, "handleDelete", derr)
		return
	}
	s.Logger.Infof("[handleDelete] deleted %s %s", kind, slug)
	writeJSON(w, http.StatusOK, APIResponse{Success: true})
}
