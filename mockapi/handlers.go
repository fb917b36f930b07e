package mockapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Routes served by the mock API. The client's base URL is the server root
// followed by /api.
const (
	apiPrefix = "/api"

	RouteHealth   = "/healthz"
	RouteLogin    = apiPrefix + "/auth/login/"
	RouteRegister = apiPrefix + "/auth/register/"
	RouteRefresh  = apiPrefix + "/auth/token/refresh/"
	RouteLogout   = apiPrefix + "/auth/logout/"
	RouteProfile  = apiPrefix + "/auth/profile/"

	RouteProject = apiPrefix + "/workspaces/:workspace/projects/:project/"
	RouteColumns = RouteProject + "columns/"
	RouteTasks   = RouteColumns + ":column/tasks/"
	RouteTask    = RouteTasks + ":task/"
	RouteMove    = RouteTask + "move/"
	RouteMembers = RouteProject + "members/"
	RouteMember  = RouteMembers + ":member/"
	RouteExport  = apiPrefix + "/export/tasks_csv/"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store *Store, tokens *Tokens, deduper Deduper, logger *log.Logger) {
	auth := authenticate(tokens, store)
	idem := idempotent(deduper, logger)

	e.GET(RouteHealth, healthz())

	e.POST(RouteLogin, login(store, tokens))
	e.POST(RouteRegister, register(store, tokens))
	e.POST(RouteRefresh, refreshToken(store, tokens))
	e.POST(RouteLogout, logout(store, tokens), auth)
	e.GET(RouteProfile, profile(store), auth)

	e.GET(RouteProject, getProject(store), auth)
	e.GET(RouteColumns, listColumns(store), auth)
	e.POST(RouteColumns, createColumn(store), auth, idem)
	e.GET(RouteTasks, listTasks(store), auth)
	e.POST(RouteTasks, createTask(store), auth, idem)
	e.PATCH(RouteTask, updateTask(store), auth)
	e.DELETE(RouteTask, deleteTask(store), auth)
	e.POST(RouteMove, moveTask(store), auth)
	e.GET(RouteMembers, listMembers(store), auth)
	e.POST(RouteMembers, addMember(store), auth, idem)
	e.DELETE(RouteMember, removeMember(store), auth)
	e.GET(RouteExport, exportTasks(store), auth)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func login(store *Store, tokens *Tokens) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in credentials
		if err := c.Bind(&in); err != nil {
			return err
		}
		if strings.TrimSpace(in.Email) == "" {
			return c.JSON(http.StatusBadRequest, fieldRequired("email"))
		}
		if in.Password == "" {
			return c.JSON(http.StatusBadRequest, fieldRequired("password"))
		}
		u, err := store.authenticate(in.Email, in.Password)
		if err != nil {
			return fail(c, err)
		}
		access, refresh, err := tokens.Pair(u.ID)
		if err != nil {
			return fail(c, err)
		}
		user := renderUser(u)
		return c.JSON(http.StatusOK, tokensJSON{Access: access, Refresh: refresh, User: &user})
	}
}

type registration struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FullName  string `json:"full_name"`
}

func register(store *Store, tokens *Tokens) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in registration
		if err := c.Bind(&in); err != nil {
			return err
		}
		if in.Password2 != "" && in.Password != in.Password2 {
			return c.JSON(http.StatusBadRequest, map[string][]string{"password": {"Password fields didn't match."}})
		}
		id, err := store.CreateUser(in.Email, in.Username, in.FullName, in.Password)
		if err != nil {
			return fail(c, err)
		}
		u, _ := store.user(id)
		access, refresh, err := tokens.Pair(id)
		if err != nil {
			return fail(c, err)
		}
		user := renderUser(u)
		return c.JSON(http.StatusCreated, tokensJSON{Access: access, Refresh: refresh, User: &user})
	}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func invalidToken(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"detail": "Token is invalid or expired",
		"code":   "token_not_valid",
	})
}

// refreshToken rotates the refresh token: the presented one is revoked and a
// new pair is returned.
func refreshToken(store *Store, tokens *Tokens) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in refreshRequest
		if err := c.Bind(&in); err != nil {
			return err
		}
		if in.Refresh == "" {
			return c.JSON(http.StatusBadRequest, fieldRequired("refresh"))
		}
		claims, err := tokens.Verify(in.Refresh, tokenRefresh)
		if err != nil || store.isRevoked(claims.ID) {
			return invalidToken(c)
		}
		if _, ok := store.user(claims.UserID); !ok {
			return invalidToken(c)
		}
		store.revoke(claims.ID)
		access, refresh, err := tokens.Pair(claims.UserID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, tokensJSON{Access: access, Refresh: refresh})
	}
}

func logout(store *Store, tokens *Tokens) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in refreshRequest
		if err := c.Bind(&in); err != nil {
			return err
		}
		if in.Refresh == "" {
			return c.JSON(http.StatusBadRequest, fieldRequired("refresh"))
		}
		claims, err := tokens.Verify(in.Refresh, tokenRefresh)
		if err != nil || claims.UserID != currentUser(c) {
			return c.JSON(http.StatusBadRequest, detail("Token is invalid or expired"))
		}
		store.revoke(claims.ID)
		return c.NoContent(http.StatusResetContent)
	}
}

func profile(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := store.user(currentUser(c))
		if !ok {
			return fail(c, errNotFound)
		}
		return respondSuccess(c, http.StatusOK, "", renderUser(u))
	}
}
