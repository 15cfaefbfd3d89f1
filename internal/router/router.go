// Package router wires the HTTP routes of the site to their handlers and
// renders the HTML templates embedded in the binary.
package router

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/patric-chuzhbe/rango/internal/forms"
	"github.com/patric-chuzhbe/rango/internal/gzippedhttp"
	"github.com/patric-chuzhbe/rango/internal/logger"
	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/session"
	"github.com/patric-chuzhbe/rango/internal/user"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(
	template.New("").
		Funcs(template.FuncMap{
			"fieldError": func(formErrors models.FormErrors, field string) string {
				return formErrors[field]
			},
		}).
		ParseFS(templatesFS, "templates/*.html"),
)

const serverErrorMessage = "A server error occurred. Please contact the administrator."

type rangoService interface {
	TopCategories(ctx context.Context) ([]models.Category, error)

	TopPages(ctx context.Context) ([]models.Page, error)

	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, bool, error)

	ListPagesForCategory(ctx context.Context, category *models.Category) ([]models.Page, error)

	AddCategory(ctx context.Context, form *forms.CategoryForm) (*models.Category, models.FormErrors, error)

	AddPage(
		ctx context.Context,
		category *models.Category,
		form *forms.PageForm,
	) (*models.Page, models.FormErrors, error)

	Register(
		ctx context.Context,
		userForm *forms.UserForm,
		profileForm *forms.UserProfileForm,
	) (*user.User, models.FormErrors, error)

	TrackPageView(ctx context.Context, pageID int64) (string, bool, error)

	LikeCategory(ctx context.Context, categoryID int64) (int64, error)

	Stats(ctx context.Context) (models.StatsResponse, error)

	Ping(ctx context.Context) error
}

type authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*user.User, error)

	CurrentUser(ctx context.Context, userID string) (*user.User, bool, error)
}

type sessionStore interface {
	Load(request *http.Request) session.Session

	Save(response http.ResponseWriter, sess session.Session) error
}

type subnetGate interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

type Router struct {
	service     rangoService
	auth        authenticator
	sessions    sessionStore
	now         func() time.Time
	maxBodySize int64
}

const defaultMaxBodySize = 10 << 20

type initOptions struct {
	clock       func() time.Time
	mediaRoot   string
	maxBodySize int64
}

type InitOption func(*initOptions)

// WithClock replaces time.Now as the source of the current time.
func WithClock(clock func() time.Time) InitOption {
	return func(options *initOptions) {
		options.clock = clock
	}
}

// WithMediaRoot serves the files below root under /media/.
func WithMediaRoot(root string) InitOption {
	return func(options *initOptions) {
		options.mediaRoot = root
	}
}

// WithMaxBodySize limits request bodies to size bytes.
func WithMaxBodySize(size int64) InitOption {
	return func(options *initOptions) {
		options.maxBodySize = size
	}
}

// pageHandler receives the session of the request and returns the session
// to keep together with the response to send.
type pageHandler func(request *http.Request, sess session.Session) (session.Session, *response)

func New(
	service rangoService,
	auth authenticator,
	sessions sessionStore,
	gate subnetGate,
	optionsProto ...InitOption,
) *chi.Mux {
	options := &initOptions{
		clock:       time.Now,
		maxBodySize: defaultMaxBodySize,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	rt := &Router{
		service:     service,
		auth:        auth,
		sessions:    sessions,
		now:         options.clock,
		maxBodySize: options.maxBodySize,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(middleware.Recoverer)
	router.Use(gzippedhttp.GzipResponse)
	router.Use(middleware.RequestSize(options.maxBodySize))

	router.Get(`/`, rt.page(rt.index))
	router.Get(`/about/`, rt.page(rt.about))
	router.Get(`/category/{slug}/`, rt.page(rt.categoryDetail))
	router.Get(`/add_category/`, rt.page(rt.addCategory))
	router.Post(`/add_category/`, rt.page(rt.addCategory))
	router.Get(`/category/{slug}/add_page/`, rt.page(rt.addPage))
	router.Post(`/category/{slug}/add_page/`, rt.page(rt.addPage))
	router.Get(`/register/`, rt.page(rt.register))
	router.Post(`/register/`, rt.page(rt.register))
	router.Get(`/login/`, rt.page(rt.login))
	router.Post(`/login/`, rt.page(rt.login))
	router.Get(`/restricted/`, rt.page(rt.loginRequired(rt.restricted)))
	router.Get(`/logout/`, rt.page(rt.loginRequired(rt.logout)))
	router.Get(`/goto/`, rt.page(rt.gotoPage))
	router.Post(`/like_category/`, rt.page(rt.loginRequired(rt.likeCategory)))
	router.Get(`/ping`, rt.ping)
	router.With(gate.TrustedSubnetOnly).Get(`/api/internal/stats`, rt.stats)

	if options.mediaRoot != "" {
		router.With(mediaHeaders).Handle(
			`/media/*`,
			http.StripPrefix("/media/", http.FileServer(http.Dir(options.mediaRoot))),
		)
	}

	return router
}

// mediaHeaders keeps uploaded files from being interpreted as anything but
// the type they were served with, and from running scripts if they are.
func mediaHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		h.ServeHTTP(w, r)
	})
}

// page adapts a pageHandler to net/http. The session cookie is written only
// when the handler changed the session.
func (rt *Router) page(h pageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := rt.sessions.Load(r)

		newSess, resp := h(r, sess)
		if resp.err != nil {
			rt.writeServerError(w, r, resp.err)
			return
		}

		if newSess != sess {
			if err := rt.sessions.Save(w, newSess); err != nil {
				rt.writeServerError(w, r, err)
				return
			}
		}

		rt.write(w, r, newSess, resp)
	}
}

// loginRequired redirects to the login page unless the session belongs to
// an existing active account.
func (rt *Router) loginRequired(h pageHandler) pageHandler {
	return func(r *http.Request, sess session.Session) (session.Session, *response) {
		_, found, err := rt.auth.CurrentUser(r.Context(), sess.UserID)
		if err != nil {
			return sess, failure(err)
		}
		if !found {
			return sess, redirectTo(loginURL(r.URL.Path), http.StatusFound)
		}

		return h(r, sess)
	}
}

func (rt *Router) write(w http.ResponseWriter, r *http.Request, sess session.Session, resp *response) {
	switch {
	case resp.location != "":
		http.Redirect(w, r, resp.location, resp.status)
	case resp.template != "":
		if _, ok := resp.data["User"]; !ok {
			resp.data["User"] = rt.templateUser(r.Context(), sess)
		}
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, resp.template, resp.data); err != nil {
			rt.writeServerError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(resp.status)
		_, _ = buf.WriteTo(w)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.text))
	}
}

// templateUser is the logged-in account shown in the page header, nil for
// anonymous visitors.
func (rt *Router) templateUser(ctx context.Context, sess session.Session) *user.User {
	usr, found, err := rt.auth.CurrentUser(ctx, sess.UserID)
	if err != nil {
		logger.Log.Warnw("could not resolve the session user", "error", err)
		return nil
	}
	if !found {
		return nil
	}

	return usr
}

func (rt *Router) writeServerError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Log.Errorw(
		"request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"uri", r.RequestURI,
		"error", err,
	)
	http.Error(w, serverErrorMessage, http.StatusInternalServerError)
}
