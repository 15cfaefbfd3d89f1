package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/rango/internal/auth"
	"github.com/patric-chuzhbe/rango/internal/forms"
	"github.com/patric-chuzhbe/rango/internal/logger"
	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/session"
	"github.com/patric-chuzhbe/rango/internal/visits"
)

const (
	aboutMessage      = "Rango says here is the about page."
	restrictedMessage = "Since you're logged in, you can see this view."
	tooLargeMessage   = "The uploaded data is too large."
	disabledMessage   = "Your Rango account is disabled."
	invalidMessage    = "Invalid login details supplied."

	maxUploadMemory = 10 << 20
)

func (rt *Router) index(r *http.Request, sess session.Session) (session.Session, *response) {
	categories, err := rt.service.TopCategories(r.Context())
	if err != nil {
		return sess, failure(err)
	}

	pages, err := rt.service.TopPages(r.Context())
	if err != nil {
		return sess, failure(err)
	}

	sess, visitCount := visits.Track(sess, rt.now())

	return sess, render("index.html", map[string]interface{}{
		"Categories": categories,
		"Pages":      pages,
		"Visits":     visitCount,
	})
}

func (rt *Router) about(r *http.Request, sess session.Session) (session.Session, *response) {
	return sess, render("about.html", map[string]interface{}{
		"AboutMessage": aboutMessage,
		"Count":        visits.Count(sess),
	})
}

func (rt *Router) categoryDetail(r *http.Request, sess session.Session) (session.Session, *response) {
	category, found, err := rt.service.GetCategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		return sess, failure(err)
	}
	if !found {
		return sess, render("category.html", nil)
	}

	pages, err := rt.service.ListPagesForCategory(r.Context(), category)
	if err != nil {
		return sess, failure(err)
	}

	return sess, render("category.html", map[string]interface{}{
		"CategoryName":     category.Name,
		"Category":         category,
		"Pages":            pages,
		"CategoryNameSlug": category.Slug,
	})
}

func (rt *Router) addCategory(r *http.Request, sess session.Session) (session.Session, *response) {
	form := &forms.CategoryForm{}
	formErrors := models.FormErrors{}

	if r.Method == http.MethodPost {
		form.Name = r.PostFormValue("name")

		_, errs, err := rt.service.AddCategory(r.Context(), form)
		if err != nil {
			return sess, failure(err)
		}
		if len(errs) == 0 {
			return sess, redirectTo("/", http.StatusSeeOther)
		}
		logger.Log.Debugw("invalid category form", "errors", errs)
		formErrors = errs
	}

	return sess, render("add_category.html", map[string]interface{}{
		"Form":   form,
		"Errors": formErrors,
	})
}

func (rt *Router) addPage(r *http.Request, sess session.Session) (session.Session, *response) {
	slug := chi.URLParam(r, "slug")
	category, found, err := rt.service.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		return sess, failure(err)
	}
	if !found {
		category = nil
	}

	form := &forms.PageForm{}
	formErrors := models.FormErrors{}

	if r.Method == http.MethodPost {
		form.Title = r.PostFormValue("title")
		form.URL = r.PostFormValue("url")

		page, errs, err := rt.service.AddPage(r.Context(), category, form)
		if err != nil {
			return sess, failure(err)
		}
		if page != nil {
			return sess, redirectTo("/category/"+slug+"/", http.StatusSeeOther)
		}
		logger.Log.Debugw("page was not added", "slug", slug, "errors", errs)
		formErrors = errs
	}

	return sess, render("add_page.html", map[string]interface{}{
		"Form":     form,
		"Errors":   formErrors,
		"Category": category,
		"Slug":     slug,
	})
}

func readPicture(r *http.Request) (*forms.Image, error) {
	file, header, err := r.FormFile("picture")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &forms.Image{Filename: header.Filename, Data: data}, nil
}

func (rt *Router) register(r *http.Request, sess session.Session) (session.Session, *response) {
	userForm := &forms.UserForm{}
	profileForm := &forms.UserProfileForm{}
	formErrors := models.FormErrors{}
	registered := false

	if r.Method == http.MethodPost {
		err := r.ParseMultipartForm(maxUploadMemory)
		if err != nil && !errors.Is(err, http.ErrNotMultipart) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || r.ContentLength > rt.maxBodySize {
				return sess, text(http.StatusRequestEntityTooLarge, tooLargeMessage)
			}
			return sess, text(http.StatusBadRequest, err.Error())
		}

		userForm.Username = r.PostFormValue("username")
		userForm.Email = r.PostFormValue("email")
		userForm.Password = r.PostFormValue("password")
		profileForm.Website = r.PostFormValue("website")

		profileForm.Picture, err = readPicture(r)
		if err != nil {
			return sess, text(http.StatusBadRequest, err.Error())
		}

		_, errs, err := rt.service.Register(r.Context(), userForm, profileForm)
		if err != nil {
			return sess, failure(err)
		}
		formErrors = errs
		registered = len(errs) == 0
		userForm.Password = ""
	}

	return sess, render("register.html", map[string]interface{}{
		"UserForm":    userForm,
		"ProfileForm": profileForm,
		"Errors":      formErrors,
		"Registered":  registered,
	})
}

func (rt *Router) login(r *http.Request, sess session.Session) (session.Session, *response) {
	next := r.URL.Query().Get("next")

	if r.Method != http.MethodPost {
		return sess, render("login.html", map[string]interface{}{
			"Next": next,
		})
	}

	if posted := r.PostFormValue("next"); posted != "" {
		next = posted
	}
	username := r.PostFormValue("username")

	usr, err := rt.auth.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		message := invalidMessage
		switch {
		case errors.Is(err, auth.ErrAccountDisabled):
			message = disabledMessage
		case errors.Is(err, auth.ErrInvalidCredentials):
			logger.Log.Infow("invalid login details", "username", username)
		default:
			return sess, failure(err)
		}

		return sess, render("login.html", map[string]interface{}{
			"Next":     next,
			"Username": username,
			"Error":    message,
		})
	}

	sess.UserID = usr.ID

	return sess, redirectTo(safeNext(next), http.StatusFound)
}

func (rt *Router) logout(r *http.Request, sess session.Session) (session.Session, *response) {
	return session.Session{}, redirectTo("/", http.StatusFound)
}

func (rt *Router) restricted(r *http.Request, sess session.Session) (session.Session, *response) {
	return sess, text(http.StatusOK, restrictedMessage)
}

func (rt *Router) gotoPage(r *http.Request, sess session.Session) (session.Session, *response) {
	pageID, err := strconv.ParseInt(r.URL.Query().Get("page_id"), 10, 64)
	if err != nil {
		return sess, redirectTo("/", http.StatusFound)
	}

	pageURL, found, err := rt.service.TrackPageView(r.Context(), pageID)
	if err != nil {
		return sess, failure(err)
	}
	if !found {
		return sess, redirectTo("/", http.StatusFound)
	}

	return sess, redirectTo(pageURL, http.StatusFound)
}

func (rt *Router) likeCategory(r *http.Request, sess session.Session) (session.Session, *response) {
	categoryID, err := strconv.ParseInt(r.PostFormValue("category_id"), 10, 64)
	if err != nil {
		return sess, text(http.StatusBadRequest, "category_id must be an integer")
	}

	likes, err := rt.service.LikeCategory(r.Context(), categoryID)
	if errors.Is(err, models.ErrCategoryNotFound) {
		return sess, text(http.StatusNotFound, "category not found")
	}
	if err != nil {
		return sess, failure(err)
	}

	return sess, text(http.StatusOK, strconv.FormatInt(likes, 10))
}

func (rt *Router) ping(w http.ResponseWriter, r *http.Request) {
	if err := rt.service.Ping(r.Context()); err != nil {
		logger.Log.Errorw("storage ping failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.service.Stats(r.Context())
	if err != nil {
		rt.writeServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		logger.Log.Errorw("could not encode stats", "error", err)
	}
}
