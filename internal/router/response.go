package router

import (
	"net/http"
	"net/url"
	"strings"
)

// response describes what a page handler wants sent back: a rendered
// template, a redirect or a plain text body.
type response struct {
	status   int
	template string
	data     map[string]interface{}
	location string
	text     string
	err      error
}

func render(templateName string, data map[string]interface{}) *response {
	return renderWithStatus(http.StatusOK, templateName, data)
}

func renderWithStatus(status int, templateName string, data map[string]interface{}) *response {
	if data == nil {
		data = map[string]interface{}{}
	}

	return &response{
		status:   status,
		template: templateName,
		data:     data,
	}
}

func redirectTo(location string, status int) *response {
	return &response{
		status:   status,
		location: location,
	}
}

func text(status int, body string) *response {
	return &response{
		status: status,
		text:   body,
	}
}

func failure(err error) *response {
	return &response{
		status: http.StatusInternalServerError,
		err:    err,
	}
}

func loginURL(next string) string {
	return "/login/?next=" + url.QueryEscape(next)
}

// safeNext returns next when it is a path on this site, "/" otherwise.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") ||
		strings.HasPrefix(next, `/\`) {
		return "/"
	}

	return next
}
