// MIT License
//
// Copyright (c) 2016 Rick Beton
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package echoadapter mounts a tinycdn.Assets handler as an echo.HandlerFunc.
package echoadapter

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rickb777/tinycdn"
)

// Handler wraps a *tinycdn.Assets for use as an Echo route handler.
type Handler struct {
	Assets *tinycdn.Assets
}

// New wraps assets for mounting under an Echo catch-all route.
func New(assets *tinycdn.Assets) *Handler {
	return &Handler{Assets: assets}
}

// HandlerFunc returns an echo.HandlerFunc for a catch-all path such as
// "/files/*". The matched prefix is stripped from the request URL before
// tinycdn.Assets resolves it against Source/Dest.
func (h *Handler) HandlerFunc(routePath string) echo.HandlerFunc {
	if !strings.HasSuffix(routePath, "/*") {
		panic(routePath + ": path must end /*")
	}
	trim := len(routePath) - 2

	return func(c echo.Context) error {
		req := c.Request()
		req.URL.Path = req.URL.Path[trim:]
		h.Assets.ServeHTTP(c.Response(), req)
		return nil
	}
}

// Register registers the handler with e for GET and HEAD under a catch-all
// path such as "/files/*".
func (h *Handler) Register(e *echo.Echo, routePath string) {
	hf := h.HandlerFunc(routePath)
	e.GET(routePath, hf)
	e.HEAD(routePath, hf)
}
