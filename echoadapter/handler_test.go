package echoadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rickb777/expect"
	"github.com/spf13/afero"

	"github.com/rickb777/tinycdn"
)

func TestHandlerFuncServesAsset(t *testing.T) {
	source := afero.NewMemMapFs()
	expect.Error(afero.WriteFile(source, "/app.js", []byte("console.log(1)"), 0644)).Not().ToHaveOccurred(t)

	assets, err := tinycdn.New(tinycdn.Config{Source: source, Dest: afero.NewMemMapFs()})
	expect.Error(err).Not().ToHaveOccurred(t)

	e := echo.New()
	New(assets).Register(e, "/files/*")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/files/app.js", nil)
	e.ServeHTTP(w, req)

	expect.Number(w.Code).ToBe(t, http.StatusOK)
	expect.String(w.Body.String()).ToBe(t, "console.log(1)")
}
