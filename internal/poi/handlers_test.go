package poi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func passthrough(c *fiber.Ctx) error { return c.Next() }

func denyAdmin(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusForbidden, "admin only")
}

func newApp(svc *Service, admin fiber.Handler) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/pois"), svc, passthrough, admin)
	return app
}

func TestCreateAndListHandlers(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, &fakeStore{}, parkBounds, nil)
	app := newApp(svc, passthrough)

	expectEmptyLoad(mock)
	mock.ExpectQuery(`INSERT INTO pois`).
		WithArgs(pgxmock.AnyArg(), "Cunningham Falls", 39.6298, -77.4602, "2024-07-04",
			nil, nil, nil, nil, "moderate").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	// warm the snapshot first so the create lands in it
	req := httptest.NewRequest(http.MethodGet, "/pois/", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}

	body, _ := json.Marshal(POI{Name: "Cunningham Falls", Lat: 39.6298, Lng: -77.4602,
		VisitedDate: "2024-07-04", Difficulty: DifficultyModerate})
	req = httptest.NewRequest(http.MethodPost, "/pois/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v %d", err, resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/pois/", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
	var pois []POI
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &pois); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(pois) != 1 || pois[0].Name != "Cunningham Falls" {
		t.Fatalf("unexpected list: %+v", pois)
	}
}

func TestCreateHandlerValidationStatus(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, &fakeStore{}, parkBounds, nil), passthrough)

	body, _ := json.Marshal(POI{Name: "Somewhere Else", Lat: 12.0, Lng: 8.0, VisitedDate: "2024-07-04"})
	req := httptest.NewRequest(http.MethodPost, "/pois/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-park coordinates")
	}
}

func TestCreateHandlerParseError(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, &fakeStore{}, parkBounds, nil), passthrough)

	req := httptest.NewRequest(http.MethodPost, "/pois/", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestWriteRoutesRequireAdmin(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, &fakeStore{}, parkBounds, nil), denyAdmin)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/pois/"},
		{http.MethodPut, "/pois/poi-1"},
		{http.MethodDelete, "/pois/poi-1"},
		{http.MethodPost, "/pois/poi-1/photos"},
		{http.MethodPut, "/pois/poi-1/photos/photo-1/hero"},
		{http.MethodDelete, "/pois/photos/photo-1"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		resp, err := app.Test(req)
		if err != nil || resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %v %d", tc.method, tc.path, err, resp.StatusCode)
		}
	}
}

func TestGetHandlerNotFound(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, &fakeStore{}, parkBounds, nil), passthrough)

	mock.ExpectQuery(`FROM pois p\s+LEFT JOIN poi_photos`).WithArgs("gone").
		WillReturnRows(poiRows())

	req := httptest.NewRequest(http.MethodGet, "/pois/gone", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404")
	}
}

func TestUploadPhotoHandler(t *testing.T) {
	mock := newMock(t)
	store := &fakeStore{}
	app := newApp(NewService(mock, store, parkBounds, nil), passthrough)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("poi-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO poi_photos`).
		WithArgs(pgxmock.AnyArg(), "poi-1", pgxmock.AnyArg(), "lakeside").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("photo", "lake.jpg")
	part.Write([]byte("jpeg bytes"))
	w.WriteField("caption", "lakeside")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/pois/poi-1/photos", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: %v %d", err, resp.StatusCode)
	}

	var photo Photo
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &photo); err != nil {
		t.Fatalf("decode photo: %v", err)
	}
	if photo.POIID != "poi-1" || photo.IsHero {
		t.Fatalf("unexpected photo: %+v", photo)
	}
	if len(store.uploaded) != 1 {
		t.Fatalf("expected binary uploaded")
	}
}

func TestUploadPhotoHandlerMissingFile(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, &fakeStore{}, parkBounds, nil), passthrough)

	req := httptest.NewRequest(http.MethodPost, "/pois/poi-1/photos", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request without a file")
	}
}

func TestSetHeroHandler(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, &fakeStore{}, parkBounds, nil), passthrough)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE poi_photos SET is_hero=false`).WithArgs("poi-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`UPDATE poi_photos SET is_hero=true`).WithArgs("photo-1", "poi-1").
		WillReturnRows(pgxmock.NewRows([]string{"storage_url"}).AddRow("https://photos.test/a.jpg"))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPut, "/pois/poi-1/photos/photo-1/hero", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set hero status: %v %d", err, resp.StatusCode)
	}
}

func TestDeleteHandlers(t *testing.T) {
	mock := newMock(t)
	store := &fakeStore{}
	app := newApp(NewService(mock, store, parkBounds, nil), passthrough)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("poi-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT storage_url FROM poi_photos`).WithArgs("poi-1").
		WillReturnRows(pgxmock.NewRows([]string{"storage_url"}))
	mock.ExpectExec(`DELETE FROM poi_photos`).WithArgs("poi-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM pois`).WithArgs("poi-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	req := httptest.NewRequest(http.MethodDelete, "/pois/poi-1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete poi status: %v %d", err, resp.StatusCode)
	}

	mock.ExpectQuery(`SELECT poi_id, storage_url, is_hero FROM poi_photos`).WithArgs("photo-1").
		WillReturnRows(pgxmock.NewRows([]string{"poi_id", "storage_url", "is_hero"}).
			AddRow("poi-1", "https://photos.test/a.jpg", false))
	mock.ExpectExec(`DELETE FROM poi_photos WHERE id=\$1`).WithArgs("photo-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	req = httptest.NewRequest(http.MethodDelete, "/pois/photos/photo-1", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete photo status: %v %d", err, resp.StatusCode)
	}
}

func TestSearchHandler(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, &fakeStore{}, parkBounds, nil), passthrough)

	mock.ExpectQuery(`FROM pois p\s+LEFT JOIN poi_photos`).
		WillReturnRows(poiRows().
			AddRow("near", "Visitor Center", 39.6334, -77.4530, "2024-07-04", "", "", 0.0, 0.0, "", time.Now(), ""))

	req := httptest.NewRequest(http.MethodGet, "/pois/search?lat=39.6334&lng=-77.4530&radius_km=2", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("search status: %v", err)
	}
}
