package poi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, adminMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		pois, err := svc.Pois(c.Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(pois)
	})

	r.Get("/search", authMiddleware, func(c *fiber.Ctx) error {
		lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
		lng, _ := strconv.ParseFloat(c.Query("lng"), 64)
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius == 0 {
			radius = 5
		}
		results, err := svc.Near(c.Context(), lat, lng, radius)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(results)
	})

	r.Post("/", authMiddleware, adminMiddleware, func(c *fiber.Ctx) error {
		var req POI
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		created, err := svc.Create(c.Context(), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		p, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(p)
	})

	r.Put("/:id", authMiddleware, adminMiddleware, func(c *fiber.Ctx) error {
		var req POI
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		updated, err := svc.Update(c.Context(), c.Params("id"), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(updated)
	})

	r.Delete("/:id", authMiddleware, adminMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id/photos", authMiddleware, func(c *fiber.Ctx) error {
		photos, err := svc.Photos(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(photos)
	})

	r.Post("/:id/photos", authMiddleware, adminMiddleware, func(c *fiber.Ctx) error {
		file, err := c.FormFile("photo")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "photo file required")
		}
		src, err := file.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer src.Close()

		contentType := file.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		photo, err := svc.UploadPhoto(c.Context(), c.Params("id"), file.Filename, contentType, src, c.FormValue("caption"))
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(photo)
	})

	r.Put("/:id/photos/:photoID/hero", authMiddleware, adminMiddleware, func(c *fiber.Ctx) error {
		if err := svc.SetHero(c.Context(), c.Params("id"), c.Params("photoID")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/photos/:photoID", authMiddleware, adminMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeletePhoto(c.Context(), c.Params("photoID")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
