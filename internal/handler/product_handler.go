package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/products の公開+管理API
type ProductHandler struct {
	uc         *usecase.ProductUsecase
	jwtSecret  string
	uploadsDir string
}

func NewProductHandler(uc *usecase.ProductUsecase, jwtSecret string, uploadsDir string) *ProductHandler {
	return &ProductHandler{uc: uc, jwtSecret: jwtSecret, uploadsDir: uploadsDir}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/products", h.list)
	e.GET("/api/products/:id", h.detail)

	admin := e.Group("/api/products", middleware.RequireAdmin(h.jwtSecret))
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.remove)
}

func (h *ProductHandler) list(c echo.Context) error {
	out, err := h.uc.ListAvailable(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	out, err := h.uc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 拡張子とContent-Typeからimage/videoを判定する。
func inferMediaType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "video/") {
		return "video"
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".mp4", ".webm", ".mov":
		return "video"
	}
	return "image"
}

// アップロードを保存して公開URLを返す。ファイル名は時刻+連番で衝突を避ける。
func (h *ProductHandler) saveUpload(fh *multipart.FileHeader, seq int) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%d%s", time.Now().UnixNano(), seq, filepath.Ext(fh.Filename))
	dst, err := os.Create(filepath.Join(h.uploadsDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

func (h *ProductHandler) collectUploads(c echo.Context) ([]usecase.ProductMediaInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil //multipartでなければmediaなし
	}

	files := form.File["media"]
	media := make([]usecase.ProductMediaInput, 0, len(files))
	for i, fh := range files {
		url, err := h.saveUpload(fh, i)
		if err != nil {
			return nil, err
		}
		media = append(media, usecase.ProductMediaInput{URL: url, Type: inferMediaType(fh)})
	}
	return media, nil
}

func (h *ProductHandler) create(c echo.Context) error {
	media, err := h.collectUploads(c)
	if err != nil {
		return writeError(c, err)
	}

	in := usecase.CreateProductInput{
		Name:  c.FormValue("name"),
		Price: c.FormValue("price"),
		Media: media,
	}
	if v := c.FormValue("description"); v != "" {
		in.Description = &v
	}
	if v := c.FormValue("stock"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid stock"})
		}
		in.Stock = &n
	}
	in.Width, _ = strconv.ParseFloat(c.FormValue("width"), 64)
	in.Height, _ = strconv.ParseFloat(c.FormValue("height"), 64)
	in.Weight, _ = strconv.ParseFloat(c.FormValue("weight"), 64)

	out, err := h.uc.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProductHandler) update(c echo.Context) error {
	uploaded, err := h.collectUploads(c)
	if err != nil {
		return writeError(c, err)
	}

	in := usecase.UpdateProductInput{}
	if v := c.FormValue("name"); v != "" {
		in.Name = &v
	}
	if v := c.FormValue("description"); v != "" {
		in.Description = &v
	}
	if v := c.FormValue("price"); v != "" {
		in.Price = &v
	}
	if v := c.FormValue("stock"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid stock"})
		}
		in.Stock = &n
	}
	if v := c.FormValue("width"); v != "" {
		f, _ := strconv.ParseFloat(v, 64)
		in.Width = &f
	}
	if v := c.FormValue("height"); v != "" {
		f, _ := strconv.ParseFloat(v, 64)
		in.Height = &f
	}
	if v := c.FormValue("weight"); v != "" {
		f, _ := strconv.ParseFloat(v, 64)
		in.Weight = &f
	}

	//残すメディアはexistingMedia（JSON配列）で届く。新規アップロードを後ろへ足す
	if v := c.FormValue("existingMedia"); v != "" {
		var existing []usecase.ProductMediaInput
		if err := json.Unmarshal([]byte(v), &existing); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid existingMedia"})
		}
		in.Media = append(existing, uploaded...)
	} else if len(uploaded) > 0 {
		in.Media = uploaded
	}

	res, err := h.uc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	if res.Deleted {
		return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
	}
	return c.JSON(http.StatusOK, res.Product)
}

func (h *ProductHandler) remove(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
