package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/middleware/auth"
	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/service"
	"github.com/Skotchmaster/plugtech/internal/storage"
	"github.com/Skotchmaster/plugtech/internal/transport"
	"github.com/Skotchmaster/plugtech/internal/util"
)

const imageField = "image_file"

type AdminHTTP struct {
	Editor *service.Editor
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// readUpload returns nil when the form carries no file.
func readUpload(c echo.Context) (*service.Upload, error) {
	fh, err := c.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// one byte over the limit is enough for the editor to reject it
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

func formString(form *multipart.Form, key string) (*string, bool) {
	v, ok := form.Value[key]
	if !ok || len(v) == 0 {
		return nil, false
	}
	s := v[0]
	return &s, true
}

func formBool(form *multipart.Form, key string) (*bool, error) {
	s, ok := formString(form, key)
	if !ok || *s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(*s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func createFromForm(form *multipart.Form) (transport.CreateProductRequest, error) {
	get := func(key string) string {
		if s, ok := formString(form, key); ok {
			return *s
		}
		return ""
	}
	inStock, err := formBool(form, "in_stock")
	if err != nil {
		return transport.CreateProductRequest{}, err
	}
	return transport.CreateProductRequest{
		Name:      get("name"),
		Category:  get("category"),
		Price:     json.Number(get("price")),
		Image:     get("image"),
		Processor: get("processor"),
		RAM:       get("ram"),
		Storage:   get("storage"),
		Display:   get("display"),
		Condition: get("condition"),
		InStock:   inStock,
	}, nil
}

func patchFromForm(form *multipart.Form) (transport.PatchProductRequest, error) {
	var req transport.PatchProductRequest
	req.Name, _ = formString(form, "name")
	req.Category, _ = formString(form, "category")
	if s, ok := formString(form, "price"); ok {
		n := json.Number(*s)
		req.Price = &n
	}
	req.Image, _ = formString(form, "image")
	req.Processor, _ = formString(form, "processor")
	req.RAM, _ = formString(form, "ram")
	req.Storage, _ = formString(form, "storage")
	req.Display, _ = formString(form, "display")
	req.Condition, _ = formString(form, "condition")

	inStock, err := formBool(form, "in_stock")
	if err != nil {
		return req, err
	}
	req.InStock = inStock
	return req, nil
}

func (h *AdminHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Editor.List(ctx, auth.SessionFrom(c), repo.ListFilter{
		Category: c.QueryParam("category"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return fail(l, "admin_list_failed", err)
	}
	return c.JSON(http.StatusOK, listBody(items, map[string]any{"meta": util.Meta(page, limit, total)}))
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var (
		req  transport.CreateProductRequest
		file *service.Upload
	)
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return badRequest(l, "create_product_failed", "invalid form", err)
		}
		if req, err = createFromForm(form); err != nil {
			return badRequest(l, "create_product_failed", "in_stock must be true or false", err)
		}
		if file, err = readUpload(c); err != nil {
			return badRequest(l, "create_product_failed", "cannot read image file", err)
		}
	} else if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product_failed", "invalid body", err)
	}

	prod, err := h.Editor.Create(ctx, auth.SessionFrom(c), req, file)
	if err != nil {
		return fail(l, "create_product_failed", err)
	}

	l.Info("create_product_success", "product_id", prod.ID.String(), "with_upload", file != nil)
	return c.JSON(http.StatusCreated, prod)
}

func (h *AdminHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_product")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "update_product_failed", "id is not a uuid", err)
	}

	var (
		req  transport.PatchProductRequest
		file *service.Upload
	)
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return badRequest(l, "update_product_failed", "invalid form", err)
		}
		if req, err = patchFromForm(form); err != nil {
			return badRequest(l, "update_product_failed", "in_stock must be true or false", err)
		}
		if file, err = readUpload(c); err != nil {
			return badRequest(l, "update_product_failed", "cannot read image file", err)
		}
	} else if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_product_failed", "invalid body", err)
	}

	prod, err := h.Editor.Update(ctx, auth.SessionFrom(c), id, req, file)
	if err != nil {
		return fail(l, "update_product_failed", err)
	}

	l.Info("update_product_success", "product_id", id.String(), "with_upload", file != nil)
	return c.JSON(http.StatusOK, prod)
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "delete_product_failed", "id is not a uuid", err)
	}
	if err := h.Editor.Delete(ctx, auth.SessionFrom(c), id); err != nil {
		return fail(l, "delete_product_failed", err)
	}

	l.Info("delete_product_success", "product_id", id.String())
	return c.NoContent(http.StatusNoContent)
}
