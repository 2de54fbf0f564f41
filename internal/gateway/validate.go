package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/labstack/echo/v4"
)

const maxBodyBytes = 1 << 20

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// readBody decodes the JSON body into dst and puts the bytes back for the proxy.
func readBody(c echo.Context, dst any) error {
	req := c.Request()
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	return json.Unmarshal(body, dst)
}

func (g *Gateway) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := strings.TrimSpace(c.Request().Header.Get(models.UserIDHeader))
		if raw == "" {
			return badRequest(c, models.UserIDHeader+" header is required")
		}
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return badRequest(c, "invalid "+models.UserIDHeader+" header: "+raw)
		}
		return next(c)
	}
}

func (g *Gateway) validatePathID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := strconv.ParseInt(c.Param("id"), 10, 64); err != nil {
			return badRequest(c, "invalid id: "+c.Param("id"))
		}
		return next(c)
	}
}

// validatePage checks from and size and fills in the gateway's default size.
func (g *Gateway) validatePage(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		q := req.URL.Query()

		from := 0
		if raw := strings.TrimSpace(q.Get("from")); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return badRequest(c, "invalid from: "+raw)
			}
			from = v
		}
		size := g.cfg.DefaultPageSize
		if raw := strings.TrimSpace(q.Get("size")); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return badRequest(c, "invalid size: "+raw)
			}
			size = v
		}
		if from < 0 {
			return badRequest(c, "from must not be negative")
		}
		if size < 1 {
			return badRequest(c, "size must be positive")
		}

		q.Set("from", strconv.Itoa(from))
		q.Set("size", strconv.Itoa(size))
		req.URL.RawQuery = q.Encode()
		return next(c)
	}
}

func (g *Gateway) validateState(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := service.ParseState(c.QueryParam("state")); err != nil {
			return badRequest(c, domain.Message(err))
		}
		return next(c)
	}
}

// validateSearch answers a blank search itself.
func (g *Gateway) validateSearch(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if strings.TrimSpace(c.QueryParam("text")) == "" {
			return c.JSON(http.StatusOK, []models.Item{})
		}
		return next(c)
	}
}

func (g *Gateway) validateBooking(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.BookingRequest
		if err := readBody(c, &req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if req.ItemID <= 0 {
			return badRequest(c, "itemId is required")
		}
		if strings.TrimSpace(req.Start) == "" || strings.TrimSpace(req.End) == "" {
			return badRequest(c, "start and end are required")
		}
		in, err := req.Input()
		if err != nil {
			return badRequest(c, err.Error())
		}
		if !in.Start.Before(in.End) || in.Start.Before(g.now()) {
			return badRequest(c, "incorrect booking time")
		}
		return next(c)
	}
}

func (g *Gateway) validateApproval(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := strconv.ParseBool(c.QueryParam("approved")); err != nil {
			return badRequest(c, "approved must be true or false")
		}
		return next(c)
	}
}

func (g *Gateway) validateItemCreate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in models.ItemInput
		if err := readBody(c, &in); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		switch {
		case strings.TrimSpace(in.Name) == "":
			return badRequest(c, "item name is required")
		case strings.TrimSpace(in.Description) == "":
			return badRequest(c, "item description is required")
		case in.Available == nil:
			return badRequest(c, "item availability is required")
		}
		return next(c)
	}
}

func (g *Gateway) validateComment(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in models.CommentInput
		if err := readBody(c, &in); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if strings.TrimSpace(in.Text) == "" {
			return badRequest(c, "comment text is required")
		}
		return next(c)
	}
}

func (g *Gateway) validateUserCreate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in models.UserInput
		if err := readBody(c, &in); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if strings.TrimSpace(in.Name) == "" {
			return badRequest(c, "name is required")
		}
		if err := service.ValidateEmail(strings.TrimSpace(in.Email)); err != nil {
			return badRequest(c, domain.Message(err))
		}
		return next(c)
	}
}

func (g *Gateway) validateUserPatch(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch models.UserPatch
		if err := readBody(c, &patch); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if patch.Email != nil {
			if err := service.ValidateEmail(strings.TrimSpace(*patch.Email)); err != nil {
				return badRequest(c, domain.Message(err))
			}
		}
		return next(c)
	}
}

func (g *Gateway) validateRequest(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in models.ItemRequestInput
		if err := readBody(c, &in); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if strings.TrimSpace(in.Description) == "" {
			return badRequest(c, "request description is required")
		}
		return next(c)
	}
}
