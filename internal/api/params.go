package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shareit/internal/models"
)

// userIDFromHeader reads the caller identity. The value is asserted by the
// client and is not authenticated here.
func userIDFromHeader(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(models.UserIDHeader))
	if raw == "" {
		return 0, fmt.Errorf("%s header is required", models.UserIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s header: %s", models.UserIDHeader, raw)
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return id, nil
}

// pageFromQuery reads from and size, defaulting to 0 and defaultSize.
// Range checks are left to the services.
func pageFromQuery(r *http.Request, defaultSize int) (models.Page, error) {
	q := r.URL.Query()
	from, err := intParam(q.Get("from"), 0)
	if err != nil {
		return models.Page{}, fmt.Errorf("invalid from: %s", q.Get("from"))
	}
	size, err := intParam(q.Get("size"), defaultSize)
	if err != nil {
		return models.Page{}, fmt.Errorf("invalid size: %s", q.Get("size"))
	}
	return models.NewPage(from, size), nil
}

func intParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
