package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/queue-health-probe/internal/probe"
	"github.com/iliyamo/queue-health-probe/internal/repository"
)

// StorageHandler exercises the secure-storage key-value backend.
type StorageHandler struct {
	KV  repository.KVStore
	TTL time.Duration
}

func NewStorageHandler(kv repository.KVStore) *StorageHandler {
	if kv == nil {
		panic("nil kv store passed to NewStorageHandler")
	}
	return &StorageHandler{KV: kv, TTL: time.Minute}
}

type storageCheckResp struct {
	Status      probe.Status       `json:"status"`
	Backend     string             `json:"backend"`
	Key         string             `json:"key"`
	Error       string             `json:"error,omitempty"`
	Diagnostics *probe.Diagnostics `json:"diagnostics"`
}

// Check writes a unique key, reads it back, deletes it and confirms it is
// gone. Any mismatch or backend error is FAILED with a 500.
func (h *StorageHandler) Check(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()
	diag := probe.NewDiagnostics()
	key := "health-check:" + uuid.NewString()
	value := start.UTC().Format(time.RFC3339Nano)

	resp := storageCheckResp{Status: probe.StatusOK, Backend: h.KV.Name(), Key: key, Diagnostics: diag}
	fail := func(step string, err error) error {
		diag.Add(step, start, map[string]any{"error": err.Error()})
		resp.Status = probe.StatusFailed
		resp.Error = err.Error()
		c.Logger().Errorf("storage check %s: %v", step, err)
		return c.JSON(http.StatusInternalServerError, resp)
	}

	diag.Add("storage-set-start", start, nil)
	if err := h.KV.Set(ctx, key, value, h.TTL); err != nil {
		return fail("storage-set-failed", err)
	}
	diag.Add("storage-set-complete", start, nil)

	got, err := h.KV.Get(ctx, key)
	if err != nil {
		return fail("storage-get-failed", err)
	}
	if got != value {
		return fail("storage-get-mismatch", errors.New("read back a different value"))
	}
	diag.Add("storage-get-complete", start, nil)

	if err := h.KV.Delete(ctx, key); err != nil {
		return fail("storage-delete-failed", err)
	}
	if _, err := h.KV.Get(ctx, key); !errors.Is(err, repository.ErrNotFound) {
		if err == nil {
			err = errors.New("key still present after delete")
		}
		return fail("storage-delete-verify-failed", err)
	}
	diag.Add("storage-delete-complete", start, nil)

	return c.JSON(http.StatusOK, resp)
}
