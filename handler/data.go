package handler

import (
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/stevemurr/simple-pos/storage"
)

// maxUpload bounds import and restore bodies well above any document the
// capacity ceiling admits.
const maxUpload = 64 << 20

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
	return b, errors.Wrap(err, "read body")
}

func (h *Handler) exportData(w http.ResponseWriter, _ *http.Request) {
	b, err := h.storage.ExportData()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.attachment(w, storage.ExportFileName(h.storage.Now()), b)
}

func (h *Handler) importData(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.storage.ImportData(b); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (h *Handler) backup(w http.ResponseWriter, _ *http.Request) {
	b, err := h.storage.CreateBackup()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "backed up", "bytes": len(b)})
}

// restore installs the request body, or the stored backup when the body is
// empty.
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.storage.RestoreFromBackup(b); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (h *Handler) clearData(w http.ResponseWriter, _ *http.Request) {
	if err := h.storage.ClearAllData(); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) storageInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := h.storage.StorageInfo()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) sync(w http.ResponseWriter, _ *http.Request) {
	if err := h.storage.Sync(); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "offline"})
}
