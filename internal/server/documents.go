package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
)

type uploadResult struct {
	File  string      `json:"file"`
	Job   *entity.Job `json:"job,omitempty"`
	Error *errorBody  `json:"error,omitempty"`
}

// uploadDocuments stores every multipart "file" part and queues it. Each
// file is accepted or rejected on its own; the response is 202 when at least
// one file was queued.
func (s *Server) uploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.fail(c, invalid("expected a multipart form", err))
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		s.fail(c, invalid(`no "file" parts in upload`, nil))
		return
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.fail(c, fmt.Errorf("upload dir: %w", err))
		return
	}

	results := make([]uploadResult, 0, len(files))
	queued := 0
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		res := uploadResult{File: name}

		var err error
		switch {
		case !constants.IsAccepted(name):
			err = common.NewAppError(common.CodeValidation,
				fmt.Sprintf("%s: only png, jpg, jpeg and pdf files are accepted", name), common.ErrUnsupportedFile)
		case fh.Size > s.cfg.MaxUploadBytes:
			err = invalid(fmt.Sprintf("%s: file exceeds %d bytes", name, s.cfg.MaxUploadBytes), nil)
		}
		if err == nil {
			dst := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"-"+name)
			if err = c.SaveUploadedFile(fh, dst); err == nil {
				var job entity.Job
				if job, err = s.deps.Queue.Enqueue(c.Request.Context(), dst); err == nil {
					res.Job = &job
					queued++
				}
			}
		}
		if err != nil {
			_, body := describe(err)
			res.Error = &body
		}
		results = append(results, res)
	}

	status := http.StatusAccepted
	if queued == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"uploads": results})
}

func (s *Server) listDocuments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": s.deps.Documents.List()})
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	if !s.deps.Documents.Remove(id) {
		s.fail(c, common.NotFoundError(fmt.Sprintf("document %s not found", id)))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) retryDocument(c *gin.Context) {
	doc, err := s.deps.Retrier.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// promoteDocument copies an extracted document into the documents ledger.
func (s *Server) promoteDocument(c *gin.Context) {
	id := c.Param("id")
	doc, ok := s.deps.Documents.Get(id)
	if !ok {
		s.fail(c, common.NotFoundError(fmt.Sprintf("document %s not found", id)))
		return
	}
	tx := ledger.FromDocument(doc)
	if err := s.deps.Book.Documents.Add(tx); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) getJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, invalid("job id must be a UUID", err))
		return
	}
	job, ok := s.deps.Queue.Job(id)
	if !ok {
		s.fail(c, common.NotFoundError(fmt.Sprintf("job %s not found", id)))
		return
	}
	c.JSON(http.StatusOK, job)
}
