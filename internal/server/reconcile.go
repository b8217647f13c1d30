package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/receipts-reconciler/internal/export"
	"github.com/joseph-ayodele/receipts-reconciler/internal/reconcile"
	"github.com/joseph-ayodele/receipts-reconciler/internal/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) reconcile(c *gin.Context) {
	strict, err := strconv.ParseBool(c.DefaultQuery("strict", "false"))
	if err != nil {
		s.fail(c, invalid("strict must be a boolean", err))
		return
	}
	res, err := reconcile.Book(s.deps.Book, strict, s.cfg.Tolerance...)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("reconcile.done",
		"strict", strict,
		"matched_ledger", res.Summary.MatchedA,
		"matched_documents", res.Summary.MatchedB,
	)
	c.JSON(http.StatusOK, res)
}

func (s *Server) buildSummary() reports.Summary {
	return reports.Build(s.deps.Book.Ledger.List(), s.deps.Book.Documents.List(), s.deps.Documents.Len())
}

func (s *Server) summary(c *gin.Context) {
	c.JSON(http.StatusOK, s.buildSummary())
}

func (s *Server) exportXLSX(c *gin.Context) {
	data, err := s.deps.Exporter.WorkbookXLSX(export.Input{
		Documents: s.deps.Documents.List(),
		Ledger:    s.deps.Book.Ledger.List(),
		Invoices:  s.deps.Book.Documents.List(),
		Summary:   s.buildSummary(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	name := fmt.Sprintf("reconciliation-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}
