package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
)

type transactionRequest struct {
	ID          string   `json:"id" validate:"required"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount" validate:"required"`
	Date        string   `json:"date" validate:"required"`
	Category    string   `json:"category"`
}

func (s *Server) side(c *gin.Context) (*ledger.Ledger, bool) {
	l, err := s.deps.Book.Side(constants.Side(c.Param("side")))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return l, true
}

func (s *Server) listTransactions(c *gin.Context) {
	l, ok := s.side(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"side": l.Side(), "transactions": l.List()})
}

func (s *Server) addTransaction(c *gin.Context) {
	l, ok := s.side(c)
	if !ok {
		return
	}
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, invalid("malformed transaction", err))
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		s.fail(c, err)
		return
	}
	tx, err := entity.NewTransaction(req.ID, req.Description, *req.Amount, req.Date)
	if err != nil {
		s.fail(c, err)
		return
	}
	tx.Category = req.Category
	if err := l.Add(tx); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) categorizeAll(c *gin.Context) {
	l, ok := s.side(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.deps.Categorizer.CategorizeAll(c.Request.Context(), l))
}

func (s *Server) categorizeOne(c *gin.Context) {
	l, ok := s.side(c)
	if !ok {
		return
	}
	tx, err := s.deps.Categorizer.CategorizeOne(c.Request.Context(), l, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}
