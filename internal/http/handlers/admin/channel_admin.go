package admin

import (
	"errors"
	"strconv"

	"github.com/payhub-next/internal/http/response"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListChannels 分页查询支付通道
func (h *Handler) ListChannels(c *gin.Context) {
	page, pageSize := pageParams(c)
	channels, total, err := h.ChannelService.ListAdmin(repository.ChannelListFilter{
		Page:     page,
		PageSize: pageSize,
		Type:     c.Query("type"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付通道失败", err)
		return
	}
	response.Success(c, gin.H{
		"list":  channels,
		"total": total,
	})
}

// GetChannel 查询单条支付通道
func (h *Handler) GetChannel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "通道编号无效", nil)
		return
	}

	ch, err := h.ChannelService.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付通道失败", err)
		return
	}
	if ch == nil {
		respondError(c, response.CodeNotFound, "支付通道不存在", nil)
		return
	}
	response.Success(c, ch)
}

// ChannelRequest 创建/更新支付通道请求
type ChannelRequest struct {
	Type   string      `json:"type" binding:"required"`
	Code   string      `json:"code" binding:"required"`
	Name   string      `json:"name" binding:"required"`
	Cover  string      `json:"cover"`
	Remark string      `json:"remark"`
	Params models.JSON `json:"params"`
	Sort   int64       `json:"sort"`
	Status int         `json:"status"`
}

// CreateChannel 创建支付通道
func (h *Handler) CreateChannel(c *gin.Context) {
	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	ch := &models.PaymentChannel{
		Type:   req.Type,
		Code:   req.Code,
		Name:   req.Name,
		Cover:  req.Cover,
		Remark: req.Remark,
		Params: req.Params,
		Sort:   req.Sort,
		Status: req.Status,
	}
	if err := h.ChannelService.Create(c.Request.Context(), ch); err != nil {
		respondChannelWriteError(c, err)
		return
	}
	response.Success(c, ch)
}

// UpdateChannel 更新支付通道
func (h *Handler) UpdateChannel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "通道编号无效", nil)
		return
	}

	ch, err := h.ChannelService.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付通道失败", err)
		return
	}
	if ch == nil {
		respondError(c, response.CodeNotFound, "支付通道不存在", nil)
		return
	}

	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	ch.Type = req.Type
	ch.Code = req.Code
	ch.Name = req.Name
	ch.Cover = req.Cover
	ch.Remark = req.Remark
	ch.Params = req.Params
	ch.Sort = req.Sort
	ch.Status = req.Status
	if err := h.ChannelService.Update(c.Request.Context(), ch); err != nil {
		respondChannelWriteError(c, err)
		return
	}
	response.Success(c, ch)
}

// DeleteChannel 删除支付通道（软删除）
func (h *Handler) DeleteChannel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "通道编号无效", nil)
		return
	}

	if err := h.ChannelService.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, service.ErrChannelNotFound) {
			respondError(c, response.CodeNotFound, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "删除支付通道失败", err)
		return
	}
	response.Success(c, nil)
}

// ChannelTypes 返回已注册的通道类型
func (h *Handler) ChannelTypes(c *gin.Context) {
	response.Success(c, h.ChannelService.Types())
}

func respondChannelWriteError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrChannelConfig) {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	respondError(c, response.CodeInternal, "保存支付通道失败", err)
}
