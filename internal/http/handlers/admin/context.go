package admin

import (
	"strconv"
	"time"

	handlershared "github.com/payhub-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.ContextUint(c, "admin_id")
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func requestLogRolesWarn(c *gin.Context, adminID uint, err error) {
	handlershared.RequestLog(c).Warnw("admin_roles_load_failed",
		"admin_id", adminID,
		"error", err,
	)
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return handlershared.NormalizePagination(page, pageSize)
}

// timeFilter 解析可选时间过滤参数，接受 RFC3339 或日期格式
func timeFilter(c *gin.Context, key string) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if value, err := time.Parse(layout, raw); err == nil {
			return &value
		}
	}
	return nil
}

// intFilter 解析可选整型过滤参数，缺省返回 nil
func intFilter(c *gin.Context, key string) *int {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}
