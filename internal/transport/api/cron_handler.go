package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	autoApproveBatch   = 50
	cronServiceTimeout = 30 * time.Second
)

type CronHandler struct {
	orderSvs OrderServicer
	keySvs   APIKeyServicer
	logger   *logrus.Entry
}

func NewCronHandler(orderSvs OrderServicer, keySvs APIKeyServicer, l *logrus.Logger) *CronHandler {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &CronHandler{
		orderSvs: orderSvs,
		keySvs:   keySvs,
		logger:   l.WithField("component", "cron"),
	}
}

type AutoApproveResponse struct {
	Processed     int      `json:"processed"`
	Completed     int      `json:"completed"`
	Failed        int      `json:"failed"`
	Orders        []string `json:"orders"`
	PurgedWindows int64    `json:"purged_rate_limit_windows"`
}

// AutoApprove POST CronGroup + CronAutoApproveRoute. Завершает заказы с истекшим сроком подтверждения и
// чистит устаревшие окна лимита запросов.
func (h *CronHandler) AutoApprove(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, cronServiceTimeout)
	defer cancel()

	results, err := h.orderSvs.AutoApproveExpired(ctx, time.Now(), autoApproveBatch)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := AutoApproveResponse{Processed: len(results), Orders: make([]string, 0, len(results))}
	for _, r := range results {
		if r.Err != nil {
			resp.Failed++
			h.logger.WithError(r.Err).WithField("order", r.OrderNumber).Warn("auto approve failed")
			continue
		}
		if r.Completed {
			resp.Completed++
			resp.Orders = append(resp.Orders, r.OrderNumber)
		}
	}

	purged, err := h.keySvs.PurgeRateLimits(ctx)
	if err != nil {
		// очистка счетчиков не влияет на результат подтверждения заказов.
		h.logger.WithError(err).Error("purge rate limit windows")
	}
	resp.PurgedWindows = purged

	c.JSON(http.StatusOK, resp)
}

// Healthz GET /healthz.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

