package maintenance

import (
	"context"
	"fmt"
	"time"

	"jobcenter/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TicketRequest 维修系统的开单请求
type TicketRequest struct {
	TicketRef   string    `json:"ticket_ref"`
	OperationID int64     `json:"operation_id"`
	MachineID   string    `json:"machine_id"`
	Remarks     string    `json:"remarks"`
	ReportedBy  string    `json:"reported_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// TicketResponse 维修系统响应
type TicketResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// Client 外部维修系统 API 客户端
// 工单引用在本地生成并随停机记录落库；这里只是提交后的上报，
// 上报失败不影响已提交的 Breakdown 事务（维修侧可凭 ticket_ref 对账补单）。
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建维修系统客户端
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		client.SetHeader("X-Api-Key", apiKey)
	}

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// CreateTicket 上报故障工单
func (c *Client) CreateTicket(ctx context.Context, d *domain.DowntimeRecord, reportedBy string) error {
	request := TicketRequest{
		TicketRef:   d.TicketRef,
		OperationID: d.OperationID,
		MachineID:   d.MachineID,
		Remarks:     d.Remarks,
		ReportedBy:  reportedBy,
		OccurredAt:  d.StartTime,
	}

	c.logger.Info("Reporting maintenance ticket",
		zap.String("ticket_ref", d.TicketRef),
		zap.String("machine_id", d.MachineID),
		zap.Int64("operation_id", d.OperationID),
	)

	var response TicketResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/maintenance/api/v1/tickets")

	if err != nil {
		return fmt.Errorf("maintenance ticket request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("maintenance system returned %d: %s", resp.StatusCode(), response.Msg)
	}

	return nil
}
