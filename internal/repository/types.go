package repository

import "time"

// RecordListFilter 查询支付单列表的过滤条件
type RecordListFilter struct {
	Page          int
	PageSize      int
	Unid          uint
	OrderNo       string
	Code          string
	ChannelType   string
	ChannelCode   string
	PaymentStatus *int
	AuditStatus   *int
	RefundStatus  *int
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// RefundListFilter 查询退款单列表的过滤条件
type RefundListFilter struct {
	Page        int
	PageSize    int
	RecordCode  string
	Status      *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TransferListFilter 查询提现单列表的过滤条件
type TransferListFilter struct {
	Page        int
	PageSize    int
	Unid        uint
	Type        string
	Code        string
	Status      *int
	AuditStatus *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ChannelListFilter 查询支付通道列表的过滤条件
type ChannelListFilter struct {
	Page       int
	PageSize   int
	Type       string
	Search     string
	ActiveOnly bool
}

// BalanceFlowListFilter 查询余额流水列表的过滤条件
type BalanceFlowListFilter struct {
	Page        int
	PageSize    int
	Unid        uint
	Locked      *int
	Cancelled   *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
