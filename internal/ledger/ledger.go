package ledger

import (
	"context"
	"errors"

	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("余额不足")
	ErrFlowNotFound        = errors.New("余额流水不存在")
)

// Snapshot 用户余额快照
type Snapshot struct {
	Usable decimal.Decimal `json:"usable"` // 可用余额
	Locked decimal.Decimal `json:"locked"` // 锁定余额
}

// BalanceLedger 用户余额账本契约
type BalanceLedger interface {
	// Lock 以业务单号锁定金额，可用余额不足时拒绝
	Lock(ctx context.Context, unid uint, code, name string, amount decimal.Decimal) error
	// Credit 入账一条正数流水（充值或退款返还）
	Credit(ctx context.Context, unid uint, code, name string, amount decimal.Decimal) error
	// Unlock 解锁并消费锁定金额，重复调用不生效
	Unlock(ctx context.Context, code string) error
	// Cancel 作废锁定并退回余额，重复调用不生效
	Cancel(ctx context.Context, code string) error
	// Recount 重算余额快照
	Recount(ctx context.Context, unid uint) (*Snapshot, error)
	// WithTx 绑定外部事务
	WithTx(tx *gorm.DB) *GormBalanceLedger
}

// GormBalanceLedger 基于余额流水表的账本实现
type GormBalanceLedger struct {
	db       *gorm.DB
	balances repository.BalanceRepository
}

// NewBalanceLedger 创建余额账本
func NewBalanceLedger(db *gorm.DB, balances repository.BalanceRepository) *GormBalanceLedger {
	return &GormBalanceLedger{db: db, balances: balances}
}

// Lock 锁定金额：校验可用余额后写入一条负数锁定流水
func (l *GormBalanceLedger) Lock(ctx context.Context, unid uint, code, name string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInsufficientBalance
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := l.txRepo(tx)
		usable, err := repo.SumUsable(unid)
		if err != nil {
			return err
		}
		if usable.LessThan(amount) {
			return ErrInsufficientBalance
		}
		return repo.Create(&models.BalanceFlow{
			Unid:   unid,
			Code:   code,
			Name:   name,
			Amount: models.NewMoneyFromDecimal(amount.Neg()),
			Locked: 1,
		})
	})
}

// Credit 入账一条正数流水
func (l *GormBalanceLedger) Credit(ctx context.Context, unid uint, code, name string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInsufficientBalance
	}
	return l.ctxRepo(ctx).Create(&models.BalanceFlow{
		Unid:   unid,
		Code:   code,
		Name:   name,
		Amount: models.NewMoneyFromDecimal(amount),
	})
}

// Unlock 解锁流水，锁定金额转为永久消费
func (l *GormBalanceLedger) Unlock(ctx context.Context, code string) error {
	_, err := l.ctxRepo(ctx).Unlock(code)
	return err
}

// Cancel 作废流水，锁定金额退回可用余额
func (l *GormBalanceLedger) Cancel(ctx context.Context, code string) error {
	_, err := l.ctxRepo(ctx).Cancel(code)
	return err
}

// Recount 重算余额快照
func (l *GormBalanceLedger) Recount(ctx context.Context, unid uint) (*Snapshot, error) {
	repo := l.ctxRepo(ctx)
	usable, err := repo.SumUsable(unid)
	if err != nil {
		return nil, err
	}
	locked, err := repo.SumLocked(unid)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Usable: usable, Locked: locked}, nil
}

// WithTx 绑定外部事务
func (l *GormBalanceLedger) WithTx(tx *gorm.DB) *GormBalanceLedger {
	if tx == nil {
		return l
	}
	return &GormBalanceLedger{db: tx, balances: l.balances.WithTx(tx)}
}

func (l *GormBalanceLedger) ctxRepo(ctx context.Context) repository.BalanceRepository {
	return l.txRepo(l.db.WithContext(ctx))
}

func (l *GormBalanceLedger) txRepo(tx *gorm.DB) repository.BalanceRepository {
	return l.balances.WithTx(tx)
}
