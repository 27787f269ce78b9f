package usecase

import (
	"context"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 配送ステータスの前進規則。順番飛ばしは不可（方針として明示）。
// キャンセルだけは非終端のどこからでも可。
var nextFulfillment = map[model.FulfillmentStatus]model.FulfillmentStatus{
	model.FulfillmentPending:    model.FulfillmentProcessing,
	model.FulfillmentProcessing: model.FulfillmentShipped,
	model.FulfillmentShipped:    model.FulfillmentDelivered,
}

type FulfillmentUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	clock     Clock
}

func NewFulfillmentUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository, clock Clock) *FulfillmentUsecase {
	return &FulfillmentUsecase{tx: tx, auditRepo: auditRepo, clock: clock}
}

type UpdateFulfillmentInput struct {
	TargetStatus string
}

// 注文一覧（管理者用）
func (u *FulfillmentUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 配送ステータス更新。支払いサブマシンには触らない。
// 同じ注文への並行遷移は条件付きUPDATEで直列化し、負けた側は読み直す。
func (u *FulfillmentUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID string, in UpdateFulfillmentInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	target := model.FulfillmentStatus(strings.TrimSpace(in.TargetStatus))
	if !target.Valid() {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByOrderID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない（200）
		if o.FulfillmentStatus == target {
			return nil
		}
		// 終端ガード
		if o.FulfillmentStatus.IsTerminal() {
			return NewHTTPError(http.StatusBadRequest, "cannot change terminal order")
		}

		// キャンセル以外は1段ずつしか進めない
		if target != model.FulfillmentCancelled && nextFulfillment[o.FulfillmentStatus] != target {
			return NewHTTPError(http.StatusBadRequest, "invalid status")
		}

		updated, err := r.Orders().UpdateFulfillmentStatusIf(ctx, orderID, o.FulfillmentStatus, target)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !updated {
			//並行遷移に負けた。読み直して同じ結果なら冪等no-op。
			o2, err := r.Orders().FindByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if o2.FulfillmentStatus == target {
				return nil
			}
			return NewHTTPError(http.StatusConflict, "conflict")
		}

		// 監査ログ（UPDATE_FULFILLMENT_STATUS）
		beforeJSON := `{"fulfillment_status":"` + string(o.FulfillmentStatus) + `"}`
		afterJSON := `{"fulfillment_status":"` + string(target) + `"}`
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateFulfillment,
			ResourceType: model.AuditResourceOrder,
			ResourceRef:  orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}
